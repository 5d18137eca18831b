package resolver

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	dErrors "quotaguard/pkg/domain-errors"
)

// ServiceTokenClaims is the claim set scheme A tokens carry.
type ServiceTokenClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ServiceTokenVerifier validates HS256 service tokens issued by the platform
// itself. Signature and registered-claim validation always run before any
// claim is read; an unverified payload is never trusted.
type ServiceTokenVerifier struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewServiceTokenVerifier(signingKey, issuer, audience string) *ServiceTokenVerifier {
	return &ServiceTokenVerifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (v *ServiceTokenVerifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	claims := new(ServiceTokenClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return v.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAuthenticationInvalid, "service token verification failed")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "service token is not valid")
	}

	return claimsFrom(claims.TenantID, claims.UserID, claims.Role)
}

// claimsFrom enforces the mandatory-claims rule shared by both schemes: a
// token that verifies but lacks a tenant or user claim is invalid, exactly
// as if no credential had been presented.
func claimsFrom(tenantID, userID, role string) (*Claims, error) {
	if tenantID == "" {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "verified token lacks tenant claim")
	}
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "verified token lacks user claim")
	}
	if role == "" {
		role = RoleMember
	}
	return &Claims{TenantID: tenantID, UserID: userID, Role: role}, nil
}
