package resolver

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	dErrors "quotaguard/pkg/domain-errors"
)

// FederatedVerifier validates identity tokens minted by an external identity
// provider. Signing keys are fetched from the provider's JWKS endpoint and
// refreshed in the background by keyfunc.
type FederatedVerifier struct {
	issuer  string
	keyfunc keyfunc.Keyfunc
}

// NewFederatedVerifier builds a verifier for the given issuer. The JWKS
// endpoint follows the issuer's well-known layout unless jwksURL overrides it.
func NewFederatedVerifier(ctx context.Context, issuer, jwksURL string) (*FederatedVerifier, error) {
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("creating JWKS keyfunc for %s: %w", jwksURL, err)
	}
	return &FederatedVerifier{issuer: issuer, keyfunc: kf}, nil
}

func (v *FederatedVerifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, v.keyfunc.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAuthenticationInvalid, "identity token verification failed")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "identity token is not valid")
	}

	// Claims are read only after the signature and registered claims have
	// been validated above.
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "identity token carries no claims")
	}

	userID, _ := mapClaims.GetSubject()
	return claimsFrom(
		stringClaim(mapClaims, "custom:tenant_id"),
		userID,
		stringClaim(mapClaims, "custom:role"),
	)
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return value
}
