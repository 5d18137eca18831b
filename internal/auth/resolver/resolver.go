package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"quotaguard/internal/security"
	"quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
)

//go:generate mockgen -source=resolver.go -destination=mocks/verifier_mock.go -package=mocks

const (
	RoleAdmin  = "admin"
	RoleMember = "member"

	// Development-only identity returned when no credentials are presented
	// outside production. The values are deliberately conspicuous so they
	// are easy to spot in logs and downstream records.
	devTenantID = "dev-tenant"
	devUserID   = "dev-user"
)

// Claims is the verified identity material extracted from a credential.
type Claims struct {
	TenantID string
	UserID   string
	Role     string
}

// Context is the resolved identity attached to a request after
// authentication succeeds.
type Context struct {
	TenantID domain.TenantID
	UserID   domain.UserID
	Role     string
	Scheme   Scheme
}

// TokenVerifier validates a raw token and extracts its identity claims.
// Implementations must complete signature verification before reading any
// claim from the payload.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Resolver derives an authenticated Context from inbound credentials. Its
// behavior splits on the environment captured at construction time: with no
// verifiable credentials it fails closed in production and falls back to a
// fixed development identity everywhere else.
type Resolver struct {
	signals   EnvSignals
	service   TokenVerifier
	federated TokenVerifier

	logger  *slog.Logger
	sink    security.Sink
	metrics *Metrics
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithSecuritySink(sink security.Sink) Option {
	return func(r *Resolver) { r.sink = sink }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New builds a Resolver. Either verifier may be nil when the corresponding
// scheme is not configured for this deployment.
func New(signals EnvSignals, service, federated TokenVerifier, opts ...Option) *Resolver {
	r := &Resolver{
		signals:   signals,
		service:   service,
		federated: federated,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.sink == nil {
		r.sink = security.NewLogSink(r.logger)
	}
	return r
}

// Resolve authenticates the given credentials and returns the identity
// context. All failures are terminal for the request.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*Context, error) {
	scheme := selectScheme(creds, r.service != nil, r.federated != nil)

	authCtx, err := r.resolve(ctx, scheme, creds)
	if r.metrics != nil {
		r.metrics.RecordResolution(scheme, err == nil)
	}
	return authCtx, err
}

func (r *Resolver) resolve(ctx context.Context, scheme Scheme, creds Credentials) (*Context, error) {
	switch scheme {
	case SchemeServiceToken:
		return r.verify(ctx, scheme, r.service, creds.BearerToken)

	case SchemeFederated:
		return r.verify(ctx, scheme, r.federated, creds.IdentityToken)

	case SchemeUnverifiable:
		// Credential material arrived but no verifier is configured for
		// it. Treating it as valid would trust an unverified payload.
		r.sink.Emit(ctx, security.Event{
			Type:     security.EventAuthInvalidCredentials,
			Severity: security.SeverityWarning,
			Message:  "credentials presented for a scheme that is not configured",
			Context:  map[string]any{"configured_schemes": r.configuredSchemes()},
		})
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "no verifier configured for presented credentials")

	case SchemeDevFallback:
		return r.fallback(ctx)

	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unhandled auth scheme %q", scheme))
	}
}

func (r *Resolver) verify(ctx context.Context, scheme Scheme, verifier TokenVerifier, token string) (*Context, error) {
	claims, err := verifier.Verify(ctx, token)
	if err != nil {
		r.sink.Emit(ctx, security.Event{
			Type:     security.EventAuthInvalidCredentials,
			Severity: security.SeverityWarning,
			Message:  "credential verification failed",
			Context:  map[string]any{"scheme": string(scheme)},
		})
		r.logger.WarnContext(ctx, "credential verification failed",
			slog.String("scheme", string(scheme)),
			slog.Any("error", err),
		)
		if dErrors.HasCode(err, dErrors.CodeAuthenticationInvalid) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeAuthenticationInvalid, "credential verification failed")
	}

	// New, not Wrap: Wrap would keep the parse error's invalid-input code,
	// and a malformed claim must surface as an authentication failure.
	tenantID, err := domain.ParseTenantID(claims.TenantID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "verified token carries malformed tenant claim")
	}
	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeAuthenticationInvalid, "verified token carries malformed user claim")
	}

	return &Context{
		TenantID: tenantID,
		UserID:   userID,
		Role:     claims.Role,
		Scheme:   scheme,
	}, nil
}

// fallback handles the no-credentials path. In production this is a
// potential bypass attempt and is always rejected; everywhere else the fixed
// development identity is returned.
func (r *Resolver) fallback(ctx context.Context) (*Context, error) {
	if r.signals.IsProduction() {
		r.sink.Emit(ctx, security.Event{
			Type:        security.EventAuthBypassAttempt,
			Severity:    security.SeverityCritical,
			Message:     "unauthenticated request reached resolver in production",
			Environment: r.signals.Label(),
			Context: map[string]any{
				"configured_schemes": r.configuredSchemes(),
				"environment":        r.signals.Environment,
				"deployment_region":  r.signals.DeploymentRegion,
				"local_dev_override": r.signals.LocalDevOverride,
			},
		})
		r.logger.ErrorContext(ctx, "rejecting unauthenticated request in production",
			slog.String("environment", r.signals.Environment),
			slog.String("deployment_region", r.signals.DeploymentRegion),
		)
		return nil, dErrors.New(dErrors.CodeAuthenticationRequired, "authentication required")
	}

	r.sink.Emit(ctx, security.Event{
		Type:        security.EventAuthDevFallback,
		Severity:    security.SeverityWarning,
		Message:     "returning fixed development identity",
		Environment: r.signals.Label(),
	})
	return &Context{
		TenantID: domain.TenantID(devTenantID),
		UserID:   domain.UserID(devUserID),
		Role:     RoleAdmin,
		Scheme:   SchemeDevFallback,
	}, nil
}

func (r *Resolver) configuredSchemes() []string {
	schemes := make([]string, 0, 2)
	if r.service != nil {
		schemes = append(schemes, string(SchemeServiceToken))
	}
	if r.federated != nil {
		schemes = append(schemes, string(SchemeFederated))
	}
	return schemes
}
