// Package auth provides HTTP middleware that resolves inbound credentials
// into an authenticated context and installs it on the request.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"quotaguard/internal/auth/resolver"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/httputil"
)

const identityTokenHeader = "X-Identity-Token"

var forbiddenErr = dErrors.New(dErrors.CodeForbidden, "insufficient role")

// ContextResolver resolves raw credential material into an identity context.
type ContextResolver interface {
	Resolve(ctx context.Context, creds resolver.Credentials) (*resolver.Context, error)
}

type contextKey struct{}

// GetAuthContext returns the identity installed by Middleware, or nil when
// the request never passed through it.
func GetAuthContext(ctx context.Context) *resolver.Context {
	authCtx, _ := ctx.Value(contextKey{}).(*resolver.Context)
	return authCtx
}

// WithAuthContext installs an identity on a context. Exposed for handler
// tests that bypass the middleware.
func WithAuthContext(ctx context.Context, authCtx *resolver.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// Middleware extracts credentials from the request headers, resolves them,
// and either installs the identity context or terminates the request with
// the resolver's error.
func Middleware(res ContextResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := extractCredentials(r)

			authCtx, err := res.Resolve(r.Context(), creds)
			if err != nil {
				logger.WarnContext(r.Context(), "request authentication failed", "error", err)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

func extractCredentials(r *http.Request) resolver.Credentials {
	creds := resolver.Credentials{
		IdentityToken: strings.TrimSpace(r.Header.Get(identityTokenHeader)),
	}
	if authz := r.Header.Get("Authorization"); authz != "" {
		if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
			creds.BearerToken = strings.TrimSpace(token)
		}
	}
	return creds
}

// RequireRole gates a route on the resolved identity's role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil || authCtx.Role != role {
				httputil.WriteError(w, forbiddenErr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
