// Package httptransport assembles the HTTP surface: middleware stack,
// authenticated quota routes, admin routes, and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quotaguard/internal/auth/resolver"
	"quotaguard/internal/platform/middleware"
	quotahandler "quotaguard/internal/quota/handler"
	tenanthandler "quotaguard/internal/tenant/handler"
	"quotaguard/pkg/platform/httputil"
	"quotaguard/pkg/platform/middleware/auth"
	"quotaguard/pkg/platform/middleware/requesttime"
)

type Deps struct {
	Resolver auth.ContextResolver
	Quota    *quotahandler.Handler
	Tenants  *tenanthandler.Handler
	Logger   *slog.Logger
}

// NewRouter wires all endpoints with middleware. Operational endpoints stay
// outside the auth stack so probes and scrapers need no credentials.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Resolver, deps.Logger))
		deps.Quota.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(resolver.RoleAdmin))
			deps.Tenants.Register(r)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
