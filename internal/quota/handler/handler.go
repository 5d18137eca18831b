// Package handler is the HTTP surface for quota consumption. It stays thin:
// credentials were already resolved by middleware, so handlers only translate
// between the wire and the enforcer.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quotaguard/internal/auth/resolver"
	"quotaguard/internal/quota/models"
	tenantmodels "quotaguard/internal/tenant/models"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/httputil"
	"quotaguard/pkg/platform/middleware/auth"
)

// Enforcer decides whether a tenant may consume one more unit of a resource.
type Enforcer interface {
	TryConsume(ctx context.Context, tenantID id.TenantID, kind models.ResourceKind) (*models.Decision, error)
	Release(ctx context.Context, tenantID id.TenantID, kind models.ResourceKind) error
}

// TenantReader exposes the read side of tenant records for the usage endpoint.
type TenantReader interface {
	Get(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
}

type Handler struct {
	enforcer Enforcer
	tenants  TenantReader
	logger   *slog.Logger
}

func New(enforcer Enforcer, tenants TenantReader, logger *slog.Logger) *Handler {
	return &Handler{enforcer: enforcer, tenants: tenants, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/resources/{kind}", h.HandleConsume)
	r.Delete("/v1/resources/{kind}", h.HandleRelease)
	r.Get("/v1/tenants/me", h.HandleGetOwnTenant)
}

// HandleConsume reserves one unit of the named resource kind for the
// authenticated tenant. A denial is a well-formed 403 carrying the decision,
// not an opaque error.
func (h *Handler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, kind, ok := h.authAndKind(w, r)
	if !ok {
		return
	}

	decision, err := h.enforcer.TryConsume(ctx, authCtx.TenantID, kind)
	if err != nil {
		h.logger.ErrorContext(ctx, "quota consume failed",
			"error", err,
			"tenant_id", authCtx.TenantID.String(),
			"kind", string(kind),
		)
		httputil.WriteError(w, err)
		return
	}

	if !decision.Allowed {
		httputil.WriteJSON(w, http.StatusForbidden, decision)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, decision)
}

// HandleRelease returns one unit of a previously consumed resource, e.g.
// after the caller deleted the underlying record.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, kind, ok := h.authAndKind(w, r)
	if !ok {
		return
	}

	if err := h.enforcer.Release(ctx, authCtx.TenantID, kind); err != nil {
		h.logger.ErrorContext(ctx, "quota release failed",
			"error", err,
			"tenant_id", authCtx.TenantID.String(),
			"kind", string(kind),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetOwnTenant returns the authenticated tenant's record, including
// current usage counters.
func (h *Handler) HandleGetOwnTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.GetAuthContext(ctx)
	if authCtx == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthenticationRequired, "authentication required"))
		return
	}

	tenant, err := h.tenants.Get(ctx, authCtx.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) authAndKind(w http.ResponseWriter, r *http.Request) (*resolver.Context, models.ResourceKind, bool) {
	authCtx := auth.GetAuthContext(r.Context())
	if authCtx == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuthenticationRequired, "authentication required"))
		return nil, "", false
	}

	kind := models.ResourceKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown resource kind: "+string(kind)))
		return nil, "", false
	}
	return authCtx, kind, true
}
