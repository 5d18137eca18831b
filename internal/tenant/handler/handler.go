package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/httputil"
)

// Service defines the tenant lifecycle operations this handler fronts.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Onboard(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	Get(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	ChangeTier(ctx context.Context, tenantID id.TenantID, newTier tier.Tier, status models.SubscriptionStatus) (*models.Tenant, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tenants", h.HandleOnboard)
	r.Get("/admin/tenants/{id}", h.HandleGet)
	r.Put("/admin/tenants/{id}/tier", h.HandleChangeTier)
}

type OnboardRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
}

type ChangeTierRequest struct {
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

func (r *ChangeTierRequest) Validate() error {
	if r.Tier == "" {
		return dErrors.New(dErrors.CodeValidation, "tier is required")
	}
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	return nil
}

// HandleOnboard creates a tenant on the trial tier. The body may supply a
// pre-provisioned tenant id; otherwise one is minted.
func (h *Handler) HandleOnboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[OnboardRequest](w, r, h.logger)
	if !ok {
		return
	}

	tenant, err := h.service.Onboard(ctx, id.TenantID(req.TenantID))
	if err != nil {
		h.logger.ErrorContext(ctx, "tenant onboarding failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	tenant, err := h.service.Get(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) HandleChangeTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	req, ok := httputil.DecodeAndValidate[ChangeTierRequest](w, r, h.logger)
	if !ok {
		return
	}

	tenant, err := h.service.ChangeTier(ctx, tenantID, tier.Tier(req.Tier), models.SubscriptionStatus(req.Status))
	if err != nil {
		h.logger.ErrorContext(ctx, "tier change failed",
			"error", err,
			"tenant_id", tenantID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}
