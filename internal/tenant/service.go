// Package tenant implements onboarding and administrative lifecycle
// operations on tenant records. Request-path quota mutation lives in the
// quota packages; this service only handles creation and tier changes.
package tenant

import (
	"context"
	"log/slog"

	"quotaguard/internal/security"
	"quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// Store is the persistence surface this service needs. The quota stores
// satisfy it.
type Store interface {
	Get(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	Create(ctx context.Context, t *models.Tenant) error
	UpdateTier(ctx context.Context, tenantID id.TenantID, newTier tier.Tier, status models.SubscriptionStatus) error
}

type Service struct {
	store   Store
	catalog *tier.Catalog
	logger  *slog.Logger
	sink    security.Sink
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithSecuritySink(sink security.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func NewService(store Store, catalog *tier.Catalog, opts ...Option) *Service {
	svc := &Service{store: store, catalog: catalog}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.sink == nil {
		svc.sink = security.NewLogSink(svc.logger)
	}
	return svc
}

// Onboard creates a tenant record on the trial tier with zeroed counters.
// The tenant id may be supplied by the caller (for idempotent provisioning)
// or left empty to mint a fresh one.
func (s *Service) Onboard(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsEmpty() {
		tenantID = id.NewTenantID()
	}

	t, err := models.NewTenant(tenantID, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, security.Event{
		Type:     security.EventTenantOnboarded,
		Severity: security.SeverityInfo,
		Message:  "tenant onboarded on trial tier",
		Context: map[string]any{
			"tenant_id": t.ID.String(),
			"tier":      string(t.Tier),
		},
	})
	s.logger.InfoContext(ctx, "tenant onboarded",
		slog.String("tenant_id", t.ID.String()),
		slog.String("tier", string(t.Tier)),
	)
	return t, nil
}

// Get returns the current tenant record.
func (s *Service) Get(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.store.Get(ctx, tenantID)
}

// ChangeTier moves a tenant to a new subscription tier. Existing usage
// counters are left untouched; a downgrade below current usage simply means
// no further consumption is allowed until usage drops.
func (s *Service) ChangeTier(ctx context.Context, tenantID id.TenantID, newTier tier.Tier, status models.SubscriptionStatus) (*models.Tenant, error) {
	if !newTier.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown subscription tier: "+string(newTier))
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown subscription status: "+string(status))
	}

	current, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateTier(ctx, tenantID, newTier, status); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, security.Event{
		Type:     security.EventTenantTierChanged,
		Severity: security.SeverityInfo,
		Message:  "tenant subscription tier changed",
		Context: map[string]any{
			"tenant_id": tenantID.String(),
			"from":      string(current.Tier),
			"to":        string(newTier),
			"status":    string(status),
		},
	})
	s.logger.InfoContext(ctx, "tenant tier changed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("from", string(current.Tier)),
		slog.String("to", string(newTier)),
	)

	updated, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
