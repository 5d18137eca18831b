// Package enforcer answers "may this tenant create one more unit of resource
// X" and applies the consume atomically. It never reads a counter and writes
// based on that read: every decision rides on the store's conditional-write
// primitives, so the limit holds under unbounded concurrent requests.
//
// Usage:
//
//	svc, _ := enforcer.New(store, catalog)
//	decision, err := svc.TryConsume(ctx, tenantID, models.ResourceProject)
//	if err != nil { ... }
//	if !decision.Allowed {
//	    // Return a structured 403 with decision.Reason and upgrade guidance.
//	}
package enforcer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quotaguard/internal/quota/metrics"
	"quotaguard/internal/quota/models"
	"quotaguard/internal/security"
	tenantmodels "quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// Store is the conditional-write contract the enforcer needs. All mutations
// carry their precondition into the store; a Rejected outcome means the store
// evaluated the precondition, found it false, and changed nothing.
type Store interface {
	Get(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	ConditionalIncrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta, maxValue int, window *time.Time) (models.Outcome, error)
	ConditionalReset(ctx context.Context, tenantID id.TenantID, field models.CounterField, newValue int, windowStart time.Time) (models.Outcome, error)
	Decrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta int) error
}

// Service enforces per-tenant quotas against the tier catalog.
type Service struct {
	store        Store
	catalog      *tier.Catalog
	sink         security.Sink
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	environment  string
	storeTimeout time.Duration
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSecuritySink sets the sink receiving denial and store-failure events.
func WithSecuritySink(sink security.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithMetrics sets the Prometheus metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEnvironment stamps emitted security events with the runtime environment.
func WithEnvironment(env string) Option {
	return func(s *Service) {
		s.environment = env
	}
}

// WithStoreTimeout bounds each store round trip. A timeout is treated as a
// rejection: on ambiguity the enforcer denies, never assumes success.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// New creates a quota enforcer with the given store and catalog.
func New(store Store, catalog *tier.Catalog, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("tier catalog is required")
	}

	svc := &Service{
		store:   store,
		catalog: catalog,
		tracer:  otel.Tracer("quotaguard/quota"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// TryConsume decides whether tenantID may create one more unit of kind, and
// if so records the consume in the same indivisible store operation.
//
// On denial, Decision.CurrentUsage is the last value read before the
// conditional write. This is deliberately best-effort: re-reading after a
// rejection would report a value that may already be stale, at the cost of
// an extra round trip, so the known-stale-but-cheap value is reported
// instead. Callers must treat it as diagnostic.
func (s *Service) TryConsume(ctx context.Context, tenantID id.TenantID, kind models.ResourceKind) (*models.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "quota.TryConsume", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("resource.kind", string(kind)),
	))
	var decision *models.Decision
	var err error
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if decision != nil {
			span.SetAttributes(attribute.Bool("quota.allowed", decision.Allowed))
		}
		span.End()
	}()

	decision, err = s.tryConsume(ctx, tenantID, kind)
	return decision, err
}

func (s *Service) tryConsume(ctx context.Context, tenantID id.TenantID, kind models.ResourceKind) (*models.Decision, error) {
	if tenantID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID is required")
	}
	field, err := kind.Field()
	if err != nil {
		return nil, err
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		// Can't even establish the tier: deny, fail closed. The limit is
		// unknown here, so the decision reports 0.
		return s.failClosed(ctx, tenantID, kind, 0, err), nil
	}

	limits := s.catalog.LimitsFor(tenant.Tier)
	limit, err := kind.LimitFor(limits)
	if err != nil {
		return nil, err
	}

	// Unlimited tiers never touch the store: there is no counter to protect.
	if limit == tier.Unlimited {
		s.recordDecision(kind, true)
		return &models.Decision{Allowed: true}, nil
	}

	if kind.Windowed() {
		return s.consumeWindowed(ctx, tenant, kind, field, limit)
	}

	outcome, err := s.conditionalIncrement(ctx, tenantID, field, limit, nil)
	if err != nil {
		return s.failClosed(ctx, tenantID, kind, limit, err), nil
	}
	if outcome.Applied() {
		s.recordDecision(kind, true)
		return &models.Decision{Allowed: true}, nil
	}

	return s.deny(ctx, tenant, kind, lastKnownUsage(tenant, kind), limit), nil
}

// lastKnownUsage is the counter value from the tier read that preceded the
// conditional write. See TryConsume's doc comment for why denials report
// this instead of a fresh read.
func lastKnownUsage(t *tenantmodels.Tenant, kind models.ResourceKind) int {
	switch kind {
	case models.ResourceExpense:
		return t.CurrentMonthlyExpenses
	case models.ResourceUser:
		return t.CurrentUsers
	default:
		return t.CurrentProjects
	}
}

// consumeWindowed implements the monthly window dance. "Is the month over"
// and "increment" cannot be one precondition without racing the roll itself.
// So: increment against the current window; on rejection try to roll the
// window (counter=1) guarded on staleness; if another request already rolled
// it, retry the increment exactly once. After a successful roll every other
// contender's increment succeeds against the fresh window, so one retry is
// always enough.
func (s *Service) consumeWindowed(ctx context.Context, tenant *tenantmodels.Tenant, kind models.ResourceKind, field models.CounterField, limit int) (*models.Decision, error) {
	window := tenantmodels.MonthStart(requesttime.Now(ctx))
	tenantID := tenant.ID

	// Last-known usage only counts if it belongs to the current window.
	lastKnown := 0
	if tenant.ExpenseWindowStart != nil && tenant.ExpenseWindowStart.Equal(window) {
		lastKnown = tenant.CurrentMonthlyExpenses
	}

	outcome, err := s.conditionalIncrement(ctx, tenantID, field, limit, &window)
	if err != nil {
		return s.failClosed(ctx, tenantID, kind, limit, err), nil
	}
	if outcome.Applied() {
		s.recordDecision(kind, true)
		return &models.Decision{Allowed: true}, nil
	}

	// Rejected: either the stored window is stale or the counter is full.
	// A roll attempt distinguishes them without a read.
	if limit >= 1 {
		outcome, err = s.conditionalReset(ctx, tenantID, field, 1, window)
		if err != nil {
			return s.failClosed(ctx, tenantID, kind, limit, err), nil
		}
		if outcome.Applied() {
			if s.metrics != nil {
				s.metrics.RecordWindowRoll()
			}
			s.recordDecision(kind, true)
			return &models.Decision{Allowed: true}, nil
		}
	}

	// A concurrent winner may have rolled the window between our two calls.
	outcome, err = s.conditionalIncrement(ctx, tenantID, field, limit, &window)
	if err != nil {
		return s.failClosed(ctx, tenantID, kind, limit, err), nil
	}
	if outcome.Applied() {
		s.recordDecision(kind, true)
		return &models.Decision{Allowed: true}, nil
	}

	return s.deny(ctx, tenant, kind, lastKnown, limit), nil
}

// Release undoes one unit of kind after a resource deletion. The decrement
// floor-clamps at zero and carries no precondition: pairing releases with
// prior consumes is the caller's resource-lifecycle obligation, including
// after abandoning a request whose consume already succeeded.
func (s *Service) Release(ctx context.Context, tenantID id.TenantID, kind models.ResourceKind) error {
	if tenantID.IsEmpty() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant ID is required")
	}
	field, err := kind.Field()
	if err != nil {
		return err
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	limit, err := kind.LimitFor(s.catalog.LimitsFor(tenant.Tier))
	if err != nil {
		return err
	}
	// Symmetric with TryConsume: unlimited tiers never counted the consume.
	if limit == tier.Unlimited {
		return nil
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.store.Decrement(storeCtx, tenantID, field, 1); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "release failed")
	}
	if s.metrics != nil {
		s.metrics.RecordRelease(string(kind))
	}
	return nil
}

func (s *Service) getTenant(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.store.Get(storeCtx, tenantID)
}

func (s *Service) conditionalIncrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, limit int, window *time.Time) (models.Outcome, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.store.ConditionalIncrement(storeCtx, tenantID, field, 1, limit, window)
}

func (s *Service) conditionalReset(ctx context.Context, tenantID id.TenantID, field models.CounterField, value int, window time.Time) (models.Outcome, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.store.ConditionalReset(storeCtx, tenantID, field, value, window)
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// deny builds the structured denial with upgrade guidance.
func (s *Service) deny(ctx context.Context, tenant *tenantmodels.Tenant, kind models.ResourceKind, lastKnown, limit int) *models.Decision {
	s.recordDecision(kind, false)
	decision := &models.Decision{
		Allowed:       false,
		Reason:        kind.Reason(),
		CurrentUsage:  lastKnown,
		Limit:         limit,
		SuggestedTier: s.catalog.SuggestedUpgrade(tenant.Tier),
	}
	s.emit(ctx, security.Event{
		Type:     security.EventQuotaDenied,
		Severity: security.SeverityInfo,
		Message:  "quota limit reached",
		Context: map[string]any{
			"tenant_id":     tenant.ID.String(),
			"resource_kind": string(kind),
			"tier":          string(tenant.Tier),
			"limit":         limit,
		},
	})
	return decision
}

// failClosed turns a store failure into a denial. The caller sees the same
// shape as a quota denial, never internal store detail; operators see the
// real cause in the log line and the store-error counter. limit is the tier
// limit when it was already read, 0 when the failure preceded the tier read.
func (s *Service) failClosed(ctx context.Context, tenantID id.TenantID, kind models.ResourceKind, limit int, cause error) *models.Decision {
	if s.metrics != nil {
		s.metrics.RecordStoreError()
	}
	s.recordDecision(kind, false)
	s.logger.ErrorContext(ctx, "quota store unavailable, denying request",
		"tenant_id", tenantID.String(),
		"resource_kind", string(kind),
		"error", cause,
	)
	s.emit(ctx, security.Event{
		Type:     security.EventQuotaStoreError,
		Severity: security.SeverityWarning,
		Message:  "quota store failure denied fail-closed",
		Context: map[string]any{
			"tenant_id":     tenantID.String(),
			"resource_kind": string(kind),
		},
	})
	return &models.Decision{
		Allowed: false,
		Reason:  kind.Reason(),
		Limit:   limit,
	}
}

func (s *Service) recordDecision(kind models.ResourceKind, allowed bool) {
	if s.metrics != nil {
		s.metrics.RecordDecision(string(kind), allowed)
	}
}

func (s *Service) emit(ctx context.Context, event security.Event) {
	if s.sink == nil {
		return
	}
	event.Environment = s.environment
	s.sink.Emit(ctx, event)
}
