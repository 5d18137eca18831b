// Package store provides tenant-record persistence with the two atomic
// primitives the quota path is built on: conditional increment and
// conditional window reset. Every quota mutation and its precondition are
// evaluated in one indivisible store operation; no implementation may expose
// a read-then-write pair to callers.
package store

import (
	"context"
	"sync"
	"time"

	"quotaguard/internal/quota/models"
	tenantmodels "quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// MemoryStore keeps tenant records in a mutex-guarded map. Used for tests and
// local development; the mutex gives the same linearized conditional-write
// history the backed stores get from Postgres row locks or Redis scripts.
type MemoryStore struct {
	mu      sync.Mutex
	tenants map[id.TenantID]*tenantmodels.Tenant
}

func NewMemory() *MemoryStore {
	return &MemoryStore{tenants: make(map[id.TenantID]*tenantmodels.Tenant)}
}

func (s *MemoryStore) Get(_ context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) Create(_ context.Context, t *tenantmodels.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[t.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "tenant already exists")
	}
	copied := *t
	s.tenants[t.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateTier(ctx context.Context, tenantID id.TenantID, newTier tier.Tier, status tenantmodels.SubscriptionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	t.Tier = newTier
	t.Status = status
	t.UpdatedAt = requesttime.Now(ctx)
	return nil
}

// ConditionalIncrement atomically adds delta to field iff the result stays
// within maxValue and, when window is non-nil, the stored expense window
// matches it exactly. Rejection leaves the record untouched.
func (s *MemoryStore) ConditionalIncrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta, maxValue int, window *time.Time) (models.Outcome, error) {
	if !field.IsValid() {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if delta <= 0 {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "delta must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}

	if window != nil {
		if t.ExpenseWindowStart == nil || !t.ExpenseWindowStart.Equal(*window) {
			return models.OutcomeRejected, nil
		}
	}

	current := counterValue(t, field)
	if current+delta > maxValue {
		return models.OutcomeRejected, nil
	}

	setCounter(t, field, current+delta)
	t.UpdatedAt = requesttime.Now(ctx)
	return models.OutcomeApplied, nil
}

// ConditionalReset atomically sets field to newValue and the expense window
// to windowStart, iff the stored window is unset or strictly older. Exactly
// one of any number of concurrent resets for the same windowStart applies.
func (s *MemoryStore) ConditionalReset(ctx context.Context, tenantID id.TenantID, field models.CounterField, newValue int, windowStart time.Time) (models.Outcome, error) {
	if !field.IsValid() {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if newValue < 0 {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "counter value must be non-negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}

	if t.ExpenseWindowStart != nil && !t.ExpenseWindowStart.Before(windowStart) {
		return models.OutcomeRejected, nil
	}

	setCounter(t, field, newValue)
	ws := windowStart
	t.ExpenseWindowStart = &ws
	t.UpdatedAt = requesttime.Now(ctx)
	return models.OutcomeApplied, nil
}

// Decrement subtracts delta from field, clamping at zero. Release is not
// required to pair with a specific increment, so there is no precondition.
func (s *MemoryStore) Decrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta int) error {
	if !field.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if delta <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "delta must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}

	next := counterValue(t, field) - delta
	if next < 0 {
		next = 0
	}
	setCounter(t, field, next)
	t.UpdatedAt = requesttime.Now(ctx)
	return nil
}

func counterValue(t *tenantmodels.Tenant, field models.CounterField) int {
	switch field {
	case models.FieldProjects:
		return t.CurrentProjects
	case models.FieldMonthlyExpenses:
		return t.CurrentMonthlyExpenses
	default:
		return t.CurrentUsers
	}
}

func setCounter(t *tenantmodels.Tenant, field models.CounterField, v int) {
	switch field {
	case models.FieldProjects:
		t.CurrentProjects = v
	case models.FieldMonthlyExpenses:
		t.CurrentMonthlyExpenses = v
	default:
		t.CurrentUsers = v
	}
}
