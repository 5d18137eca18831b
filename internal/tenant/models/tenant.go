// Package models defines the tenant record: the single shared mutable
// resource of the quota subsystem. Counters on it are only ever mutated
// through the quota store's conditional writes or explicit admin operations.
package models

import (
	"time"

	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
)

// SubscriptionStatus mirrors the billing provider's well-known states.
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// Tenant is one company's record. Counter fields hold current usage against
// the tier's limits; ExpenseWindowStart marks the first instant of the
// calendar month the expense counter applies to, nil if no expense was
// recorded this month.
type Tenant struct {
	ID                     id.TenantID        `json:"tenant_id"`
	Tier                   tier.Tier          `json:"subscription_tier"`
	Status                 SubscriptionStatus `json:"subscription_status"`
	CurrentProjects        int                `json:"current_projects"`
	CurrentMonthlyExpenses int                `json:"current_monthly_expenses"`
	CurrentUsers           int                `json:"current_users"`
	ExpenseWindowStart     *time.Time         `json:"expense_window_start,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// NewTenant creates an onboarding-state record: trial tier, zeroed counters.
func NewTenant(tenantID id.TenantID, now time.Time) (*Tenant, error) {
	if tenantID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID is required")
	}
	return &Tenant{
		ID:        tenantID,
		Tier:      tier.TierTrial,
		Status:    StatusTrialing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks record-level invariants. Counter-vs-limit invariants are
// the store's job; this guards shape only.
func (t *Tenant) Validate() error {
	if t.ID.IsEmpty() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant ID is empty")
	}
	if !t.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown subscription status")
	}
	if t.CurrentProjects < 0 || t.CurrentMonthlyExpenses < 0 || t.CurrentUsers < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "negative usage counter")
	}
	return nil
}

// MonthStart returns the first instant of t's calendar month in UTC.
// Both the enforcer's window condition and the store's reset use this, so the
// two can never disagree about where a month begins.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
