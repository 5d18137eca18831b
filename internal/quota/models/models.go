// Package models defines the vocabulary of quota enforcement: resource
// kinds, the counter fields they map to, conditional-write outcomes, and the
// allow/deny decision handed back to business handlers.
package models

import (
	"quotaguard/internal/tier"
	dErrors "quotaguard/pkg/domain-errors"
)

// ResourceKind names a tenant-scoped resource under quota.
type ResourceKind string

const (
	ResourceProject ResourceKind = "project"
	ResourceExpense ResourceKind = "expense"
	ResourceUser    ResourceKind = "user"
)

func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceProject, ResourceExpense, ResourceUser:
		return true
	}
	return false
}

// Windowed reports whether the kind's counter resets at calendar-month
// boundaries. Only expenses are monthly-windowed.
func (k ResourceKind) Windowed() bool {
	return k == ResourceExpense
}

// CounterField identifies a tenant record counter. The closed set doubles as
// a whitelist: stores map these to columns/hash fields and reject anything
// else, so no caller-supplied string ever reaches a query.
type CounterField string

const (
	FieldProjects        CounterField = "current_projects"
	FieldMonthlyExpenses CounterField = "current_monthly_expenses"
	FieldUsers           CounterField = "current_users"
)

func (f CounterField) IsValid() bool {
	switch f {
	case FieldProjects, FieldMonthlyExpenses, FieldUsers:
		return true
	}
	return false
}

// Field returns the counter field backing a resource kind.
func (k ResourceKind) Field() (CounterField, error) {
	switch k {
	case ResourceProject:
		return FieldProjects, nil
	case ResourceExpense:
		return FieldMonthlyExpenses, nil
	case ResourceUser:
		return FieldUsers, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown resource kind")
	}
}

// LimitFor picks the kind's cap out of a tier's limits.
func (k ResourceKind) LimitFor(l tier.Limits) (int, error) {
	switch k {
	case ResourceProject:
		return l.MaxProjects, nil
	case ResourceExpense:
		return l.MaxMonthlyExpenses, nil
	case ResourceUser:
		return l.MaxUsers, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown resource kind")
	}
}

// Outcome is the result of a store conditional write. A store error is never
// an Outcome; it surfaces as a Go error so callers can fail closed.
type Outcome int

const (
	// OutcomeRejected means the store evaluated the precondition, found it
	// false, and left the record untouched.
	OutcomeRejected Outcome = iota
	// OutcomeApplied means the mutation and its precondition held in one
	// indivisible store operation.
	OutcomeApplied
)

func (o Outcome) Applied() bool { return o == OutcomeApplied }

// DenialReason is the enumerated reason carried in deny payloads.
type DenialReason string

const (
	ReasonProjectLimit DenialReason = "PROJECT_LIMIT_REACHED"
	ReasonExpenseLimit DenialReason = "EXPENSE_LIMIT_REACHED"
	ReasonUserLimit    DenialReason = "USER_LIMIT_REACHED"
)

// Reason returns the denial reason for a kind.
func (k ResourceKind) Reason() DenialReason {
	switch k {
	case ResourceExpense:
		return ReasonExpenseLimit
	case ResourceUser:
		return ReasonUserLimit
	default:
		return ReasonProjectLimit
	}
}

// Decision is the enforcer's answer to "may this tenant create one more unit".
//
// On denial, CurrentUsage is best-effort: it is the last value read before
// the conditional write, not a post-rejection re-read. Under concurrency the
// true counter may differ; re-reading would reintroduce the read-then-write
// race this design exists to eliminate, so callers must treat the value as
// diagnostic only.
// CurrentUsage and Limit are never omitted: a denial payload always carries
// both, and zero is a legitimate value for each (stale-window expense
// denials report usage 0; a tier override may set a limit of 0).
type Decision struct {
	Allowed       bool         `json:"allowed"`
	Reason        DenialReason `json:"reason,omitempty"`
	CurrentUsage  int          `json:"current_usage"`
	Limit         int          `json:"limit"`
	SuggestedTier tier.Tier    `json:"suggested_tier,omitempty"`
}
