// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "quotaguard/pkg/domain-errors"
)

// TenantID is an opaque string identifier for a tenant (e.g., "tn_01h8...").
// Tenants arrive from several credential schemes, so no UUID shape is assumed
// beyond non-emptiness.
type TenantID string

// UserID is an opaque string identifier for a user. Federated providers issue
// arbitrary subject strings, so this is deliberately not a UUID.
type UserID string

// NewTenantID mints a fresh prefixed tenant identifier for onboarding.
func NewTenantID() TenantID {
	return TenantID("tn_" + uuid.NewString())
}

// Parse functions - use at trust boundaries (handlers, claim extraction).

func ParseTenantID(s string) (TenantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	return TenantID(s), nil
}

func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	return UserID(s), nil
}

// String methods - for logging and debugging.

func (id TenantID) String() string { return string(id) }
func (id UserID) String() string   { return string(id) }

// IsEmpty checks - used for service-layer validation.

func (id TenantID) IsEmpty() bool { return id == "" }
func (id UserID) IsEmpty() bool   { return id == "" }
