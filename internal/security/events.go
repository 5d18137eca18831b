// Package security emits structured audit events for authorization failures
// and quota activity. Emission is best-effort by contract: a sink that cannot
// deliver must never fail the request that triggered the event.
package security

import "time"

// Severity classifies how urgently an event needs operator attention.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// EventType enumerates the events this subsystem can produce.
type EventType string

const (
	// EventAuthBypassAttempt fires when a request reaches the resolver with
	// no verifiable credentials in a production runtime. Always critical.
	EventAuthBypassAttempt EventType = "auth_bypass_attempt"

	// EventAuthDevFallback fires when the development identity is handed
	// out in a non-production runtime.
	EventAuthDevFallback EventType = "auth_dev_fallback"

	EventAuthInvalidCredentials EventType = "auth_invalid_credentials"
	EventQuotaDenied            EventType = "quota_denied"
	EventQuotaStoreError        EventType = "quota_store_error"
	EventTenantOnboarded        EventType = "tenant_onboarded"
	EventTenantTierChanged      EventType = "tenant_tier_changed"
)

// Event is the structured record handed to observability. Context carries
// event-specific fields (tenant, schemes configured, detected signals).
type Event struct {
	Type        EventType      `json:"event_type"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	Environment string         `json:"environment"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context,omitempty"`
}
