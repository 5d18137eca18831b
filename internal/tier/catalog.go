// Package tier holds the static subscription tier catalog: a pure mapping
// from tier to numeric resource limits. No I/O, no side effects.
package tier

// Unlimited is the sentinel for a limit the tier does not cap.
const Unlimited = -1

// Tier is a subscription tier identifier.
type Tier string

const (
	TierTrial        Tier = "trial"
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// IsValid reports whether t names a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierTrial, TierBasic, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// Limits are the per-tenant resource caps a tier grants.
// Any field may be Unlimited.
type Limits struct {
	MaxProjects        int `yaml:"max_projects"`
	MaxMonthlyExpenses int `yaml:"max_monthly_expenses"`
	MaxUsers           int `yaml:"max_users"`
}

// Catalog answers limit lookups for tiers. Immutable after construction.
type Catalog struct {
	limits map[Tier]Limits
}

// defaultLimits is the compiled-in catalog. The trial row doubles as the
// fail-safe fallback for unknown tiers, so it must stay the most restrictive.
var defaultLimits = map[Tier]Limits{
	TierTrial:        {MaxProjects: 3, MaxMonthlyExpenses: 50, MaxUsers: 2},
	TierBasic:        {MaxProjects: 10, MaxMonthlyExpenses: 500, MaxUsers: 5},
	TierProfessional: {MaxProjects: 50, MaxMonthlyExpenses: 5000, MaxUsers: 25},
	TierEnterprise:   {MaxProjects: Unlimited, MaxMonthlyExpenses: Unlimited, MaxUsers: Unlimited},
}

// NewCatalog returns the compiled-in catalog.
func NewCatalog() *Catalog {
	limits := make(map[Tier]Limits, len(defaultLimits))
	for t, l := range defaultLimits {
		limits[t] = l
	}
	return &Catalog{limits: limits}
}

// LimitsFor returns the limits for a tier. Unknown tiers fall back to the
// trial limits: never fail open to unlimited on a bad tier value.
func (c *Catalog) LimitsFor(t Tier) Limits {
	if l, ok := c.limits[t]; ok {
		return l
	}
	return c.limits[TierTrial]
}

// SuggestedUpgrade names the next tier up, for denial payloads. Enterprise
// has nowhere to go and suggests itself.
func (c *Catalog) SuggestedUpgrade(t Tier) Tier {
	switch t {
	case TierTrial:
		return TierBasic
	case TierBasic:
		return TierProfessional
	case TierProfessional, TierEnterprise:
		return TierEnterprise
	default:
		return TierBasic
	}
}
