package resolver

import "strings"

// EnvSignals is the immutable snapshot of runtime environment signals the
// resolver branches on. It is captured once at construction; request
// handling never consults ambient process state.
type EnvSignals struct {
	Environment      string
	DeploymentRegion string
	LocalDevOverride bool
}

// IsProduction applies the multi-signal production check: an explicit
// production environment always wins; a production-looking deployment region
// counts unless an explicit local-development override is set. Ambiguity
// resolves toward production, because the production branch is the one that
// fails closed.
func (e EnvSignals) IsProduction() bool {
	if strings.EqualFold(e.Environment, "production") {
		return true
	}
	if e.productionRegion() && !e.LocalDevOverride {
		return true
	}
	return false
}

func (e EnvSignals) productionRegion() bool {
	return strings.Contains(strings.ToLower(e.DeploymentRegion), "prod")
}

// Label names the detected environment for logs and security events.
func (e EnvSignals) Label() string {
	if e.IsProduction() {
		return "production"
	}
	return "development"
}
