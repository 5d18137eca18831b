package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QuotaDecisionsTotal   *prometheus.CounterVec
	QuotaWindowRollsTotal prometheus.Counter
	QuotaStoreErrorsTotal prometheus.Counter
	QuotaReleasesTotal    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		QuotaDecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quotaguard_quota_decisions_total",
			Help: "Quota consume decisions by resource kind and outcome",
		}, []string{"kind", "outcome"}),
		QuotaWindowRollsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quotaguard_quota_window_rolls_total",
			Help: "Monthly expense windows rolled by the enforcer",
		}),
		QuotaStoreErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quotaguard_quota_store_errors_total",
			Help: "Store failures on the quota path, each denied fail-closed",
		}),
		QuotaReleasesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quotaguard_quota_releases_total",
			Help: "Release operations by resource kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) RecordDecision(kind string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.QuotaDecisionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordWindowRoll() {
	m.QuotaWindowRollsTotal.Inc()
}

func (m *Metrics) RecordStoreError() {
	m.QuotaStoreErrorsTotal.Inc()
}

func (m *Metrics) RecordRelease(kind string) {
	m.QuotaReleasesTotal.WithLabelValues(kind).Inc()
}
