package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResolutionsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quotaguard_auth_resolutions_total",
			Help: "Auth context resolutions by scheme and outcome",
		}, []string{"scheme", "outcome"}),
	}
}

func (m *Metrics) RecordResolution(scheme Scheme, ok bool) {
	outcome := "rejected"
	if ok {
		outcome = "resolved"
	}
	m.ResolutionsTotal.WithLabelValues(string(scheme), outcome).Inc()
}
