package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "roleplay"

// Metrics counts session outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes        *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	classifications *prometheus.CounterVec
}

// NewMetrics registers the session collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "auth_outcomes_total",
			Help:      "Resolved request identities by outcome",
		}, []string{"outcome"}),

		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Refresh token exchanges by caller and result",
		}, []string{"source", "result"}),

		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "token_classifications_total",
			Help:      "Local access token classifications by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) outcome(name string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(name).Inc()
}

func (m *Metrics) refresh(source string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.refreshes.WithLabelValues(source, result).Inc()
}

func (m *Metrics) classified(status string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(status).Inc()
}
