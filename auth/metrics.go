package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultAnonymous = "anonymous"
	resultFailure   = "failure"
	resultSuccess   = "success"
)

// Metrics counts authentication attempts. A nil *Metrics is valid and counts nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	var m = &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mvv",
				Subsystem: "auth",
				Name:      "attempts_total",
				Help:      "Authentication attempts by backend and result.",
			},
			[]string{"backend", "result"},
		),
	}
	reg.MustRegister(m.attempts)
	return m
}

func (m *Metrics) observe(backend, result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(backend, result).Inc()
}
