// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intent-swap/pkg/types"
)

const namespace = "intent_swap"

// Metrics holds the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	polls       *prometheus.CounterVec
	stale       *prometheus.GaugeVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "transitions_total",
			Help:      "Swap execution state transitions by target status.",
		}, []string{"status"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "fetches_total",
			Help:      "Polling fetches by task and result.",
		}, []string{"task", "result"}),
		stale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "stale",
			Help:      "Whether the task's last fetch failed (1) or succeeded (0).",
		}, []string{"task"}),
	}
	m.registry.MustRegister(m.transitions, m.polls, m.stale)
	return m
}

// Transition counts an execution entering status
func (m *Metrics) Transition(status types.ExecutionStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(status)).Inc()
}

// Poll records the result of one fetch of task
func (m *Metrics) Poll(task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	stale := 0.0
	if err != nil {
		result = "error"
		stale = 1
	}
	m.polls.WithLabelValues(task, result).Inc()
	m.stale.WithLabelValues(task).Set(stale)
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
