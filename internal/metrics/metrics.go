// Package metrics holds the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing, so components can be
// constructed without a registry in tests and in the CLI.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dayplan"

type Metrics struct {
	generations       *prometheus.CounterVec
	generationSeconds *prometheus.HistogramVec
	commands          *prometheus.CounterVec
	sourceFailures    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		generationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of generation calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"backend"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound chat commands by name.",
		}, []string{"command"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_failures_total",
			Help:      "Task or calendar fetches that failed and were skipped.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.generations, m.generationSeconds, m.commands, m.sourceFailures)
	return m
}

func (m *Metrics) ObserveGeneration(backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(backend, outcome).Inc()
	m.generationSeconds.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) ObserveCommand(command string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
}

func (m *Metrics) ObserveSourceFailure(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}
