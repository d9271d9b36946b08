package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters a Runner updates. Each Runner owns its own
// registry so metrics never leak between runs or tests.
type Metrics struct {
	Registry *prometheus.Registry

	PassesRun          *prometheus.CounterVec
	PassDuration       *prometheus.HistogramVec
	ComponentsVisited  prometheus.Counter
	AssignmentsAdded   *prometheus.CounterVec
	PolicyViolations   *prometheus.CounterVec
	ValidationFailures prometheus.Counter
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PassesRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calyx_opt",
			Name:      "passes_run_total",
			Help:      "Passes run, by pass name and outcome.",
		}, []string{"pass", "outcome"}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calyx_opt",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a single pass over the whole program.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"pass"}),
		ComponentsVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "calyx_opt",
			Name:      "components_visited_total",
			Help:      "Components handed to a pass.",
		}),
		AssignmentsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calyx_opt",
			Name:      "assignments_added_total",
			Help:      "Assignment fact rows added by a pass.",
		}, []string{"pass"}),
		PolicyViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calyx_opt",
			Name:      "policy_violations_total",
			Help:      "Well-formedness violations found in the input program, by severity.",
		}, []string{"severity"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "calyx_opt",
			Name:      "validation_failures_total",
			Help:      "Contract validation failures.",
		}),
	}
	m.Registry.MustRegister(
		m.PassesRun,
		m.PassDuration,
		m.ComponentsVisited,
		m.AssignmentsAdded,
		m.PolicyViolations,
		m.ValidationFailures,
	)
	return m
}

// WriteTextfile writes the registry in Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
