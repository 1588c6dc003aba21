// Package metrics records planning, grounding and execution outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives one observation per pipeline stage.
type Recorder interface {
	ObservePlanning(success bool, steps int, duration time.Duration)
	// ObserveGrounding records one inference; outcome is "click", "none" or "error".
	ObserveGrounding(outcome string, duration time.Duration)
	ObserveStep(success bool, reason string)
	ObserveGoal(succeeded, failed int, duration time.Duration)
}

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) ObservePlanning(bool, int, time.Duration) {}
func (NopRecorder) ObserveGrounding(string, time.Duration) {}
func (NopRecorder) ObserveStep(bool, string) {}
func (NopRecorder) ObserveGoal(int, int, time.Duration) {}

// PrometheusRecorder implements Recorder on a private registry.
type PrometheusRecorder struct {
	registry         *prometheus.Registry
	planningTotal    *prometheus.CounterVec
	planSteps        prometheus.Histogram
	planningDuration prometheus.Histogram
	groundingTotal   *prometheus.CounterVec
	groundingLatency prometheus.Histogram
	stepsTotal       *prometheus.CounterVec
	goalsTotal       *prometheus.CounterVec
	goalDuration     prometheus.Histogram
}

// NewPrometheusRecorder creates a recorder and registers its collectors, along
// with the Go runtime and process collectors, on a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		planningTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localcu_planning_total",
				Help: "Planner invocations by status",
			},
			[]string{"status"},
		),
		planSteps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "localcu_plan_steps",
			Help:    "Number of steps per plan",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		planningDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "localcu_planning_duration_seconds",
			Help:    "Duration of planner calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		groundingTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localcu_grounding_total",
				Help: "Grounding inferences by outcome",
			},
			[]string{"outcome"},
		),
		groundingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "localcu_grounding_duration_seconds",
			Help:    "Latency of grounding model inference in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		stepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localcu_steps_total",
				Help: "Executed plan steps by status and reason",
			},
			[]string{"status", "reason"},
		),
		goalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localcu_goals_total",
				Help: "Goals processed by result (complete, partial, failed, empty)",
			},
			[]string{"result"},
		),
		goalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "localcu_goal_duration_seconds",
			Help:    "Wall time per goal in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// Registry exposes the recorder's registry for the HTTP handler and tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry { return p.registry }

func (p *PrometheusRecorder) ObservePlanning(success bool, steps int, duration time.Duration) {
	p.planningTotal.WithLabelValues(status(success)).Inc()
	if success {
		p.planSteps.Observe(float64(steps))
	}
	p.planningDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveGrounding(outcome string, duration time.Duration) {
	p.groundingTotal.WithLabelValues(outcome).Inc()
	p.groundingLatency.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveStep(success bool, reason string) {
	p.stepsTotal.WithLabelValues(status(success), reason).Inc()
}

func (p *PrometheusRecorder) ObserveGoal(succeeded, failed int, duration time.Duration) {
	p.goalsTotal.WithLabelValues(goalResult(succeeded, failed)).Inc()
	p.goalDuration.Observe(duration.Seconds())
}

func goalResult(succeeded, failed int) string {
	switch {
	case succeeded == 0 && failed == 0:
		return "empty"
	case failed == 0:
		return "complete"
	case succeeded == 0:
		return "failed"
	default:
		return "partial"
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
