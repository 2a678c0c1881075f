package observability

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver turns events into Prometheus metrics:
//
//	<ns>_events_total{type, level}
//	<ns>_stage_runs_total{stage, outcome}       events with a stage and no tool
//	<ns>_tool_invocations_total{tool, outcome}  events with a tool
//	<ns>_event_duration_seconds{type}           events with a duration
type PrometheusObserver struct {
	events   *prometheus.CounterVec
	stages   *prometheus.CounterVec
	tools    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver creates the collectors under namespace and registers
// them with reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Observability events by type and level.",
		}, []string{"type", "level"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Completed pipeline stage runs by stage and outcome.",
		}, []string{"stage", "outcome"}),
		tools: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Durations reported by events, by event type.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{o.events, o.stages, o.tools, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *PrometheusObserver) OnEvent(_ context.Context, event Event) {
	typ := string(event.Type)
	o.events.WithLabelValues(typ, event.Level.String()).Inc()

	d, hasDuration := event.Data[KeyDuration].(time.Duration)
	if hasDuration {
		o.duration.WithLabelValues(typ).Observe(d.Seconds())
	}

	// Only completion events carry an outcome worth counting.
	if !strings.HasSuffix(typ, ".complete") {
		return
	}
	outcome := "ok"
	if event.Failed() {
		outcome = "error"
	}
	if tool, ok := event.Data[KeyTool].(string); ok && tool != "" {
		o.tools.WithLabelValues(tool, outcome).Inc()
		return
	}
	if stage, ok := event.Data[KeyStage].(string); ok && stage != "" {
		o.stages.WithLabelValues(stage, outcome).Inc()
	}
}
