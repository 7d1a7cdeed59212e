// Package metrics - Prometheus collectors for the mask pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/filter"
)

const namespace = "bgseg"

// Metrics implements filter.Recorder on a dedicated Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	ticks     *prometheus.CounterVec
	failures  *prometheus.CounterVec
	tickTime  prometheus.Histogram
	stageTime *prometheus.HistogramVec
	model     *prometheus.GaugeVec
	dropped   prometheus.Gauge
}

// New creates the collectors and registers them on a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Pipeline ticks by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_failures_total",
			Help:      "Failed ticks by error kind.",
		}, []string{"kind"}),
		tickTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a tick, skips included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		stageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each stage of a fresh tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"stage"}),
		model: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_info",
			Help:      "Currently loaded model, backend and thread count. Always 1.",
		}, []string{"model", "backend", "threads"}),
		dropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_dropped",
			Help:      "Frames overwritten in the capture slot before being taken.",
		}),
	}
	m.registry.MustRegister(m.ticks, m.failures, m.tickTime, m.stageTime, m.model, m.dropped)
	return m
}

// Registry returns the registry holding the pipeline collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TickDone implements filter.Recorder.
func (m *Metrics) TickDone(outcome filter.Outcome, err error, elapsed time.Duration) {
	m.ticks.WithLabelValues(outcome.String()).Inc()
	if err != nil {
		m.failures.WithLabelValues(errs.KindOf(err).String()).Inc()
	}
	if outcome != filter.Dropped {
		m.tickTime.Observe(elapsed.Seconds())
	}
}

// StageDone implements filter.Recorder.
func (m *Metrics) StageDone(stage filter.Stage, elapsed time.Duration) {
	m.stageTime.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// ModelLoaded implements filter.Recorder.
func (m *Metrics) ModelLoaded(model, backend string, threads int) {
	m.model.Reset()
	m.model.WithLabelValues(model, backend, strconv.Itoa(threads)).Set(1)
}

// SetDropped publishes the capture slot's drop counter.
func (m *Metrics) SetDropped(n uint64) {
	m.dropped.Set(float64(n))
}

var _ filter.Recorder = (*Metrics)(nil)
