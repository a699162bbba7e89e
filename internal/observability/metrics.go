// Package observability exposes the store metrics recorder and its
// Prometheus implementation.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Recorder receives store events worth counting. Implementations must be safe
// for concurrent use.
type Recorder interface {
	Mutation(store, collection, action string)
	NoOp(store, collection, action string)
	Flush(store string, duration time.Duration, err error)
	Migration(store string, from, to int)
	LoadFallback(store, reason string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Mutation(string, string, string)    {}
func (Nop) NoOp(string, string, string)        {}
func (Nop) Flush(string, time.Duration, error) {}
func (Nop) Migration(string, int, int)         {}
func (Nop) LoadFallback(string, string)        {}

// Metrics records store events as Prometheus series.
type Metrics struct {
	mutations     *prometheus.CounterVec
	noops         *prometheus.CounterVec
	flushes       *prometheus.CounterVec
	flushDuration *prometheus.HistogramVec
	migrations    *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
}

var _ Recorder = (*Metrics)(nil)

// NewMetrics builds the collectors and registers them on reg. A nil reg
// registers nothing, which is convenient in tests that only read counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcms", Subsystem: "store", Name: "mutations_total",
			Help: "Successful collection mutations.",
		}, []string{"store", "collection", "action"}),
		noops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcms", Subsystem: "store", Name: "noop_total",
			Help: "Update or remove calls that matched no record.",
		}, []string{"store", "collection", "action"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcms", Subsystem: "store", Name: "flush_total",
			Help: "Snapshot flushes to durable storage by result.",
		}, []string{"store", "result"}),
		flushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gcms", Subsystem: "store", Name: "flush_duration_seconds",
			Help:    "Time spent writing a snapshot to durable storage.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"store"}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcms", Subsystem: "store", Name: "migrations_total",
			Help: "Snapshots migrated on load.",
		}, []string{"store", "from", "to"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gcms", Subsystem: "store", Name: "load_fallback_total",
			Help: "Loads that substituted schema defaults for persisted state.",
		}, []string{"store", "reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.noops, m.flushes, m.flushDuration, m.migrations, m.fallbacks)
	}
	return m
}

// Mutation implements Recorder.
func (m *Metrics) Mutation(store, collection, action string) {
	m.mutations.WithLabelValues(store, collection, action).Inc()
}

// NoOp implements Recorder.
func (m *Metrics) NoOp(store, collection, action string) {
	m.noops.WithLabelValues(store, collection, action).Inc()
}

// Flush implements Recorder.
func (m *Metrics) Flush(store string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.flushes.WithLabelValues(store, result).Inc()
	m.flushDuration.WithLabelValues(store).Observe(duration.Seconds())
}

// Migration implements Recorder.
func (m *Metrics) Migration(store string, from, to int) {
	m.migrations.WithLabelValues(store, strconv.Itoa(from), strconv.Itoa(to)).Inc()
}

// LoadFallback implements Recorder.
func (m *Metrics) LoadFallback(store, reason string) {
	m.fallbacks.WithLabelValues(store, reason).Inc()
}

// NoOpCount returns the current no-op counter value for a label set.
func (m *Metrics) NoOpCount(store, collection, action string) float64 {
	return counterValue(m.noops.WithLabelValues(store, collection, action))
}

// MutationCount returns the current mutation counter value for a label set.
func (m *Metrics) MutationCount(store, collection, action string) float64 {
	return counterValue(m.mutations.WithLabelValues(store, collection, action))
}

// FallbackCount returns the current load fallback counter value for a label set.
func (m *Metrics) FallbackCount(store, reason string) float64 {
	return counterValue(m.fallbacks.WithLabelValues(store, reason))
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
