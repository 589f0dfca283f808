package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	FetchFound    = "found"
	FetchNotFound = "not_found"
	FetchError    = "error"

	AssignWritten = "written"
	AssignElided  = "elided"
	AssignRemoved = "removed"
	AssignSkipped = "skipped"
	AssignError   = "error"
)

// PricingMetrics records resolution and assignment activity of the pricing engine.
type PricingMetrics struct {
	fetches     *prometheus.CounterVec
	chainDepth  prometheus.Histogram
	assignments *prometheus.CounterVec
	batch       *prometheus.HistogramVec
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
// A nil registerer yields a recorder that drops every observation.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_fetch_total",
		Help: "Price resolutions by result.",
	}, []string{"result"})
	chainDepth := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_fetch_chain_depth",
		Help:    "Price book levels read before a resolution finished.",
		Buckets: prometheus.LinearBuckets(1, 1, 8),
	})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_assign_total",
		Help: "Price assignments by outcome.",
	}, []string{"outcome"})
	batch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_batch_duration_seconds",
		Help:    "Duration of batch price operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(fetches, chainDepth, assignments, batch)
	return &PricingMetrics{
		fetches:     fetches,
		chainDepth:  chainDepth,
		assignments: assignments,
		batch:       batch,
	}
}

// ObserveFetch counts one resolution and the number of levels it read.
func (m *PricingMetrics) ObserveFetch(result string, depth int) {
	if m == nil || m.fetches == nil {
		return
	}
	m.fetches.WithLabelValues(normalizeLabel(result)).Inc()
	if depth > 0 {
		m.chainDepth.Observe(float64(depth))
	}
}

// IncAssign counts one assignment outcome.
func (m *PricingMetrics) IncAssign(outcome string) {
	if m == nil || m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveBatch records how long a batch operation took.
func (m *PricingMetrics) ObserveBatch(operation string, duration time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
