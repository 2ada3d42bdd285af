package detail

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the detail cache.
type Metrics struct {
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	FetchFailuresTotal prometheus.Counter
	FetchDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the detail cache metrics.
//
// Registration happens once per process; later calls return the same set.
//
// Metrics:
//   - scry_detail_cache_hits_total - renders served from the prefetch slot
//   - scry_detail_cache_misses_total - renders that fetched synchronously
//   - scry_detail_fetch_failures_total - fetches that degraded to unavailable
//   - scry_detail_fetch_duration_seconds{mode} - provider latency
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "scry_detail_cache_hits_total",
					Help: "Total number of detail renders served by the prefetch slot",
				},
			),

			CacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "scry_detail_cache_misses_total",
					Help: "Total number of detail renders that fetched synchronously",
				},
			),

			FetchFailuresTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "scry_detail_fetch_failures_total",
					Help: "Total number of detail fetches that failed",
				},
			),

			FetchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "scry_detail_fetch_duration_seconds",
					Help:    "Duration of detail provider calls in seconds",
					Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
				},
				[]string{"mode"}, // "prefetch" or "sync"
			),
		}
	})

	return globalMetrics
}

// RecordHit records a render served from the slot.
func (m *Metrics) RecordHit() {
	m.CacheHitsTotal.Inc()
}

// RecordMiss records a render that had to fetch.
func (m *Metrics) RecordMiss() {
	m.CacheMissesTotal.Inc()
}

// RecordFetch records one provider call.
func (m *Metrics) RecordFetch(mode string, durationSeconds float64, failed bool) {
	m.FetchDuration.WithLabelValues(mode).Observe(durationSeconds)
	if failed {
		m.FetchFailuresTotal.Inc()
	}
}
