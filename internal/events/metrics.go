package events

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionMetrics     *MetricsHandler
	sessionMetricsOnce sync.Once
)

// MetricsHandler turns session events into Prometheus counters.
//
// Metrics:
//   - scry_items_rated_total{rating} - ratings recorded, by rating 0-4
//   - scry_items_reinserted_total - ratings that pushed the item back
//   - scry_sessions_completed_total - sessions that reached the end
type MetricsHandler struct {
	Rated      *prometheus.CounterVec
	Reinserted prometheus.Counter
	Completed  prometheus.Counter
}

// NewMetricsHandler returns the process-wide handler, registering its
// metrics on first use.
func NewMetricsHandler() *MetricsHandler {
	sessionMetricsOnce.Do(func() {
		sessionMetrics = &MetricsHandler{
			Rated: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "scry_items_rated_total",
				Help: "Total number of ratings recorded",
			}, []string{"rating"}),
			Reinserted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "scry_items_reinserted_total",
				Help: "Total number of items pushed back into their session",
			}),
			Completed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "scry_sessions_completed_total",
				Help: "Total number of study sessions completed",
			}),
		}
	})
	return sessionMetrics
}

// HandleEvent implements EventHandler. Unknown event types are ignored.
func (m *MetricsHandler) HandleEvent(_ context.Context, event *Event) error {
	switch event.Type {
	case TypeItemRated:
		var p ItemRatedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return err
		}
		m.Rated.WithLabelValues(strconv.Itoa(p.Rating)).Inc()
		if p.Reinserted {
			m.Reinserted.Inc()
		}
	case TypeSessionCompleted:
		m.Completed.Inc()
	}
	return nil
}
