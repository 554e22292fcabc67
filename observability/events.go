package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	emitted   *prometheus.CounterVec
	published *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured contract events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed contract events segmented by type.",
			}, []string{"type"}),
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "events",
				Name:      "relay_published_total",
				Help:      "Events handed to the pub/sub relay segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(eventRegistry.emitted, eventRegistry.published)
	})
	return eventRegistry
}

// RecordEmitted increments the counter for the supplied event type.
func (m *eventMetrics) RecordEmitted(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// RecordPublished tracks relay publish attempts.
func (m *eventMetrics) RecordPublished(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.published.WithLabelValues(outcome).Inc()
}
