package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roster"

var (
	activeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Number of connected change-feed subscribers",
		},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Total change events published to the hub",
		},
		[]string{"type"},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Change events dropped because a subscriber buffer overflowed",
		},
		[]string{"type"},
	)
)

func recordSubscribers(count int) {
	activeSubscribers.Set(float64(count))
}

func recordEventPublished(eventType string) {
	eventsPublished.WithLabelValues(eventType).Inc()
}

func recordEventDropped(eventType string) {
	eventsDropped.WithLabelValues(eventType).Inc()
}
