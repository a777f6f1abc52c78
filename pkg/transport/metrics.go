package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	// SubscribersActive tracks connected push subscribers.
	SubscribersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_transport_subscribers_active",
		Help: "Number of active push subscribers",
	})

	// EventsPublishedTotal counts events delivered to subscriber queues.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voltrader_transport_events_published_total",
		Help: "Total events delivered to subscriber queues, by type",
	}, []string{"type"})

	// EventsDroppedTotal counts events shed from full subscriber queues.
	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voltrader_transport_events_dropped_total",
		Help: "Total events dropped because a subscriber queue was full, by type",
	}, []string{"type"})
)
