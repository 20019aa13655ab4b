// Package observability exposes Prometheus metrics for the fan-out pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesPersisted counts messages accepted by the storage collaborator.
	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_persisted_total",
		Help: "Messages successfully written to storage.",
	})

	// PublishFailures counts best-effort publishes lost to a down broker.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_publish_failures_total",
		Help: "Event channel publishes that failed after persistence succeeded.",
	})

	// EventsDelivered counts events enqueued into subscriber queues.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_events_delivered_total",
		Help: "Events fanned out to subscriber queues.",
	})

	// MalformedPayloads counts undecodable payloads dropped at the boundary.
	MalformedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_malformed_payloads_total",
		Help: "Transport payloads dropped because they failed validation.",
	})

	// ActiveSubscribers tracks live subscription handles across all rooms.
	ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_subscribers",
		Help: "Currently attached subscription handles.",
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
