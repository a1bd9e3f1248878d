// Package metrics exposes prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	EventsReceived  prometheus.Counter
	EventsPersisted prometheus.Counter
	PersistFailures prometheus.Counter

	// DispatchTotal counts adapter outcomes by destination and outcome
	// ("success" | "failure").
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_events_received_total",
			Help: "Events accepted by the track endpoint.",
		}),
		EventsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_events_persisted_total",
			Help: "Canonical event records written to the event store.",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_persist_failures_total",
			Help: "Event store writes that failed.",
		}),
		DispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_dispatch_total",
			Help: "Destination dispatch outcomes.",
		}, []string{"destination", "outcome"}),
		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_dispatch_duration_seconds",
			Help:    "Destination call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"destination"}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
