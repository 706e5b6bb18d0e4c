// Package ws – Prometheus instrumentation for the broadcast subsystem.
// Counters and gauges here complement the HTTP metrics in the middleware
// package; all collectors are safe for concurrent use.
package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	// connectionsGauge tracks currently open websocket connections.
	connectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Current number of live websocket connections.",
	})

	// messagesTotal counts messages accepted and persisted via the live surface.
	messagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_total",
		Help: "Total number of messages sent over websocket connections.",
	})

	// deliveriesTotal counts per-recipient deliveries during fan-out.
	deliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_deliveries_total",
		Help: "Total number of per-recipient message deliveries.",
	})

	// deliveriesDropped counts deliveries skipped because a recipient's send
	// buffer was full or the recipient disconnected mid-fan-out.
	deliveriesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_deliveries_dropped_total",
		Help: "Total number of per-recipient deliveries dropped.",
	})
)

func init() {
	prometheus.MustRegister(connectionsGauge, messagesTotal, deliveriesTotal, deliveriesDropped)
}
