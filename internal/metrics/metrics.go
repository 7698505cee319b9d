// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TickDuration observes how long each simulation tick took.
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Duration of one simulation tick.",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveConnections tracks the number of currently open TCP
	// connections.
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arena_active_connections",
		Help: "Number of currently open client connections.",
	})

	// SnakesAlive tracks the snake population in the most recent tick.
	SnakesAlive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arena_snakes_alive",
		Help: "Number of living snakes in the current field.",
	})

	// FoodsAlive tracks the food population in the most recent tick.
	FoodsAlive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arena_foods_alive",
		Help: "Number of food pellets in the current field.",
	})

	// LoginsRejected counts logins rejected for any reason (bad
	// credentials, connection cap, duplicate login).
	LoginsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_logins_rejected_total",
		Help: "Total rejected login attempts by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(TickDuration, ActiveConnections, SnakesAlive, FoodsAlive, LoginsRejected)
}
