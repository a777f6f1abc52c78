package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	// BreakerOpen is 1 while the breaker is open or probing.
	BreakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_circuit_breaker_open",
		Help: "Whether the exchange circuit breaker is open (1) or closed (0)",
	})

	// BreakerTripsTotal counts transitions to the open state.
	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips",
	})

	// BreakerProbesTotal counts half-open probe calls.
	BreakerProbesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_circuit_breaker_probes_total",
		Help: "Total number of half-open probe calls",
	})
)
