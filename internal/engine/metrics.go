package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	// CyclesTotal counts completed scan cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_engine_cycles_total",
		Help: "Total number of completed scan cycles",
	})

	// CycleDurationSeconds observes scan cycle wall time.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voltrader_engine_cycle_duration_seconds",
		Help:    "Scan cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// PositionsOpenedTotal counts positions opened from entry fills.
	PositionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_engine_positions_opened_total",
		Help: "Total number of positions opened",
	})

	// PositionsClosedTotal counts closed positions by exit reason.
	PositionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voltrader_engine_positions_closed_total",
		Help: "Total number of positions closed, by exit reason",
	}, []string{"reason_code"})
)
