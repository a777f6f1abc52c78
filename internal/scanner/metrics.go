package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsScannedTotal tracks markets scored across all scan cycles.
	MarketsScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_markets_scanned_total",
		Help: "Total number of markets scored by the scanner",
	})

	// MarketsQualifiedTotal tracks markets that passed the scoring filters.
	MarketsQualifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_markets_qualified_total",
		Help: "Total number of markets that passed scoring filters",
	})
)
