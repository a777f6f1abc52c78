package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlacedTotal counts orders submitted to the exchange by action.
	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voltrader_orders_placed_total",
			Help: "Total orders submitted to the exchange",
		},
		[]string{"action"},
	)

	// OrdersReplacedTotal counts TTL-driven replacements.
	OrdersReplacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_orders_replaced_total",
		Help: "Total orders re-issued after TTL expiry",
	})

	// OrdersExpiredTotal counts orders cancelled after exhausting the
	// replacement budget.
	OrdersExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_orders_expired_total",
		Help: "Total orders cancelled after exhausting replacements",
	})

	// OrdersCancelledTotal counts explicit cancellations.
	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_orders_cancelled_total",
		Help: "Total orders cancelled by operator or engine action",
	})

	// OrdersRequotedTotal counts close-order requote steps.
	OrdersRequotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_orders_requoted_total",
		Help: "Total close orders re-priced after an unfilled attempt",
	})

	// FillsTotal counts recorded fills.
	FillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_orders_fills_total",
		Help: "Total fills recorded",
	})
)
