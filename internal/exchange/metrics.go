package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuoteFailuresTotal counts quote fetches that exhausted their retries.
	QuoteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_exchange_quote_failures_total",
		Help: "Total quote fetches that failed after bounded retries",
	})

	// SyntheticQuotesTotal counts quotes served by the synthetic fallback.
	SyntheticQuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_exchange_synthetic_quotes_total",
		Help: "Total quotes generated by the deterministic synthetic fallback",
	})
)
