package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	// RecordsTotal counts audit records by reason code.
	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voltrader_audit_records_total",
		Help: "Total number of audit records appended, by reason code",
	}, []string{"reason_code"})

	// WriteFailuresTotal counts durable writes that failed and were
	// queued for retry.
	WriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_audit_write_failures_total",
		Help: "Total number of failed durable audit writes",
	})
)
