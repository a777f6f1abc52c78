package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksAllowedTotal counts entry requests that passed every check.
	ChecksAllowedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_risk_checks_allowed_total",
		Help: "Total number of entry requests allowed by the risk governor",
	})

	// ChecksBlockedTotal counts blocks by reason code.
	ChecksBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voltrader_risk_checks_blocked_total",
			Help: "Total number of entry requests blocked by the risk governor",
		},
		[]string{"reason"},
	)

	// TradesRecordedTotal counts closed trades folded into risk counters.
	TradesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_risk_trades_recorded_total",
		Help: "Total number of closed trades recorded by the risk governor",
	})

	// KillSwitchEngaged is 1 while the kill switch blocks new entries.
	KillSwitchEngaged = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_risk_kill_switch_engaged",
		Help: "Whether the kill switch is currently engaged (1) or not (0)",
	})

	// ConsecutiveLosses is the current loss streak length.
	ConsecutiveLosses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_risk_consecutive_losses",
		Help: "Current consecutive loss streak",
	})

	// SessionPnLPct is the running session PnL percentage.
	SessionPnLPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_risk_session_pnl_pct",
		Help: "Cumulative session PnL percentage",
	})

	// ExposureContracts is the current open contract count.
	ExposureContracts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_risk_exposure_contracts",
		Help: "Current open exposure in contracts",
	})

	// ExposureDollars is the current open notional exposure.
	ExposureDollars = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltrader_risk_exposure_dollars",
		Help: "Current open exposure in dollars",
	})
)

func setKillSwitchMetric(engaged bool) {
	if engaged {
		KillSwitchEngaged.Set(1)
	} else {
		KillSwitchEngaged.Set(0)
	}
}
