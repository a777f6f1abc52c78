package types

import "time"

// ReasonCode enumerates every decision and risk-block outcome the engine
// can produce. Every audit record carries exactly one.
type ReasonCode string

const (
	// Decision outcomes.
	ReasonEnter ReasonCode = "ENTER"
	ReasonHold  ReasonCode = "HOLD"
	ReasonSkip  ReasonCode = "SKIP"

	// Exit triggers, in evaluation priority order.
	ReasonStopLoss       ReasonCode = "STOP_LOSS"
	ReasonTakeProfit     ReasonCode = "TAKE_PROFIT"
	ReasonTrailStop      ReasonCode = "TRAIL_STOP"
	ReasonTimeStop       ReasonCode = "TIME_STOP"
	ReasonResolutionStop ReasonCode = "RESOLUTION_STOP"
	ReasonManualClose    ReasonCode = "MANUAL_CLOSE"
	ReasonFlatten        ReasonCode = "FLATTEN"

	// Risk governor blocks, in check order.
	ReasonKillSwitchActive       ReasonCode = "KILL_SWITCH_ACTIVE"
	ReasonModeNotConfirmed       ReasonCode = "MODE_NOT_CONFIRMED"
	ReasonMaxExposureContracts   ReasonCode = "MAX_EXPOSURE_CONTRACTS"
	ReasonMaxExposureDollars     ReasonCode = "MAX_EXPOSURE_DOLLARS"
	ReasonMaxEventLoss           ReasonCode = "MAX_EVENT_LOSS"
	ReasonMaxSessionLoss         ReasonCode = "MAX_SESSION_LOSS"
	ReasonMaxConsecutiveLosses   ReasonCode = "MAX_CONSECUTIVE_LOSSES"
	ReasonCooldownActive         ReasonCode = "COOLDOWN_ACTIVE"
	ReasonMaxTradesPerEvent      ReasonCode = "MAX_TRADES_PER_EVENT"
	ReasonMaxConcurrentPositions ReasonCode = "MAX_CONCURRENT_POSITIONS"
)

// AuditRecord is one immutable entry in the append-only decision ledger.
// Records are ordered by Seq, assigned monotonically by the recorder, so
// clock skew or duplicate timestamps never reorder or lose entries.
type AuditRecord struct {
	Seq        uint64     `json:"seq"`
	Timestamp  time.Time  `json:"timestamp"`
	MarketID   string     `json:"market_id"`
	ReasonCode ReasonCode `json:"reason_code"`
	Rationale  string     `json:"rationale"`
	Advisory   []string   `json:"advisory,omitempty"`
	ConfigHash string     `json:"config_hash"`
	OrderIDs   []string   `json:"order_ids,omitempty"`
}

// ActivityEntry is one line in the operator-facing activity feed.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
}

// BotState is the coarse engine state surfaced in BotStatus.
type BotState string

const (
	StateIdle     BotState = "idle"
	StateScanning BotState = "scanning"
	StateHalted   BotState = "halted"
)

// BotStatus is a derived, non-authoritative view of the engine recomputed
// at the end of every cycle.
type BotStatus struct {
	Status             BotState    `json:"status"`
	TradesExecuted     int         `json:"trades_executed"`
	OpenPositions      int         `json:"open_positions"`
	EventPnLPct        float64     `json:"event_pnl_pct"`
	HighVolCount       int         `json:"high_vol_count"`
	NextAction         string      `json:"next_action"`
	RiskMode           string      `json:"risk_mode"`
	TradingMode        TradingMode `json:"trading_mode"`
	LiveTradingEnabled bool        `json:"live_trading_enabled"`
}

// AccountStatus reports exchange connectivity for the status surface.
type AccountStatus struct {
	Connected     bool   `json:"connected"`
	Environment   string `json:"environment"`
	AccountMasked string `json:"account_masked,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}
