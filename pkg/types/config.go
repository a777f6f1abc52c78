package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	json "github.com/goccy/go-json"
)

// TradingMode selects between simulated and real execution.
type TradingMode string

const (
	ModePaper TradingMode = "paper"
	ModeLive  TradingMode = "live"
)

// LiveConfirmPhrase must be supplied verbatim to authorize a paper -> live
// mode transition.
const LiveConfirmPhrase = "ENABLE LIVE TRADING"

// MarketFilters restricts which markets the scanner considers.
type MarketFilters struct {
	EventType       string `json:"event_type"`
	TimeWindowHours int    `json:"time_window_hours"`
}

// ScoringWeights weight the per-signal scores into the overall score.
type ScoringWeights struct {
	Volatility float64 `json:"volatility"`
	Spread     float64 `json:"spread"`
	Liquidity  float64 `json:"liquidity"`
	Resolution float64 `json:"resolution"`
}

// ScoringConfig controls market qualification thresholds.
type ScoringConfig struct {
	VolWindow            int            `json:"vol_window"`
	VolThreshold         float64        `json:"vol_threshold"`
	MaxSpreadPct         float64        `json:"max_spread_pct"`
	MinLiquidityScore    float64        `json:"min_liquidity_score"`
	LiquidityVolumeRef   float64        `json:"liquidity_volume_ref"`
	LiquidityDepthRef    float64        `json:"liquidity_depth_ref"`
	LiquidityUpdateRef   float64        `json:"liquidity_update_ref"`
	ResolutionMinutesRef float64        `json:"resolution_minutes_ref"`
	Weights              ScoringWeights `json:"weights"`
}

// EntryConfig controls entry signal generation and order placement.
type EntryConfig struct {
	MomentumWindow       int     `json:"momentum_window"`
	MomentumThresholdPct float64 `json:"momentum_threshold_pct"`
	EntryEdgePct         float64 `json:"entry_edge_pct"`
	FeePct               float64 `json:"fee_pct"`
	OrderTTLSeconds      int     `json:"order_ttl_seconds"`
	MaxReplacements      int     `json:"max_replacements"`
}

// ExitConfig controls the exit rule set.
type ExitConfig struct {
	TakeProfitPct                float64 `json:"take_profit_pct"`
	StopLossPct                  float64 `json:"stop_loss_pct"`
	MaxHoldSeconds               int     `json:"max_hold_seconds"`
	CloseBeforeResolutionMinutes float64 `json:"close_before_resolution_minutes"`
	TrailStartPct                float64 `json:"trail_start_pct"`
	TrailGapPct                  float64 `json:"trail_gap_pct"`
	CloseSlippagePct             float64 `json:"close_slippage_pct"`
	MaxCloseRequotes             int     `json:"max_close_requotes"`
}

// RiskLimits is the risk envelope enforced by the governor.
type RiskLimits struct {
	MaxExposureContracts      int     `json:"max_exposure_contracts"`
	MaxExposureDollars        float64 `json:"max_exposure_dollars"`
	MaxConcurrentPositions    int     `json:"max_concurrent_positions"`
	MaxTradesPerEvent         int     `json:"max_trades_per_event"`
	MaxConsecutiveLosses      int     `json:"max_consecutive_losses"`
	MaxEventLossPct           float64 `json:"max_event_loss_pct"`
	MaxSessionLossPct         float64 `json:"max_session_loss_pct"`
	CooldownAfterTradeSeconds int     `json:"cooldown_after_trade_seconds"`
	KillSwitch                bool    `json:"kill_switch"`
}

// TradeSizing controls per-order contract quantity.
type TradeSizing struct {
	OrderSize int `json:"order_size"`
}

// Config is the nested trading configuration. It is immutable for the
// duration of a scan cycle: the engine snapshots it at the top of each
// cycle and components receive it by value.
//
// LiveTradingEnabled is server-set and never accepted from a caller;
// TradingMode may only become live through Governor.SetMode with a valid
// confirmation phrase.
type Config struct {
	MarketFilters  MarketFilters `json:"market_filters"`
	Scoring        ScoringConfig `json:"scoring"`
	Entry          EntryConfig   `json:"entry"`
	Exit           ExitConfig    `json:"exit"`
	RiskLimits     RiskLimits    `json:"risk_limits"`
	TradeSizing    TradeSizing   `json:"trade_sizing"`
	CadenceSeconds int           `json:"cadence_seconds"`
	TradingMode    TradingMode   `json:"trading_mode"`

	LiveTradingEnabled bool `json:"live_trading_enabled"`
}

// DefaultConfig returns the configuration used before an operator supplies one.
func DefaultConfig() Config {
	return Config{
		MarketFilters: MarketFilters{
			EventType:       "sports",
			TimeWindowHours: 24,
		},
		Scoring: ScoringConfig{
			VolWindow:            20,
			VolThreshold:         1.5,
			MaxSpreadPct:         6.0,
			MinLiquidityScore:    45.0,
			LiquidityVolumeRef:   200.0,
			LiquidityDepthRef:    250.0,
			LiquidityUpdateRef:   1.0,
			ResolutionMinutesRef: 720.0,
			Weights: ScoringWeights{
				Volatility: 0.45,
				Spread:     0.25,
				Liquidity:  0.3,
				Resolution: 0.1,
			},
		},
		Entry: EntryConfig{
			MomentumWindow:       6,
			MomentumThresholdPct: 0.6,
			EntryEdgePct:         0.3,
			FeePct:               0.1,
			OrderTTLSeconds:      30,
			MaxReplacements:      2,
		},
		Exit: ExitConfig{
			TakeProfitPct:                4.0,
			StopLossPct:                  3.0,
			MaxHoldSeconds:               900,
			CloseBeforeResolutionMinutes: 60,
			TrailStartPct:                2.0,
			TrailGapPct:                  1.0,
			CloseSlippagePct:             0.4,
			MaxCloseRequotes:             2,
		},
		RiskLimits: RiskLimits{
			MaxExposureContracts:      4,
			MaxExposureDollars:        400.0,
			MaxConcurrentPositions:    2,
			MaxTradesPerEvent:         6,
			MaxConsecutiveLosses:      2,
			MaxEventLossPct:           5.0,
			MaxSessionLossPct:         8.0,
			CooldownAfterTradeSeconds: 20,
		},
		TradeSizing:    TradeSizing{OrderSize: 1},
		CadenceSeconds: 30,
		TradingMode:    ModePaper,
	}
}

// Validate checks threshold sanity. A config that fails validation is
// rejected before any state change; the previous config stays in effect.
func (c *Config) Validate() error {
	if c.CadenceSeconds <= 0 {
		return &ConfigValidationError{Field: "cadence_seconds", Reason: "must be positive"}
	}
	if c.Scoring.VolWindow < 2 {
		return &ConfigValidationError{Field: "scoring.vol_window", Reason: "must be at least 2"}
	}
	if c.Scoring.VolThreshold < 0 {
		return &ConfigValidationError{Field: "scoring.vol_threshold", Reason: "must be >= 0"}
	}
	if c.Scoring.MaxSpreadPct <= 0 {
		return &ConfigValidationError{Field: "scoring.max_spread_pct", Reason: "must be positive"}
	}
	if c.Scoring.MinLiquidityScore < 0 || c.Scoring.MinLiquidityScore > 100 {
		return &ConfigValidationError{Field: "scoring.min_liquidity_score", Reason: "must be within [0, 100]"}
	}
	if c.Entry.MomentumWindow < 2 {
		return &ConfigValidationError{Field: "entry.momentum_window", Reason: "must be at least 2"}
	}
	if c.Entry.OrderTTLSeconds < 0 {
		return &ConfigValidationError{Field: "entry.order_ttl_seconds", Reason: "must be >= 0"}
	}
	if c.Entry.MaxReplacements < 0 {
		return &ConfigValidationError{Field: "entry.max_replacements", Reason: "must be >= 0"}
	}
	for field, value := range map[string]float64{
		"entry.momentum_threshold_pct":         c.Entry.MomentumThresholdPct,
		"entry.entry_edge_pct":                 c.Entry.EntryEdgePct,
		"entry.fee_pct":                        c.Entry.FeePct,
		"exit.take_profit_pct":                 c.Exit.TakeProfitPct,
		"exit.stop_loss_pct":                   c.Exit.StopLossPct,
		"exit.trail_start_pct":                 c.Exit.TrailStartPct,
		"exit.trail_gap_pct":                   c.Exit.TrailGapPct,
		"exit.close_slippage_pct":              c.Exit.CloseSlippagePct,
		"exit.close_before_resolution_minutes": c.Exit.CloseBeforeResolutionMinutes,
		"risk_limits.max_event_loss_pct":       c.RiskLimits.MaxEventLossPct,
		"risk_limits.max_session_loss_pct":     c.RiskLimits.MaxSessionLossPct,
	} {
		if value < 0 {
			return &ConfigValidationError{Field: field, Reason: "must be >= 0"}
		}
	}
	if c.Exit.MaxHoldSeconds <= 0 {
		return &ConfigValidationError{Field: "exit.max_hold_seconds", Reason: "must be positive"}
	}
	if c.RiskLimits.MaxExposureContracts <= 0 {
		return &ConfigValidationError{Field: "risk_limits.max_exposure_contracts", Reason: "must be positive"}
	}
	if c.RiskLimits.MaxExposureDollars <= 0 {
		return &ConfigValidationError{Field: "risk_limits.max_exposure_dollars", Reason: "must be positive"}
	}
	if c.RiskLimits.MaxConcurrentPositions <= 0 {
		return &ConfigValidationError{Field: "risk_limits.max_concurrent_positions", Reason: "must be positive"}
	}
	if c.RiskLimits.MaxTradesPerEvent <= 0 {
		return &ConfigValidationError{Field: "risk_limits.max_trades_per_event", Reason: "must be positive"}
	}
	if c.RiskLimits.MaxConsecutiveLosses <= 0 {
		return &ConfigValidationError{Field: "risk_limits.max_consecutive_losses", Reason: "must be positive"}
	}
	if c.RiskLimits.CooldownAfterTradeSeconds < 0 {
		return &ConfigValidationError{Field: "risk_limits.cooldown_after_trade_seconds", Reason: "must be >= 0"}
	}
	if c.TradeSizing.OrderSize <= 0 {
		return &ConfigValidationError{Field: "trade_sizing.order_size", Reason: "must be positive"}
	}
	if c.TradingMode != ModePaper && c.TradingMode != ModeLive {
		return &ConfigValidationError{Field: "trading_mode", Reason: fmt.Sprintf("must be %q or %q", ModePaper, ModeLive)}
	}
	return nil
}

// Hash returns a short stable digest of the config, recorded with every
// audit entry so a decision can be traced back to the exact rule set in
// effect when it was made.
func (c *Config) Hash() string {
	payload, err := json.Marshal(c)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:12]
}
