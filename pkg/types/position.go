package types

import "time"

// PositionStatus is the explicit position state.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is an open or closed holding in a single market. Positions are
// owned exclusively by the engine's scan loop: they are mutated only by the
// exit evaluation and by price refresh inside a cycle.
type Position struct {
	PositionID                   string         `json:"position_id"`
	MarketID                     string         `json:"market_id"`
	MarketName                   string         `json:"market_name"`
	Side                         Side           `json:"side"`
	Quantity                     int            `json:"quantity"`
	EntryPrice                   float64        `json:"entry_price"`
	CurrentPrice                 float64        `json:"current_price"`
	TakeProfitPct                float64        `json:"take_profit_pct"`
	StopLossPct                  float64        `json:"stop_loss_pct"`
	MaxHoldSeconds               int            `json:"max_hold_seconds"`
	CloseBeforeResolutionMinutes float64        `json:"close_before_resolution_minutes"`
	TrailStartPct                float64        `json:"trail_start_pct"`
	TrailGapPct                  float64        `json:"trail_gap_pct"`
	OpenedAt                     time.Time      `json:"opened_at"`
	Status                       PositionStatus `json:"status"`
	PnLPct                       float64        `json:"pnl_pct"`
	TrailingHighWater            float64        `json:"trailing_high_water"`
	TrailStopPct                 *float64       `json:"trail_stop_pct,omitempty"`
	ClosedAt                     *time.Time     `json:"closed_at,omitempty"`
	ExitReason                   ReasonCode     `json:"exit_reason,omitempty"`
}
