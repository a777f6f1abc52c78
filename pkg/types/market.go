package types

import "time"

// RawQuote is a single quote for the YES side of a market as returned by
// the exchange collaborator. Prices are dollar fractions in [0, 1].
type RawQuote struct {
	MarketID                string
	Name                    string
	Category                string
	Bid                     float64
	Ask                     float64
	Last                    float64
	Volume                  float64
	BidDepth                float64
	AskDepth                float64
	TimeToResolutionMinutes float64
	UpdatedAt               time.Time
	Synthetic               bool // true when live quotes were unavailable and a deterministic fallback was used
}

// Mid returns the YES mid price, or the last price when the book is one-sided.
func (q RawQuote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// Valid reports whether the quote carries usable prices.
func (q RawQuote) Valid() bool {
	return q.Ask > 0 && q.Ask >= q.Bid
}

// MarketSnapshot is one scored market in a scan cycle. Snapshots are
// recomputed every cycle and only a short rolling history is retained.
type MarketSnapshot struct {
	MarketID                string  `json:"market_id"`
	Name                    string  `json:"name"`
	Category                string  `json:"category"`
	MidYes                  float64 `json:"mid_yes"`
	Bid                     float64 `json:"bid"`
	Ask                     float64 `json:"ask"`
	Volume                  float64 `json:"volume"`
	BidDepth                float64 `json:"bid_depth"`
	AskDepth                float64 `json:"ask_depth"`
	VolatilityPct           float64 `json:"volatility_pct"`
	SpreadYesPct            float64 `json:"spread_yes_pct"`
	LiquidityScore          float64 `json:"liquidity_score"`
	OverallScore            float64 `json:"overall_score"`
	Qualifies               bool    `json:"qualifies"`
	Rationale               string  `json:"rationale"`
	TimeToResolutionMinutes float64 `json:"time_to_resolution_minutes"`
	Synthetic               bool    `json:"synthetic"`
}

// ScanSnapshot is the fully ranked result of one scan cycle.
type ScanSnapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Markets   []MarketSnapshot `json:"markets"`
}
