// Package testutil provides shared fixtures and collaborator mocks for
// engine and transport tests.
package testutil

import (
	"time"

	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/pkg/types"
)

// CreateTestConfig returns a trading config tuned so small synthetic
// price moves qualify markets and trigger entries within a few cycles.
func CreateTestConfig() types.Config {
	cfg := types.DefaultConfig()
	cfg.MarketFilters.EventType = ""
	cfg.Scoring.VolWindow = 5
	cfg.Scoring.VolThreshold = 0.1
	cfg.Scoring.MaxSpreadPct = 10.0
	cfg.Scoring.MinLiquidityScore = 10.0
	cfg.Entry.MomentumWindow = 3
	cfg.Entry.MomentumThresholdPct = 0.5
	cfg.Entry.EntryEdgePct = 0.1
	cfg.Entry.FeePct = 0.1
	cfg.RiskLimits.CooldownAfterTradeSeconds = 0
	cfg.CadenceSeconds = 1
	return cfg
}

// CreateTestMarket creates listing metadata for one test market.
func CreateTestMarket(marketID string, name string) exchange.MarketInfo {
	return exchange.MarketInfo{
		MarketID:                marketID,
		Name:                    name,
		Category:                "sports",
		TimeToResolutionMinutes: 300,
	}
}

// CreateTestQuote creates a liquid two-sided quote around the given mid.
func CreateTestQuote(marketID string, mid float64) types.RawQuote {
	return types.RawQuote{
		MarketID:                marketID,
		Name:                    marketID,
		Category:                "sports",
		Bid:                     mid - 0.005,
		Ask:                     mid + 0.005,
		Last:                    mid,
		Volume:                  500,
		BidDepth:                400,
		AskDepth:                400,
		TimeToResolutionMinutes: 300,
		UpdatedAt:               time.Now(),
	}
}

// CreateTestSnapshot creates a qualified scored snapshot around the mid.
func CreateTestSnapshot(marketID string, mid float64) types.MarketSnapshot {
	return types.MarketSnapshot{
		MarketID:                marketID,
		Name:                    marketID,
		Category:                "sports",
		MidYes:                  mid,
		Bid:                     mid - 0.005,
		Ask:                     mid + 0.005,
		Volume:                  500,
		BidDepth:                400,
		AskDepth:                400,
		Qualifies:               true,
		Rationale:               "Qualified",
		TimeToResolutionMinutes: 300,
	}
}

// CreateTestPosition creates an open position.
func CreateTestPosition(marketID string, side types.Side, entry float64) types.Position {
	return types.Position{
		PositionID:                   "pos-" + marketID,
		MarketID:                     marketID,
		MarketName:                   marketID,
		Side:                         side,
		Quantity:                     1,
		EntryPrice:                   entry,
		CurrentPrice:                 entry,
		TakeProfitPct:                4.0,
		StopLossPct:                  3.0,
		MaxHoldSeconds:               900,
		CloseBeforeResolutionMinutes: 60,
		TrailStartPct:                2.0,
		TrailGapPct:                  1.0,
		OpenedAt:                     time.Now(),
		Status:                       types.PositionOpen,
	}
}
