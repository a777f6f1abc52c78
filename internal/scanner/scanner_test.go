package scanner

import (
	"testing"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

func scoringConfig() types.Config {
	cfg := types.DefaultConfig()
	cfg.MarketFilters.EventType = "sports"
	cfg.Scoring.VolThreshold = 0.5
	cfg.Scoring.MaxSpreadPct = 6.0
	cfg.Scoring.MinLiquidityScore = 20.0
	return cfg
}

func liquidQuote(marketID string, mid float64) types.RawQuote {
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

func TestHistory_RollingWindow(t *testing.T) {
	h := NewHistory(3)
	for _, p := range []float64{0.40, 0.41, 0.42, 0.43} {
		h.Push(p)
	}

	prices := h.Prices()
	if len(prices) != 3 {
		t.Fatalf("len(Prices()) = %d, want window of 3", len(prices))
	}
	if prices[0] != 0.41 || prices[2] != 0.43 {
		t.Errorf("Prices() = %v, want oldest evicted", prices)
	}
	if h.UpdateCount() != 4 {
		t.Errorf("UpdateCount() = %d, want 4", h.UpdateCount())
	}
}

func TestHistory_ResizeFollowsWindowChanges(t *testing.T) {
	s := New(zap.NewNop())
	for _, p := range []float64{0.40, 0.41, 0.42} {
		s.History("BTC-UP-1H", 3).Push(p)
	}

	// Widening keeps what is already there and stops evicting.
	h := s.History("BTC-UP-1H", 5)
	h.Push(0.43)
	h.Push(0.44)
	if got := len(h.Prices()); got != 5 {
		t.Errorf("len(Prices()) = %d after widening to 5, want 5", got)
	}

	// Shrinking drops the oldest prices immediately.
	h = s.History("BTC-UP-1H", 2)
	prices := h.Prices()
	if len(prices) != 2 || prices[0] != 0.43 || prices[1] != 0.44 {
		t.Errorf("Prices() = %v after shrinking to 2, want [0.43 0.44]", prices)
	}
}

func TestScorer_FiltersCategoryAndInvalid(t *testing.T) {
	s := New(zap.NewNop())
	quotes := []types.RawQuote{
		liquidQuote("SPORTS-1", 0.40),
		func() types.RawQuote {
			q := liquidQuote("CRYPTO-1", 0.40)
			q.Category = "crypto"
			return q
		}(),
		{MarketID: "BROKEN-1", Category: "sports", Bid: 0.50, Ask: 0.40}, // crossed book
	}

	snap := s.Score(quotes, scoringConfig(), time.Now())
	if len(snap.Markets) != 1 {
		t.Fatalf("scored %d markets, want 1", len(snap.Markets))
	}
	if snap.Markets[0].MarketID != "SPORTS-1" {
		t.Errorf("kept market = %q, want SPORTS-1", snap.Markets[0].MarketID)
	}
}

func TestScorer_RankingIsDeterministic(t *testing.T) {
	cfg := scoringConfig()
	now := time.Now()

	run := func() []string {
		s := New(zap.NewNop())
		var snap types.ScanSnapshot
		// Feed several cycles so volatility differs between markets.
		for i := 0; i < 5; i++ {
			quotes := []types.RawQuote{
				liquidQuote("STEADY-1", 0.40),
				liquidQuote("MOVER-1", 0.40+float64(i)*0.01),
				liquidQuote("STEADY-2", 0.40),
			}
			snap = s.Score(quotes, cfg, now)
		}
		ids := make([]string, len(snap.Markets))
		for i, m := range snap.Markets {
			ids[i] = m.MarketID
		}
		return ids
	}

	first := run()
	second := run()
	if len(first) != 3 {
		t.Fatalf("ranked %d markets, want 3", len(first))
	}
	if first[0] != "MOVER-1" {
		t.Errorf("top market = %q, want the volatile MOVER-1", first[0])
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ranking differs between identical runs: %v vs %v", first, second)
		}
	}
	// Identical markets tie-break by market_id.
	if first[1] != "STEADY-1" || first[2] != "STEADY-2" {
		t.Errorf("tied markets ranked %v, want STEADY-1 before STEADY-2", first[1:])
	}
}

func TestComputeMetrics_QualificationThresholds(t *testing.T) {
	cfg := scoringConfig()
	volatile := []float64{0.40, 0.42, 0.40, 0.43, 0.41}

	tests := []struct {
		name     string
		prices   []float64
		mutate   func(*types.RawQuote)
		quali    bool
		rational string
	}{
		{
			name:   "qualifies",
			prices: volatile,
			mutate: func(q *types.RawQuote) {},
			quali:  true,
		},
		{
			name:     "flat prices fail volatility",
			prices:   []float64{0.40, 0.40, 0.40, 0.40},
			mutate:   func(q *types.RawQuote) {},
			quali:    false,
			rational: "Failed thresholds",
		},
		{
			name:   "wide spread fails",
			prices: volatile,
			mutate: func(q *types.RawQuote) {
				q.Bid = 0.36
				q.Ask = 0.44
			},
			quali:    false,
			rational: "Failed thresholds",
		},
		{
			name:   "illiquid fails",
			prices: volatile,
			mutate: func(q *types.RawQuote) {
				q.Volume = 0
				q.BidDepth = 0
				q.AskDepth = 0
			},
			quali:    false,
			rational: "Failed thresholds",
		},
		{
			name:   "too close to resolution",
			prices: volatile,
			mutate: func(q *types.RawQuote) {
				q.TimeToResolutionMinutes = 30
			},
			quali:    false,
			rational: "Too close to resolution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote := liquidQuote("M-1", 0.40)
			tt.mutate(&quote)

			m := ComputeMetrics(tt.prices, quote, 1.0, cfg)
			if m.Qualifies != tt.quali {
				t.Errorf("Qualifies = %v, want %v (vol %.4f spread %.4f liq %.2f)",
					m.Qualifies, tt.quali, m.VolatilityPct, m.SpreadPct, m.LiquidityScore)
			}
			if tt.rational != "" && m.Rationale != tt.rational {
				t.Errorf("Rationale = %q, want %q", m.Rationale, tt.rational)
			}
		})
	}
}

func TestComputeMetrics_ZeroLiquidityNeverFaults(t *testing.T) {
	cfg := scoringConfig()
	quote := types.RawQuote{
		MarketID:                "EMPTY-1",
		Category:                "sports",
		Bid:                     0.39,
		Ask:                     0.41,
		TimeToResolutionMinutes: 300,
	}

	m := ComputeMetrics([]float64{0.40, 0.42, 0.40}, quote, 0, cfg)
	if m.LiquidityScore != 0 {
		t.Errorf("LiquidityScore = %v with no volume or depth, want 0", m.LiquidityScore)
	}
	if m.Qualifies {
		t.Error("Qualifies = true with zero liquidity")
	}
}

func TestComputeMetrics_ScoreBounds(t *testing.T) {
	cfg := scoringConfig()
	quote := liquidQuote("M-1", 0.40)

	m := ComputeMetrics([]float64{0.30, 0.50, 0.30, 0.50, 0.30}, quote, 10.0, cfg)
	if m.OverallScore < 0 || m.OverallScore > 100 {
		t.Errorf("OverallScore = %v, want within [0, 100]", m.OverallScore)
	}
}

func TestLogReturns_SkipsNonPositive(t *testing.T) {
	returns := LogReturns([]float64{0.40, 0, 0.42, 0.44})
	if len(returns) != 1 {
		t.Errorf("LogReturns() kept %d returns, want 1 (pairs with zeros skipped)", len(returns))
	}
}
