package strategy

import (
	"testing"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
)

func testConfig() types.Config {
	cfg := types.DefaultConfig()
	cfg.Entry.MomentumWindow = 4
	cfg.Entry.MomentumThresholdPct = 0.6
	cfg.Entry.EntryEdgePct = 0.3
	cfg.Entry.FeePct = 0.1
	return cfg
}

func qualifyingSnapshot() types.MarketSnapshot {
	return types.MarketSnapshot{
		MarketID:                "BTC-UP-1H",
		MidYes:                  0.44,
		Bid:                     0.43,
		Ask:                     0.45,
		SpreadYesPct:            2.0,
		Qualifies:               true,
		TimeToResolutionMinutes: 300,
	}
}

func TestDecideEntry_SkipsUnqualified(t *testing.T) {
	snap := qualifyingSnapshot()
	snap.Qualifies = false
	snap.Rationale = "Failed thresholds"

	d := DecideEntry([]float64{0.40, 0.41, 0.42, 0.44}, snap, testConfig())
	if d.Action != types.ReasonSkip {
		t.Errorf("Action = %q, want SKIP", d.Action)
	}
	if d.Rationale != "Failed thresholds" {
		t.Errorf("Rationale = %q, want the snapshot rationale", d.Rationale)
	}
}

func TestDecideEntry_SkipsShortHistory(t *testing.T) {
	d := DecideEntry([]float64{0.40, 0.41}, qualifyingSnapshot(), testConfig())
	if d.Action != types.ReasonSkip {
		t.Errorf("Action = %q, want SKIP for short history", d.Action)
	}
}

func TestDecideEntry_FlatMomentumSkips(t *testing.T) {
	d := DecideEntry([]float64{0.44, 0.44, 0.44, 0.44}, qualifyingSnapshot(), testConfig())
	if d.Action != types.ReasonSkip {
		t.Errorf("Action = %q, want SKIP for flat prices", d.Action)
	}
}

func TestDecideEntry_UpMomentumEntersYes(t *testing.T) {
	// Rising window: mid now well above the window average.
	prices := []float64{0.38, 0.40, 0.42, 0.44}
	d := DecideEntry(prices, qualifyingSnapshot(), testConfig())
	if d.Action != types.ReasonEnter {
		t.Fatalf("Action = %q (%s), want ENTER", d.Action, d.Rationale)
	}
	if d.Side != types.SideYes {
		t.Errorf("Side = %q, want yes on up momentum", d.Side)
	}
	if d.Quantity != 1 {
		t.Errorf("Quantity = %d, want configured order size 1", d.Quantity)
	}
	// Limit is mid minus the edge margin, capped at the ask.
	if d.Price > 0.45 || d.Price >= 0.44 {
		t.Errorf("Price = %v, want below mid 0.44 and at most ask 0.45", d.Price)
	}
}

func TestDecideEntry_DownMomentumEntersNo(t *testing.T) {
	prices := []float64{0.50, 0.48, 0.46, 0.44}
	d := DecideEntry(prices, qualifyingSnapshot(), testConfig())
	if d.Action != types.ReasonEnter {
		t.Fatalf("Action = %q (%s), want ENTER", d.Action, d.Rationale)
	}
	if d.Side != types.SideNo {
		t.Errorf("Side = %q, want no on down momentum", d.Side)
	}
	if d.Price < 0.44 {
		t.Errorf("Price = %v, want at or above mid for a NO entry", d.Price)
	}
}

func TestDecideEntry_EdgeEatenByCosts(t *testing.T) {
	cfg := testConfig()
	snap := qualifyingSnapshot()
	snap.SpreadYesPct = 8.0 // wider than any momentum the window can produce

	d := DecideEntry([]float64{0.38, 0.40, 0.42, 0.44}, snap, cfg)
	if d.Action != types.ReasonSkip {
		t.Errorf("Action = %q, want SKIP when spread and fees exceed momentum", d.Action)
	}
	if d.Rationale != "Edge negative after costs" {
		t.Errorf("Rationale = %q", d.Rationale)
	}
}

func openPosition(entry float64, side types.Side, openedAt time.Time) types.Position {
	return types.Position{
		PositionID: "pos-1",
		MarketID:   "BTC-UP-1H",
		Side:       side,
		Quantity:   1,
		EntryPrice: entry,
		OpenedAt:   openedAt,
		Status:     types.PositionOpen,
	}
}

func exitConfig() types.ExitConfig {
	return types.ExitConfig{
		TakeProfitPct:                4.0,
		StopLossPct:                  3.0,
		MaxHoldSeconds:               900,
		CloseBeforeResolutionMinutes: 60,
		TrailStartPct:                2.0,
		TrailGapPct:                  1.0,
	}
}

func TestDecideExit_RuleTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		pos        types.Position
		snap       types.MarketSnapshot
		wantAction types.ReasonCode
	}{
		{
			name:       "stop loss",
			pos:        openPosition(0.40, types.SideYes, now.Add(-time.Minute)),
			snap:       types.MarketSnapshot{MidYes: 0.38, Bid: 0.375, Ask: 0.385, TimeToResolutionMinutes: 300},
			wantAction: types.ReasonStopLoss,
		},
		{
			name:       "take profit",
			pos:        openPosition(0.40, types.SideYes, now.Add(-time.Minute)),
			snap:       types.MarketSnapshot{MidYes: 0.42, Bid: 0.415, Ask: 0.425, TimeToResolutionMinutes: 300},
			wantAction: types.ReasonTakeProfit,
		},
		{
			name:       "time stop",
			pos:        openPosition(0.40, types.SideYes, now.Add(-16*time.Minute)),
			snap:       types.MarketSnapshot{MidYes: 0.401, Bid: 0.40, Ask: 0.402, TimeToResolutionMinutes: 300},
			wantAction: types.ReasonTimeStop,
		},
		{
			name:       "resolution stop",
			pos:        openPosition(0.40, types.SideYes, now.Add(-time.Minute)),
			snap:       types.MarketSnapshot{MidYes: 0.401, Bid: 0.40, Ask: 0.402, TimeToResolutionMinutes: 45},
			wantAction: types.ReasonResolutionStop,
		},
		{
			name:       "no side profits on falling price",
			pos:        openPosition(0.40, types.SideNo, now.Add(-time.Minute)),
			snap:       types.MarketSnapshot{MidYes: 0.38, Bid: 0.375, Ask: 0.385, TimeToResolutionMinutes: 300},
			wantAction: types.ReasonTakeProfit,
		},
		{
			name:       "hold",
			pos:        openPosition(0.40, types.SideYes, now.Add(-time.Minute)),
			snap:       types.MarketSnapshot{MidYes: 0.404, Bid: 0.40, Ask: 0.408, TimeToResolutionMinutes: 300},
			wantAction: types.ReasonHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := DecideExit(tt.pos, tt.snap, exitConfig(), now)
			if eval.Decision.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q (pnl %.4f)", eval.Decision.Action, tt.wantAction, eval.PnLPct)
			}
		})
	}
}

func TestDecideExit_StopLossWinsOverResolution(t *testing.T) {
	now := time.Now()
	pos := openPosition(0.40, types.SideYes, now.Add(-time.Minute))
	snap := types.MarketSnapshot{MidYes: 0.38, Bid: 0.375, Ask: 0.385, TimeToResolutionMinutes: 10}

	eval := DecideExit(pos, snap, exitConfig(), now)
	if eval.Decision.Action != types.ReasonStopLoss {
		t.Errorf("Action = %q, want STOP_LOSS to outrank RESOLUTION_STOP", eval.Decision.Action)
	}
}

func TestDecideExit_TrailingStopArmsAndFires(t *testing.T) {
	now := time.Now()
	exit := exitConfig()
	exit.TakeProfitPct = 50.0 // keep take-profit out of the way
	pos := openPosition(0.40, types.SideYes, now.Add(-time.Minute))

	// PnL +2.5% arms the trail at highWater - gap = 1.5%.
	snap := types.MarketSnapshot{MidYes: 0.41, Bid: 0.405, Ask: 0.415, TimeToResolutionMinutes: 300}
	eval := DecideExit(pos, snap, exit, now)
	if eval.Decision.Action != types.ReasonHold {
		t.Fatalf("Action = %q while trail arming, want HOLD", eval.Decision.Action)
	}
	if eval.TrailStop == nil {
		t.Fatal("TrailStop = nil after PnL crossed trail_start_pct")
	}

	pos.TrailingHighWater = eval.HighWater
	pos.TrailStopPct = eval.TrailStop

	// Price gives back most of the gain: PnL falls to +1%, under the trail.
	snap = types.MarketSnapshot{MidYes: 0.404, Bid: 0.40, Ask: 0.408, TimeToResolutionMinutes: 300}
	eval = DecideExit(pos, snap, exit, now)
	if eval.Decision.Action != types.ReasonTrailStop {
		t.Errorf("Action = %q after pullback, want TRAIL_STOP", eval.Decision.Action)
	}
}

func TestDecideExit_TrailStopNeverLowers(t *testing.T) {
	now := time.Now()
	exit := exitConfig()
	exit.TakeProfitPct = 50.0

	armed := 4.0
	pos := openPosition(0.40, types.SideYes, now.Add(-time.Minute))
	pos.TrailingHighWater = 5.0
	pos.TrailStopPct = &armed

	// Retreat that would re-arm the trail lower must keep the old stop.
	snap := types.MarketSnapshot{MidYes: 0.418, Bid: 0.415, Ask: 0.42, TimeToResolutionMinutes: 300}
	eval := DecideExit(pos, snap, exit, now)
	if eval.TrailStop == nil || *eval.TrailStop != 4.0 {
		t.Errorf("TrailStop = %v, want the ratcheted 4.0", eval.TrailStop)
	}
	if eval.Decision.Action != types.ReasonHold {
		t.Errorf("Action = %q, want HOLD at +4.5%% against a 4%% trail", eval.Decision.Action)
	}
}

func TestComputePnLPct(t *testing.T) {
	tests := []struct {
		name    string
		entry   float64
		current float64
		side    types.Side
		want    float64
	}{
		{"yes gain", 0.40, 0.42, types.SideYes, 5.0},
		{"yes loss", 0.40, 0.38, types.SideYes, -5.0},
		{"no gain on falling price", 0.40, 0.38, types.SideNo, 5.0},
		{"no loss on rising price", 0.40, 0.42, types.SideNo, -5.0},
		{"zero entry", 0, 0.42, types.SideYes, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePnLPct(tt.entry, tt.current, tt.side)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("ComputePnLPct(%v, %v, %s) = %v, want %v", tt.entry, tt.current, tt.side, got, tt.want)
			}
		})
	}
}

func TestUnrealizedPnLPct_QuantityWeighted(t *testing.T) {
	positions := []types.Position{
		{Status: types.PositionOpen, Side: types.SideYes, Quantity: 1, EntryPrice: 0.40, CurrentPrice: 0.44},
		{Status: types.PositionOpen, Side: types.SideYes, Quantity: 3, EntryPrice: 0.50, CurrentPrice: 0.49},
		{Status: types.PositionClosed, Side: types.SideYes, Quantity: 10, EntryPrice: 0.10, CurrentPrice: 0.90},
	}

	// (10% * 1 + -2% * 3) / 4 = 1%.
	if got := UnrealizedPnLPct(positions); got != 1.0 {
		t.Errorf("UnrealizedPnLPct() = %v, want 1.0", got)
	}
}

func TestUnrealizedPnLPct_Empty(t *testing.T) {
	if got := UnrealizedPnLPct(nil); got != 0 {
		t.Errorf("UnrealizedPnLPct(nil) = %v, want 0", got)
	}
}
