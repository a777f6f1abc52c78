package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

func testLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxExposureContracts:      4,
		MaxExposureDollars:        400.0,
		MaxConcurrentPositions:    2,
		MaxTradesPerEvent:         6,
		MaxConsecutiveLosses:      2,
		MaxEventLossPct:           5.0,
		MaxSessionLossPct:         8.0,
		CooldownAfterTradeSeconds: 20,
	}
}

func blockedCode(t *testing.T, g *Governor, req EntryRequest) types.ReasonCode {
	t.Helper()
	_, err := g.Authorize(req)
	if err == nil {
		t.Fatal("Authorize() error = nil, want risk block")
	}
	var blocked *types.RiskBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("Authorize() error = %v, want *types.RiskBlockedError", err)
	}
	return blocked.Code
}

func TestGovernor_AuthorizeIssuesOneShotToken(t *testing.T) {
	g := New(testLimits(), zap.NewNop())

	token, err := g.Authorize(EntryRequest{MarketID: "BTC-UP-1H", Quantity: 1, Price: 0.40})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if token.MarketID != "BTC-UP-1H" {
		t.Errorf("token.MarketID = %q, want %q", token.MarketID, "BTC-UP-1H")
	}

	if !g.Consume(token) {
		t.Error("Consume() = false for a freshly issued token")
	}
	if g.Consume(token) {
		t.Error("Consume() = true for an already consumed token")
	}
}

func TestGovernor_InvalidateTokensRevokesOutstanding(t *testing.T) {
	g := New(testLimits(), zap.NewNop())

	token, err := g.Authorize(EntryRequest{MarketID: "BTC-UP-1H", Quantity: 1, Price: 0.40})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	g.InvalidateTokens()
	if g.Consume(token) {
		t.Error("Consume() = true after InvalidateTokens()")
	}
}

func TestGovernor_KillSwitchBlocksFirst(t *testing.T) {
	g := New(testLimits(), zap.NewNop())
	g.SetKillSwitch()

	// Exposure would also fail; the kill switch must win.
	g.UpdateExposure(10, 1000, 5)

	code := blockedCode(t, g, EntryRequest{MarketID: "BTC-UP-1H", Quantity: 1, Price: 0.40})
	if code != types.ReasonKillSwitchActive {
		t.Errorf("block code = %q, want %q", code, types.ReasonKillSwitchActive)
	}

	g.ClearKillSwitch()
	if g.KillSwitch() {
		t.Error("KillSwitch() = true after ClearKillSwitch()")
	}
}

func TestGovernor_SetKillSwitchRevokesTokens(t *testing.T) {
	g := New(testLimits(), zap.NewNop())

	token, err := g.Authorize(EntryRequest{MarketID: "BTC-UP-1H", Quantity: 1, Price: 0.40})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	g.SetKillSwitch()
	if g.Consume(token) {
		t.Error("Consume() = true after kill switch engaged")
	}
}

func TestGovernor_CheckOrder(t *testing.T) {
	tests := []struct {
		name     string
		arrange  func(g *Governor)
		req      EntryRequest
		wantCode types.ReasonCode
	}{
		{
			name:     "exposure contracts",
			arrange:  func(g *Governor) { g.UpdateExposure(4, 100, 1) },
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonMaxExposureContracts,
		},
		{
			name:     "exposure dollars",
			arrange:  func(g *Governor) { g.UpdateExposure(1, 399.50, 1) },
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.60},
			wantCode: types.ReasonMaxExposureDollars,
		},
		{
			name:     "event loss cap",
			arrange:  func(g *Governor) { g.RecordTrade("M2", -5.0) },
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonMaxEventLoss,
		},
		{
			name: "session loss survives event reset",
			arrange: func(g *Governor) {
				g.RecordTrade("M2", -4.0)
				g.RecordTrade("M3", -4.5)
				g.ResetEvent()
			},
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonMaxSessionLoss,
		},
		{
			name: "loss streak",
			arrange: func(g *Governor) {
				g.RecordTrade("M2", -1.0)
				g.RecordTrade("M3", -1.0)
			},
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonMaxConsecutiveLosses,
		},
		{
			name:     "cooldown",
			arrange:  func(g *Governor) { g.RecordTrade("M1", 1.0) },
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonCooldownActive,
		},
		{
			name: "per-event trade cap",
			arrange: func(g *Governor) {
				for i := 0; i < 6; i++ {
					g.RecordEntry("M2")
				}
			},
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonMaxTradesPerEvent,
		},
		{
			name:     "concurrent positions",
			arrange:  func(g *Governor) { g.UpdateExposure(2, 100, 2) },
			req:      EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40},
			wantCode: types.ReasonMaxConcurrentPositions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(testLimits(), zap.NewNop())
			tt.arrange(g)
			code := blockedCode(t, g, tt.req)
			if code != tt.wantCode {
				t.Errorf("block code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestGovernor_ProfitDoesNotTripLossCaps(t *testing.T) {
	g := New(testLimits(), zap.NewNop())
	g.SetClock(func() time.Time { return time.Unix(1000, 0) })
	g.RecordTrade("M2", 9.0)
	g.SetClock(func() time.Time { return time.Unix(2000, 0) })

	if _, err := g.Authorize(EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40}); err != nil {
		t.Errorf("Authorize() after large gain error = %v, want nil", err)
	}
}

func TestGovernor_WinResetsLossStreak(t *testing.T) {
	g := New(testLimits(), zap.NewNop())
	g.RecordTrade("M1", -1.0)
	g.RecordTrade("M2", 1.0)

	if got := g.Snapshot().ConsecutiveLosses; got != 0 {
		t.Errorf("ConsecutiveLosses = %d after a win, want 0", got)
	}
}

func TestGovernor_CooldownExpires(t *testing.T) {
	g := New(testLimits(), zap.NewNop())

	at := time.Unix(1000, 0)
	g.SetClock(func() time.Time { return at })
	g.RecordTrade("M1", 1.0)

	if !g.InCooldown("M1") {
		t.Error("InCooldown() = false immediately after a trade")
	}

	at = at.Add(21 * time.Second)
	if g.InCooldown("M1") {
		t.Error("InCooldown() = true after the cooldown window elapsed")
	}
	if g.InCooldown("M2") {
		t.Error("InCooldown() = true for an untraded market")
	}
}

func TestGovernor_LiveModeRequiresGateAndPhrase(t *testing.T) {
	g := New(testLimits(), zap.NewNop())

	// Gate disabled: fail closed.
	if _, err := g.SetMode(types.ModeLive, types.LiveConfirmPhrase); err == nil {
		t.Error("SetMode(live) succeeded with the live gate disabled")
	}

	g.SetLiveTradingEnabled(true)

	// Wrong phrase: fail closed.
	if _, err := g.SetMode(types.ModeLive, "enable live trading"); err == nil {
		t.Error("SetMode(live) succeeded with a mismatched confirmation phrase")
	}
	if g.Mode() != types.ModePaper {
		t.Errorf("Mode() = %q after failed transitions, want paper", g.Mode())
	}

	mode, err := g.SetMode(types.ModeLive, types.LiveConfirmPhrase)
	if err != nil {
		t.Fatalf("SetMode(live) error = %v", err)
	}
	if mode != types.ModeLive {
		t.Errorf("SetMode(live) = %q, want live", mode)
	}

	if _, err := g.Authorize(EntryRequest{MarketID: "M1", Quantity: 1, Price: 0.40}); err != nil {
		t.Errorf("Authorize() in confirmed live mode error = %v, want nil", err)
	}
}

func TestGovernor_DisablingLiveGateForcesPaper(t *testing.T) {
	g := New(testLimits(), zap.NewNop())
	g.SetLiveTradingEnabled(true)
	if _, err := g.SetMode(types.ModeLive, types.LiveConfirmPhrase); err != nil {
		t.Fatalf("SetMode(live) error = %v", err)
	}

	g.SetLiveTradingEnabled(false)
	if g.Mode() != types.ModePaper {
		t.Errorf("Mode() = %q after live gate disabled, want paper", g.Mode())
	}
}

func TestGovernor_LiveConfirmationNotSticky(t *testing.T) {
	g := New(testLimits(), zap.NewNop())
	g.SetLiveTradingEnabled(true)
	if _, err := g.SetMode(types.ModeLive, types.LiveConfirmPhrase); err != nil {
		t.Fatalf("SetMode(live) error = %v", err)
	}
	if _, err := g.SetMode(types.ModePaper, ""); err != nil {
		t.Fatalf("SetMode(paper) error = %v", err)
	}

	// Returning to live needs a fresh confirmation.
	if _, err := g.SetMode(types.ModeLive, ""); err == nil {
		t.Error("SetMode(live) succeeded without re-confirmation")
	}
}

func TestGovernor_SetLimitsPicksUpKillSwitch(t *testing.T) {
	g := New(testLimits(), zap.NewNop())

	limits := testLimits()
	limits.KillSwitch = true
	g.SetLimits(limits)

	if !g.KillSwitch() {
		t.Error("KillSwitch() = false after SetLimits with kill_switch set")
	}

	// Clearing the flag in config must not silently clear the switch.
	limits.KillSwitch = false
	g.SetLimits(limits)
	if !g.KillSwitch() {
		t.Error("SetLimits cleared the kill switch without ClearKillSwitch")
	}
}

func TestGovernor_RiskModeLabel(t *testing.T) {
	g := New(testLimits(), zap.NewNop())
	if got := g.RiskMode(); got != "Conservative" {
		t.Errorf("RiskMode() = %q, want Conservative", got)
	}

	g.RecordTrade("M1", -1.0)
	if got := g.RiskMode(); got != "Cautious" {
		t.Errorf("RiskMode() = %q after a loss, want Cautious", got)
	}

	g.SetKillSwitch()
	if got := g.RiskMode(); got != "Kill-switch" {
		t.Errorf("RiskMode() = %q with kill switch, want Kill-switch", got)
	}
}
