package types

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.TradingMode != ModePaper {
		t.Errorf("TradingMode = %q, want paper boot default", cfg.TradingMode)
	}
	if cfg.LiveTradingEnabled {
		t.Error("LiveTradingEnabled = true by default")
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"zero cadence", func(c *Config) { c.CadenceSeconds = 0 }, "cadence_seconds"},
		{"tiny vol window", func(c *Config) { c.Scoring.VolWindow = 1 }, "scoring.vol_window"},
		{"negative stop loss", func(c *Config) { c.Exit.StopLossPct = -1 }, "exit.stop_loss_pct"},
		{"zero max hold", func(c *Config) { c.Exit.MaxHoldSeconds = 0 }, "exit.max_hold_seconds"},
		{"zero exposure cap", func(c *Config) { c.RiskLimits.MaxExposureContracts = 0 }, "risk_limits.max_exposure_contracts"},
		{"zero order size", func(c *Config) { c.TradeSizing.OrderSize = 0 }, "trade_sizing.order_size"},
		{"liquidity score above range", func(c *Config) { c.Scoring.MinLiquidityScore = 101 }, "scoring.min_liquidity_score"},
		{"unknown mode", func(c *Config) { c.TradingMode = "practice" }, "trading_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want rejection")
			}
			var invalid *ConfigValidationError
			if !errors.As(err, &invalid) {
				t.Fatalf("Validate() error = %T, want *ConfigValidationError", err)
			}
			if invalid.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", invalid.Field, tt.wantField)
			}
		})
	}
}

func TestConfig_HashStableAndSensitive(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	if a.Hash() != b.Hash() {
		t.Error("identical configs hash differently")
	}

	b.Exit.TakeProfitPct = 5.5
	if a.Hash() == b.Hash() {
		t.Error("different configs share a hash")
	}
	if len(a.Hash()) != 12 {
		t.Errorf("hash length = %d, want 12", len(a.Hash()))
	}
}

func TestRawQuote_MidAndValid(t *testing.T) {
	q := RawQuote{Bid: 0.40, Ask: 0.44, Last: 0.39}
	if math.Abs(q.Mid()-0.42) > 1e-12 {
		t.Errorf("Mid() = %v, want 0.42", q.Mid())
	}
	if !q.Valid() {
		t.Error("Valid() = false for a two-sided book")
	}

	oneSided := RawQuote{Ask: 0.44, Last: 0.39}
	if oneSided.Mid() != 0.39 {
		t.Errorf("Mid() = %v for one-sided book, want last 0.39", oneSided.Mid())
	}
	if !oneSided.Valid() {
		t.Error("Valid() = false for an ask-only book")
	}

	crossed := RawQuote{Bid: 0.50, Ask: 0.40}
	if crossed.Valid() {
		t.Error("Valid() = true for a crossed book")
	}
	if (RawQuote{}).Valid() {
		t.Error("Valid() = true for an empty quote")
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	if OrderPending.Terminal() || OrderOpen.Terminal() {
		t.Error("pending/open reported terminal")
	}
	if !OrderFilled.Terminal() || !OrderCancelled.Terminal() {
		t.Error("filled/cancelled reported non-terminal")
	}
}
