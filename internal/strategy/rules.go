package strategy

import "github.com/aaronwins356/voltrader/pkg/types"

// ExitContext carries everything an exit predicate may inspect. It is
// assembled once per position per cycle, after the high-water mark and
// trailing stop have been advanced for the current price.
type ExitContext struct {
	PnLPct                  float64
	HighWater               float64
	TrailStop               *float64
	HoldSeconds             float64
	TimeToResolutionMinutes float64
	Exit                    types.ExitConfig
}

// ExitRule pairs an exit predicate with its reason code.
type ExitRule struct {
	Reason    types.ReasonCode
	Rationale string
	Triggered func(ExitContext) bool
}

// ExitRules is the exit rule table in priority order. The first rule whose
// predicate fires decides the exit; later rules are not consulted, so a
// simultaneous stop-loss and take-profit always resolves to stop-loss.
func ExitRules() []ExitRule {
	return []ExitRule{
		{
			Reason:    types.ReasonStopLoss,
			Rationale: "Stop loss hit",
			Triggered: func(c ExitContext) bool {
				return c.PnLPct <= -c.Exit.StopLossPct
			},
		},
		{
			Reason:    types.ReasonTakeProfit,
			Rationale: "Target met",
			Triggered: func(c ExitContext) bool {
				return c.PnLPct >= c.Exit.TakeProfitPct
			},
		},
		{
			Reason:    types.ReasonTrailStop,
			Rationale: "Trailing stop hit",
			Triggered: func(c ExitContext) bool {
				return c.TrailStop != nil && c.PnLPct <= *c.TrailStop
			},
		},
		{
			Reason:    types.ReasonTimeStop,
			Rationale: "Max hold time reached",
			Triggered: func(c ExitContext) bool {
				return c.HoldSeconds >= float64(c.Exit.MaxHoldSeconds)
			},
		},
		{
			Reason:    types.ReasonResolutionStop,
			Rationale: "Approaching resolution",
			Triggered: func(c ExitContext) bool {
				return c.TimeToResolutionMinutes <= c.Exit.CloseBeforeResolutionMinutes
			},
		},
	}
}
