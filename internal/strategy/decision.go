// Package strategy is the pure decision engine: given a config, a scored
// market snapshot and optionally an open position, it produces an enter,
// hold, exit or skip decision with a reason code and rationale. It performs
// no I/O and holds no state, so every rule is unit-testable in isolation.
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
)

// Decision is the outcome of one decision-engine evaluation.
type Decision struct {
	Action    types.ReasonCode
	Side      types.Side
	Price     float64
	Quantity  int
	Rationale string
}

// DecideEntry evaluates the entry rule for a market with no open position.
// Risk gating happens outside this function: the governor vets an ENTER
// before the order manager acts on it, so the strategy can never bypass
// risk checks by construction.
func DecideEntry(prices []float64, snap types.MarketSnapshot, cfg types.Config) Decision {
	if !snap.Qualifies {
		return Decision{Action: types.ReasonSkip, Rationale: snap.Rationale}
	}
	if len(prices) < cfg.Entry.MomentumWindow {
		return Decision{Action: types.ReasonSkip, Rationale: "Not enough price history"}
	}

	recent := prices[len(prices)-cfg.Entry.MomentumWindow:]
	sum := 0.0
	for _, p := range recent {
		sum += p
	}
	avg := sum / float64(len(recent))
	midNow := recent[len(recent)-1]
	momentumPct := (midNow - avg) / math.Max(avg, 0.001) * 100

	if math.Abs(momentumPct) <= cfg.Entry.MomentumThresholdPct {
		return Decision{Action: types.ReasonSkip, Rationale: "Momentum below threshold"}
	}

	expectedEdgePct := math.Abs(momentumPct) - snap.SpreadYesPct - cfg.Entry.FeePct
	if expectedEdgePct <= 0 {
		return Decision{Action: types.ReasonSkip, Rationale: "Edge negative after costs"}
	}

	side := types.SideYes
	if momentumPct < 0 {
		side = types.SideNo
	}

	edge := midNow * (cfg.Entry.EntryEdgePct / 100)
	var price float64
	if side == types.SideYes {
		price = math.Min(snap.Ask, midNow-edge)
	} else {
		price = math.Max(snap.Bid, midNow+edge)
	}

	return Decision{
		Action:    types.ReasonEnter,
		Side:      side,
		Price:     round4(price),
		Quantity:  cfg.TradeSizing.OrderSize,
		Rationale: fmt.Sprintf("Momentum %.2f%% with edge %.2f%%", momentumPct, expectedEdgePct),
	}
}

// ExitEvaluation is the result of one exit pass over an open position.
// HighWater and TrailStop are the updated trailing state the caller writes
// back to the position whether or not an exit fired.
type ExitEvaluation struct {
	Decision  Decision
	PnLPct    float64
	HighWater float64
	TrailStop *float64
}

// DecideExit walks the exit rule table in priority order and returns the
// first triggered rule, or HOLD. The trailing high-water mark ratchets up
// before the rules run; the trailing stop only arms once PnL has reached
// trail_start_pct.
func DecideExit(pos types.Position, snap types.MarketSnapshot, exit types.ExitConfig, now time.Time) ExitEvaluation {
	pnlPct := ComputePnLPct(pos.EntryPrice, snap.MidYes, pos.Side)
	highWater := math.Max(pos.TrailingHighWater, pnlPct)

	trailStop := pos.TrailStopPct
	if pnlPct >= exit.TrailStartPct || trailStop != nil {
		armed := highWater - exit.TrailGapPct
		if trailStop == nil || armed > *trailStop {
			trailStop = &armed
		}
	}

	ctx := ExitContext{
		PnLPct:                  pnlPct,
		HighWater:               highWater,
		TrailStop:               trailStop,
		HoldSeconds:             now.Sub(pos.OpenedAt).Seconds(),
		TimeToResolutionMinutes: snap.TimeToResolutionMinutes,
		Exit:                    exit,
	}

	eval := ExitEvaluation{
		PnLPct:    round4(pnlPct),
		HighWater: highWater,
		TrailStop: trailStop,
	}

	for _, rule := range ExitRules() {
		if rule.Triggered(ctx) {
			price := snap.Bid
			if pos.Side == types.SideNo {
				price = snap.Ask
			}
			eval.Decision = Decision{
				Action:    rule.Reason,
				Side:      pos.Side,
				Price:     round4(price),
				Quantity:  pos.Quantity,
				Rationale: rule.Rationale,
			}
			return eval
		}
	}

	eval.Decision = Decision{Action: types.ReasonHold, Rationale: "Position healthy"}
	return eval
}
