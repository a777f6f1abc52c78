// Package advisor produces optional human-readable commentary attached
// to audit records. Advisory text never changes a decision; it only
// annotates one.
package advisor

import (
	"fmt"

	"github.com/aaronwins356/voltrader/internal/strategy"
	"github.com/aaronwins356/voltrader/pkg/types"
)

// Advisor annotates a decision with advisory notes.
type Advisor interface {
	Explain(decision strategy.Decision, snapshot types.MarketSnapshot) []string
}

// Noop returns no advisory text.
type Noop struct{}

// Explain returns nil.
func (Noop) Explain(strategy.Decision, types.MarketSnapshot) []string {
	return nil
}

// Heuristic emits rule-of-thumb notes about market quality. Thresholds
// are deliberately loose; this feeds the audit trail, not the decision
// path.
type Heuristic struct {
	SpreadWarnPct     float64
	LiquidityWarnMin  float64
	ResolutionWarnMin float64
}

// NewHeuristic returns an advisor with default thresholds.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		SpreadWarnPct:     3.0,
		LiquidityWarnMin:  40.0,
		ResolutionWarnMin: 30.0,
	}
}

// Explain returns advisory notes for the decision.
func (h *Heuristic) Explain(decision strategy.Decision, snapshot types.MarketSnapshot) []string {
	notes := make([]string, 0, 3)

	if snapshot.SpreadYesPct > h.SpreadWarnPct {
		notes = append(notes, fmt.Sprintf("spread %.2f%% is wide; fills may slip", snapshot.SpreadYesPct))
	}
	if snapshot.LiquidityScore < h.LiquidityWarnMin {
		notes = append(notes, fmt.Sprintf("liquidity score %.1f is thin", snapshot.LiquidityScore))
	}
	if snapshot.TimeToResolutionMinutes > 0 && snapshot.TimeToResolutionMinutes < h.ResolutionWarnMin {
		notes = append(notes, fmt.Sprintf("only %.0f minutes to resolution", snapshot.TimeToResolutionMinutes))
	}
	if decision.Action == types.ReasonEnter && snapshot.Synthetic {
		notes = append(notes, "quote is synthetic; entry priced off simulated data")
	}

	if len(notes) == 0 {
		return nil
	}
	return notes
}
