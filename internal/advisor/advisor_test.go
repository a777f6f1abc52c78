package advisor

import (
	"strings"
	"testing"

	"github.com/aaronwins356/voltrader/internal/strategy"
	"github.com/aaronwins356/voltrader/pkg/types"
)

func TestHeuristic_Explain(t *testing.T) {
	advisor := NewHeuristic()

	tests := []struct {
		name     string
		decision strategy.Decision
		snapshot types.MarketSnapshot
		want     []string
	}{
		{
			name:     "healthy market yields no notes",
			decision: strategy.Decision{Action: types.ReasonHold},
			snapshot: types.MarketSnapshot{
				SpreadYesPct:            1.0,
				LiquidityScore:          80,
				TimeToResolutionMinutes: 120,
			},
			want: nil,
		},
		{
			name:     "wide spread and thin liquidity both flagged",
			decision: strategy.Decision{Action: types.ReasonSkip},
			snapshot: types.MarketSnapshot{
				SpreadYesPct:            5.0,
				LiquidityScore:          20,
				TimeToResolutionMinutes: 120,
			},
			want: []string{"spread", "liquidity"},
		},
		{
			name:     "near resolution flagged",
			decision: strategy.Decision{Action: types.ReasonHold},
			snapshot: types.MarketSnapshot{
				SpreadYesPct:            1.0,
				LiquidityScore:          80,
				TimeToResolutionMinutes: 10,
			},
			want: []string{"resolution"},
		},
		{
			name:     "synthetic entry flagged",
			decision: strategy.Decision{Action: types.ReasonEnter},
			snapshot: types.MarketSnapshot{
				SpreadYesPct:            1.0,
				LiquidityScore:          80,
				TimeToResolutionMinutes: 120,
				Synthetic:               true,
			},
			want: []string{"synthetic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes := advisor.Explain(tt.decision, tt.snapshot)
			if len(notes) != len(tt.want) {
				t.Fatalf("expected %d notes, got %d: %v", len(tt.want), len(notes), notes)
			}
			for i, substr := range tt.want {
				if !strings.Contains(notes[i], substr) {
					t.Errorf("note %d: expected substring %q in %q", i, substr, notes[i])
				}
			}
		})
	}
}

func TestNoop_Explain(t *testing.T) {
	var advisor Noop
	notes := advisor.Explain(strategy.Decision{Action: types.ReasonEnter}, types.MarketSnapshot{SpreadYesPct: 10})
	if notes != nil {
		t.Errorf("expected nil notes, got %v", notes)
	}
}
