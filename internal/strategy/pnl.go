package strategy

import (
	"math"

	"github.com/aaronwins356/voltrader/pkg/types"
)

// ComputePnLPct returns the percent gain for a position. A YES position
// profits when price rises; a NO position profits when it falls.
func ComputePnLPct(entryPrice, currentPrice float64, side types.Side) float64 {
	if entryPrice <= 0 {
		return 0.0
	}
	raw := (currentPrice - entryPrice) / entryPrice * 100
	if side == types.SideNo {
		raw = -raw
	}
	return raw
}

// UnrealizedPnLPct is the quantity-weighted PnL across open positions.
func UnrealizedPnLPct(positions []types.Position) float64 {
	weighted := 0.0
	qtyTotal := 0.0
	for _, pos := range positions {
		if pos.Status != types.PositionOpen {
			continue
		}
		qty := float64(pos.Quantity)
		weighted += ComputePnLPct(pos.EntryPrice, pos.CurrentPrice, pos.Side) * qty
		qtyTotal += qty
	}
	if qtyTotal == 0 {
		return 0.0
	}
	return round4(weighted / qtyTotal)
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
