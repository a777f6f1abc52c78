package exchange

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
)

// DemoMarket parameterizes the deterministic price generator for one
// synthetic market.
type DemoMarket struct {
	MarketID                string
	Name                    string
	Category                string
	BasePrice               float64
	Sensitivity             float64
	TimeToResolutionMinutes float64
}

// DemoMarkets is the fixed market universe the paper broker serves.
var DemoMarkets = []DemoMarket{
	{MarketID: "NBA-LAL-GSW", Name: "Lakers vs Warriors - Winner", Category: "sports", BasePrice: 0.56, Sensitivity: 0.11, TimeToResolutionMinutes: 18 * 60},
	{MarketID: "ELECT-2024", Name: "Election result - Margin", Category: "politics", BasePrice: 0.42, Sensitivity: 0.14, TimeToResolutionMinutes: 96 * 60},
	{MarketID: "FED-RATE", Name: "Fed rate hike", Category: "finance", BasePrice: 0.38, Sensitivity: 0.09, TimeToResolutionMinutes: 40 * 60},
	{MarketID: "EARN-NVDA", Name: "NVIDIA earnings beat", Category: "company", BasePrice: 0.63, Sensitivity: 0.12, TimeToResolutionMinutes: 12 * 60},
	{MarketID: "OIL-PRICE", Name: "Oil above $90", Category: "finance", BasePrice: 0.29, Sensitivity: 0.16, TimeToResolutionMinutes: 55 * 60},
	{MarketID: "NBA-PTS", Name: "Total points over 215.5", Category: "sports", BasePrice: 0.51, Sensitivity: 0.08, TimeToResolutionMinutes: 8 * 60},
}

// SyntheticMid is the deterministic mid price for a market at an instant:
// a sine pulse plus a slow cosine drift around the base price, clamped to
// [0.02, 0.98]. Same market and timestamp always yield the same price.
func SyntheticMid(basePrice, sensitivity float64, at time.Time) float64 {
	seconds := float64(at.UTC().Unix())
	pulse := math.Sin(seconds/60+basePrice*10) * sensitivity
	drift := math.Cos(seconds/300) * sensitivity * 0.4
	price := basePrice + pulse + drift
	price = math.Min(0.98, math.Max(0.02, price))
	return math.Round(price*10000) / 10000
}

// SyntheticSpread is the synthetic bid/ask spread at a mid price.
func SyntheticSpread(mid float64) float64 {
	return math.Max(0.002, mid*0.01)
}

// SyntheticQuote builds a full deterministic quote keyed by market_id.
// Unknown markets derive a base price from an FNV hash of the ID so any
// market the engine asks about quotes reproducibly.
func SyntheticQuote(info MarketInfo, at time.Time) types.RawQuote {
	base, sensitivity := 0.0, 0.10
	for _, m := range DemoMarkets {
		if m.MarketID == info.MarketID {
			base, sensitivity = m.BasePrice, m.Sensitivity
			break
		}
	}
	if base == 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(info.MarketID))
		base = 0.20 + float64(h.Sum32()%61)/100 // deterministic in [0.20, 0.80]
	}

	mid := SyntheticMid(base, sensitivity, at)
	spread := SyntheticSpread(mid)

	return types.RawQuote{
		MarketID:                info.MarketID,
		Name:                    info.Name,
		Category:                info.Category,
		Bid:                     round4(mid - spread/2),
		Ask:                     round4(mid + spread/2),
		Last:                    mid,
		Volume:                  200.0,
		BidDepth:                200.0,
		AskDepth:                200.0,
		TimeToResolutionMinutes: info.TimeToResolutionMinutes,
		UpdatedAt:               at,
		Synthetic:               true,
	}
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
