package scanner

import (
	"math"
	"sort"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// History is the short rolling window of observed mid prices for one
// market. It backs volatility estimation and UI sparklines and is the only
// per-market state the scorer needs between cycles.
type History struct {
	prices      []float64
	maxLen      int
	updateCount int
}

// NewHistory creates a rolling window holding at most maxLen prices.
func NewHistory(maxLen int) *History {
	if maxLen < 2 {
		maxLen = 2
	}
	return &History{maxLen: maxLen}
}

// Push appends a mid price, evicting the oldest when the window is full.
func (h *History) Push(mid float64) {
	h.prices = append(h.prices, mid)
	if len(h.prices) > h.maxLen {
		h.prices = h.prices[1:]
	}
	h.updateCount++
}

// Resize changes the window capacity, dropping the oldest prices when it
// shrinks. Retained prices survive a widening unchanged.
func (h *History) Resize(maxLen int) {
	if maxLen < 2 {
		maxLen = 2
	}
	if maxLen == h.maxLen {
		return
	}
	h.maxLen = maxLen
	if len(h.prices) > maxLen {
		h.prices = h.prices[len(h.prices)-maxLen:]
	}
}

// Prices returns the window contents, oldest first.
func (h *History) Prices() []float64 {
	return h.prices
}

// UpdateCount returns how many quotes this market has ever contributed.
func (h *History) UpdateCount() int {
	return h.updateCount
}

// MarketMetrics is the scored signal set for one market.
type MarketMetrics struct {
	VolatilityPct  float64
	SpreadPct      float64
	LiquidityScore float64
	OverallScore   float64
	Qualifies      bool
	Rationale      string
}

// Scorer turns raw quotes into ranked market snapshots. It holds no
// references to positions or orders and performs no I/O.
type Scorer struct {
	logger    *zap.Logger
	histories map[string]*History
}

// New creates a scorer.
func New(logger *zap.Logger) *Scorer {
	return &Scorer{
		logger:    logger,
		histories: make(map[string]*History),
	}
}

// History returns the rolling window for a market, creating it on demand.
// A config change to vol_window takes effect on the next access.
func (s *Scorer) History(marketID string, window int) *History {
	h, ok := s.histories[marketID]
	if !ok {
		h = NewHistory(window)
		s.histories[marketID] = h
	}
	h.Resize(window)
	return h
}

// Score filters, scores and ranks a batch of quotes. The returned snapshot
// is fully ordered: overall score descending, ties broken by market_id
// ascending so repeated scans of identical inputs rank identically.
func (s *Scorer) Score(quotes []types.RawQuote, cfg types.Config, now time.Time) types.ScanSnapshot {
	snapshots := make([]types.MarketSnapshot, 0, len(quotes))

	for _, quote := range quotes {
		if cfg.MarketFilters.EventType != "" && quote.Category != cfg.MarketFilters.EventType {
			continue
		}
		if !quote.Valid() {
			s.logger.Debug("quote-invalid", zap.String("market-id", quote.MarketID))
			continue
		}

		history := s.History(quote.MarketID, cfg.Scoring.VolWindow)
		history.Push(quote.Mid())

		updateRate := updateRate(history.UpdateCount(), cfg.CadenceSeconds)
		metrics := ComputeMetrics(history.Prices(), quote, updateRate, cfg)

		snapshots = append(snapshots, types.MarketSnapshot{
			MarketID:                quote.MarketID,
			Name:                    quote.Name,
			Category:                quote.Category,
			MidYes:                  quote.Mid(),
			Bid:                     quote.Bid,
			Ask:                     quote.Ask,
			Volume:                  quote.Volume,
			BidDepth:                quote.BidDepth,
			AskDepth:                quote.AskDepth,
			VolatilityPct:           metrics.VolatilityPct,
			SpreadYesPct:            metrics.SpreadPct,
			LiquidityScore:          metrics.LiquidityScore,
			OverallScore:            metrics.OverallScore,
			Qualifies:               metrics.Qualifies,
			Rationale:               metrics.Rationale,
			TimeToResolutionMinutes: quote.TimeToResolutionMinutes,
			Synthetic:               quote.Synthetic,
		})

		if metrics.Qualifies {
			MarketsQualifiedTotal.Inc()
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].OverallScore != snapshots[j].OverallScore {
			return snapshots[i].OverallScore > snapshots[j].OverallScore
		}
		return snapshots[i].MarketID < snapshots[j].MarketID
	})

	MarketsScannedTotal.Add(float64(len(snapshots)))

	return types.ScanSnapshot{Timestamp: now, Markets: snapshots}
}

// ComputeMetrics scores one market from its rolling price window and the
// latest quote. Missing or zero liquidity data never faults the cycle; it
// yields a zero liquidity score and disqualifies the market.
func ComputeMetrics(prices []float64, quote types.RawQuote, updateRate float64, cfg types.Config) MarketMetrics {
	returns := LogReturns(prices)
	volatilityPct := 0.0
	if len(returns) >= 2 {
		volatilityPct = pstdev(returns) * 100
	}

	mid := math.Max(quote.Mid(), 0.001)
	spreadPct := (quote.Ask - quote.Bid) / mid * 100

	maxSpread := math.Max(cfg.Scoring.MaxSpreadPct, 0.1)

	depth := (quote.BidDepth + quote.AskDepth) / 2
	if depth <= 0 {
		depth = quote.Volume
	}
	volumeScore := math.Min(quote.Volume/cfg.Scoring.LiquidityVolumeRef, 1.0)
	depthScore := math.Min(depth/cfg.Scoring.LiquidityDepthRef, 1.0)
	updateScore := math.Min(updateRate/cfg.Scoring.LiquidityUpdateRef, 1.0)
	tightness := math.Max(0.0, 1-spreadPct/maxSpread)
	liquidityScore := (volumeScore*0.5 + depthScore*0.3 + updateScore*0.2) * tightness * 100

	volScore := math.Min(volatilityPct/math.Max(cfg.Scoring.VolThreshold, 0.1), 2.0) * 50
	spreadScore := math.Max(0.0, 100-spreadPct/maxSpread*100)
	resolutionScore := math.Min(quote.TimeToResolutionMinutes/math.Max(cfg.Scoring.ResolutionMinutesRef, 1.0), 1.0) * 100

	overall := cfg.Scoring.Weights.Volatility*volScore +
		cfg.Scoring.Weights.Spread*spreadScore +
		cfg.Scoring.Weights.Liquidity*liquidityScore +
		cfg.Scoring.Weights.Resolution*resolutionScore
	overall = math.Max(0.0, math.Min(100.0, overall))

	qualifies := volatilityPct >= cfg.Scoring.VolThreshold &&
		spreadPct <= cfg.Scoring.MaxSpreadPct &&
		liquidityScore >= cfg.Scoring.MinLiquidityScore

	rationale := "Failed thresholds"
	if qualifies {
		rationale = "Qualified"
	}
	if quote.TimeToResolutionMinutes <= cfg.Exit.CloseBeforeResolutionMinutes {
		rationale = "Too close to resolution"
		qualifies = false
	}

	return MarketMetrics{
		VolatilityPct:  round4(volatilityPct),
		SpreadPct:      round4(spreadPct),
		LiquidityScore: round2(liquidityScore),
		OverallScore:   round2(overall),
		Qualifies:      qualifies,
		Rationale:      rationale,
	}
}

// LogReturns computes log price returns, skipping non-positive samples.
func LogReturns(prices []float64) []float64 {
	returns := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return returns
}

// pstdev is the population standard deviation.
func pstdev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

func updateRate(updateCount, cadenceSeconds int) float64 {
	if cadenceSeconds < 1 {
		cadenceSeconds = 1
	}
	return math.Max(float64(updateCount)/float64(cadenceSeconds), 0.1)
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
