package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/internal/orders"
	"github.com/aaronwins356/voltrader/internal/risk"
	"github.com/aaronwins356/voltrader/internal/strategy"
	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cycle runs one scan pass. Callers hold e.mu. When dry is true the full
// pipeline runs but no order is placed and no position changes.
func (e *Engine) cycle(ctx context.Context, dry bool) []strategy.Decision {
	start := e.now()
	cfg := e.cfg

	// Cycle boundary: stale allow decisions die here, failed audit
	// writes get another attempt.
	e.governor.InvalidateTokens()
	e.recorder.RetryPending(ctx)

	scan := e.refreshMarkets(ctx, cfg)
	e.lastScan = scan

	snapshots := make(map[string]types.MarketSnapshot, len(scan.Markets))
	for _, snap := range scan.Markets {
		snapshots[snap.MarketID] = snap
	}

	decisions := make([]strategy.Decision, 0)
	decisions = append(decisions, e.evaluateExits(ctx, cfg, snapshots, dry)...)

	if !dry {
		ttl := time.Duration(cfg.Entry.OrderTTLSeconds) * time.Second
		e.orders.ExpireTTL(ctx, cfg.Entry.MaxReplacements, ttl, e.quoteReader())
		e.reconcileFills(ctx, cfg)
	}

	e.syncExposure()
	decisions = append(decisions, e.evaluateEntries(ctx, cfg, scan, dry)...)

	if !dry {
		e.reconcileFills(ctx, cfg)
		e.syncExposure()
	}

	status := e.recomputeStatus(cfg, scan)
	e.lastStatus = status

	if !dry {
		e.publish(Batch{
			Status:    status,
			Scan:      scan,
			Positions: e.openPositionsLocked(),
			Activity:  e.activitySliceLocked(),
		})
	}

	CyclesTotal.Inc()
	CycleDurationSeconds.Observe(e.now().Sub(start).Seconds())
	return decisions
}

// refreshMarkets lists the market universe, folds in markets we still
// hold positions in, fetches quotes and scores the result. Quote-side
// failures degrade to cached or synthetic data inside the quote service;
// the cycle itself never aborts on them.
func (e *Engine) refreshMarkets(ctx context.Context, cfg types.Config) types.ScanSnapshot {
	infos, err := e.quotes.ListMarkets(ctx, cfg.MarketFilters.EventType, cfg.MarketFilters.TimeWindowHours)
	if err != nil {
		e.logger.Warn("market-universe-unavailable", zap.Error(err))
	}

	seen := make(map[string]bool, len(infos))
	for _, info := range infos {
		seen[info.MarketID] = true
	}
	for marketID, pos := range e.positions {
		if seen[marketID] {
			continue
		}
		info, ok := e.quotes.MarketInfo(marketID)
		if !ok {
			info = exchange.MarketInfo{MarketID: marketID, Name: pos.MarketName}
		}
		infos = append(infos, info)
	}

	quotes := e.quotes.GetQuotes(ctx, infos)
	e.lastQuotes = make(map[string]types.RawQuote, len(quotes))
	for _, quote := range quotes {
		e.lastQuotes[quote.MarketID] = quote
	}

	return e.scorer.Score(quotes, cfg, e.now())
}

// quoteReader serves this cycle's quotes to the order manager for TTL
// re-pricing and close requoting.
func (e *Engine) quoteReader() orders.QuoteReader {
	quotes := e.lastQuotes
	return func(marketID string) (types.RawQuote, bool) {
		quote, ok := quotes[marketID]
		return quote, ok
	}
}

// evaluateExits walks open positions in a stable order and acts on the
// first triggered exit rule per position. Exits run before entries so
// freed exposure is visible to this cycle's entry checks.
func (e *Engine) evaluateExits(ctx context.Context, cfg types.Config, snapshots map[string]types.MarketSnapshot, dry bool) []strategy.Decision {
	marketIDs := make([]string, 0, len(e.positions))
	for marketID := range e.positions {
		marketIDs = append(marketIDs, marketID)
	}
	sort.Strings(marketIDs)

	decisions := make([]strategy.Decision, 0, len(marketIDs))
	for _, marketID := range marketIDs {
		pos := e.positions[marketID]
		snap, ok := snapshots[marketID]
		if !ok {
			e.logger.Warn("position-market-unscored", zap.String("market-id", marketID))
			continue
		}

		eval := strategy.DecideExit(*pos, snap, cfg.Exit, e.now())
		pos.CurrentPrice = snap.MidYes
		pos.PnLPct = eval.PnLPct
		pos.TrailingHighWater = eval.HighWater
		pos.TrailStopPct = eval.TrailStop
		decisions = append(decisions, eval.Decision)

		if dry {
			continue
		}

		if eval.Decision.Action == types.ReasonHold {
			e.audit(ctx, marketID, types.ReasonHold, eval.Decision.Rationale, nil, eval.Decision, snap)
			continue
		}

		e.closePosition(ctx, cfg, pos, snap, eval)
	}
	return decisions
}

// closePosition submits the closing order for a triggered exit and, on
// fill, retires the position and folds its PnL into the risk counters.
func (e *Engine) closePosition(ctx context.Context, cfg types.Config, pos *types.Position, snap types.MarketSnapshot, eval strategy.ExitEvaluation) {
	order, err := e.orders.SubmitClose(ctx, orders.CloseRequest{
		MarketID:    pos.MarketID,
		Side:        pos.Side,
		Price:       eval.Decision.Price,
		Quantity:    pos.Quantity,
		SlippagePct: cfg.Exit.CloseSlippagePct,
		MaxRequotes: cfg.Exit.MaxCloseRequotes,
		Quote:       e.quoteReader(),
	})
	if err != nil {
		// Position stays open; the next cycle re-evaluates it.
		e.logger.Error("position-close-failed",
			zap.String("market-id", pos.MarketID),
			zap.String("reason-code", string(eval.Decision.Action)),
			zap.Error(err))
		e.addActivity(fmt.Sprintf("Close failed for %s: %v", pos.MarketName, err), "error")
		return
	}

	now := e.now()
	pos.Status = types.PositionClosed
	pos.ClosedAt = &now
	pos.ExitReason = eval.Decision.Action
	delete(e.positions, pos.MarketID)
	e.closedPositions = append(e.closedPositions, *pos)

	e.governor.RecordTrade(pos.MarketID, eval.PnLPct)
	e.tradesExecuted++
	PositionsClosedTotal.WithLabelValues(string(eval.Decision.Action)).Inc()

	e.audit(ctx, pos.MarketID, eval.Decision.Action, eval.Decision.Rationale, []string{order.OrderID}, eval.Decision, snap)
	e.addActivity(fmt.Sprintf("Closed %s %s at %.4f (%.2f%%, %s)",
		pos.MarketName, pos.Side, order.Price, eval.PnLPct, eval.Decision.Action), "trade")

	e.logger.Info("position-closed",
		zap.String("market-id", pos.MarketID),
		zap.String("reason-code", string(eval.Decision.Action)),
		zap.Float64("pnl-pct", eval.PnLPct))
}

// evaluateEntries walks the ranked scan and attempts entries on markets
// with no open position and no outstanding order. Every ENTER passes
// through the governor; blocks are audited with the failing check's code.
// Fills are reconciled after every submit so later entries in the same
// pass are checked against the exposure they actually added.
func (e *Engine) evaluateEntries(ctx context.Context, cfg types.Config, scan types.ScanSnapshot, dry bool) []strategy.Decision {
	decisions := make([]strategy.Decision, 0)

	for _, snap := range scan.Markets {
		if _, held := e.positions[snap.MarketID]; held {
			continue
		}
		if e.orders.HasNonTerminal(snap.MarketID, types.SideYes) || e.orders.HasNonTerminal(snap.MarketID, types.SideNo) {
			continue
		}

		prices := e.scorer.History(snap.MarketID, cfg.Scoring.VolWindow).Prices()
		decision := strategy.DecideEntry(prices, snap, cfg)
		decisions = append(decisions, decision)

		if decision.Action == types.ReasonSkip {
			if snap.Qualifies && !dry {
				e.audit(ctx, snap.MarketID, types.ReasonSkip, decision.Rationale, nil, decision, snap)
			}
			continue
		}

		token, err := e.governor.Authorize(risk.EntryRequest{
			MarketID: snap.MarketID,
			Quantity: decision.Quantity,
			Price:    decision.Price,
		})
		if err != nil {
			var blocked *types.RiskBlockedError
			if errors.As(err, &blocked) && !dry {
				e.audit(ctx, snap.MarketID, blocked.Code, blocked.Reason, nil, decision, snap)
				e.addActivity(fmt.Sprintf("Entry blocked for %s: %s", snap.Name, blocked.Code), "risk")
			}
			continue
		}

		if dry {
			continue
		}

		order, err := e.orders.SubmitEntry(ctx, orders.EntryRequest{
			MarketID:        snap.MarketID,
			Side:            decision.Side,
			Price:           decision.Price,
			Quantity:        decision.Quantity,
			TTLSeconds:      cfg.Entry.OrderTTLSeconds,
			MaxReplacements: cfg.Entry.MaxReplacements,
		}, token)
		if err != nil {
			e.logger.Error("entry-submit-failed",
				zap.String("market-id", snap.MarketID),
				zap.Error(err))
			e.addActivity(fmt.Sprintf("Entry failed for %s: %v", snap.Name, err), "error")
			continue
		}

		e.audit(ctx, snap.MarketID, types.ReasonEnter, decision.Rationale, []string{order.OrderID}, decision, snap)
		e.addActivity(fmt.Sprintf("Entry %s %s %d @ %.4f", snap.Name, decision.Side, decision.Quantity, order.Price), "trade")

		e.reconcileFills(ctx, cfg)
		e.syncExposure()
	}

	return decisions
}

// reconcileFills opens positions for entry fills observed since the last
// cycle. Fills may arrive on the placement ack or after a TTL
// replacement; both paths land here.
func (e *Engine) reconcileFills(_ context.Context, cfg types.Config) {
	fills := e.orders.Fills()
	for ; e.fillCursor < len(fills); e.fillCursor++ {
		fill := fills[e.fillCursor]
		if fill.Action != types.ActionOpen {
			continue
		}
		if _, held := e.positions[fill.MarketID]; held {
			continue
		}

		name := fill.MarketID
		if info, ok := e.quotes.MarketInfo(fill.MarketID); ok {
			name = info.Name
		}

		pos := &types.Position{
			PositionID:                   uuid.NewString(),
			MarketID:                     fill.MarketID,
			MarketName:                   name,
			Side:                         fill.Side,
			Quantity:                     fill.Quantity,
			EntryPrice:                   fill.Price,
			CurrentPrice:                 fill.Price,
			TakeProfitPct:                cfg.Exit.TakeProfitPct,
			StopLossPct:                  cfg.Exit.StopLossPct,
			MaxHoldSeconds:               cfg.Exit.MaxHoldSeconds,
			CloseBeforeResolutionMinutes: cfg.Exit.CloseBeforeResolutionMinutes,
			TrailStartPct:                cfg.Exit.TrailStartPct,
			TrailGapPct:                  cfg.Exit.TrailGapPct,
			OpenedAt:                     fill.Timestamp,
			Status:                       types.PositionOpen,
		}
		e.positions[fill.MarketID] = pos
		e.governor.RecordEntry(fill.MarketID)
		e.tradesExecuted++
		PositionsOpenedTotal.Inc()

		e.logger.Info("position-opened",
			zap.String("market-id", fill.MarketID),
			zap.String("side", string(fill.Side)),
			zap.Float64("entry-price", fill.Price),
			zap.Int("quantity", fill.Quantity))
	}
}

// syncExposure recomputes the governor's exposure counters from the
// position book.
func (e *Engine) syncExposure() {
	contracts := 0
	dollars := 0.0
	for _, pos := range e.positions {
		contracts += pos.Quantity
		dollars += pos.EntryPrice * float64(pos.Quantity)
	}
	e.governor.UpdateExposure(contracts, dollars, len(e.positions))
}

// recomputeStatus derives the operator-facing status from current state.
func (e *Engine) recomputeStatus(cfg types.Config, scan types.ScanSnapshot) types.BotStatus {
	highVol := 0
	for _, snap := range scan.Markets {
		if snap.Qualifies {
			highVol++
		}
	}

	state := types.StateIdle
	switch {
	case e.governor.KillSwitch():
		state = types.StateHalted
	case e.running:
		state = types.StateScanning
	}

	nextAction := "Waiting for signal"
	switch {
	case e.governor.KillSwitch():
		nextAction = "Halted by kill switch"
	case len(e.positions) > 0:
		nextAction = "Managing open positions"
	case highVol > 0:
		nextAction = "Evaluating qualified markets"
	}

	riskState := e.governor.Snapshot()
	return types.BotStatus{
		Status:             state,
		TradesExecuted:     e.tradesExecuted,
		OpenPositions:      len(e.positions),
		EventPnLPct:        riskState.EventPnLPct,
		HighVolCount:       highVol,
		NextAction:         nextAction,
		RiskMode:           e.governor.RiskMode(),
		TradingMode:        e.governor.Mode(),
		LiveTradingEnabled: e.governor.LiveTradingEnabled(),
	}
}

// audit writes one ledger record; advisory notes come from the advisor.
// A failed durable write is logged and queued inside the recorder, so
// the cycle keeps going with the record safely in memory.
func (e *Engine) audit(ctx context.Context, marketID string, code types.ReasonCode, rationale string, orderIDs []string, decision strategy.Decision, snap types.MarketSnapshot) {
	record := types.AuditRecord{
		Timestamp:  e.now(),
		MarketID:   marketID,
		ReasonCode: code,
		Rationale:  rationale,
		Advisory:   e.advisor.Explain(decision, snap),
		ConfigHash: e.cfg.Hash(),
		OrderIDs:   orderIDs,
	}
	if _, err := e.recorder.Record(ctx, record); err != nil {
		e.logger.Warn("audit-record-deferred", zap.Error(err))
	}
}

// addActivity appends one feed entry, evicting the oldest past the cap.
func (e *Engine) addActivity(message, category string) {
	e.activity = append(e.activity, types.ActivityEntry{
		Timestamp: e.now(),
		Message:   message,
		Category:  category,
	})
	if len(e.activity) > e.activityLimit {
		e.activity = e.activity[len(e.activity)-e.activityLimit:]
	}
}

func (e *Engine) openPositionsLocked() []types.Position {
	out := make([]types.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}

func (e *Engine) activitySliceLocked() []types.ActivityEntry {
	out := make([]types.ActivityEntry, len(e.activity))
	copy(out, e.activity)
	return out
}
