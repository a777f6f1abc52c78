package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aaronwins356/voltrader/internal/strategy"
	"github.com/aaronwins356/voltrader/pkg/types"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Start begins scanning. In-flight state is untouched; the next cadence
// tick runs a cycle.
func (e *Engine) Start() types.BotStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		e.running = true
		e.addActivity("Bot started", "control")
		e.logger.Info("engine-started")
	}
	return e.statusLocked()
}

// Stop halts scanning at the next cycle boundary. Open positions and
// orders are left as they are.
func (e *Engine) Stop() types.BotStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.running = false
		e.addActivity("Bot stopped", "control")
		e.logger.Info("engine-stopped")
	}
	return e.statusLocked()
}

// Kill engages the kill switch synchronously and cancels every open
// entry order. Entries stay blocked until the switch is cleared
// explicitly; existing positions keep being managed by exit rules.
func (e *Engine) Kill(ctx context.Context) types.BotStatus {
	// The governor flag flips before the lock so any concurrent
	// authorization fails immediately.
	e.governor.SetKillSwitch()

	e.mu.Lock()
	defer e.mu.Unlock()

	cancelled, errs := e.orders.CancelAllOpen(ctx)
	for _, err := range errs {
		e.logger.Error("kill-cancel-failed", zap.Error(err))
	}
	e.addActivity(fmt.Sprintf("Kill switch engaged, %d orders cancelled", cancelled), "control")
	e.logger.Warn("engine-killed", zap.Int("orders-cancelled", cancelled))
	return e.statusLocked()
}

// ClearKill disengages the kill switch.
func (e *Engine) ClearKill() types.BotStatus {
	e.governor.ClearKillSwitch()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addActivity("Kill switch cleared", "control")
	return e.statusLocked()
}

// DryRun executes the full decision pipeline against fresh quotes
// without placing orders or mutating positions.
func (e *Engine) DryRun(ctx context.Context) (types.ScanSnapshot, []strategy.Decision) {
	e.mu.Lock()
	defer e.mu.Unlock()
	decisions := e.cycle(ctx, true)
	return e.lastScan, decisions
}

// SetMode switches paper/live through the governor's state machine. A
// live request without server-side enablement and the exact confirmation
// phrase fails closed in paper.
func (e *Engine) SetMode(mode types.TradingMode, confirm string) (types.TradingMode, error) {
	result, err := e.governor.SetMode(mode, confirm)

	e.mu.Lock()
	e.cfg.TradingMode = result
	if err == nil {
		e.addActivity(fmt.Sprintf("Trading mode set to %s", result), "control")
	} else {
		e.addActivity(fmt.Sprintf("Mode change rejected, staying %s", result), "control")
	}
	e.mu.Unlock()

	return result, err
}

// SetLiveTradingEnabled flips the server-side live enablement flag.
// Disabling forces the mode back to paper.
func (e *Engine) SetLiveTradingEnabled(enabled bool) {
	e.governor.SetLiveTradingEnabled(enabled)
	e.mu.Lock()
	e.cfg.LiveTradingEnabled = enabled
	if !enabled {
		e.cfg.TradingMode = types.ModePaper
	}
	e.mu.Unlock()
}

// GetConfig returns the active trading configuration.
func (e *Engine) GetConfig() types.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// UpdateConfig validates and applies a new configuration at a cycle
// boundary. An invalid config is rejected whole; the previous one stays
// in effect. LiveTradingEnabled and TradingMode are server-owned and
// never accepted from the caller.
func (e *Engine) UpdateConfig(cfg types.Config) (types.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg.LiveTradingEnabled = e.cfg.LiveTradingEnabled
	cfg.TradingMode = e.cfg.TradingMode

	if err := cfg.Validate(); err != nil {
		return e.cfg, err
	}

	e.cfg = cfg
	e.governor.SetLimits(cfg.RiskLimits)
	e.addActivity("Configuration updated", "control")
	e.logger.Info("config-updated", zap.String("config-hash", cfg.Hash()))

	if err := e.persistConfigLocked(); err != nil {
		e.logger.Error("config-persist-failed", zap.Error(err))
	}
	return e.cfg, nil
}

// persistConfigLocked writes the active config to disk so a restart
// resumes with the same rule set. Callers hold e.mu.
func (e *Engine) persistConfigLocked() error {
	if e.configPath == "" {
		return nil
	}
	payload, err := json.MarshalIndent(&e.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := e.configPath + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, e.configPath); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// LoadPersistedConfig replaces the active config with the on-disk one if
// present and valid. Called once at startup, before the loop runs.
func (e *Engine) LoadPersistedConfig() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.configPath == "" {
		return nil
	}
	payload, err := os.ReadFile(e.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	cfg := e.cfg
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	// Mode state never survives a restart; live must be re-confirmed.
	cfg.TradingMode = types.ModePaper
	cfg.LiveTradingEnabled = e.cfg.LiveTradingEnabled
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.cfg = cfg
	e.governor.SetLimits(cfg.RiskLimits)
	e.logger.Info("config-loaded", zap.String("path", e.configPath), zap.String("config-hash", cfg.Hash()))
	return nil
}

// ManualClose closes one open position at the current quote, bypassing
// exit rules but not the order lifecycle.
func (e *Engine) ManualClose(ctx context.Context, marketID string) (*types.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[marketID]
	if !ok {
		return nil, fmt.Errorf("no open position for market %s", marketID)
	}

	snap, eval := e.manualExit(pos, types.ReasonManualClose, "Closed by operator")
	e.closePosition(ctx, e.cfg, pos, snap, eval)
	if _, still := e.positions[marketID]; still {
		return nil, fmt.Errorf("close order for %s did not fill", marketID)
	}
	e.syncExposure()
	closed := e.closedPositions[len(e.closedPositions)-1]
	return &closed, nil
}

// FlattenAll closes every open position and cancels every open order.
// Partial failures are reported, not hidden: the returned error slice
// carries one entry per failed leg.
func (e *Engine) FlattenAll(ctx context.Context) (closed, cancelled int, errs []error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancelled, cancelErrs := e.orders.CancelAllOpen(ctx)
	errs = append(errs, cancelErrs...)

	marketIDs := make([]string, 0, len(e.positions))
	for marketID := range e.positions {
		marketIDs = append(marketIDs, marketID)
	}
	sort.Strings(marketIDs)

	for _, marketID := range marketIDs {
		pos := e.positions[marketID]
		snap, eval := e.manualExit(pos, types.ReasonFlatten, "Flattened by operator")
		e.closePosition(ctx, e.cfg, pos, snap, eval)
		if _, still := e.positions[marketID]; still {
			errs = append(errs, fmt.Errorf("flatten %s: close order did not fill", marketID))
			continue
		}
		closed++
	}

	// Freed exposure is visible to the governor immediately, not at the
	// next cycle boundary.
	e.syncExposure()

	e.addActivity(fmt.Sprintf("Flatten: %d positions closed, %d orders cancelled", closed, cancelled), "control")
	e.logger.Info("flatten-complete",
		zap.Int("positions-closed", closed),
		zap.Int("orders-cancelled", cancelled),
		zap.Int("errors", len(errs)))
	return closed, cancelled, errs
}

// manualExit builds the snapshot and evaluation for an operator-driven
// close at the freshest known quote.
func (e *Engine) manualExit(pos *types.Position, reason types.ReasonCode, rationale string) (types.MarketSnapshot, strategy.ExitEvaluation) {
	snap := types.MarketSnapshot{
		MarketID: pos.MarketID,
		Name:     pos.MarketName,
		MidYes:   pos.CurrentPrice,
		Bid:      pos.CurrentPrice,
		Ask:      pos.CurrentPrice,
	}
	if quote, ok := e.lastQuotes[pos.MarketID]; ok && quote.Valid() {
		snap.Bid = quote.Bid
		snap.Ask = quote.Ask
		snap.MidYes = quote.Mid()
	}

	price := snap.Bid
	if pos.Side == types.SideNo {
		price = snap.Ask
	}
	pnl := strategy.ComputePnLPct(pos.EntryPrice, snap.MidYes, pos.Side)

	return snap, strategy.ExitEvaluation{
		Decision: strategy.Decision{
			Action:    reason,
			Side:      pos.Side,
			Price:     price,
			Quantity:  pos.Quantity,
			Rationale: rationale,
		},
		PnLPct:    pnl,
		HighWater: pos.TrailingHighWater,
		TrailStop: pos.TrailStopPct,
	}
}

// ResetEvent clears the per-event risk counters for a new traded event.
func (e *Engine) ResetEvent() {
	e.governor.ResetEvent()
	e.mu.Lock()
	e.addActivity("Event counters reset", "control")
	e.mu.Unlock()
}

// Status returns the latest derived status.
func (e *Engine) Status() types.BotStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() types.BotStatus {
	status := e.recomputeStatus(e.cfg, e.lastScan)
	e.lastStatus = status
	return status
}

// Scan returns the latest scan snapshot.
func (e *Engine) Scan() types.ScanSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastScan
}

// Positions returns open positions and, optionally, closed ones.
func (e *Engine) Positions(includeClosed bool) []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.openPositionsLocked()
	if includeClosed {
		out = append(out, e.closedPositions...)
	}
	return out
}

// Activity returns the retained activity feed, newest last.
func (e *Engine) Activity() []types.ActivityEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activitySliceLocked()
}

// Orders returns order history, newest first.
func (e *Engine) Orders() []types.Order {
	return e.orders.List()
}

// Fills returns all recorded fills.
func (e *Engine) Fills() []types.Fill {
	return e.orders.Fills()
}

// CancelOrder cancels one order by ID.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Cancel(ctx, orderID)
}

// Account reports exchange connectivity.
func (e *Engine) Account(ctx context.Context) types.AccountStatus {
	status, err := e.client.GetAccount(ctx)
	if err != nil {
		e.mu.Lock()
		e.lastAccountErr = err.Error()
		e.mu.Unlock()
		return types.AccountStatus{Connected: false, LastError: err.Error()}
	}
	return status
}

// Running reports whether the scan loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
