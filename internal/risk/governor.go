// Package risk implements the risk governor: the single gate every entry
// or replacement order must pass. It is deliberately independent of the
// decision engine so no strategy change can bypass the envelope.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntryRequest describes a proposed entry or replacement order.
type EntryRequest struct {
	MarketID string
	Quantity int
	Price    float64
}

// AllowToken is a one-shot pass issued when every risk check succeeds.
// The order manager must consume it before placing the order; tokens are
// invalidated at the next cycle boundary so a stale allow decision can
// never authorize a later order.
type AllowToken struct {
	ID       string
	MarketID string
	IssuedAt time.Time
}

// State are the running risk counters, owned by the scan loop.
type State struct {
	ConsecutiveLosses int
	EventPnLPct       float64
	SessionPnLPct     float64
	ExposureContracts int
	ExposureDollars   float64
	ActivePositions   int
	TradesThisEvent   int
}

// Governor evaluates the risk envelope in a fixed order, short-circuiting
// on the first failure. It also owns the paper/live mode state machine and
// the kill switch.
type Governor struct {
	mu sync.Mutex

	limits        types.RiskLimits
	state         State
	mode          types.TradingMode
	liveEnabled   bool
	liveConfirmed bool
	killSwitch    bool
	lastTradeAt   map[string]time.Time
	tokens        map[string]AllowToken

	logger *zap.Logger
	now    func() time.Time
}

// New creates a governor enforcing the given limits, starting in paper mode.
func New(limits types.RiskLimits, logger *zap.Logger) *Governor {
	g := &Governor{
		limits:      limits,
		mode:        types.ModePaper,
		killSwitch:  limits.KillSwitch,
		lastTradeAt: make(map[string]time.Time),
		tokens:      make(map[string]AllowToken),
		logger:      logger,
		now:         time.Now,
	}
	setKillSwitchMetric(g.killSwitch)
	return g
}

// SetClock overrides the time source. Test hook.
func (g *Governor) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// SetLimits swaps the enforced limits, picking up the kill switch flag
// carried in the config. Clearing an operator-set kill switch still
// requires ClearKillSwitch.
func (g *Governor) SetLimits(limits types.RiskLimits) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
	if limits.KillSwitch {
		g.killSwitch = true
		setKillSwitchMetric(true)
	}
}

// Authorize runs every risk check in the documented order and returns an
// allow token, or a RiskBlockedError carrying the first failed check's
// reason code. The caller is responsible for auditing blocks.
func (g *Governor) Authorize(req EntryRequest) (*AllowToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	block := g.firstFailure(req)
	if block != nil {
		ChecksBlockedTotal.WithLabelValues(string(block.Code)).Inc()
		g.logger.Debug("risk-check-blocked",
			zap.String("market-id", req.MarketID),
			zap.String("reason-code", string(block.Code)),
			zap.String("reason", block.Reason))
		return nil, block
	}

	token := AllowToken{
		ID:       uuid.NewString(),
		MarketID: req.MarketID,
		IssuedAt: g.now(),
	}
	g.tokens[token.ID] = token
	ChecksAllowedTotal.Inc()

	return &token, nil
}

func (g *Governor) firstFailure(req EntryRequest) *types.RiskBlockedError {
	if g.killSwitch {
		return &types.RiskBlockedError{Code: types.ReasonKillSwitchActive, Reason: "kill switch active"}
	}
	if g.mode == types.ModeLive && !(g.liveEnabled && g.liveConfirmed) {
		return &types.RiskBlockedError{Code: types.ReasonModeNotConfirmed, Reason: "live mode without valid confirmation"}
	}
	if g.state.ExposureContracts+req.Quantity > g.limits.MaxExposureContracts {
		return &types.RiskBlockedError{
			Code: types.ReasonMaxExposureContracts,
			Reason: fmt.Sprintf("%d open + %d proposed exceeds cap %d",
				g.state.ExposureContracts, req.Quantity, g.limits.MaxExposureContracts),
		}
	}
	if g.state.ExposureDollars+req.Price*float64(req.Quantity) > g.limits.MaxExposureDollars {
		return &types.RiskBlockedError{
			Code: types.ReasonMaxExposureDollars,
			Reason: fmt.Sprintf("$%.2f open + $%.2f proposed exceeds cap $%.2f",
				g.state.ExposureDollars, req.Price*float64(req.Quantity), g.limits.MaxExposureDollars),
		}
	}
	if abs(g.state.EventPnLPct) >= g.limits.MaxEventLossPct && g.state.EventPnLPct < 0 {
		return &types.RiskBlockedError{Code: types.ReasonMaxEventLoss, Reason: "event loss cap reached"}
	}
	if abs(g.state.SessionPnLPct) >= g.limits.MaxSessionLossPct && g.state.SessionPnLPct < 0 {
		return &types.RiskBlockedError{Code: types.ReasonMaxSessionLoss, Reason: "session loss cap reached"}
	}
	if g.state.ConsecutiveLosses >= g.limits.MaxConsecutiveLosses {
		return &types.RiskBlockedError{Code: types.ReasonMaxConsecutiveLosses, Reason: "loss streak limit reached"}
	}
	if g.inCooldownLocked(req.MarketID) {
		return &types.RiskBlockedError{Code: types.ReasonCooldownActive, Reason: "cooldown after recent trade"}
	}
	if g.state.TradesThisEvent >= g.limits.MaxTradesPerEvent {
		return &types.RiskBlockedError{Code: types.ReasonMaxTradesPerEvent, Reason: "per-event trade cap reached"}
	}
	if g.state.ActivePositions >= g.limits.MaxConcurrentPositions {
		return &types.RiskBlockedError{Code: types.ReasonMaxConcurrentPositions, Reason: "concurrent position cap reached"}
	}
	return nil
}

// Consume redeems an allow token. It returns false for unknown, already
// consumed, or invalidated tokens; the order manager refuses to place an
// entry without a successful consume.
func (g *Governor) Consume(token *AllowToken) bool {
	if token == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.tokens[token.ID]
	if ok {
		delete(g.tokens, token.ID)
	}
	return ok
}

// InvalidateTokens revokes all outstanding allow tokens. The orchestrator
// calls this at every cycle boundary.
func (g *Governor) InvalidateTokens() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = make(map[string]AllowToken)
}

// RecordEntry counts a filled entry against the per-event trade cap and
// starts the market's cooldown.
func (g *Governor) RecordEntry(marketID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.TradesThisEvent++
	g.lastTradeAt[marketID] = g.now()
}

// RecordTrade folds a closed trade's PnL into the streak, event and
// session counters and restarts the per-market cooldown.
func (g *Governor) RecordTrade(marketID string, pnlPct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.SessionPnLPct += pnlPct
	g.state.EventPnLPct += pnlPct
	if pnlPct < 0 {
		g.state.ConsecutiveLosses++
	} else {
		g.state.ConsecutiveLosses = 0
	}
	g.lastTradeAt[marketID] = g.now()

	TradesRecordedTotal.Inc()
	ConsecutiveLosses.Set(float64(g.state.ConsecutiveLosses))
	SessionPnLPct.Set(g.state.SessionPnLPct)
}

// UpdateExposure refreshes the exposure counters from the current position
// book. Called by the scan loop before any entry evaluation.
func (g *Governor) UpdateExposure(contracts int, dollars float64, activePositions int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.ExposureContracts = contracts
	g.state.ExposureDollars = dollars
	g.state.ActivePositions = activePositions
	ExposureContracts.Set(float64(contracts))
	ExposureDollars.Set(dollars)
}

// ResetEvent clears the per-event counters when the traded event rolls over.
func (g *Governor) ResetEvent() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.EventPnLPct = 0
	g.state.TradesThisEvent = 0
	g.state.ConsecutiveLosses = 0
}

// InCooldown reports whether the market is inside its post-trade cooldown.
func (g *Governor) InCooldown(marketID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inCooldownLocked(marketID)
}

func (g *Governor) inCooldownLocked(marketID string) bool {
	last, ok := g.lastTradeAt[marketID]
	if !ok {
		return false
	}
	elapsed := g.now().Sub(last).Seconds()
	return elapsed < float64(g.limits.CooldownAfterTradeSeconds)
}

// SetKillSwitch engages the kill switch. Effective immediately: any check
// running after this returns sees it. It never auto-clears.
func (g *Governor) SetKillSwitch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.killSwitch = true
	g.tokens = make(map[string]AllowToken)
	setKillSwitchMetric(true)
	g.logger.Warn("kill-switch-engaged")
}

// ClearKillSwitch disengages the kill switch. Operator action only.
func (g *Governor) ClearKillSwitch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.killSwitch = false
	setKillSwitchMetric(false)
	g.logger.Info("kill-switch-cleared")
}

// KillSwitch reports whether the kill switch is engaged.
func (g *Governor) KillSwitch() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.killSwitch
}

// SetLiveTradingEnabled flips the server-side live trading gate. This flag
// is never writable through the config surface.
func (g *Governor) SetLiveTradingEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.liveEnabled = enabled
	if !enabled && g.mode == types.ModeLive {
		g.mode = types.ModePaper
		g.liveConfirmed = false
		g.logger.Warn("mode-forced-paper", zap.String("reason", "live trading disabled"))
	}
}

// LiveTradingEnabled reports the server-side live gate.
func (g *Governor) LiveTradingEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.liveEnabled
}

// SetMode drives the paper/live state machine. paper -> live requires the
// live gate AND an exact confirmation phrase in the same request, failing
// closed otherwise; live -> paper always succeeds immediately.
func (g *Governor) SetMode(mode types.TradingMode, confirm string) (types.TradingMode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch mode {
	case types.ModePaper:
		g.mode = types.ModePaper
		g.liveConfirmed = false
		g.logger.Info("mode-changed", zap.String("mode", string(types.ModePaper)))
		return g.mode, nil
	case types.ModeLive:
		if !g.liveEnabled {
			return g.mode, &types.ModeTransitionError{
				Code:   types.ReasonModeNotConfirmed,
				Reason: "live trading is not enabled on this server",
			}
		}
		if confirm != types.LiveConfirmPhrase {
			return g.mode, &types.ModeTransitionError{
				Code:   types.ReasonModeNotConfirmed,
				Reason: "confirmation phrase mismatch",
			}
		}
		g.mode = types.ModeLive
		g.liveConfirmed = true
		g.logger.Warn("mode-changed", zap.String("mode", string(types.ModeLive)))
		return g.mode, nil
	default:
		return g.mode, &types.ModeTransitionError{
			Code:   types.ReasonModeNotConfirmed,
			Reason: fmt.Sprintf("unknown trading mode %q", mode),
		}
	}
}

// Mode returns the current trading mode.
func (g *Governor) Mode() types.TradingMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// RiskMode is the operator-facing label shown in BotStatus.
func (g *Governor) RiskMode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.killSwitch:
		return "Kill-switch"
	case g.state.ConsecutiveLosses > 0:
		return "Cautious"
	default:
		return "Conservative"
	}
}

// Snapshot returns a copy of the current risk counters.
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
