// Package engine runs the scan cycle: refresh quotes, score markets,
// evaluate exits then entries, drive order lifecycle, audit every
// decision and push the results to subscribers. All trading state is
// mutated under one lock, so cycles and control operations serialize
// and no decision ever races another.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/aaronwins356/voltrader/internal/advisor"
	"github.com/aaronwins356/voltrader/internal/audit"
	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/internal/orders"
	"github.com/aaronwins356/voltrader/internal/risk"
	"github.com/aaronwins356/voltrader/internal/scanner"
	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// MarketData supplies the market universe and quotes. Satisfied by
// *exchange.QuoteService.
type MarketData interface {
	ListMarkets(ctx context.Context, eventType string, windowHours int) ([]exchange.MarketInfo, error)
	GetQuotes(ctx context.Context, infos []exchange.MarketInfo) []types.RawQuote
	MarketInfo(marketID string) (exchange.MarketInfo, bool)
}

// Batch is the end-of-cycle push payload: everything a dashboard needs
// to render the current state in one message.
type Batch struct {
	Status    types.BotStatus       `json:"status"`
	Scan      types.ScanSnapshot    `json:"scan"`
	Positions []types.Position      `json:"positions"`
	Activity  []types.ActivityEntry `json:"activity"`
}

// Engine is the scan cycle orchestrator.
type Engine struct {
	mu sync.Mutex

	cfg        types.Config
	configPath string

	quotes   MarketData
	client   exchange.Client
	scorer   *scanner.Scorer
	governor *risk.Governor
	orders   *orders.Manager
	recorder *audit.Recorder
	advisor  advisor.Advisor
	publish  func(Batch)

	running         bool
	positions       map[string]*types.Position
	closedPositions []types.Position
	activity        []types.ActivityEntry
	activityLimit   int
	lastScan        types.ScanSnapshot
	lastStatus      types.BotStatus
	lastQuotes      map[string]types.RawQuote
	lastAccountErr  string
	tradesExecuted  int
	fillCursor      int

	logger *zap.Logger
	now    func() time.Time
}

// Config holds engine configuration.
type Config struct {
	Trading    types.Config
	ConfigPath string

	Quotes   MarketData
	Client   exchange.Client
	Scorer   *scanner.Scorer
	Governor *risk.Governor
	Orders   *orders.Manager
	Recorder *audit.Recorder
	Advisor  advisor.Advisor

	// Publish receives the end-of-cycle batch. Optional.
	Publish func(Batch)

	// ActivityLimit bounds the retained activity feed.
	ActivityLimit int

	Logger *zap.Logger
}

// New creates an engine. It starts idle; Start begins scanning.
func New(cfg *Config) *Engine {
	adv := cfg.Advisor
	if adv == nil {
		adv = advisor.Noop{}
	}
	publish := cfg.Publish
	if publish == nil {
		publish = func(Batch) {}
	}
	limit := cfg.ActivityLimit
	if limit <= 0 {
		limit = 200
	}
	return &Engine{
		cfg:           cfg.Trading,
		configPath:    cfg.ConfigPath,
		quotes:        cfg.Quotes,
		client:        cfg.Client,
		scorer:        cfg.Scorer,
		governor:      cfg.Governor,
		orders:        cfg.Orders,
		recorder:      cfg.Recorder,
		advisor:       adv,
		publish:       publish,
		positions:     make(map[string]*types.Position),
		activityLimit: limit,
		lastQuotes:    make(map[string]types.RawQuote),
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Run drives scan cycles at the configured cadence until the context is
// cancelled. Cycles only execute while the engine is started.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine-loop-starting")

	for {
		e.mu.Lock()
		cadence := time.Duration(e.cfg.CadenceSeconds) * time.Second
		e.mu.Unlock()

		timer := time.NewTimer(cadence)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("engine-loop-stopped")
			return nil
		case <-timer.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle executes one scan cycle when the engine is started. It is a
// no-op while stopped so a pending stop takes effect at the boundary.
func (e *Engine) RunCycle(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.cycle(ctx, false)
}

// Close releases the recorder's storage.
func (e *Engine) Close() error {
	return e.recorder.Close()
}
