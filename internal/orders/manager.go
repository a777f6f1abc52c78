// Package orders owns the order state machine: Pending -> Open ->
// {Filled | Cancelled}, with a TTL replacement edge back to Pending while
// the replacement budget lasts. All mutation happens on the engine's
// single-writer loop.
package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/internal/risk"
	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenConsumer redeems one-shot risk allow tokens. Satisfied by
// *risk.Governor.
type TokenConsumer interface {
	Consume(token *risk.AllowToken) bool
}

// QuoteReader supplies the freshest quote for a market so TTL replacement
// can re-price instead of resubmitting a stale limit.
type QuoteReader func(marketID string) (types.RawQuote, bool)

type orderKey struct {
	marketID string
	side     types.Side
}

// Manager tracks outstanding orders and drives their lifecycle against the
// exchange collaborator.
type Manager struct {
	mu sync.Mutex

	client  exchange.Client
	tokens  TokenConsumer
	logger  *zap.Logger
	now     func() time.Time
	active  map[orderKey]*types.Order
	history map[string]*types.Order
	fills   []types.Fill
}

// Config holds manager configuration.
type Config struct {
	Client exchange.Client
	Tokens TokenConsumer
	Logger *zap.Logger
}

// New creates an order manager.
func New(cfg *Config) *Manager {
	return &Manager{
		client:  cfg.Client,
		tokens:  cfg.Tokens,
		logger:  cfg.Logger,
		now:     time.Now,
		active:  make(map[orderKey]*types.Order),
		history: make(map[string]*types.Order),
	}
}

// SetClock overrides the time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// EntryRequest describes an entry order derived from an ENTER decision.
type EntryRequest struct {
	MarketID        string
	Side            types.Side
	Price           float64
	Quantity        int
	TTLSeconds      int
	MaxReplacements int
}

// SubmitEntry places an opening order. It refuses to act without a valid,
// unconsumed allow token, and refuses when a non-terminal order already
// exists for the (market, side) key.
func (m *Manager) SubmitEntry(ctx context.Context, req EntryRequest, token *risk.AllowToken) (*types.Order, error) {
	if !m.tokens.Consume(token) {
		return nil, fmt.Errorf("entry for %s rejected: allow token invalid or already consumed", req.MarketID)
	}

	m.mu.Lock()
	key := orderKey{marketID: req.MarketID, side: req.Side}
	if existing, ok := m.active[key]; ok && !existing.Status.Terminal() {
		m.mu.Unlock()
		return nil, fmt.Errorf("entry for %s/%s rejected: order %s still %s",
			req.MarketID, req.Side, existing.OrderID, existing.Status)
	}

	now := m.now()
	order := &types.Order{
		OrderID:     uuid.NewString(),
		MarketID:    req.MarketID,
		Action:      types.ActionOpen,
		Side:        req.Side,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Status:      types.OrderPending,
		TTLDeadline: now.Add(time.Duration(req.TTLSeconds) * time.Second),
		CreatedAt:   now,
	}
	m.active[key] = order
	m.history[order.OrderID] = order
	m.mu.Unlock()

	return m.place(ctx, order)
}

// CloseRequest describes a closing order for an open position.
type CloseRequest struct {
	MarketID    string
	Side        types.Side
	Price       float64
	Quantity    int
	SlippagePct float64
	MaxRequotes int
	Quote       QuoteReader
}

// SubmitClose places a closing order, stepping the limit price by the
// slippage increment on each requote until it fills or the requote budget
// is spent. Closing is never risk-gated.
func (m *Manager) SubmitClose(ctx context.Context, req CloseRequest) (*types.Order, error) {
	price := req.Price

	for attempt := 0; attempt <= req.MaxRequotes; attempt++ {
		if req.Quote != nil {
			if quote, ok := req.Quote(req.MarketID); ok && quote.Valid() {
				base := quote.Bid
				if req.Side == types.SideNo {
					base = quote.Ask
				}
				step := base * (req.SlippagePct / 100) * float64(attempt)
				if req.Side == types.SideYes {
					price = base - step
				} else {
					price = base + step
				}
			}
		}

		now := m.now()
		order := &types.Order{
			OrderID:   uuid.NewString(),
			MarketID:  req.MarketID,
			Action:    types.ActionClose,
			Side:      req.Side,
			Price:     price,
			Quantity:  req.Quantity,
			Status:    types.OrderPending,
			CreatedAt: now,
		}
		m.mu.Lock()
		m.history[order.OrderID] = order
		m.mu.Unlock()

		ack, err := m.client.PlaceOrder(ctx, *order)
		if err != nil {
			m.transition(order, types.OrderCancelled)
			return order, &types.ExternalAPIError{Op: "place_order", Err: err}
		}

		m.applyAck(order, ack)
		if order.Status == types.OrderFilled {
			return order, nil
		}

		// Not filled: pull it and requote one step more aggressive.
		if err := m.client.CancelOrder(ctx, order.OrderID); err != nil {
			m.logger.Warn("close-requote-cancel-failed",
				zap.String("order-id", order.OrderID),
				zap.Error(err))
		}
		m.transition(order, types.OrderCancelled)
		OrdersRequotedTotal.Inc()
	}

	return nil, fmt.Errorf("close for %s/%s unfilled after %d requotes", req.MarketID, req.Side, req.MaxRequotes)
}

// place submits a pending entry order and records the outcome.
func (m *Manager) place(ctx context.Context, order *types.Order) (*types.Order, error) {
	ack, err := m.client.PlaceOrder(ctx, *order)
	if err != nil {
		m.transition(order, types.OrderCancelled)
		return order, &types.ExternalAPIError{Op: "place_order", Err: err}
	}

	m.applyAck(order, ack)
	OrdersPlacedTotal.WithLabelValues(string(order.Action)).Inc()

	m.logger.Info("order-placed",
		zap.String("order-id", order.OrderID),
		zap.String("market-id", order.MarketID),
		zap.String("side", string(order.Side)),
		zap.Float64("price", order.Price),
		zap.String("status", string(order.Status)),
		zap.Int("replacement-count", order.ReplacementCount))

	return order, nil
}

// applyAck folds an exchange ack into the tracked order, recording a fill
// when the ack says so.
func (m *Manager) applyAck(order *types.Order, ack *types.OrderAck) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ack.OrderID != "" {
		delete(m.history, order.OrderID)
		order.OrderID = ack.OrderID
		m.history[order.OrderID] = order
	}

	switch ack.Status {
	case types.OrderFilled:
		now := m.now()
		order.Status = types.OrderFilled
		order.FilledAt = &now
		price := ack.AvgFillPrice
		if price == 0 {
			price = order.Price
		}
		m.fills = append(m.fills, types.Fill{
			OrderID:   order.OrderID,
			MarketID:  order.MarketID,
			Action:    order.Action,
			Side:      order.Side,
			Price:     price,
			Quantity:  ack.FilledQty,
			Timestamp: now,
		})
		FillsTotal.Inc()
		m.clearActiveLocked(order)
	default:
		order.Status = types.OrderOpen
	}
}

// ExpireTTL advances every open entry order past its TTL deadline: while
// the replacement budget lasts the order is re-priced from the latest
// quote and re-issued; once exhausted it is cancelled for good. Driven by
// the scan loop so all mutation stays on the single writer.
func (m *Manager) ExpireTTL(ctx context.Context, maxReplacements int, ttl time.Duration, quote QuoteReader) {
	m.mu.Lock()
	now := m.now()
	expired := make([]*types.Order, 0)
	for _, order := range m.active {
		if order.Status == types.OrderOpen && !order.TTLDeadline.After(now) {
			expired = append(expired, order)
		}
	}
	m.mu.Unlock()

	for _, order := range expired {
		if err := m.client.CancelOrder(ctx, order.OrderID); err != nil {
			m.logger.Warn("ttl-cancel-failed", zap.String("order-id", order.OrderID), zap.Error(err))
		}

		if order.ReplacementCount >= maxReplacements {
			m.transition(order, types.OrderCancelled)
			OrdersExpiredTotal.Inc()
			m.logger.Info("order-expired",
				zap.String("order-id", order.OrderID),
				zap.String("market-id", order.MarketID),
				zap.Int("replacement-count", order.ReplacementCount))
			continue
		}

		// Re-read the book and re-issue at an updated price rather than
		// resubmitting the stale limit.
		price := order.Price
		if quote != nil {
			if q, ok := quote(order.MarketID); ok && q.Valid() {
				if order.Side == types.SideYes {
					price = minFloat(order.Price, q.Ask)
				} else {
					price = maxFloat(order.Price, q.Bid)
				}
			}
		}

		m.mu.Lock()
		order.Status = types.OrderPending
		order.Price = price
		order.ReplacementCount++
		order.TTLDeadline = m.now().Add(ttl)
		m.mu.Unlock()

		OrdersReplacedTotal.Inc()
		if _, err := m.place(ctx, order); err != nil {
			m.logger.Warn("ttl-replace-failed",
				zap.String("order-id", order.OrderID),
				zap.Error(err))
		}
	}
}

// Cancel cancels an order by ID. Cancelling a terminal or unknown order is
// a no-op, not an error.
func (m *Manager) Cancel(ctx context.Context, orderID string) error {
	m.mu.Lock()
	order, ok := m.history[orderID]
	m.mu.Unlock()

	if !ok || order.Status.Terminal() {
		return nil
	}

	if err := m.client.CancelOrder(ctx, orderID); err != nil {
		return &types.ExternalAPIError{Op: "cancel_order", Err: err}
	}
	m.transition(order, types.OrderCancelled)
	OrdersCancelledTotal.Inc()
	return nil
}

// CancelAllOpen cancels every non-terminal order, returning how many were
// cancelled and any per-order errors.
func (m *Manager) CancelAllOpen(ctx context.Context) (int, []error) {
	m.mu.Lock()
	open := make([]*types.Order, 0, len(m.active))
	for _, order := range m.active {
		if !order.Status.Terminal() {
			open = append(open, order)
		}
	}
	m.mu.Unlock()

	cancelled := 0
	var errs []error
	for _, order := range open {
		if err := m.Cancel(ctx, order.OrderID); err != nil {
			errs = append(errs, err)
			continue
		}
		cancelled++
	}
	return cancelled, errs
}

// HasNonTerminal reports whether an order is in flight for the key.
func (m *Manager) HasNonTerminal(marketID string, side types.Side) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.active[orderKey{marketID: marketID, side: side}]
	return ok && !order.Status.Terminal()
}

// transition moves an order to a terminal state and releases its key.
func (m *Manager) transition(order *types.Order, status types.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.Status.Terminal() {
		return
	}
	order.Status = status
	m.clearActiveLocked(order)
}

func (m *Manager) clearActiveLocked(order *types.Order) {
	key := orderKey{marketID: order.MarketID, side: order.Side}
	if tracked, ok := m.active[key]; ok && tracked.OrderID == order.OrderID {
		delete(m.active, key)
	}
}

// List returns all tracked orders, newest first.
func (m *Manager) List() []types.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Order, 0, len(m.history))
	for _, order := range m.history {
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

// Fills returns all recorded fills, oldest first.
func (m *Manager) Fills() []types.Fill {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Fill, len(m.fills))
	copy(out, m.fills)
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
