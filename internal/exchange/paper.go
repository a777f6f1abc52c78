package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaperBroker is an in-process exchange serving the demo market universe
// with deterministic synthetic quotes. Orders fill immediately at their
// limit price, which keeps paper sessions and tests reproducible.
type PaperBroker struct {
	mu     sync.Mutex
	orders map[string]types.Order
	fills  []types.Fill
	logger *zap.Logger
	now    func() time.Time
}

// NewPaperBroker creates a paper broker.
func NewPaperBroker(logger *zap.Logger) *PaperBroker {
	return &PaperBroker{
		orders: make(map[string]types.Order),
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (b *PaperBroker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// ListMarkets returns demo markets matching the event type.
func (b *PaperBroker) ListMarkets(ctx context.Context, eventType string, windowHours int) ([]MarketInfo, error) {
	infos := make([]MarketInfo, 0, len(DemoMarkets))
	for _, m := range DemoMarkets {
		if eventType != "" && m.Category != eventType {
			continue
		}
		if windowHours > 0 && m.TimeToResolutionMinutes > float64(windowHours)*60 {
			continue
		}
		infos = append(infos, MarketInfo{
			MarketID:                m.MarketID,
			Name:                    m.Name,
			Category:                m.Category,
			TimeToResolutionMinutes: m.TimeToResolutionMinutes,
		})
	}
	return infos, nil
}

// GetQuotes returns deterministic synthetic quotes for the given markets.
func (b *PaperBroker) GetQuotes(ctx context.Context, marketIDs []string) ([]types.RawQuote, error) {
	b.mu.Lock()
	at := b.now()
	b.mu.Unlock()

	quotes := make([]types.RawQuote, 0, len(marketIDs))
	for _, id := range marketIDs {
		info := b.lookup(id)
		if info == nil {
			continue
		}
		quote := SyntheticQuote(*info, at)
		quote.Synthetic = false // paper quotes are the broker's primary feed, not a fallback
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

func (b *PaperBroker) lookup(marketID string) *MarketInfo {
	for _, m := range DemoMarkets {
		if m.MarketID == marketID {
			return &MarketInfo{
				MarketID:                m.MarketID,
				Name:                    m.Name,
				Category:                m.Category,
				TimeToResolutionMinutes: m.TimeToResolutionMinutes,
			}
		}
	}
	return nil
}

// PlaceOrder accepts and immediately fills the order at its limit price.
func (b *PaperBroker) PlaceOrder(ctx context.Context, order types.Order) (*types.OrderAck, error) {
	if b.lookup(order.MarketID) == nil {
		return nil, &types.ExternalAPIError{Op: "place_order", Err: fmt.Errorf("unknown market %q", order.MarketID)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	orderID := order.OrderID
	if orderID == "" {
		orderID = "paper-" + uuid.NewString()
	}

	filled := order
	filled.OrderID = orderID
	filled.Status = types.OrderFilled
	filled.FilledAt = &now
	b.orders[orderID] = filled

	b.fills = append(b.fills, types.Fill{
		OrderID:   orderID,
		MarketID:  order.MarketID,
		Action:    order.Action,
		Side:      order.Side,
		Price:     order.Price,
		Quantity:  order.Quantity,
		Timestamp: now,
	})

	b.logger.Debug("paper-order-filled",
		zap.String("order-id", orderID),
		zap.String("market-id", order.MarketID),
		zap.Float64("price", order.Price),
		zap.Int("quantity", order.Quantity))

	return &types.OrderAck{
		OrderID:      orderID,
		Status:       types.OrderFilled,
		FilledQty:    order.Quantity,
		AvgFillPrice: order.Price,
	}, nil
}

// CancelOrder marks a tracked order cancelled. Terminal orders are left
// untouched; cancelling them (or an unknown ID) is not an error.
func (b *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok || order.Status.Terminal() {
		return nil
	}
	order.Status = types.OrderCancelled
	b.orders[orderID] = order
	return nil
}

// GetAccount reports the simulated account.
func (b *PaperBroker) GetAccount(ctx context.Context) (types.AccountStatus, error) {
	return types.AccountStatus{
		Connected:     true,
		Environment:   "paper",
		AccountMasked: "paper-****",
	}, nil
}

// Fills returns a copy of all recorded fills, oldest first.
func (b *PaperBroker) Fills() []types.Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Fill, len(b.fills))
	copy(out, b.fills)
	return out
}
