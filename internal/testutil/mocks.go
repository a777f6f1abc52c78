package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/aaronwins356/voltrader/internal/exchange"
	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/google/uuid"
)

// MockMarketData is a scriptable market data source. Tests set the
// universe once and swap quotes between cycles.
type MockMarketData struct {
	mu      sync.Mutex
	markets []exchange.MarketInfo
	quotes  map[string]types.RawQuote
	listErr error
}

// NewMockMarketData creates a market data mock serving the given universe.
func NewMockMarketData(markets ...exchange.MarketInfo) *MockMarketData {
	return &MockMarketData{
		markets: markets,
		quotes:  make(map[string]types.RawQuote),
	}
}

// AddMarket extends the served universe.
func (m *MockMarketData) AddMarket(info exchange.MarketInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets = append(m.markets, info)
}

// SetQuote installs the quote served for a market on the next fetch.
func (m *MockMarketData) SetQuote(quote types.RawQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[quote.MarketID] = quote
}

// SetListError makes ListMarkets fail until cleared.
func (m *MockMarketData) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

func (m *MockMarketData) ListMarkets(_ context.Context, _ string, _ int) ([]exchange.MarketInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]exchange.MarketInfo, len(m.markets))
	copy(out, m.markets)
	return out, nil
}

func (m *MockMarketData) GetQuotes(_ context.Context, infos []exchange.MarketInfo) []types.RawQuote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.RawQuote, 0, len(infos))
	for _, info := range infos {
		if quote, ok := m.quotes[info.MarketID]; ok {
			out = append(out, quote)
		}
	}
	return out
}

func (m *MockMarketData) MarketInfo(marketID string) (exchange.MarketInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.markets {
		if info.MarketID == marketID {
			return info, true
		}
	}
	return exchange.MarketInfo{}, false
}

// MockBroker is a scriptable exchange client. By default every placement
// fills immediately at its limit price.
type MockBroker struct {
	mu         sync.Mutex
	RestOrders bool   // ack placements as resting open instead of filled
	PlaceErr   error  // fail placements
	FailMarket string // fail placements for this market only
	CancelErr  error  // fail cancellations
	placed     []types.Order
	cancelled  []string
}

// NewMockBroker creates a broker mock that fills everything.
func NewMockBroker() *MockBroker {
	return &MockBroker{}
}

// Placed returns every order the broker accepted, in placement order.
func (b *MockBroker) Placed() []types.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Order, len(b.placed))
	copy(out, b.placed)
	return out
}

// Cancelled returns the IDs of every cancelled order.
func (b *MockBroker) Cancelled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.cancelled))
	copy(out, b.cancelled)
	return out
}

func (b *MockBroker) PlaceOrder(_ context.Context, order types.Order) (*types.OrderAck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PlaceErr != nil {
		return nil, b.PlaceErr
	}
	if b.FailMarket != "" && order.MarketID == b.FailMarket {
		return nil, &types.ExternalAPIError{Op: "place_order", Err: errors.New("market unavailable")}
	}
	b.placed = append(b.placed, order)
	if b.RestOrders {
		return &types.OrderAck{OrderID: order.OrderID, Status: types.OrderOpen}, nil
	}
	return &types.OrderAck{
		OrderID:      order.OrderID,
		Status:       types.OrderFilled,
		FilledQty:    order.Quantity,
		AvgFillPrice: order.Price,
	}, nil
}

func (b *MockBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CancelErr != nil {
		return b.CancelErr
	}
	b.cancelled = append(b.cancelled, orderID)
	return nil
}

func (b *MockBroker) ListMarkets(_ context.Context, _ string, _ int) ([]exchange.MarketInfo, error) {
	return nil, nil
}

func (b *MockBroker) GetQuotes(_ context.Context, _ []string) ([]types.RawQuote, error) {
	return nil, nil
}

func (b *MockBroker) GetAccount(_ context.Context) (types.AccountStatus, error) {
	return types.AccountStatus{Connected: true, Environment: "mock", AccountMasked: "****" + uuid.NewString()[:4]}, nil
}
