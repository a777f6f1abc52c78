package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aaronwins356/voltrader/internal/circuitbreaker"
	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// flakyClient is a Client whose listing and quote calls can be forced to
// fail, with call counting for retry assertions.
type flakyClient struct {
	markets      []MarketInfo
	quotes       []types.RawQuote
	failListings bool
	failQuotes   bool
	listCalls    int
	quoteCalls   int
}

func (c *flakyClient) ListMarkets(_ context.Context, _ string, _ int) ([]MarketInfo, error) {
	c.listCalls++
	if c.failListings {
		return nil, errors.New("exchange unreachable")
	}
	return c.markets, nil
}

func (c *flakyClient) GetQuotes(_ context.Context, _ []string) ([]types.RawQuote, error) {
	c.quoteCalls++
	if c.failQuotes {
		return nil, errors.New("exchange unreachable")
	}
	return c.quotes, nil
}

func (c *flakyClient) PlaceOrder(_ context.Context, _ types.Order) (*types.OrderAck, error) {
	return nil, errors.New("not implemented")
}

func (c *flakyClient) CancelOrder(_ context.Context, _ string) error { return nil }

func (c *flakyClient) GetAccount(_ context.Context) (types.AccountStatus, error) {
	return types.AccountStatus{}, nil
}

func newTestQuoteService(t *testing.T, client Client, breaker *circuitbreaker.Breaker) *QuoteService {
	t.Helper()

	svc, err := NewQuoteService(&QuoteServiceConfig{
		Client:      client,
		Breaker:     breaker,
		Retries:     1,
		Backoff:     time.Millisecond,
		MetadataTTL: time.Minute,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewQuoteService() error = %v", err)
	}
	t.Cleanup(svc.Close)

	return svc
}

func TestQuoteService_ListMarkets_CachesMetadata(t *testing.T) {
	client := &flakyClient{markets: []MarketInfo{
		{MarketID: "BTC-UP-1H", Name: "BTC up this hour", Category: "crypto", TimeToResolutionMinutes: 55},
	}}
	svc := newTestQuoteService(t, client, nil)

	infos, err := svc.ListMarkets(context.Background(), "crypto", 2)
	if err != nil {
		t.Fatalf("ListMarkets() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("ListMarkets() returned %d markets, want 1", len(infos))
	}

	info, ok := svc.MarketInfo("BTC-UP-1H")
	if !ok {
		t.Fatal("MarketInfo() miss after successful listing")
	}
	if info.Name != "BTC up this hour" {
		t.Errorf("MarketInfo().Name = %q, want %q", info.Name, "BTC up this hour")
	}
}

func TestQuoteService_ListMarkets_ServesCacheDuringOutage(t *testing.T) {
	client := &flakyClient{markets: []MarketInfo{
		{MarketID: "BTC-UP-1H", Name: "BTC up this hour", Category: "crypto"},
		{MarketID: "ETH-UP-1H", Name: "ETH up this hour", Category: "crypto"},
	}}
	svc := newTestQuoteService(t, client, nil)

	if _, err := svc.ListMarkets(context.Background(), "crypto", 2); err != nil {
		t.Fatalf("ListMarkets() error = %v", err)
	}

	client.failListings = true
	infos, err := svc.ListMarkets(context.Background(), "crypto", 2)
	if err != nil {
		t.Fatalf("ListMarkets() during outage error = %v, want cached fallback", err)
	}
	if len(infos) != 2 {
		t.Errorf("cached fallback returned %d markets, want 2", len(infos))
	}
}

func TestQuoteService_ListMarkets_OutageWithColdCache(t *testing.T) {
	client := &flakyClient{failListings: true}
	svc := newTestQuoteService(t, client, nil)

	_, err := svc.ListMarkets(context.Background(), "crypto", 2)
	if err == nil {
		t.Fatal("ListMarkets() error = nil, want external API error")
	}
	var apiErr *types.ExternalAPIError
	if !errors.As(err, &apiErr) {
		t.Errorf("ListMarkets() error = %v, want *types.ExternalAPIError", err)
	}
	if client.listCalls != 2 {
		t.Errorf("listCalls = %d, want 2 (one retry)", client.listCalls)
	}
}

func TestQuoteService_GetQuotes_SyntheticFallback(t *testing.T) {
	infos := []MarketInfo{
		{MarketID: "BTC-UP-1H", Name: "BTC up this hour", TimeToResolutionMinutes: 55},
		{MarketID: "ETH-UP-1H", Name: "ETH up this hour", TimeToResolutionMinutes: 40},
	}
	client := &flakyClient{quotes: []types.RawQuote{
		{MarketID: "BTC-UP-1H", Bid: 0.41, Ask: 0.43, Last: 0.42},
	}}
	svc := newTestQuoteService(t, client, nil)

	quotes := svc.GetQuotes(context.Background(), infos)
	if len(quotes) != 2 {
		t.Fatalf("GetQuotes() returned %d quotes, want 2", len(quotes))
	}

	byID := make(map[string]types.RawQuote, len(quotes))
	for _, q := range quotes {
		byID[q.MarketID] = q
	}
	if byID["BTC-UP-1H"].Synthetic {
		t.Error("live-quoted market flagged Synthetic")
	}
	if !byID["ETH-UP-1H"].Synthetic {
		t.Error("unquoted market not flagged Synthetic")
	}
	if !byID["ETH-UP-1H"].Valid() {
		t.Error("synthetic quote is not valid")
	}
}

func TestQuoteService_GetQuotes_FullOutageAllSynthetic(t *testing.T) {
	infos := []MarketInfo{
		{MarketID: "BTC-UP-1H", Name: "BTC up this hour", TimeToResolutionMinutes: 55},
	}
	client := &flakyClient{failQuotes: true}
	svc := newTestQuoteService(t, client, nil)

	quotes := svc.GetQuotes(context.Background(), infos)
	if len(quotes) != 1 {
		t.Fatalf("GetQuotes() returned %d quotes, want 1", len(quotes))
	}
	if !quotes[0].Synthetic {
		t.Error("outage quote not flagged Synthetic")
	}
}

func TestQuoteService_GetQuotes_Deterministic(t *testing.T) {
	infos := []MarketInfo{
		{MarketID: "BTC-UP-1H", Name: "BTC up this hour", TimeToResolutionMinutes: 55},
	}
	client := &flakyClient{failQuotes: true}
	svc := newTestQuoteService(t, client, nil)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return at })

	first := svc.GetQuotes(context.Background(), infos)
	second := svc.GetQuotes(context.Background(), infos)
	if first[0].Bid != second[0].Bid || first[0].Ask != second[0].Ask {
		t.Errorf("synthetic quotes differ for the same clock: %+v vs %+v", first[0], second[0])
	}
}

func TestQuoteService_BreakerOpenSkipsClient(t *testing.T) {
	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: 1,
		Cooldown:         time.Hour,
		Logger:           zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("circuitbreaker.New() error = %v", err)
	}

	client := &flakyClient{failQuotes: true}
	svc := newTestQuoteService(t, client, breaker)

	infos := []MarketInfo{{MarketID: "BTC-UP-1H", Name: "BTC up this hour"}}

	// First fetch exhausts retries and trips the breaker.
	svc.GetQuotes(context.Background(), infos)
	callsAfterTrip := client.quoteCalls

	// Subsequent fetches short-circuit straight to synthetic quotes.
	quotes := svc.GetQuotes(context.Background(), infos)
	if client.quoteCalls != callsAfterTrip {
		t.Errorf("quoteCalls = %d after breaker trip, want %d (no client calls)", client.quoteCalls, callsAfterTrip)
	}
	if len(quotes) != 1 || !quotes[0].Synthetic {
		t.Errorf("breaker-open quotes = %+v, want one synthetic quote", quotes)
	}
}
