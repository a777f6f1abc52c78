// Package exchange defines the quote/exchange collaborator consumed by the
// engine, plus a paper broker and a deterministic synthetic price fallback
// so paper mode and tests stay reproducible when live quotes are down.
package exchange

import (
	"context"

	"github.com/aaronwins356/voltrader/pkg/types"
)

// MarketInfo is the static listing data for one tradable market.
type MarketInfo struct {
	MarketID                string
	Name                    string
	Category                string
	TimeToResolutionMinutes float64
}

// Client is the exchange collaborator. Implementations must tolerate and
// report degraded connectivity without panicking; the engine handles
// failures by retrying and then falling back to synthetic pricing.
type Client interface {
	// ListMarkets returns markets matching the event type closing within
	// the window.
	ListMarkets(ctx context.Context, eventType string, windowHours int) ([]MarketInfo, error)

	// GetQuotes fetches current YES-side quotes for the given markets.
	GetQuotes(ctx context.Context, marketIDs []string) ([]types.RawQuote, error)

	// PlaceOrder submits an order and reports the immediate ack.
	PlaceOrder(ctx context.Context, order types.Order) (*types.OrderAck, error)

	// CancelOrder cancels by ID. Cancelling a terminal order is a no-op.
	CancelOrder(ctx context.Context, orderID string) error

	// GetAccount reports connectivity and a masked account identity.
	GetAccount(ctx context.Context) (types.AccountStatus, error)
}
