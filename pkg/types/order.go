package types

import "time"

// Side is the contract side a position or order is taken on.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// OrderAction distinguishes orders that open exposure from orders that
// close it. Close orders are never risk-gated.
type OrderAction string

const (
	ActionOpen  OrderAction = "open"
	ActionClose OrderAction = "close"
)

// OrderStatus is the explicit order state. Filled and Cancelled are
// terminal; an order never holds both.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled
}

// Order is an outstanding or historical order. At most one non-terminal
// order exists per (market_id, side) at a time.
type Order struct {
	OrderID          string      `json:"order_id"`
	MarketID         string      `json:"market_id"`
	Action           OrderAction `json:"action"`
	Side             Side        `json:"side"`
	Price            float64     `json:"price"`
	Quantity         int         `json:"quantity"`
	Status           OrderStatus `json:"status"`
	TTLDeadline      time.Time   `json:"ttl_deadline"`
	ReplacementCount int         `json:"replacement_count"`
	CreatedAt        time.Time   `json:"created_at"`
	FilledAt         *time.Time  `json:"filled_at,omitempty"`
}

// Fill is the immutable record of an executed order.
type Fill struct {
	OrderID   string      `json:"order_id"`
	MarketID  string      `json:"market_id"`
	Action    OrderAction `json:"action"`
	Side      Side        `json:"side"`
	Price     float64     `json:"price"`
	Quantity  int         `json:"quantity"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderAck is the exchange collaborator's response to order placement.
type OrderAck struct {
	OrderID      string
	Status       OrderStatus
	FilledQty    int
	AvgFillPrice float64
}
