package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is buy or sell
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Status is the lifecycle state of an order
type Status string

const (
	StatusOpen      Status = "open"
	StatusPartial   Status = "partial"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
)

// Active reports whether an order in this status can still trade or be cancelled
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusPartial
}

// ActiveStatuses lists the statuses an order can trade from
var ActiveStatuses = []Status{StatusOpen, StatusPartial}

// StatusFor derives the status of a non-cancelled order from its fill.
func StatusFor(filled, quantity decimal.Decimal) Status {
	switch {
	case filled.IsZero():
		return StatusOpen
	case filled.LessThan(quantity):
		return StatusPartial
	default:
		return StatusFilled
	}
}

// Order represents a limit order resting on or removed from the book
type Order struct {
	ID        int64           `json:"order_id"`
	Timestamp time.Time       `json:"timestamp"`
	Side      Side            `json:"side"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	FilledQty decimal.Decimal `json:"filled_qty"`
	Status    Status          `json:"status"`
}

// Remaining is the quantity still available to trade
func (o Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQty)
}

// Trade is one execution between a buy and a sell order
type Trade struct {
	ID          int64           `json:"trade_id"`
	Timestamp   time.Time       `json:"timestamp"`
	BuyOrderID  int64           `json:"buy_order_id"`
	SellOrderID int64           `json:"sell_order_id"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// Stock is reference data for a tradable symbol. It never influences matching.
type Stock struct {
	Symbol       string              `json:"symbol"`
	Name         string              `json:"name"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// BookLevel aggregates the remaining quantity resting at one price
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

// Book is a snapshot of one symbol's open interest, bids best-first and asks best-first
type Book struct {
	Symbol string      `json:"symbol"`
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
}

// OrderFilter narrows an order listing. Zero values match everything.
type OrderFilter struct {
	Symbol   string
	Side     Side
	Statuses []Status
	Limit    int
}

// TradeFilter narrows a trade listing. Zero values match everything.
type TradeFilter struct {
	Symbol string
	Limit  int
}
