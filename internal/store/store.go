// Package store declares the persistence contract shared by the PostgreSQL
// and in-memory backends.
package store

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
)

// Orders is the order store. It is the only mutable source of truth for
// order quantities and statuses.
type Orders interface {
	// InsertOrder persists o as given and returns the assigned order id.
	InsertOrder(ctx context.Context, o models.Order) (int64, error)
	// CancelOrder moves an open or partial order to cancelled. Any other
	// state, including a missing order, yields models.ErrOrderNotCancellable.
	CancelOrder(ctx context.Context, id int64) error
	GetOrder(ctx context.Context, id int64) (models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// MatchableSymbols lists symbols holding active orders on both sides.
	MatchableSymbols(ctx context.Context) ([]string, error)
	// InSymbolTx runs fn with exclusive access to symbol's active orders.
	// Everything fn writes commits atomically when it returns nil and is
	// discarded otherwise.
	InSymbolTx(ctx context.Context, symbol string, fn func(ctx context.Context, tx SymbolTx) error) error
}

// SymbolTx is a matching session scoped to one symbol.
type SymbolTx interface {
	// OpenOrders returns the symbol's open and partial orders.
	OpenOrders(ctx context.Context) ([]models.Order, error)
	ApplyFill(ctx context.Context, orderID int64, filled decimal.Decimal, status models.Status) error
	InsertTrade(ctx context.Context, t models.Trade) (int64, error)
}

// Views are read-only queries, each answered from a single snapshot.
type Views interface {
	OrderBook(ctx context.Context, symbol string) (models.Book, error)
	Trades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error)
}

// Stocks holds reference data.
type Stocks interface {
	ListStocks(ctx context.Context) ([]models.Stock, error)
	UpsertStock(ctx context.Context, s models.Stock) error
	UpdateStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error
}

// Store is implemented by every backend.
type Store interface {
	Orders
	Views
	Stocks
	Ping(ctx context.Context) error
	Close()
}
