package exchange

import (
	"context"
	"fmt"

	"github.com/xtrntr/orderbook/internal/models"
)

// OrderBook returns price levels of active orders, bids highest first and
// asks lowest first
func (e *Exchange) OrderBook(ctx context.Context, symbol string) (models.Book, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Book{}, fmt.Errorf("%w: symbol is required", models.ErrInvalidOrderParameters)
	}
	return e.store.OrderBook(ctx, symbol)
}

// Trades lists executions newest first
func (e *Exchange) Trades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error) {
	filter.Symbol = NormalizeSymbol(filter.Symbol)
	return e.store.Trades(ctx, filter)
}

// Stocks lists reference data
func (e *Exchange) Stocks(ctx context.Context) ([]models.Stock, error) {
	return e.store.ListStocks(ctx)
}

// Symbols lists the known stock symbols
func (e *Exchange) Symbols(ctx context.Context) ([]string, error) {
	stocks, err := e.store.ListStocks(ctx)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, len(stocks))
	for i, s := range stocks {
		symbols[i] = s.Symbol
	}
	return symbols, nil
}

// Ping checks the store
func (e *Exchange) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
