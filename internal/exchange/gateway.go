package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/models"
)

// MaxScale is the number of decimal places stored for prices and quantities.
// Stored values also stay below 10^12.
const MaxScale = 8

var storableLimit = decimal.New(1, 12)

// fitsScale reports whether d survives storage without rounding or overflow.
// Trailing zeros do not count.
func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MaxScale)) && d.Abs().LessThan(storableLimit)
}

// PlaceOrder validates and stores a new open order. Invalid input is rejected
// with models.ErrInvalidOrderParameters before anything is written.
func (e *Exchange) PlaceOrder(ctx context.Context, side models.Side, symbol string, price, quantity decimal.Decimal) (int64, error) {
	symbol = NormalizeSymbol(symbol)
	switch {
	case !side.Valid():
		return 0, fmt.Errorf("%w: side must be 'buy' or 'sell'", models.ErrInvalidOrderParameters)
	case symbol == "":
		return 0, fmt.Errorf("%w: symbol is required", models.ErrInvalidOrderParameters)
	case !price.IsPositive():
		return 0, fmt.Errorf("%w: price must be positive", models.ErrInvalidOrderParameters)
	case !quantity.IsPositive():
		return 0, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidOrderParameters)
	case !fitsScale(price):
		return 0, fmt.Errorf("%w: price must be below 10^12 with at most %d decimal places", models.ErrInvalidOrderParameters, MaxScale)
	case !fitsScale(quantity):
		return 0, fmt.Errorf("%w: quantity must be below 10^12 with at most %d decimal places", models.ErrInvalidOrderParameters, MaxScale)
	}

	order := models.Order{
		Timestamp: e.now(),
		Side:      side,
		Symbol:    symbol,
		Price:     price,
		Quantity:  quantity,
		FilledQty: decimal.Zero,
		Status:    models.StatusOpen,
	}
	id, err := e.store.InsertOrder(ctx, order)
	if err != nil {
		return 0, fmt.Errorf("failed to place order: %w", err)
	}

	e.log.InfoContext(ctx, "order placed",
		logger.NewField("order_id", id),
		logger.NewField("side", side),
		logger.NewField("symbol", symbol),
		logger.NewField("price", price.String()),
		logger.NewField("quantity", quantity.String()),
	)
	return id, nil
}

// CancelOrder cancels an open or partially filled order. Filled, cancelled
// and unknown orders yield models.ErrOrderNotCancellable.
func (e *Exchange) CancelOrder(ctx context.Context, id int64) error {
	if err := e.store.CancelOrder(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	e.log.InfoContext(ctx, "order cancelled", logger.NewField("order_id", id))
	return nil
}

// GetOrder retrieves one order
func (e *Exchange) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	return e.store.GetOrder(ctx, id)
}

// ListOrders lists orders matching filter, oldest first
func (e *Exchange) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	filter.Symbol = NormalizeSymbol(filter.Symbol)
	return e.store.ListOrders(ctx, filter)
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
