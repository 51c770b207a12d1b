package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
)

// OrderBook aggregates active orders by price in one statement, so both
// sides come from the same snapshot.
func (db *DB) OrderBook(ctx context.Context, symbol string) (models.Book, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT side, price, SUM(quantity - filled_qty), COUNT(*)
		FROM orders
		WHERE symbol = $1 AND status IN ('open', 'partial')
		GROUP BY side, price
		ORDER BY side, CASE WHEN side = 'buy' THEN -price ELSE price END`, symbol)
	if err != nil {
		return models.Book{}, storageErr("query order book", err)
	}
	defer rows.Close()

	book := models.Book{Symbol: symbol, Bids: []models.BookLevel{}, Asks: []models.BookLevel{}}
	for rows.Next() {
		var (
			side  models.Side
			level models.BookLevel
		)
		if err := rows.Scan(&side, &level.Price, &level.Quantity, &level.Orders); err != nil {
			return models.Book{}, storageErr("scan order book", err)
		}
		if side == models.SideBuy {
			book.Bids = append(book.Bids, level)
		} else {
			book.Asks = append(book.Asks, level)
		}
	}
	if err := rows.Err(); err != nil {
		return models.Book{}, storageErr("read order book", err)
	}
	return book, nil
}

// Trades returns executions newest first
func (db *DB) Trades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error) {
	query := "SELECT trade_id, executed_at, buy_order_id, sell_order_id, symbol, price, quantity FROM trades"
	var args []any
	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		query += fmt.Sprintf(" WHERE symbol = $%d", len(args))
	}
	query += " ORDER BY executed_at DESC, trade_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query trades", err)
	}
	trades, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Trade, error) {
		var t models.Trade
		err := row.Scan(&t.ID, &t.Timestamp, &t.BuyOrderID, &t.SellOrderID, &t.Symbol, &t.Price, &t.Quantity)
		return t, err
	})
	if err != nil {
		return nil, storageErr("scan trades", err)
	}
	return trades, nil
}

// ListStocks returns reference data ordered by symbol
func (db *DB) ListStocks(ctx context.Context) ([]models.Stock, error) {
	rows, err := db.Pool.Query(ctx, "SELECT symbol, name, current_price, updated_at FROM stocks ORDER BY symbol")
	if err != nil {
		return nil, storageErr("query stocks", err)
	}
	stocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Stock, error) {
		var s models.Stock
		err := row.Scan(&s.Symbol, &s.Name, &s.CurrentPrice, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, storageErr("scan stocks", err)
	}
	return stocks, nil
}

// UpsertStock inserts a stock or replaces its name and price
func (db *DB) UpsertStock(ctx context.Context, s models.Stock) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO stocks (symbol, name, current_price, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (symbol) DO UPDATE
		SET name = EXCLUDED.name, current_price = EXCLUDED.current_price, updated_at = now()`,
		s.Symbol, s.Name, s.CurrentPrice)
	if err != nil {
		return storageErr("upsert stock", err)
	}
	return nil
}

// UpdateStockPrice sets the reference price of a known stock
func (db *DB) UpdateStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	tag, err := db.Pool.Exec(ctx,
		"UPDATE stocks SET current_price = $2, updated_at = now() WHERE symbol = $1", symbol, price)
	if err != nil {
		return storageErr("update stock price", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock %s does not exist", symbol)
	}
	return nil
}
