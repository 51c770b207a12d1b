package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
	"github.com/xtrntr/orderbook/internal/store"
)

// InSymbolTx serializes matching per symbol with a transaction scoped
// advisory lock. Passes for different symbols take different locks and run
// concurrently, including from other processes sharing the database.
func (db *DB) InSymbolTx(ctx context.Context, symbol string, fn func(ctx context.Context, tx store.SymbolTx) error) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", symbol); err != nil {
			return storageErr("lock symbol "+symbol, err)
		}
		return fn(ctx, &symbolTx{tx: tx, symbol: symbol})
	})
}

type symbolTx struct {
	tx     pgx.Tx
	symbol string
}

// OpenOrders locks and returns the symbol's active orders
func (s *symbolTx) OpenOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.tx.Query(ctx,
		"SELECT "+orderColumns+` FROM orders
		 WHERE symbol = $1 AND status IN ('open', 'partial')
		 ORDER BY order_id
		 FOR UPDATE`, s.symbol)
	if err != nil {
		return nil, storageErr("load open orders", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, storageErr("scan open orders", err)
	}
	return orders, nil
}

// ApplyFill records a new cumulative fill and the status derived from it
func (s *symbolTx) ApplyFill(ctx context.Context, orderID int64, filled decimal.Decimal, status models.Status) error {
	tag, err := s.tx.Exec(ctx,
		`UPDATE orders SET filled_qty = $2, status = $3
		 WHERE order_id = $1 AND status IN ('open', 'partial')`,
		orderID, filled, status)
	if err != nil {
		return storageErr("update order fill", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: order %d is no longer active", models.ErrInconsistentOrderState, orderID)
	}
	return nil
}

// InsertTrade appends a trade and returns its id
func (s *symbolTx) InsertTrade(ctx context.Context, t models.Trade) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx,
		`INSERT INTO trades (executed_at, buy_order_id, sell_order_id, symbol, price, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING trade_id`,
		t.Timestamp, t.BuyOrderID, t.SellOrderID, t.Symbol, t.Price, t.Quantity).Scan(&id)
	if err != nil {
		return 0, storageErr("insert trade", err)
	}
	return id, nil
}
