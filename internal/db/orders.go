package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/xtrntr/orderbook/internal/models"
)

const orderColumns = "order_id, created_at, side, symbol, price, quantity, filled_qty, status"

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.Timestamp, &o.Side, &o.Symbol, &o.Price, &o.Quantity, &o.FilledQty, &o.Status)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()
	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// InsertOrder inserts a new order and returns its id
func (db *DB) InsertOrder(ctx context.Context, o models.Order) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO orders (created_at, side, symbol, price, quantity, filled_qty, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING order_id`,
		o.Timestamp, o.Side, o.Symbol, o.Price, o.Quantity, o.FilledQty, o.Status).Scan(&id)
	if err != nil {
		return 0, storageErr("insert order", err)
	}
	return id, nil
}

// CancelOrder cancels an open or partially filled order. The row lock makes
// it wait for any matching pass holding the order.
func (db *DB) CancelOrder(ctx context.Context, id int64) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		var status models.Status
		err := tx.QueryRow(ctx, "SELECT status FROM orders WHERE order_id = $1 FOR UPDATE", id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: order %d does not exist", models.ErrOrderNotCancellable, id)
		}
		if err != nil {
			return storageErr("lock order", err)
		}
		if !status.Active() {
			return fmt.Errorf("%w: order %d is %s", models.ErrOrderNotCancellable, id, status)
		}

		if _, err := tx.Exec(ctx, "UPDATE orders SET status = $2 WHERE order_id = $1", id, models.StatusCancelled); err != nil {
			return storageErr("cancel order", err)
		}
		return nil
	})
}

// GetOrder retrieves one order by id
func (db *DB) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	o, err := scanOrder(db.Pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: %d", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return models.Order{}, storageErr("get order", err)
	}
	return o, nil
}

// ListOrders lists orders oldest first
func (db *DB) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var (
		conditions []string
		args       []any
	)
	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		conditions = append(conditions, fmt.Sprintf("symbol = $%d", len(args)))
	}
	if filter.Side != "" {
		args = append(args, filter.Side)
		conditions = append(conditions, fmt.Sprintf("side = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, order_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, storageErr("scan orders", err)
	}
	return orders, nil
}

// MatchableSymbols lists symbols with active orders on both sides
func (db *DB) MatchableSymbols(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT symbol FROM orders
		WHERE status IN ('open', 'partial')
		GROUP BY symbol
		HAVING COUNT(*) FILTER (WHERE side = 'buy') > 0
		   AND COUNT(*) FILTER (WHERE side = 'sell') > 0
		ORDER BY symbol`)
	if err != nil {
		return nil, storageErr("list matchable symbols", err)
	}
	symbols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr("scan symbols", err)
	}
	return symbols, nil
}
