package memstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
	"github.com/xtrntr/orderbook/internal/store"
)

// InSymbolTx holds the symbol lock for the whole of fn and stages its writes.
// Staged writes are applied together only if fn succeeds.
func (s *Store) InSymbolTx(ctx context.Context, symbol string, fn func(ctx context.Context, tx store.SymbolTx) error) error {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	tx := &symbolTx{store: s, symbol: symbol, fills: make(map[int64]fill)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

type fill struct {
	filled decimal.Decimal
	status models.Status
}

type symbolTx struct {
	store  *Store
	symbol string
	fills  map[int64]fill
	order  []int64
	trades []models.Trade
}

func (tx *symbolTx) OpenOrders(ctx context.Context) ([]models.Order, error) {
	if err := tx.store.fault("open_orders"); err != nil {
		return nil, err
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range tx.store.orders {
		if o.Symbol == tx.symbol && o.Status.Active() {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (tx *symbolTx) ApplyFill(ctx context.Context, orderID int64, filled decimal.Decimal, status models.Status) error {
	if err := tx.store.fault("apply_fill"); err != nil {
		return err
	}
	if _, seen := tx.fills[orderID]; !seen {
		tx.order = append(tx.order, orderID)
	}
	tx.fills[orderID] = fill{filled: filled, status: status}
	return nil
}

func (tx *symbolTx) InsertTrade(ctx context.Context, t models.Trade) (int64, error) {
	if err := tx.store.fault("insert_trade"); err != nil {
		return 0, err
	}
	tx.store.mu.Lock()
	tx.store.nextTradeID++
	t.ID = tx.store.nextTradeID
	tx.store.mu.Unlock()

	tx.trades = append(tx.trades, t)
	return t.ID, nil
}

func (s *Store) commit(tx *symbolTx) error {
	if err := s.fault("commit"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range tx.order {
		o, ok := s.orders[id]
		if !ok || !o.Status.Active() {
			return fmt.Errorf("%w: order %d is no longer active", models.ErrInconsistentOrderState, id)
		}
	}
	for _, id := range tx.order {
		o := s.orders[id]
		o.FilledQty = tx.fills[id].filled
		o.Status = tx.fills[id].status
		s.orders[id] = o
	}
	s.trades = append(s.trades, tx.trades...)
	return nil
}
