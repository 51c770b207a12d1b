// Package memstore is an in-process Store. It keeps the same transactional
// contract as the PostgreSQL backend and is used for tests and for running
// the server without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
	"github.com/xtrntr/orderbook/internal/store"
)

// Store keeps orders, trades and stocks in memory.
type Store struct {
	mu          sync.RWMutex
	orders      map[int64]models.Order
	trades      []models.Trade
	stocks      map[string]models.Stock
	nextOrderID int64
	nextTradeID int64

	// symbols guards per-symbol exclusivity, shared by passes and cancels.
	symbolsMu sync.Mutex
	symbols   map[string]*sync.Mutex

	faultsMu sync.Mutex
	faults   map[string]error

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		orders:  make(map[int64]models.Order),
		stocks:  make(map[string]models.Stock),
		symbols: make(map[string]*sync.Mutex),
		faults:  make(map[string]error),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// InjectFault makes the next call of op fail with err wrapped as a storage
// failure. Ops are "insert_order", "cancel_order", "open_orders",
// "apply_fill", "insert_trade" and "commit".
func (s *Store) InjectFault(op string, err error) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return errors.WithStack(fmt.Errorf("%w: failed to %s: %w", models.ErrStorageUnavailable, op, err))
}

func (s *Store) symbolLock(symbol string) *sync.Mutex {
	s.symbolsMu.Lock()
	defer s.symbolsMu.Unlock()
	l, ok := s.symbols[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.symbols[symbol] = l
	}
	return l
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

// InsertOrder stores o under the next order id
func (s *Store) InsertOrder(ctx context.Context, o models.Order) (int64, error) {
	if err := s.fault("insert_order"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	o.ID = s.nextOrderID
	s.orders[o.ID] = o
	return o.ID, nil
}

// CancelOrder waits for any pass on the order's symbol before cancelling it
func (s *Store) CancelOrder(ctx context.Context, id int64) error {
	s.mu.RLock()
	o, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: order %d does not exist", models.ErrOrderNotCancellable, id)
	}

	lock := s.symbolLock(o.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if err := s.fault("cancel_order"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o = s.orders[id]
	if !o.Status.Active() {
		return fmt.Errorf("%w: order %d is %s", models.ErrOrderNotCancellable, id, o.Status)
	}
	o.Status = models.StatusCancelled
	s.orders[id] = o
	return nil
}

// GetOrder retrieves one order by id
func (s *Store) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %d", models.ErrOrderNotFound, id)
	}
	return o, nil
}

// ListOrders lists orders oldest first
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range s.orders {
		if filter.Symbol != "" && o.Symbol != filter.Symbol {
			continue
		}
		if filter.Side != "" && o.Side != filter.Side {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].Timestamp.Equal(orders[j].Timestamp) {
			return orders[i].Timestamp.Before(orders[j].Timestamp)
		}
		return orders[i].ID < orders[j].ID
	})
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func containsStatus(statuses []models.Status, s models.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// MatchableSymbols lists symbols with active orders on both sides
func (s *Store) MatchableSymbols(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sides := make(map[string]map[models.Side]bool)
	for _, o := range s.orders {
		if !o.Status.Active() {
			continue
		}
		if sides[o.Symbol] == nil {
			sides[o.Symbol] = make(map[models.Side]bool)
		}
		sides[o.Symbol][o.Side] = true
	}

	symbols := []string{}
	for sym, seen := range sides {
		if seen[models.SideBuy] && seen[models.SideSell] {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// OrderBook aggregates active orders by price under one read lock
func (s *Store) OrderBook(ctx context.Context, symbol string) (models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		side  models.Side
		price string
	}
	levels := make(map[key]*models.BookLevel)
	for _, o := range s.orders {
		if o.Symbol != symbol || !o.Status.Active() {
			continue
		}
		k := key{o.Side, o.Price.String()}
		l, ok := levels[k]
		if !ok {
			l = &models.BookLevel{Price: o.Price, Quantity: decimal.Zero}
			levels[k] = l
		}
		l.Quantity = l.Quantity.Add(o.Remaining())
		l.Orders++
	}

	book := models.Book{Symbol: symbol, Bids: []models.BookLevel{}, Asks: []models.BookLevel{}}
	for k, l := range levels {
		if k.side == models.SideBuy {
			book.Bids = append(book.Bids, *l)
		} else {
			book.Asks = append(book.Asks, *l)
		}
	}
	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price.GreaterThan(book.Bids[j].Price) })
	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price.LessThan(book.Asks[j].Price) })
	return book, nil
}

// Trades returns executions newest first
func (s *Store) Trades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := []models.Trade{}
	for _, t := range s.trades {
		if filter.Symbol != "" && t.Symbol != filter.Symbol {
			continue
		}
		trades = append(trades, t)
	}
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].Timestamp.Equal(trades[j].Timestamp) {
			return trades[i].Timestamp.After(trades[j].Timestamp)
		}
		return trades[i].ID > trades[j].ID
	})
	if filter.Limit > 0 && len(trades) > filter.Limit {
		trades = trades[:filter.Limit]
	}
	return trades, nil
}

// ListStocks returns reference data ordered by symbol
func (s *Store) ListStocks(ctx context.Context) ([]models.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stocks := make([]models.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		stocks = append(stocks, st)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })
	return stocks, nil
}

// UpsertStock inserts a stock or replaces its name and price
func (s *Store) UpsertStock(ctx context.Context, st models.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UpdatedAt = s.now()
	s.stocks[st.Symbol] = st
	return nil
}

// UpdateStockPrice sets the reference price of a known stock
func (s *Store) UpdateStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stocks[symbol]
	if !ok {
		return fmt.Errorf("stock %s does not exist", symbol)
	}
	st.CurrentPrice = decimal.NewNullDecimal(price)
	st.UpdatedAt = s.now()
	s.stocks[symbol] = st
	return nil
}
