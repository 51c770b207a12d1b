package marketdata

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/models"
	"golang.org/x/sync/errgroup"
)

// StockStore is the part of the store a Refresher writes to.
type StockStore interface {
	ListStocks(ctx context.Context) ([]models.Stock, error)
	UpdateStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error
}

// Refresher updates stock reference prices from a Source.
type Refresher struct {
	source  Source
	stocks  StockStore
	log     logger.Interface
	workers int
}

// NewRefresher creates a refresher fetching at most workers quotes at once.
func NewRefresher(source Source, stocks StockStore, log logger.Interface, workers int) *Refresher {
	if workers < 1 {
		workers = 1
	}
	return &Refresher{source: source, stocks: stocks, log: log, workers: workers}
}

// Refresh fetches a price for every known stock. Symbols whose fetch or
// update fails are logged and skipped; the returned stocks are the ones
// updated.
func (r *Refresher) Refresh(ctx context.Context) ([]models.Stock, error) {
	stocks, err := r.stocks.ListStocks(ctx)
	if err != nil {
		return nil, err
	}

	updated := make([]*models.Stock, len(stocks))
	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i, st := range stocks {
		g.Go(func() error {
			q, err := r.source.Quote(ctx, st.Symbol)
			if err != nil {
				r.log.WarnContext(ctx, "price fetch failed", logger.NewField("symbol", st.Symbol), logger.NewField("error", err.Error()))
				return nil
			}
			if err := r.stocks.UpdateStockPrice(ctx, st.Symbol, q.Price); err != nil {
				r.log.WarnContext(ctx, "price update failed", logger.NewField("symbol", st.Symbol), logger.NewField("error", err.Error()))
				return nil
			}
			st.CurrentPrice = decimal.NewNullDecimal(q.Price)
			updated[i] = &st
			return nil
		})
	}
	_ = g.Wait()

	result := []models.Stock{}
	for _, st := range updated {
		if st != nil {
			result = append(result, *st)
		}
	}
	r.log.InfoContext(ctx, "stock prices refreshed",
		logger.NewField("updated", len(result)),
		logger.NewField("skipped", len(stocks)-len(result)),
	)
	return result, nil
}
