// Package seed loads reference stocks and an initial ladder of resting
// orders around each stock's market price.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/exchange"
	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/marketdata"
	"github.com/xtrntr/orderbook/internal/models"
	"github.com/xtrntr/orderbook/internal/store"
)

const levels = 5

var (
	step     = decimal.RequireFromString("0.005")
	bidBase  = decimal.NewFromInt(100)
	bidStep  = decimal.NewFromInt(10)
	askBase  = decimal.NewFromInt(100)
	askStep  = decimal.NewFromInt(15)
	oneWhole = decimal.NewFromInt(1)
)

// Seeder populates an empty exchange.
type Seeder struct {
	store  store.Store
	ex     *exchange.Exchange
	source marketdata.Source
	log    logger.Interface
}

// Result counts what Run created.
type Result struct {
	Stocks  int
	Orders  int
	Trades  int
	Skipped []string
}

// NewSeeder creates a seeder.
func NewSeeder(st store.Store, ex *exchange.Exchange, source marketdata.Source, log logger.Interface) *Seeder {
	return &Seeder{store: st, ex: ex, source: source, log: log}
}

// Run seeds symbols unless orders already exist. Symbols without a quote are
// skipped. After seeding, every symbol is matched once.
func (s *Seeder) Run(ctx context.Context, symbols []string) (Result, error) {
	var res Result

	existing, err := s.store.ListOrders(ctx, models.OrderFilter{Limit: 1})
	if err != nil {
		return res, fmt.Errorf("failed to check existing orders: %w", err)
	}
	if len(existing) > 0 {
		s.log.Info("orders already exist, skipping seed")
		return res, nil
	}

	for _, raw := range symbols {
		symbol := exchange.NormalizeSymbol(raw)
		q, err := s.source.Quote(ctx, symbol)
		if err != nil {
			s.log.Warn("no quote, skipping symbol", logger.NewField("symbol", symbol), logger.NewField("error", err.Error()))
			res.Skipped = append(res.Skipped, symbol)
			continue
		}

		err = s.store.UpsertStock(ctx, models.Stock{
			Symbol:       symbol,
			Name:         q.Name,
			CurrentPrice: decimal.NewNullDecimal(q.Price),
		})
		if err != nil {
			return res, fmt.Errorf("failed to store stock %s: %w", symbol, err)
		}
		res.Stocks++

		for _, o := range Ladder(q.Price) {
			if _, err := s.ex.PlaceOrder(ctx, o.Side, symbol, o.Price, o.Quantity); err != nil {
				return res, fmt.Errorf("failed to seed order for %s: %w", symbol, err)
			}
			res.Orders++
		}
	}

	report, err := s.ex.MatchAll(ctx)
	res.Trades = len(report.Trades)
	if err != nil {
		return res, fmt.Errorf("failed initial match: %w", err)
	}

	s.log.Info("seed complete",
		logger.NewField("stocks", res.Stocks),
		logger.NewField("orders", res.Orders),
		logger.NewField("trades", res.Trades),
	)
	return res, nil
}

// LadderOrder is one seeded order.
type LadderOrder struct {
	Side     models.Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Ladder builds bids below and asks above price, half a percent apart and
// rounded to cents, with quantities growing away from the touch.
func Ladder(price decimal.Decimal) []LadderOrder {
	orders := make([]LadderOrder, 0, 2*levels)
	for i := 1; i <= levels; i++ {
		n := decimal.NewFromInt(int64(i))
		offset := step.Mul(n)
		orders = append(orders,
			LadderOrder{
				Side:     models.SideBuy,
				Price:    price.Mul(oneWhole.Sub(offset)).Round(2),
				Quantity: bidBase.Add(bidStep.Mul(n)),
			},
			LadderOrder{
				Side:     models.SideSell,
				Price:    price.Mul(oneWhole.Add(offset)).Round(2),
				Quantity: askBase.Add(askStep.Mul(n)),
			},
		)
	}
	return orders
}
