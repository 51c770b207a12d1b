package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/models"
	"github.com/xtrntr/orderbook/internal/store"
	"golang.org/x/sync/errgroup"
)

// SymbolFailure reports a symbol whose pass was rolled back.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// MatchReport summarises a MatchAll run.
type MatchReport struct {
	Trades []models.Trade  `json:"trades"`
	Failed []SymbolFailure `json:"failed"`
}

// MatchSymbol runs one atomic matching pass for symbol. Either every trade
// and fill of the pass is stored or none is.
func (e *Exchange) MatchSymbol(ctx context.Context, symbol string) ([]models.Trade, error) {
	symbol = NormalizeSymbol(symbol)
	var trades []models.Trade

	err := e.store.InSymbolTx(ctx, symbol, func(ctx context.Context, tx store.SymbolTx) error {
		trades = nil
		orders, err := tx.OpenOrders(ctx)
		if err != nil {
			return err
		}

		result, err := Match(symbol, orders, e.now())
		if err != nil {
			return err
		}

		for _, o := range result.Updated {
			if err := tx.ApplyFill(ctx, o.ID, o.FilledQty, o.Status); err != nil {
				return err
			}
		}
		for i := range result.Trades {
			id, err := tx.InsertTrade(ctx, result.Trades[i])
			if err != nil {
				return err
			}
			result.Trades[i].ID = id
		}
		trades = result.Trades
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrInconsistentOrderState) {
			e.log.ErrorContext(ctx, err, logger.NewField("symbol", symbol))
		}
		return nil, fmt.Errorf("failed to match %s: %w", symbol, err)
	}

	if len(trades) > 0 {
		e.log.InfoContext(ctx, "matching pass executed trades",
			logger.NewField("symbol", symbol),
			logger.NewField("trades", len(trades)),
		)
	}
	return trades, nil
}

// MatchAll runs a pass for every symbol with orders on both sides. Symbols
// are matched in parallel. A symbol with inconsistent order state is logged,
// reported and skipped; storage failures are joined into the returned error.
// Passes that committed stay committed either way.
func (e *Exchange) MatchAll(ctx context.Context) (MatchReport, error) {
	report := MatchReport{Trades: []models.Trade{}, Failed: []SymbolFailure{}}

	symbols, err := e.store.MatchableSymbols(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list symbols: %w", err)
	}

	var (
		mu       sync.Mutex
		storeErr []error
		results  = make([][]models.Trade, len(symbols))
	)
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			trades, err := e.MatchSymbol(ctx, symbol)
			if err != nil {
				mu.Lock()
				defer mu.Unlock()
				report.Failed = append(report.Failed, SymbolFailure{Symbol: symbol, Error: err.Error()})
				if !errors.Is(err, models.ErrInconsistentOrderState) {
					storeErr = append(storeErr, err)
				}
				return nil
			}
			results[i] = trades
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Symbol < report.Failed[j].Symbol })

	for _, trades := range results {
		report.Trades = append(report.Trades, trades...)
	}
	return report, errors.Join(storeErr...)
}
