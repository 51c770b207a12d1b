package exchange

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
)

// MatchResult is the outcome of one matching pass over a symbol.
type MatchResult struct {
	Trades []models.Trade
	// Updated holds every order whose fill changed, in the order first touched.
	Updated []models.Order
}

// Match crosses the given active orders of one symbol under price-time
// priority. Trades execute at the sell order's limit price. The input slice
// is not modified.
func Match(symbol string, orders []models.Order, now time.Time) (MatchResult, error) {
	var buys, sells []*models.Order
	for i := range orders {
		if err := checkOrder(symbol, orders[i]); err != nil {
			return MatchResult{}, err
		}
		o := orders[i]
		if o.Side == models.SideBuy {
			buys = append(buys, &o)
		} else {
			sells = append(sells, &o)
		}
	}

	// Best price first, then oldest, then lowest id
	sort.Slice(buys, func(i, j int) bool {
		return before(buys[i], buys[j], buys[i].Price.GreaterThan(buys[j].Price))
	})
	sort.Slice(sells, func(i, j int) bool {
		return before(sells[i], sells[j], sells[i].Price.LessThan(sells[j].Price))
	})

	var (
		result  MatchResult
		touched []*models.Order
		seen    = make(map[int64]bool)
	)
	touch := func(o *models.Order) {
		if !seen[o.ID] {
			seen[o.ID] = true
			touched = append(touched, o)
		}
	}

	bi, si := 0, 0
	for bi < len(buys) && si < len(sells) {
		b, s := buys[bi], sells[si]
		if b.Price.LessThan(s.Price) {
			break
		}

		qty := decimal.Min(b.Remaining(), s.Remaining())
		result.Trades = append(result.Trades, models.Trade{
			Timestamp:   now,
			BuyOrderID:  b.ID,
			SellOrderID: s.ID,
			Symbol:      symbol,
			Price:       s.Price,
			Quantity:    qty,
		})

		b.FilledQty = b.FilledQty.Add(qty)
		s.FilledQty = s.FilledQty.Add(qty)
		b.Status = models.StatusFor(b.FilledQty, b.Quantity)
		s.Status = models.StatusFor(s.FilledQty, s.Quantity)
		touch(b)
		touch(s)

		if b.Status == models.StatusFilled {
			bi++
		}
		if s.Status == models.StatusFilled {
			si++
		}
	}

	for _, o := range touched {
		result.Updated = append(result.Updated, *o)
	}
	return result, nil
}

func before(a, b *models.Order, better bool) bool {
	if !a.Price.Equal(b.Price) {
		return better
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// checkOrder rejects orders that cannot legally be on the book.
func checkOrder(symbol string, o models.Order) error {
	var problem string
	switch {
	case o.Symbol != symbol:
		problem = fmt.Sprintf("belongs to symbol %q", o.Symbol)
	case !o.Side.Valid():
		problem = fmt.Sprintf("has unknown side %q", o.Side)
	case !o.Price.IsPositive():
		problem = "has non-positive price " + o.Price.String()
	case !o.Quantity.IsPositive():
		problem = "has non-positive quantity " + o.Quantity.String()
	case o.FilledQty.IsNegative():
		problem = "has negative filled quantity " + o.FilledQty.String()
	case o.FilledQty.GreaterThan(o.Quantity):
		problem = fmt.Sprintf("is over-filled (%s of %s)", o.FilledQty, o.Quantity)
	case !o.Status.Active():
		problem = fmt.Sprintf("is %s but was loaded as active", o.Status)
	case o.Status != models.StatusFor(o.FilledQty, o.Quantity):
		problem = fmt.Sprintf("is %s with %s of %s filled", o.Status, o.FilledQty, o.Quantity)
	default:
		return nil
	}
	return fmt.Errorf("%w: order %d %s", models.ErrInconsistentOrderState, o.ID, problem)
}
