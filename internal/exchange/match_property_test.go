package exchange

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/orderbook/internal/models"
	"pgregory.net/rapid"
)

// drawBook draws a set of valid active orders for symbol X. Some arrive
// already partially filled. Prices cluster so that ties are common.
func drawBook(t *rapid.T) []models.Order {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		side := models.SideBuy
		if rapid.Bool().Draw(t, "sell") {
			side = models.SideSell
		}
		qty := rapid.Int64Range(1, 50).Draw(t, "qty")
		filled := rapid.Int64Range(0, qty-1).Draw(t, "filled")
		o := models.Order{
			ID:        int64(i + 1),
			Timestamp: t0.Add(time.Duration(rapid.IntRange(0, 10).Draw(t, "at")) * time.Second),
			Side:      side,
			Symbol:    "X",
			Price:     decimal.NewFromInt(rapid.Int64Range(95, 105).Draw(t, "price")),
			Quantity:  decimal.NewFromInt(qty),
			FilledQty: decimal.NewFromInt(filled),
		}
		o.Status = models.StatusFor(o.FilledQty, o.Quantity)
		orders = append(orders, o)
	}
	return orders
}

// apply returns the orders after result, keeping only the ones still active.
func apply(orders []models.Order, result MatchResult) (all map[int64]models.Order, active []models.Order) {
	all = make(map[int64]models.Order, len(orders))
	for _, o := range orders {
		all[o.ID] = o
	}
	for _, o := range result.Updated {
		all[o.ID] = o
	}
	for _, o := range all {
		if o.Status.Active() {
			active = append(active, o)
		}
	}
	return all, active
}

func TestProperty_FillAccounting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orders := drawBook(t)
		result, err := Match("X", orders, t0)
		if err != nil {
			t.Fatalf("match failed: %v", err)
		}
		after, _ := apply(orders, result)

		traded := make(map[int64]decimal.Decimal)
		for _, tr := range result.Trades {
			if !tr.Quantity.IsPositive() {
				t.Fatalf("trade %+v has non-positive quantity", tr)
			}
			buy, sell := after[tr.BuyOrderID], after[tr.SellOrderID]
			if buy.Side != models.SideBuy || sell.Side != models.SideSell {
				t.Fatalf("trade %+v pairs the wrong sides", tr)
			}
			if !tr.Price.Equal(sell.Price) {
				t.Fatalf("trade price %s is not the sell price %s", tr.Price, sell.Price)
			}
			if buy.Price.LessThan(sell.Price) {
				t.Fatalf("trade between non-crossing orders %s < %s", buy.Price, sell.Price)
			}
			traded[tr.BuyOrderID] = traded[tr.BuyOrderID].Add(tr.Quantity)
			traded[tr.SellOrderID] = traded[tr.SellOrderID].Add(tr.Quantity)
		}

		for _, before := range orders {
			o := after[before.ID]
			if o.FilledQty.IsNegative() || o.FilledQty.GreaterThan(o.Quantity) {
				t.Fatalf("order %d filled %s of %s", o.ID, o.FilledQty, o.Quantity)
			}
			if o.Status != models.StatusFor(o.FilledQty, o.Quantity) {
				t.Fatalf("order %d is %s with %s of %s filled", o.ID, o.Status, o.FilledQty, o.Quantity)
			}
			if !o.FilledQty.Sub(before.FilledQty).Equal(traded[o.ID]) {
				t.Fatalf("order %d fill grew by %s but traded %s", o.ID, o.FilledQty.Sub(before.FilledQty), traded[o.ID])
			}
		}
	})
}

func TestProperty_NoCrossLeftAndIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orders := drawBook(t)
		result, err := Match("X", orders, t0)
		if err != nil {
			t.Fatalf("match failed: %v", err)
		}
		_, active := apply(orders, result)

		var bestBid, bestAsk *decimal.Decimal
		for i := range active {
			p := active[i].Price
			if active[i].Side == models.SideBuy && (bestBid == nil || p.GreaterThan(*bestBid)) {
				bestBid = &p
			}
			if active[i].Side == models.SideSell && (bestAsk == nil || p.LessThan(*bestAsk)) {
				bestAsk = &p
			}
		}
		if bestBid != nil && bestAsk != nil && !bestBid.LessThan(*bestAsk) {
			t.Fatalf("book left crossed: bid %s >= ask %s", bestBid, bestAsk)
		}

		again, err := Match("X", active, t0)
		if err != nil {
			t.Fatalf("second match failed: %v", err)
		}
		if len(again.Trades) != 0 || len(again.Updated) != 0 {
			t.Fatalf("second pass produced %d trades", len(again.Trades))
		}
	})
}

func TestProperty_PriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orders := drawBook(t)
		result, err := Match("X", orders, t0)
		if err != nil {
			t.Fatalf("match failed: %v", err)
		}
		after, _ := apply(orders, result)

		traded := make(map[int64]bool)
		for _, tr := range result.Trades {
			traded[tr.BuyOrderID] = true
			traded[tr.SellOrderID] = true
		}

		// An order may only trade once every order ahead of it on its side is filled.
		for _, o := range orders {
			if !traded[o.ID] {
				continue
			}
			for _, ahead := range orders {
				if ahead.Side != o.Side || ahead.ID == o.ID {
					continue
				}
				better := ahead.Price.GreaterThan(o.Price)
				if o.Side == models.SideSell {
					better = ahead.Price.LessThan(o.Price)
				}
				if before(&ahead, &o, better) && after[ahead.ID].Status != models.StatusFilled {
					t.Fatalf("order %d traded while order %d ahead of it is %s", o.ID, ahead.ID, after[ahead.ID].Status)
				}
			}
		}
	})
}
