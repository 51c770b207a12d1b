package exchange

import (
	"time"

	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/store"
)

// Exchange is the order gateway, matching engine and book view over one store.
type Exchange struct {
	store   store.Store
	log     logger.Interface
	now     func() time.Time
	workers int
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithClock replaces the wall clock used for order and trade timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) { e.now = now }
}

// WithWorkers bounds how many symbols MatchAll processes at once.
func WithWorkers(n int) Option {
	return func(e *Exchange) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewExchange creates an exchange backed by st
func NewExchange(st store.Store, log logger.Interface, opts ...Option) *Exchange {
	e := &Exchange{
		store:   st,
		log:     log,
		workers: 4,
		now: func() time.Time {
			// PostgreSQL keeps microseconds
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
