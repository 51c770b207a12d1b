// Package marketdata fetches reference prices used to seed and annotate
// stocks. Nothing here is consulted by matching.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProviderYahoo  = "yahoo"
	ProviderStatic = "static"
)

// ErrUnknownSymbol is returned when a source has no price for a symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Config selects and configures the price source.
type Config struct {
	Provider     string            `env:"PROVIDER" envDefault:"yahoo"`
	BaseURL      string            `env:"BASE_URL" envDefault:"https://query1.finance.yahoo.com"`
	Timeout      time.Duration     `env:"TIMEOUT" envDefault:"10s"`
	Workers      int               `env:"WORKERS" envDefault:"4"`
	Symbols      []string          `env:"SYMBOLS" envSeparator:"," envDefault:"AAPL,GOOGL,AMZN,MSFT,TSLA"`
	StaticPrices map[string]string `env:"STATIC_PRICES"`
}

// Quote is the latest known price of a symbol.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}

// Source provides quotes.
type Source interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// NewSource builds the source named by cfg.Provider.
func NewSource(cfg Config) (Source, error) {
	switch cfg.Provider {
	case ProviderYahoo:
		return NewYahoo(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout}), nil
	case ProviderStatic:
		prices := make(map[string]decimal.Decimal, len(cfg.StaticPrices))
		for sym, raw := range cfg.StaticPrices {
			p, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid static price for %s: %w", sym, err)
			}
			prices[strings.ToUpper(strings.TrimSpace(sym))] = p
		}
		return NewStatic(prices), nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", cfg.Provider)
	}
}

// Static serves fixed prices.
type Static struct {
	prices map[string]decimal.Decimal
}

// NewStatic returns a source answering from prices.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	return &Static{prices: prices}
}

func (s *Static) Quote(ctx context.Context, symbol string) (Quote, error) {
	p, ok := s.prices[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return Quote{Symbol: symbol, Name: symbol, Price: p}, nil
}
