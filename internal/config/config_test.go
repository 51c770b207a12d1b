package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "orderbook", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, "postgres", cfg.App.StoreDriver)
	assert.Equal(t, 4, cfg.App.MatchWorkers)
	assert.False(t, cfg.App.MatchOnPlace)
	assert.Equal(t, []string{"*"}, cfg.App.CORSOrigins)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "yahoo", cfg.MarketData.Provider)
	assert.Equal(t, 10*time.Second, cfg.MarketData.Timeout)
	assert.Equal(t, []string{"AAPL", "GOOGL", "AMZN", "MSFT", "TSLA"}, cfg.MarketData.Symbols)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9090")
	t.Setenv("APP_STORE_DRIVER", "memory")
	t.Setenv("APP_MATCH_WORKERS", "8")
	t.Setenv("APP_MATCH_ON_PLACE", "true")
	t.Setenv("APP_AUTH_SECRET", "s3cret")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@db:5432/ob")
	t.Setenv("MARKET_DATA_PROVIDER", "static")
	t.Setenv("MARKET_DATA_SYMBOLS", "IBM,ORCL")
	t.Setenv("MARKET_DATA_STATIC_PRICES", "IBM:180.5,ORCL:120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.HTTPPort)
	assert.Equal(t, "memory", cfg.App.StoreDriver)
	assert.Equal(t, 8, cfg.App.MatchWorkers)
	assert.True(t, cfg.App.MatchOnPlace)
	assert.Equal(t, "s3cret", cfg.App.AuthSecret)
	assert.Equal(t, "postgres://u:p@db:5432/ob", cfg.Postgres.ConnString())
	assert.Equal(t, []string{"IBM", "ORCL"}, cfg.MarketData.Symbols)
	assert.Equal(t, map[string]string{"IBM": "180.5", "ORCL": "120"}, cfg.MarketData.StaticPrices)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_STORE_DRIVER", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestLoadRejectsZeroWorkers(t *testing.T) {
	t.Setenv("APP_MATCH_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}
