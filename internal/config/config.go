package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/xtrntr/orderbook/internal/db"
	"github.com/xtrntr/orderbook/internal/marketdata"
)

// Config represents the application configuration.
type Config struct {
	App        AppConfig         `envPrefix:"APP_"`
	Postgres   db.Config         `envPrefix:"POSTGRES_"`
	MarketData marketdata.Config `envPrefix:"MARKET_DATA_"`
}

// AppConfig holds process level settings.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"orderbook"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	// StoreDriver is "postgres" or "memory".
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"postgres"`
	MatchWorkers int    `env:"MATCH_WORKERS" envDefault:"4"`
	MatchOnPlace bool   `env:"MATCH_ON_PLACE" envDefault:"false"`
	// AuthSecret enables bearer token checks when set.
	AuthSecret  string   `env:"AUTH_SECRET"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.App.StoreDriver)
	}
	if c.App.MatchWorkers < 1 {
		return fmt.Errorf("match workers must be at least 1, got %d", c.App.MatchWorkers)
	}
	switch c.MarketData.Provider {
	case marketdata.ProviderYahoo, marketdata.ProviderStatic:
	default:
		return fmt.Errorf("unknown market data provider %q", c.MarketData.Provider)
	}
	return nil
}
