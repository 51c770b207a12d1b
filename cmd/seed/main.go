package main

import (
	"context"
	"log"

	"github.com/xtrntr/orderbook/internal/config"
	"github.com/xtrntr/orderbook/internal/db"
	"github.com/xtrntr/orderbook/internal/exchange"
	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/marketdata"
	"github.com/xtrntr/orderbook/internal/seed"
)

// Seed the database with stocks and a ladder of resting orders
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	database, err := db.NewDB(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	source, err := marketdata.NewSource(cfg.MarketData)
	if err != nil {
		log.Fatalf("Failed to create market data source: %v", err)
	}

	ex := exchange.NewExchange(database, lg, exchange.WithWorkers(cfg.App.MatchWorkers))
	res, err := seed.NewSeeder(database, ex, source, lg).Run(ctx, cfg.MarketData.Symbols)
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	log.Printf("Seeded %d stocks, %d orders, %d trades (skipped %v)", res.Stocks, res.Orders, res.Trades, res.Skipped)
}
