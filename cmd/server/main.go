package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtrntr/orderbook/internal/api"
	"github.com/xtrntr/orderbook/internal/auth"
	"github.com/xtrntr/orderbook/internal/config"
	"github.com/xtrntr/orderbook/internal/db"
	"github.com/xtrntr/orderbook/internal/exchange"
	"github.com/xtrntr/orderbook/internal/logger"
	"github.com/xtrntr/orderbook/internal/marketdata"
	"github.com/xtrntr/orderbook/internal/memstore"
	"github.com/xtrntr/orderbook/internal/store"
)

// Main entry point: sets up storage, the exchange and the HTTP server
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := []logger.Options{logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel))}
	if cfg.App.Environment == "development" {
		opts = append(opts, logger.WithDevelopment())
	}
	lg, err := logger.NewLogger(opts...)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Error(err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ex := exchange.NewExchange(st, lg.With(logger.NewField("component", "exchange")),
		exchange.WithWorkers(cfg.App.MatchWorkers))

	var refresher *marketdata.Refresher
	source, err := marketdata.NewSource(cfg.MarketData)
	if err != nil {
		lg.Warn("market data disabled", logger.NewField("error", err.Error()))
	} else {
		refresher = marketdata.NewRefresher(source, st, lg.With(logger.NewField("component", "marketdata")), cfg.MarketData.Workers)
	}

	handler := api.NewHandler(ex, refresher, auth.NewAuthService(cfg.App.AuthSecret), lg)
	handler.MatchOnPlace = cfg.App.MatchOnPlace
	if !handler.AuthService.Enabled() {
		lg.Warn("APP_AUTH_SECRET not set, authentication disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           api.NewRouter(handler, cfg.App.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server",
			logger.NewField("addr", srv.Addr),
			logger.NewField("store", cfg.App.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.App.StoreDriver == "memory" {
		return memstore.New(), nil
	}

	database, err := db.NewDB(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}
