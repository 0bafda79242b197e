package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/catalog"
	"github.com/lmaretto/papertrade/internal/config"
	"github.com/lmaretto/papertrade/internal/database"
	"github.com/lmaretto/papertrade/internal/feed"
	"github.com/lmaretto/papertrade/internal/hub"
	"github.com/lmaretto/papertrade/internal/ledger"
	"github.com/lmaretto/papertrade/internal/marketclock"
	"github.com/lmaretto/papertrade/internal/store"
	"github.com/lmaretto/papertrade/internal/stream"
	"github.com/lmaretto/papertrade/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting server",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.URL,
	)

	initialCredit, err := decimal.NewFromString(cfg.Accounts.InitialCredit)
	if err != nil {
		logger.Error("invalid initial credit", "value", cfg.Accounts.InitialCredit, "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	db, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	// Load reference catalog
	cat := catalog.New(catalog.NewPostgresSource(db), logger)
	if err := cat.Load(ctx); err != nil {
		logger.Error("failed to load reference catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("reference catalog loaded", "symbols", cat.Len())

	// Market clock
	clock, err := marketclock.New(cfg.Market.Timezone, cfg.Market.Open, cfg.Market.Close)
	if err != nil {
		logger.Error("invalid market calendar", "error", err)
		os.Exit(1)
	}

	// Broadcast hub
	broadcast := hub.New(hub.Config{
		SessionBufferSize: cfg.Hub.SessionBufferSize,
	}, logger)

	// Upstream feed connector
	feedCfg := feed.DefaultConfig()
	feedCfg.URL = cfg.Feed.URL
	feedCfg.Token = cfg.Feed.Token
	feedCfg.ReconnectBaseDelay = cfg.Feed.ReconnectBaseDelay
	feedCfg.ReconnectMaxDelay = cfg.Feed.ReconnectMaxDelay
	feedCfg.MaxReconnectAttempts = cfg.Feed.MaxReconnectAttempts
	feedCfg.PingInterval = cfg.Feed.PingInterval
	feedCfg.ReadTimeout = cfg.Feed.ReadTimeout
	feedCfg.BufferSize = cfg.Feed.BufferSize

	connector := feed.New(feedCfg, cat, broadcast, logger)
	if err := connector.Start(ctx); err != nil {
		logger.Error("failed to start feed connector", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		connector.Stop(shutdownCtx)
	}()

	// Trading ledger over the Postgres store
	portfolio := store.NewPostgres(db, logger)
	led := ledger.New(portfolio, broadcast, clock, cat, logger)

	// HTTP server: websocket stream plus JSON API
	wsHandler := stream.NewHandler(stream.DefaultConfig(), broadcast, logger)
	routes := createRoutes(db, cat, broadcast, connector, led, portfolio, initialCredit, wsHandler, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: routes,
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("server running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
		"stream_url", fmt.Sprintf("ws://localhost:%d/ws", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	logger.Info("server stopped")
}
