package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/eddiefleurent/nse_strangler/internal/backtest"
	"github.com/eddiefleurent/nse_strangler/internal/config"
	"github.com/eddiefleurent/nse_strangler/internal/report"
	"github.com/eddiefleurent/nse_strangler/internal/storage"
)

func main() {
	var configPath, envPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&envPath, "env", ".env", "Path to optional .env file")
	flag.Parse()

	logger := log.New(os.Stdout, "[BACKTEST] ", log.LstdFlags)

	if err := config.LoadEnv(envPath); err != nil {
		logger.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.OpenJSONStore(cfg.Data.StoreDir)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("Failed to close store: %v", err)
		}
	}()

	runID := uuid.New().String()
	store.SetRunID(runID)
	logger.Printf("Run %s: %d symbols x %d years, mode %s",
		runID, len(cfg.Backtest.Symbols), len(cfg.Backtest.Years), cfg.Backtest.Mode)

	sink := storage.NewBreakerSink(store, logger)
	engine := backtest.New(store, sink, backtest.Config{
		TargetDelta:  cfg.Backtest.TargetDelta,
		ExitScanDays: cfg.Backtest.ExitScanDays,
		IndexSymbols: cfg.Backtest.IndexSymbols,
		Mode:         backtest.Mode(cfg.Backtest.Mode),
	}, logger)
	engine.SetRunID(runID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("Shutdown signal received, stopping run...")
		cancel()
	}()

	start := time.Now()
	err = engine.Run(ctx, backtest.Request{
		Symbols: cfg.Backtest.Symbols,
		Years:   cfg.Backtest.Years,
	}, cfg.Backtest.Workers)
	if err != nil {
		logger.Fatalf("Backtest failed: %v", err)
	}
	logger.Printf("Run complete in %s", time.Since(start).Round(time.Millisecond))

	report.Render(os.Stdout, store.Results())
}
