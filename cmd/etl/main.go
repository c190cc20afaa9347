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

	"github.com/eddiefleurent/nse_strangler/internal/config"
	"github.com/eddiefleurent/nse_strangler/internal/etl"
	"github.com/eddiefleurent/nse_strangler/internal/storage"
)

func main() {
	var configPath, envPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&envPath, "env", ".env", "Path to optional .env file")
	flag.Parse()

	logger := log.New(os.Stdout, "[ETL] ", log.LstdFlags)

	if err := config.LoadEnv(envPath); err != nil {
		logger.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	spots, err := etl.LoadSpotSeries(cfg.Data.SpotFile)
	if err != nil {
		logger.Fatalf("Failed to load spot prices: %v", err)
	}

	var rates *etl.RateSeries
	if cfg.Data.RatesFile != "" {
		if rates, err = etl.LoadRateSeries(cfg.Data.RatesFile); err != nil {
			logger.Fatalf("Failed to load rates: %v", err)
		}
	}
	var earnings *etl.EarningsCalendar
	if cfg.Data.EarningsFile != "" {
		if earnings, err = etl.LoadEarningsCalendar(cfg.Data.EarningsFile); err != nil {
			logger.Fatalf("Failed to load earnings calendar: %v", err)
		}
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
	logger.Printf("Run %s: building snapshots for %d symbols", runID, len(cfg.Backtest.Symbols))

	processor := etl.NewProcessor(store, rates, spots, earnings, logger, etl.Config{
		Window:        cfg.ETL.RVWindow,
		MaxLookback:   cfg.ETL.RVLookback,
		IVStatsWindow: cfg.ETL.IVStatsWindow,
		FlushEvery:    cfg.ETL.FlushEvery,
		Workers:       cfg.ETL.Workers,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("Shutdown signal received, stopping ingest...")
		cancel()
	}()

	start := time.Now()
	if err := processor.Run(ctx, cfg.Data.BhavcopyDir, cfg.Backtest.Symbols); err != nil {
		logger.Fatalf("ETL failed: %v", err)
	}
	logger.Printf("Ingest complete in %s", time.Since(start).Round(time.Millisecond))
}
