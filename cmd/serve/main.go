package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/nse_strangler/internal/config"
	"github.com/eddiefleurent/nse_strangler/internal/dashboard"
	"github.com/eddiefleurent/nse_strangler/internal/storage"
)

func main() {
	var configPath, envPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&envPath, "env", ".env", "Path to optional .env file")
	flag.Parse()

	logger := logrus.New()

	if err := config.LoadEnv(envPath); err != nil {
		logger.WithError(err).Fatal("Failed to load env file")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	if level, err := logrus.ParseLevel(cfg.Dashboard.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	store, err := storage.OpenJSONStore(cfg.Data.StoreDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}

	server := dashboard.NewServer(dashboard.Config{Addr: cfg.Dashboard.Addr}, store, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Shutdown failed")
		}
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Dashboard server failed")
	}
}
