// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultTargetDelta is used when backtest.target_delta is unset
	defaultTargetDelta = 0.20
	// defaultExitScanDays is used when backtest.exit_scan_days is unset
	defaultExitScanDays = 14
	// defaultWorkers caps parallel symbol workers when unset
	defaultWorkers = 4
	// defaultRVWindow / defaultRVLookback bound the realized-vol estimator
	defaultRVWindow   = 30
	defaultRVLookback = 90
	// defaultFlushEvery is the snapshot batch-writer threshold
	defaultFlushEvery = 500
	// defaultIVStatsWindow is the IV percentile/rank observation window
	defaultIVStatsWindow = 30
	// defaultDashboardAddr serves the results dashboard when unset
	defaultDashboardAddr = ":8080"
)

// Config represents the complete application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	ETL       ETLConfig       `yaml:"etl"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// DataConfig locates the source files and the snapshot/result store.
type DataConfig struct {
	BhavcopyDir  string `yaml:"bhavcopy_dir"`
	SpotFile     string `yaml:"spot_file"`
	RatesFile    string `yaml:"rates_file"`
	EarningsFile string `yaml:"earnings_file"`
	StoreDir     string `yaml:"store_dir"`
}

// ETLConfig tunes the snapshot-building pass.
type ETLConfig struct {
	RVWindow      int `yaml:"rv_window"`
	RVLookback    int `yaml:"rv_lookback"`
	IVStatsWindow int `yaml:"iv_stats_window"`
	FlushEvery    int `yaml:"flush_every"`
	Workers       int `yaml:"workers"`
}

// BacktestConfig defines the simulation grid and strategy parameters.
type BacktestConfig struct {
	Symbols      []string `yaml:"symbols"`
	IndexSymbols []string `yaml:"index_symbols"`
	Years        []int    `yaml:"years"`
	TargetDelta  float64  `yaml:"target_delta"`
	ExitScanDays int      `yaml:"exit_scan_days"`
	Mode         string   `yaml:"mode"` // leg_roll | delta_hedge
	Workers      int      `yaml:"workers"`
}

// DashboardConfig defines the results dashboard settings.
type DashboardConfig struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Data.StoreDir == "" {
		c.Data.StoreDir = "data/store"
	}
	if c.ETL.RVWindow <= 0 {
		c.ETL.RVWindow = defaultRVWindow
	}
	if c.ETL.RVLookback <= 0 {
		c.ETL.RVLookback = defaultRVLookback
	}
	if c.ETL.IVStatsWindow <= 0 {
		c.ETL.IVStatsWindow = defaultIVStatsWindow
	}
	if c.ETL.FlushEvery <= 0 {
		c.ETL.FlushEvery = defaultFlushEvery
	}
	if c.ETL.Workers <= 0 {
		c.ETL.Workers = defaultWorkers
	}
	if c.Backtest.TargetDelta == 0 {
		c.Backtest.TargetDelta = defaultTargetDelta
	}
	if c.Backtest.ExitScanDays <= 0 {
		c.Backtest.ExitScanDays = defaultExitScanDays
	}
	if c.Backtest.Mode == "" {
		c.Backtest.Mode = "leg_roll"
	}
	if c.Backtest.Workers <= 0 {
		c.Backtest.Workers = defaultWorkers
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = defaultDashboardAddr
	}
	if c.Dashboard.LogLevel == "" {
		c.Dashboard.LogLevel = "info"
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	if len(c.Backtest.Symbols) == 0 {
		return fmt.Errorf("backtest.symbols is required")
	}
	if len(c.Backtest.Years) == 0 {
		return fmt.Errorf("backtest.years is required")
	}
	thisYear := time.Now().Year()
	for _, y := range c.Backtest.Years {
		if y < 2000 || y > thisYear {
			return fmt.Errorf("backtest.years entry %d out of range [2000,%d]", y, thisYear)
		}
	}
	if c.Backtest.TargetDelta <= 0 || c.Backtest.TargetDelta >= 1 {
		return fmt.Errorf("backtest.target_delta must be in (0,1)")
	}
	if c.Backtest.Mode != "leg_roll" && c.Backtest.Mode != "delta_hedge" {
		return fmt.Errorf("backtest.mode must be 'leg_roll' or 'delta_hedge'")
	}
	symbols := make(map[string]struct{}, len(c.Backtest.Symbols))
	for _, s := range c.Backtest.Symbols {
		if s == "" {
			return fmt.Errorf("backtest.symbols must not contain empty entries")
		}
		if _, dup := symbols[s]; dup {
			return fmt.Errorf("backtest.symbols contains %s twice", s)
		}
		symbols[s] = struct{}{}
	}
	if c.ETL.RVLookback < c.ETL.RVWindow {
		return fmt.Errorf("etl.rv_lookback (%d) must be >= etl.rv_window (%d)",
			c.ETL.RVLookback, c.ETL.RVWindow)
	}
	return nil
}
