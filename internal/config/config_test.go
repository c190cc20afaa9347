package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
data:
  bhavcopy_dir: data/bhav
  spot_file: data/spot.json
  store_dir: data/store
backtest:
  symbols: [HDFCBANK, NIFTY]
  index_symbols: [NIFTY]
  years: [2023, 2024]
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 0.20, cfg.Backtest.TargetDelta)
	assert.Equal(t, 14, cfg.Backtest.ExitScanDays)
	assert.Equal(t, "leg_roll", cfg.Backtest.Mode)
	assert.Equal(t, 4, cfg.Backtest.Workers)
	assert.Equal(t, 30, cfg.ETL.RVWindow)
	assert.Equal(t, 90, cfg.ETL.RVLookback)
	assert.Equal(t, 500, cfg.ETL.FlushEvery)
	assert.Equal(t, ":8080", cfg.Dashboard.Addr)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"\nbanana: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("STORE_DIR", "/var/lib/strangler")
	body := `
data:
  store_dir: ${STORE_DIR}
backtest:
  symbols: [HDFCBANK]
  years: [2024]
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/strangler", cfg.Data.StoreDir)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no symbols",
			body: "backtest:\n  years: [2024]\n",
			want: "backtest.symbols is required",
		},
		{
			name: "no years",
			body: "backtest:\n  symbols: [HDFCBANK]\n",
			want: "backtest.years is required",
		},
		{
			name: "bad mode",
			body: "backtest:\n  symbols: [HDFCBANK]\n  years: [2024]\n  mode: martingale\n",
			want: "backtest.mode",
		},
		{
			name: "delta out of range",
			body: "backtest:\n  symbols: [HDFCBANK]\n  years: [2024]\n  target_delta: 1.5\n",
			want: "backtest.target_delta",
		},
		{
			name: "duplicate symbol",
			body: "backtest:\n  symbols: [HDFCBANK, HDFCBANK]\n  years: [2024]\n",
			want: "twice",
		},
		{
			name: "year out of range",
			body: "backtest:\n  symbols: [HDFCBANK]\n  years: [1923]\n",
			want: "out of range",
		},
		{
			name: "lookback below window",
			body: "backtest:\n  symbols: [HDFCBANK]\n  years: [2024]\netl:\n  rv_window: 30\n  rv_lookback: 10\n",
			want: "etl.rv_lookback",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "no-such.env")))
}

func TestLoadEnv_SetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STRANGLER_TEST_VAR=abc\n"), 0o644))
	t.Setenv("STRANGLER_TEST_VAR", "") // restore after the test
	os.Unsetenv("STRANGLER_TEST_VAR")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "abc", os.Getenv("STRANGLER_TEST_VAR"))
}
