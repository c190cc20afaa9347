package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

func result(symbol string, month int, pnl *float64, reason string) *models.BacktestResult {
	return &models.BacktestResult{
		Symbol: symbol, Year: 2024, Month: month,
		PnLPoints: pnl, SkippedReason: reason,
	}
}

func TestSummarize(t *testing.T) {
	results := []*models.BacktestResult{
		result("HDFCBANK", 1, models.Float(13.5), ""),
		result("HDFCBANK", 2, models.Float(-4.0), ""),
		result("HDFCBANK", 3, nil, "Missing Entry Data"),
		result("NIFTY", 1, models.Float(20.0), ""),
	}

	stats := Summarize(results)
	require.Len(t, stats, 2)

	hdfc := stats[0]
	assert.Equal(t, "HDFCBANK", hdfc.Symbol)
	assert.Equal(t, 3, hdfc.Tested)
	assert.Equal(t, 2, hdfc.Traded)
	assert.Equal(t, 1, hdfc.Skipped)
	assert.Equal(t, 1, hdfc.Wins)
	assert.InDelta(t, 50.0, hdfc.WinRate, 1e-9)
	assert.InDelta(t, 9.5, hdfc.TotalPnL, 1e-9)
	assert.InDelta(t, 4.75, hdfc.AvgPnL, 1e-9)

	nifty := stats[1]
	assert.Equal(t, "NIFTY", nifty.Symbol)
	assert.InDelta(t, 100.0, nifty.WinRate, 1e-9)
}

func TestSummarize_AllSkipped(t *testing.T) {
	stats := Summarize([]*models.BacktestResult{
		result("INFY", 1, nil, "No Suitable Options"),
	})
	require.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].Traded)
	assert.Equal(t, 0.0, stats[0].WinRate)
}

func TestRender_WritesTable(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []*models.BacktestResult{
		result("HDFCBANK", 1, models.Float(13.5), ""),
	})
	out := buf.String()
	assert.Contains(t, out, "HDFCBANK")
	assert.Contains(t, out, "13.50")
	assert.Contains(t, out, "TOTAL")
}
