// Package report aggregates stored backtest results into per-symbol
// statistics and renders the run summary table.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

// SymbolStats aggregates one symbol's result rows.
type SymbolStats struct {
	Symbol    string  `json:"symbol"`
	Tested    int     `json:"tested"`
	Traded    int     `json:"traded"`
	Skipped   int     `json:"skipped"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"win_rate"` // percent of traded months
	TotalPnL  float64 `json:"total_pnl_points"`
	AvgPnL    float64 `json:"avg_pnl_points"` // per traded month
}

// Summarize groups result rows by symbol, ordered by symbol name.
func Summarize(results []*models.BacktestResult) []SymbolStats {
	bySymbol := make(map[string]*SymbolStats)
	for _, r := range results {
		s, ok := bySymbol[r.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: r.Symbol}
			bySymbol[r.Symbol] = s
		}
		s.Tested++
		if !r.Traded() {
			s.Skipped++
			continue
		}
		s.Traded++
		pnl := *r.PnLPoints
		s.TotalPnL += pnl
		if pnl > 0 {
			s.Wins++
		}
	}

	out := make([]SymbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		if s.Traded > 0 {
			s.WinRate = 100.0 * float64(s.Wins) / float64(s.Traded)
			s.AvgPnL = s.TotalPnL / float64(s.Traded)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Render writes the per-symbol summary plus a totals row as a table.
func Render(w io.Writer, results []*models.BacktestResult) {
	stats := Summarize(results)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Tested", "Traded", "Skipped", "Win %", "Total PnL", "Avg PnL"})
	table.SetBorder(false)

	var tested, traded, skipped, wins int
	var totalPnL float64
	for _, s := range stats {
		table.Append([]string{
			s.Symbol,
			fmt.Sprintf("%d", s.Tested),
			fmt.Sprintf("%d", s.Traded),
			fmt.Sprintf("%d", s.Skipped),
			fmt.Sprintf("%.1f", s.WinRate),
			fmt.Sprintf("%.2f", s.TotalPnL),
			fmt.Sprintf("%.2f", s.AvgPnL),
		})
		tested += s.Tested
		traded += s.Traded
		skipped += s.Skipped
		wins += s.Wins
		totalPnL += s.TotalPnL
	}

	winRate, avgPnL := 0.0, 0.0
	if traded > 0 {
		winRate = 100.0 * float64(wins) / float64(traded)
		avgPnL = totalPnL / float64(traded)
	}
	table.SetFooter([]string{
		"TOTAL",
		fmt.Sprintf("%d", tested),
		fmt.Sprintf("%d", traded),
		fmt.Sprintf("%d", skipped),
		fmt.Sprintf("%.1f", winRate),
		fmt.Sprintf("%.2f", totalPnL),
		fmt.Sprintf("%.2f", avgPnL),
	})
	table.Render()
}
