// Package volatility implements the gap-tolerant rolling Yang-Zhang
// realized-volatility estimator over daily OHLC bars.
package volatility

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// Bar is one daily OHLC observation for a symbol.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Valid reports whether all four prices are usable (> 0 and finite).
func (b Bar) Valid() bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return true
}

// Estimator computes annualized Yang-Zhang volatility. For each as-of day it
// walks backward one business day at a time, skipping days that are absent
// or invalid, until Window valid bars are collected or MaxLookback business
// days have been examined. A day with fewer than Window bars in budget has
// no estimate; the search is bounded and never uses a short window.
type Estimator struct {
	Window        int     // target count of valid bars
	MaxLookback   int     // business-day search budget
	Annualization float64 // trading periods per year
}

// NewEstimator returns an estimator with the given window and lookback;
// zero values fall back to the defaults (30, 90, 252).
func NewEstimator(window, maxLookback int, annualization float64) *Estimator {
	e := &Estimator{Window: window, MaxLookback: maxLookback, Annualization: annualization}
	if e.Window <= 0 {
		e.Window = 30
	}
	if e.MaxLookback <= 0 {
		e.MaxLookback = 90
	}
	if e.Annualization <= 0 {
		e.Annualization = 252
	}
	return e
}

// Annualized computes the Yang-Zhang volatility over exactly len(bars)
// chronological bars. Returns false when there are fewer than two bars or
// the YZ variance degenerates (non-finite or <= 0).
func (e *Estimator) Annualized(bars []Bar) (float64, bool) {
	n := len(bars)
	if n < 2 {
		return 0, false
	}

	opens := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		opens[i] = math.Log(b.Open)
		closes[i] = math.Log(b.Close)
	}

	cc := diffs(closes)
	oo := diffs(opens)
	overnight := make([]float64, n-1)
	for i := 1; i < n; i++ {
		overnight[i-1] = opens[i] - closes[i-1]
	}

	ccVar, err := stats.SampleVariance(cc)
	if err != nil {
		return 0, false
	}
	ooVar := 0.0
	if len(oo) > 1 {
		if v, err := stats.SampleVariance(oo); err == nil {
			ooVar = v
		}
	}
	// Denominator n-1 over n-1 overnight observations, i.e. their
	// population variance.
	onVar, err := stats.PopulationVariance(overnight)
	if err != nil {
		return 0, false
	}

	k := 0.34 / (1.34 + float64(n+1)/float64(n-1))
	yzVar := ccVar + k*onVar - (1-k)*ooVar

	if math.IsNaN(yzVar) || math.IsInf(yzVar, 0) || yzVar <= 0 {
		return 0, false
	}
	return math.Sqrt(yzVar * e.Annualization), true
}

// At computes the estimate for one as-of day against a date-indexed bar set.
// The as-of day's own bar is excluded; the window ends the prior business day.
func (e *Estimator) At(asOf time.Time, byDate map[time.Time]Bar) (float64, bool) {
	window := make([]Bar, 0, e.Window)
	cursor := util.Day(asOf)

	for steps := 0; len(window) < e.Window && steps < e.MaxLookback; steps++ {
		cursor = util.PrevBusinessDay(cursor)
		if bar, ok := byDate[cursor]; ok && bar.Valid() {
			window = append(window, bar)
		}
	}
	if len(window) < e.Window {
		return 0, false
	}

	// collected newest-first; the formula wants chronological order
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return e.Annualized(window)
}

// Series computes the rolling estimate for every bar date in the input.
// Days without a defined estimate are absent from the returned map.
func (e *Estimator) Series(bars []Bar) map[time.Time]float64 {
	byDate := make(map[time.Time]Bar, len(bars))
	dates := make([]time.Time, 0, len(bars))
	for _, b := range bars {
		d := util.Day(b.Date)
		if _, seen := byDate[d]; !seen {
			dates = append(dates, d)
		}
		byDate[d] = Bar{Date: d, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make(map[time.Time]float64, len(dates))
	for _, d := range dates {
		if rv, ok := e.At(d, byDate); ok {
			out[d] = rv
		}
	}
	return out
}

func diffs(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}
