package etl

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// rateRow is one line of the interest-rate CSV (MIBOR-style daily fixings).
type rateRow struct {
	Date string  `csv:"DATE"`
	Rate float64 `csv:"RATE"`
}

// RateSeries is a date-keyed annualized interest rate curve, in percent.
// Lookups on a missing date fall back to the nearest earlier fixing, then
// the nearest later one, so sparse rate files still cover every trading day.
type RateSeries struct {
	dates []time.Time // sorted ascending
	rates map[time.Time]float64
}

// LoadRateSeries reads a rate CSV with DATE ("2025-04-13") and RATE columns.
func LoadRateSeries(path string) (*RateSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rate file: %w", err)
	}
	defer f.Close()

	var rows []*rateRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing rate file: %w", err)
	}

	s := &RateSeries{rates: make(map[time.Time]float64, len(rows))}
	for _, row := range rows {
		d, err := time.Parse(util.DayLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("bad rate date %q: %w", row.Date, err)
		}
		d = util.Day(d)
		if _, dup := s.rates[d]; !dup {
			s.dates = append(s.dates, d)
		}
		s.rates[d] = row.Rate
	}
	sort.Slice(s.dates, func(i, j int) bool { return s.dates[i].Before(s.dates[j]) })
	return s, nil
}

// Rate returns the annualized percent rate for date, falling back to the
// nearest earlier fixing and then the nearest later one. False only for an
// empty series.
func (s *RateSeries) Rate(date time.Time) (float64, bool) {
	if s == nil || len(s.dates) == 0 {
		return 0, false
	}
	d := util.Day(date)
	if r, ok := s.rates[d]; ok {
		return r, true
	}
	// first index with dates[i] > d
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	if i > 0 {
		return s.rates[s.dates[i-1]], true
	}
	return s.rates[s.dates[i]], true
}
