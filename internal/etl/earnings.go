package etl

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// EarningsCalendar holds per-symbol announcement dates, sorted ascending.
type EarningsCalendar struct {
	bySymbol map[string][]time.Time
}

// LoadEarningsCalendar reads an earnings JSON file shaped as
// {"HDFCBANK": ["2025-04-19", ...], ...}.
func LoadEarningsCalendar(path string) (*EarningsCalendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading earnings file: %w", err)
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing earnings file: %w", err)
	}

	c := &EarningsCalendar{bySymbol: make(map[string][]time.Time, len(raw))}
	for symbol, keys := range raw {
		dates := make([]time.Time, 0, len(keys))
		for _, key := range keys {
			d, err := time.Parse(util.DayLayout, key)
			if err != nil {
				return nil, fmt.Errorf("bad earnings date %q for %s: %w", key, symbol, err)
			}
			dates = append(dates, util.Day(d))
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		c.bySymbol[symbol] = dates
	}
	return c, nil
}

// NextAfter returns the first announcement strictly after date, or nil.
func (c *EarningsCalendar) NextAfter(symbol string, date time.Time) *time.Time {
	if c == nil {
		return nil
	}
	d := util.Day(date)
	for _, e := range c.bySymbol[symbol] {
		if e.After(d) {
			next := e
			return &next
		}
	}
	return nil
}
