package etl

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// SpotSeries holds per-symbol daily underlying closes.
type SpotSeries struct {
	bySymbol map[string]map[time.Time]float64
}

// LoadSpotSeries reads a spot-price JSON file shaped as
// {"HDFCBANK": {"2025-04-13": 1534.5, ...}, ...}. Non-finite and
// non-positive prices are dropped on load so downstream days simply have no
// spot and get skipped.
func LoadSpotSeries(path string) (*SpotSeries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spot file: %w", err)
	}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing spot file: %w", err)
	}

	s := &SpotSeries{bySymbol: make(map[string]map[time.Time]float64, len(raw))}
	for symbol, days := range raw {
		m := make(map[time.Time]float64, len(days))
		for key, price := range days {
			d, err := time.Parse(util.DayLayout, key)
			if err != nil {
				return nil, fmt.Errorf("bad spot date %q for %s: %w", key, symbol, err)
			}
			if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
				continue
			}
			m[util.Day(d)] = price
		}
		s.bySymbol[symbol] = m
	}
	return s, nil
}

// Spot returns the close for symbol on date.
func (s *SpotSeries) Spot(symbol string, date time.Time) (float64, bool) {
	if s == nil {
		return 0, false
	}
	price, ok := s.bySymbol[symbol][util.Day(date)]
	return price, ok
}
