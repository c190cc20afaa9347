// Package chain builds priced option-chain snapshots and selects the anchor
// strike shared by the three nearest monthly expiries.
package chain

import (
	"math"
	"sort"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

// Selection is the outcome of anchor-strike selection: the chosen strike and
// the six (expiry x type) rows backing it, ordered 30d/60d/90d.
type Selection struct {
	Strike   float64
	Expiries [3]time.Time
	Calls    [3]models.OptionQuote
	Puts     [3]models.OptionQuote
}

// SelectAnchorStrike picks the strike closest to spot that trades, with both
// calls and puts, in the three nearest monthly contracts.
//
// Contracts are bucketed by calendar month of expiry and each month is
// represented by its latest expiry, which drops weekly and mid-month series.
// Selection fails when fewer than three monthly expiries exist, when no
// strike is common to all three buckets, or when any of the six required
// rows is missing. Strikes equally close to spot break toward the lower one.
func SelectAnchorStrike(spot float64, quotes []models.OptionQuote) (*Selection, bool) {
	if spot <= 0 || math.IsNaN(spot) || math.IsInf(spot, 0) || len(quotes) == 0 {
		return nil, false
	}

	// latest expiry per calendar month
	monthly := make(map[string]time.Time)
	for _, q := range quotes {
		if q.Expiry.IsZero() {
			continue
		}
		key := q.Expiry.Format("2006-01")
		if cur, ok := monthly[key]; !ok || q.Expiry.After(cur) {
			monthly[key] = q.Expiry
		}
	}
	if len(monthly) < 3 {
		return nil, false
	}

	expiries := make([]time.Time, 0, len(monthly))
	for _, e := range monthly {
		expiries = append(expiries, e)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	var buckets [3]time.Time
	copy(buckets[:], expiries[:3])

	// rows per bucket, keyed by strike and type
	type legKey struct {
		strike float64
		call   bool
	}
	var rows [3]map[legKey]models.OptionQuote
	for i := range rows {
		rows[i] = make(map[legKey]models.OptionQuote)
	}
	for _, q := range quotes {
		if !q.Type.Valid() || q.Strike <= 0 {
			continue
		}
		for i, exp := range buckets {
			if q.Expiry.Equal(exp) {
				rows[i][legKey{q.Strike, q.Type.IsCall()}] = q
			}
		}
	}

	// strikes present with both types in all three buckets
	var common []float64
	for k := range rows[0] {
		if !k.call {
			continue
		}
		strike := k.strike
		ok := true
		for i := 0; i < 3 && ok; i++ {
			_, hasCE := rows[i][legKey{strike, true}]
			_, hasPE := rows[i][legKey{strike, false}]
			ok = hasCE && hasPE
		}
		if ok {
			common = append(common, strike)
		}
	}
	if len(common) == 0 {
		return nil, false
	}

	// ascending order makes the equal-distance tie-break deterministic:
	// the lower strike wins
	sort.Float64s(common)
	chosen := common[0]
	bestDist := math.Abs(chosen - spot)
	for _, s := range common[1:] {
		if d := math.Abs(s - spot); d < bestDist {
			bestDist = d
			chosen = s
		}
	}

	sel := &Selection{Strike: chosen, Expiries: buckets}
	for i := 0; i < 3; i++ {
		sel.Calls[i] = rows[i][legKey{chosen, true}]
		sel.Puts[i] = rows[i][legKey{chosen, false}]
	}
	return sel, true
}
