package chain

import (
	"testing"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// universe builds CE+PE rows for each strike at each expiry.
func universe(expiries []time.Time, strikes []float64) []models.OptionQuote {
	var out []models.OptionQuote
	for _, exp := range expiries {
		for _, k := range strikes {
			for _, typ := range []models.OptionType{models.Call, models.Put} {
				out = append(out, models.OptionQuote{
					Expiry: exp, Strike: k, Type: typ, Settle: 10,
				})
			}
		}
	}
	return out
}

func TestSelectAnchorStrike_NearestToSpot(t *testing.T) {
	expiries := []time.Time{day(2024, 4, 25), day(2024, 5, 30), day(2024, 6, 27)}
	quotes := universe(expiries, []float64{90, 100, 110, 120})

	sel, ok := SelectAnchorStrike(104, quotes)
	if !ok {
		t.Fatal("selection should succeed")
	}
	if sel.Strike != 100 {
		t.Errorf("expected strike 100 nearest to 104, got %v", sel.Strike)
	}
	if !sel.Expiries[0].Equal(expiries[0]) || !sel.Expiries[2].Equal(expiries[2]) {
		t.Errorf("expiries mislabeled: %v", sel.Expiries)
	}
}

func TestSelectAnchorStrike_TieBreaksLower(t *testing.T) {
	expiries := []time.Time{day(2024, 4, 25), day(2024, 5, 30), day(2024, 6, 27)}
	quotes := universe(expiries, []float64{100, 110})

	// 105 is equidistant from 100 and 110; the lower strike wins.
	sel, ok := SelectAnchorStrike(105, quotes)
	if !ok {
		t.Fatal("selection should succeed")
	}
	if sel.Strike != 100 {
		t.Errorf("equal distances must break toward the lower strike, got %v", sel.Strike)
	}
}

func TestSelectAnchorStrike_DropsWeeklyContracts(t *testing.T) {
	// Two April expiries: the 10th (weekly) and the 25th (monthly). Only
	// the monthly carries strike 100; the weekly-only strike 95 must not
	// be considered even though it is nearer to spot.
	monthlies := []time.Time{day(2024, 4, 25), day(2024, 5, 30), day(2024, 6, 27)}
	quotes := universe(monthlies, []float64{100})
	quotes = append(quotes, universe([]time.Time{day(2024, 4, 10)}, []float64{95})...)

	sel, ok := SelectAnchorStrike(96, quotes)
	if !ok {
		t.Fatal("selection should succeed")
	}
	if sel.Strike != 100 {
		t.Errorf("weekly expiry should be discarded; got strike %v", sel.Strike)
	}
}

func TestSelectAnchorStrike_RequiresThreeMonths(t *testing.T) {
	expiries := []time.Time{day(2024, 4, 25), day(2024, 5, 30)}
	if _, ok := SelectAnchorStrike(100, universe(expiries, []float64{100})); ok {
		t.Error("two monthly expiries must fail selection")
	}
}

func TestSelectAnchorStrike_RequiresBothTypesEverywhere(t *testing.T) {
	expiries := []time.Time{day(2024, 4, 25), day(2024, 5, 30), day(2024, 6, 27)}
	quotes := universe(expiries, []float64{100})

	// Remove the 90d put: the strike loses its only common candidate.
	filtered := quotes[:0]
	for _, q := range quotes {
		if q.Type == models.Put && q.Expiry.Equal(expiries[2]) {
			continue
		}
		filtered = append(filtered, q)
	}
	if _, ok := SelectAnchorStrike(100, filtered); ok {
		t.Error("a missing (expiry x type) row must fail selection")
	}
}

func TestSelectAnchorStrike_NoCommonStrike(t *testing.T) {
	quotes := universe([]time.Time{day(2024, 4, 25)}, []float64{100})
	quotes = append(quotes, universe([]time.Time{day(2024, 5, 30)}, []float64{110})...)
	quotes = append(quotes, universe([]time.Time{day(2024, 6, 27)}, []float64{120})...)

	if _, ok := SelectAnchorStrike(105, quotes); ok {
		t.Error("disjoint strike sets must fail selection")
	}
}
