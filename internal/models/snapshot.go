package models

import (
	"math"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/pricing"
)

// OptionType is the NSE option type code.
type OptionType string

const (
	// Call option ("CE" in NSE settlement files)
	Call OptionType = "CE"
	// Put option ("PE" in NSE settlement files)
	Put OptionType = "PE"
)

// Valid returns true if the OptionType is one of the defined codes.
func (t OptionType) Valid() bool {
	switch t {
	case Call, Put:
		return true
	default:
		return false
	}
}

// IsCall reports whether the type is a call.
func (t OptionType) IsCall() bool { return t == Call }

// OptionQuote is one priced row of a day's option chain. Quotes are derived
// during the snapshot build and never mutated afterward.
type OptionQuote struct {
	Expiry     time.Time  `json:"expiry"`
	Strike     float64    `json:"strike"`
	Type       OptionType `json:"type"`
	Settle     float64    `json:"settle"`
	Open       float64    `json:"open"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Close      float64    `json:"close"`
	Volume     int        `json:"volume"`
	ImpliedVol float64    `json:"iv"`    // annualized, percent
	Delta      float64    `json:"delta"` // [0,1] calls, [-1,0] puts
}

// Tradeable reports whether the quote has a finite delta and a usable
// strike/settle pair. Entry and roll selection only consider tradeable quotes.
func (q *OptionQuote) Tradeable() bool {
	return q.Strike > 0 &&
		q.Settle >= 0 && !math.IsNaN(q.Settle) && !math.IsInf(q.Settle, 0) &&
		!math.IsNaN(q.Delta) && !math.IsInf(q.Delta, 0)
}

// SideMetrics carries the per-side (CE or PE) detail block computed at the
// anchor strike: IV across the three monthly expiries, the 30d contract's
// OHLC, and its Greeks. IVPercentile/IVRank are filled by a second ETL pass
// over the symbol's day sequence.
type SideMetrics struct {
	IV30         float64        `json:"iv_30"`
	IV60         float64        `json:"iv_60"`
	IV90         float64        `json:"iv_90"`
	Volume       int            `json:"volume"`
	LastPrice30D float64        `json:"last_price_30d"`
	Open         float64        `json:"open"`
	High         float64        `json:"high"`
	Low          float64        `json:"low"`
	Close        float64        `json:"close"`
	IVPercentile *float64       `json:"ivp"`
	IVRank       *float64       `json:"ivr"`
	Greeks       pricing.Greeks `json:"greeks"`
}

// MarketSnapshot is the full per-symbol, per-day market record. Immutable
// once written for a given (symbol, date); rebuilt wholesale if source data
// is reprocessed.
type MarketSnapshot struct {
	Symbol          string        `json:"symbol"`
	Date            time.Time     `json:"date"`
	UnderlyingPrice float64       `json:"underlying_price"`
	InterestRate    *float64      `json:"interest_rate"` // annualized, percent
	Expiry30D       *time.Time    `json:"expiry_30d"`
	Expiry60D       *time.Time    `json:"expiry_60d"`
	Expiry90D       *time.Time    `json:"expiry_90d"`
	UpcomingEarning *time.Time    `json:"upcoming_earning_date"`
	StrikePrice     *float64      `json:"strike_price"` // anchor strike
	RealizedVol     *float64      `json:"rv_yz"`        // annualized, percent
	Call            *SideMetrics  `json:"ce"`
	Put             *SideMetrics  `json:"pe"`
	OptionChain     []OptionQuote `json:"option_chain"`
}

// FindNearDelta returns the tradeable quote of the given type and expiry
// whose delta is closest to target, or nil if none qualifies.
func (s *MarketSnapshot) FindNearDelta(expiry time.Time, target float64, typ OptionType) *OptionQuote {
	var best *OptionQuote
	bestDiff := math.MaxFloat64
	for i := range s.OptionChain {
		q := &s.OptionChain[i]
		if q.Type != typ || !q.Expiry.Equal(expiry) || !q.Tradeable() {
			continue
		}
		if diff := math.Abs(q.Delta - target); diff < bestDiff {
			bestDiff = diff
			best = q
		}
	}
	return best
}

// FindQuote returns the tradeable quote matching (expiry, strike, type)
// exactly, or nil when the contract is absent from the day's chain.
func (s *MarketSnapshot) FindQuote(expiry time.Time, strike float64, typ OptionType) *OptionQuote {
	for i := range s.OptionChain {
		q := &s.OptionChain[i]
		if q.Type == typ && q.Strike == strike && q.Expiry.Equal(expiry) && q.Tradeable() {
			return q
		}
	}
	return nil
}

// FindNearSettle returns the tradeable quote of the given type and expiry
// whose settle price is closest to target. Equally close settles break
// toward the lower strike.
func (s *MarketSnapshot) FindNearSettle(expiry time.Time, target float64, typ OptionType) *OptionQuote {
	var best *OptionQuote
	bestDiff := math.MaxFloat64
	for i := range s.OptionChain {
		q := &s.OptionChain[i]
		if q.Type != typ || !q.Expiry.Equal(expiry) || !q.Tradeable() {
			continue
		}
		diff := math.Abs(q.Settle - target)
		switch {
		case diff < bestDiff:
			bestDiff = diff
			best = q
		case diff == bestDiff && best != nil && q.Strike < best.Strike:
			best = q
		}
	}
	return best
}
