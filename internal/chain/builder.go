package chain

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
	"github.com/eddiefleurent/nse_strangler/internal/pricing"
	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// Row is one raw option record from a settlement file, before pricing.
type Row struct {
	Expiry time.Time
	Strike float64
	Type   models.OptionType
	Settle float64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int
}

// DayInput is everything the builder needs for one symbol/day.
type DayInput struct {
	Symbol      string
	Date        time.Time
	Spot        float64
	RatePct     *float64 // annualized percent, nil when no rate series
	Expiries    []time.Time
	Rows        []Row
	Earnings    *time.Time
	RealizedVol *float64 // annualized percent
}

// Builder prices a day's raw option rows into a MarketSnapshot: per-quote
// implied vol and delta, the anchor strike, and the per-side detail blocks.
type Builder struct {
	solver *pricing.Solver
	logger *log.Logger
}

// NewBuilder creates a Builder with the given IV solver. A nil solver uses
// the defaults.
func NewBuilder(solver *pricing.Solver, logger *log.Logger) *Builder {
	if solver == nil {
		solver = pricing.NewSolver()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{solver: solver, logger: logger}
}

// Build produces the snapshot for one symbol/day. Malformed rows are dropped
// with a log line, never fatal. A day whose chain yields no anchor strike
// still produces a snapshot; the anchor and side blocks stay nil.
func (b *Builder) Build(in DayInput) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{
		Symbol:          in.Symbol,
		Date:            util.Day(in.Date),
		UnderlyingPrice: in.Spot,
		InterestRate:    in.RatePct,
		UpcomingEarning: in.Earnings,
		RealizedVol:     in.RealizedVol,
	}

	expiries := append([]time.Time(nil), in.Expiries...)
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	if len(expiries) > 0 {
		snap.Expiry30D = models.Date(expiries[0])
	}
	if len(expiries) > 1 {
		snap.Expiry60D = models.Date(expiries[1])
	}
	if len(expiries) > 2 {
		snap.Expiry90D = models.Date(expiries[2])
	}

	rate := 0.0
	if in.RatePct != nil {
		rate = *in.RatePct / 100.0
	}

	dropped := 0
	snap.OptionChain = make([]models.OptionQuote, 0, len(in.Rows))
	for _, row := range in.Rows {
		q, ok := b.priceRow(in.Date, in.Spot, rate, row)
		if !ok {
			dropped++
			continue
		}
		snap.OptionChain = append(snap.OptionChain, q)
	}
	if dropped > 0 {
		b.logger.Printf("%s %s: dropped %d malformed chain rows",
			in.Symbol, snap.Date.Format(util.DayLayout), dropped)
	}

	sel, ok := SelectAnchorStrike(in.Spot, snap.OptionChain)
	if !ok {
		return snap
	}
	snap.StrikePrice = models.Float(sel.Strike)
	snap.Call = b.sideMetrics(in, rate, sel, true)
	snap.Put = b.sideMetrics(in, rate, sel, false)
	return snap
}

// priceRow computes IV and delta for one raw row.
func (b *Builder) priceRow(date time.Time, spot, rate float64, row Row) (models.OptionQuote, bool) {
	if !row.Type.Valid() || row.Strike <= 0 || row.Expiry.IsZero() ||
		row.Settle < 0 || math.IsNaN(row.Settle) || math.IsInf(row.Settle, 0) {
		return models.OptionQuote{}, false
	}

	t := util.YearsBetween(util.Day(date), row.Expiry)
	call := row.Type.IsCall()
	iv := b.solver.ImpliedVol(row.Settle, spot, row.Strike, t, rate, 0, call)

	delta := 0.0
	if t > 0 && iv > 0 {
		delta = pricing.ComputeGreeks(spot, row.Strike, t, rate, iv, 0, call).Delta
	}

	return models.OptionQuote{
		Expiry:     row.Expiry,
		Strike:     row.Strike,
		Type:       row.Type,
		Settle:     row.Settle,
		Open:       row.Open,
		High:       row.High,
		Low:        row.Low,
		Close:      row.Close,
		Volume:     row.Volume,
		ImpliedVol: iv * 100.0,
		Delta:      delta,
	}, true
}

// sideMetrics fills the CE or PE detail block at the anchor strike.
func (b *Builder) sideMetrics(in DayInput, rate float64, sel *Selection, call bool) *models.SideMetrics {
	legs := sel.Puts
	typ := models.Put
	if call {
		legs = sel.Calls
		typ = models.Call
	}

	ivAt := func(i int) float64 {
		t := util.YearsBetween(util.Day(in.Date), sel.Expiries[i])
		return b.solver.ImpliedVol(legs[i].Settle, in.Spot, sel.Strike, t, rate, 0, call) * 100.0
	}

	iv30 := ivAt(0)
	t30 := util.YearsBetween(util.Day(in.Date), sel.Expiries[0])

	var greeks pricing.Greeks
	if iv30 > 0 && t30 > 0 {
		greeks = pricing.ComputeGreeks(in.Spot, sel.Strike, t30, rate, iv30/100.0, 0, call)
	}

	volume := 0
	for _, row := range in.Rows {
		if row.Type == typ {
			volume += row.Volume
		}
	}

	return &models.SideMetrics{
		IV30:         iv30,
		IV60:         ivAt(1),
		IV90:         ivAt(2),
		Volume:       volume,
		LastPrice30D: legs[0].Settle,
		Open:         legs[0].Open,
		High:         legs[0].High,
		Low:          legs[0].Low,
		Close:        legs[0].Close,
		Greeks:       greeks,
	}
}
