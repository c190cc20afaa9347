package etl

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/nse_strangler/internal/chain"
	"github.com/eddiefleurent/nse_strangler/internal/models"
	"github.com/eddiefleurent/nse_strangler/internal/storage"
	"github.com/eddiefleurent/nse_strangler/internal/util"
	"github.com/eddiefleurent/nse_strangler/internal/volatility"
)

// Config tunes the snapshot-building pass.
type Config struct {
	Window        int // realized-vol window, bars
	MaxLookback   int // realized-vol lookback budget, business days
	IVStatsWindow int // observations for IV percentile/rank
	FlushEvery    int // batch writer threshold
	Workers       int // parallel symbol workers
}

// DefaultConfig mirrors the historical data pipeline's settings.
var DefaultConfig = Config{
	Window:        30,
	MaxLookback:   90,
	IVStatsWindow: 30,
	FlushEvery:    500,
	Workers:       4,
}

// Processor turns raw source files into per-day MarketSnapshots. Symbols are
// processed by independent workers; each worker owns its day sequence and
// its own batch writer over the shared sink.
type Processor struct {
	sink      storage.SnapshotSink
	rates     *RateSeries
	spots     *SpotSeries
	earnings  *EarningsCalendar
	builder   *chain.Builder
	estimator *volatility.Estimator
	logger    *log.Logger
	cfg       Config
}

// NewProcessor creates a processor. rates and earnings may be nil; the
// corresponding snapshot fields then stay empty. spots is required since a
// day without a spot price is never materialized.
func NewProcessor(sink storage.SnapshotSink, rates *RateSeries, spots *SpotSeries,
	earnings *EarningsCalendar, logger *log.Logger, cfg Config) *Processor {

	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig.Window
	}
	if cfg.MaxLookback <= 0 {
		cfg.MaxLookback = DefaultConfig.MaxLookback
	}
	if cfg.IVStatsWindow <= 0 {
		cfg.IVStatsWindow = DefaultConfig.IVStatsWindow
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = DefaultConfig.FlushEvery
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		sink:      sink,
		rates:     rates,
		spots:     spots,
		earnings:  earnings,
		builder:   chain.NewBuilder(nil, logger),
		estimator: volatility.NewEstimator(cfg.Window, cfg.MaxLookback, 0),
		logger:    logger,
		cfg:       cfg,
	}
}

// futBar is the OHLC of one futures contract on one day.
type futBar struct {
	open, high, low, close float64
}

// dayBook accumulates one symbol's raw rows for one trading day.
type dayBook struct {
	date time.Time
	futs map[time.Time]futBar // by expiry
	rows []chain.Row
}

// Run ingests every bhavcopy in dir and materializes snapshots for the given
// symbols. Source rows that fail to parse are logged and dropped; the run
// fails only on unreadable files or exhausted write retries.
func (p *Processor) Run(ctx context.Context, dir string, symbols []string) error {
	files, err := ListBhavcopies(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no bhavcopy files in %s", dir)
	}
	p.logger.Printf("ingesting %d bhavcopy files for %d symbols", len(files), len(symbols))

	books, err := p.collect(files, symbols)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return p.processSymbol(symbol, books[symbol])
		})
	}
	return g.Wait()
}

// collect reads every file once and groups rows by symbol and day.
func (p *Processor) collect(files []BhavcopyFile, symbols []string) (map[string]map[time.Time]*dayBook, error) {
	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[s] = struct{}{}
	}

	books := make(map[string]map[time.Time]*dayBook, len(symbols))
	for _, file := range files {
		rows, err := ReadBhavcopy(file.Path)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if _, ok := want[row.Symbol]; !ok {
				continue
			}
			expiry, err := row.Expiry()
			if err != nil {
				p.logger.Printf("%s: bad expiry %q in %s, row dropped",
					row.Symbol, row.ExpiryDate, file.Date.Format(util.DayLayout))
				continue
			}

			days, ok := books[row.Symbol]
			if !ok {
				days = make(map[time.Time]*dayBook)
				books[row.Symbol] = days
			}
			book, ok := days[file.Date]
			if !ok {
				book = &dayBook{date: file.Date, futs: make(map[time.Time]futBar)}
				days[file.Date] = book
			}

			switch {
			case row.IsFuture():
				book.futs[expiry] = futBar{row.Open, row.High, row.Low, row.Close}
			case row.IsOption():
				book.rows = append(book.rows, chain.Row{
					Expiry: expiry,
					Strike: row.StrikePrice,
					Type:   models.OptionType(row.OptionType),
					Settle: row.SettlePrice,
					Open:   row.Open,
					High:   row.High,
					Low:    row.Low,
					Close:  row.Close,
					Volume: row.Contracts,
				})
			}
		}
	}
	return books, nil
}

// processSymbol builds and writes the full day sequence for one symbol.
func (p *Processor) processSymbol(symbol string, days map[time.Time]*dayBook) error {
	if len(days) == 0 {
		p.logger.Printf("%s: no source rows, nothing to do", symbol)
		return nil
	}

	dates := make([]time.Time, 0, len(days))
	bars := make([]volatility.Bar, 0, len(days))
	for d, book := range days {
		dates = append(dates, d)
		if expiry, ok := nearestExpiry(book.futs); ok {
			f := book.futs[expiry]
			bars = append(bars, volatility.Bar{Date: d, Open: f.open, High: f.high, Low: f.low, Close: f.close})
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	rv := p.estimator.Series(bars)

	writer := storage.NewBatchWriter(p.sink, p.logger, p.cfg.FlushEvery)
	var snaps []*models.MarketSnapshot
	for _, d := range dates {
		book := days[d]
		spot, ok := p.spots.Spot(symbol, d)
		if !ok {
			p.logger.Printf("%s %s: no spot price, day skipped", symbol, d.Format(util.DayLayout))
			continue
		}

		var ratePct *float64
		if r, ok := p.rates.Rate(d); ok {
			ratePct = models.Float(r)
		}
		var rvPct *float64
		if v, ok := rv[d]; ok {
			rvPct = models.Float(v * 100.0)
		}

		snaps = append(snaps, p.builder.Build(chain.DayInput{
			Symbol:      symbol,
			Date:        d,
			Spot:        spot,
			RatePct:     ratePct,
			Expiries:    expiryList(book.futs),
			Rows:        book.rows,
			Earnings:    p.earnings.NextAfter(symbol, d),
			RealizedVol: rvPct,
		}))
	}

	p.applyIVStats(snaps)

	for _, snap := range snaps {
		if err := writer.Write(snap); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	p.logger.Printf("%s: %d snapshots written", symbol, len(snaps))
	return nil
}

// applyIVStats fills per-side IV percentile and rank over a rolling window of
// the symbol's anchor-strike 30d IV observations.
func (p *Processor) applyIVStats(snaps []*models.MarketSnapshot) {
	sides := []func(s *models.MarketSnapshot) *models.SideMetrics{
		func(s *models.MarketSnapshot) *models.SideMetrics { return s.Call },
		func(s *models.MarketSnapshot) *models.SideMetrics { return s.Put },
	}
	for _, sel := range sides {
		var obs []float64
		for _, snap := range snaps {
			side := sel(snap)
			if side == nil || side.IV30 <= 0 {
				continue
			}
			obs = append(obs, side.IV30)
			if len(obs) > p.cfg.IVStatsWindow {
				obs = obs[1:]
			}
			if len(obs) < p.cfg.IVStatsWindow {
				continue
			}

			below := 0
			for _, v := range obs {
				if v < side.IV30 {
					below++
				}
			}
			side.IVPercentile = models.Float(100.0 * float64(below) / float64(len(obs)))

			lo, errLo := stats.Min(obs)
			hi, errHi := stats.Max(obs)
			if errLo == nil && errHi == nil && hi > lo {
				side.IVRank = models.Float(100.0 * (side.IV30 - lo) / (hi - lo))
			}
		}
	}
}

func nearestExpiry(futs map[time.Time]futBar) (time.Time, bool) {
	var best time.Time
	for expiry := range futs {
		if best.IsZero() || expiry.Before(best) {
			best = expiry
		}
	}
	return best, !best.IsZero()
}

// expiryList returns up to the three nearest futures expiries, ascending.
// Futures list only monthly contracts, so these are the 30/60/90d anchors.
func expiryList(futs map[time.Time]futBar) []time.Time {
	out := make([]time.Time, 0, len(futs))
	for expiry := range futs {
		out = append(out, expiry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
