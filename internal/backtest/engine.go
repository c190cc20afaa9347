// Package backtest simulates the short-strangle strategy month by month over
// stored market snapshots.
package backtest

import (
	"fmt"
	"log"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
	"github.com/eddiefleurent/nse_strangler/internal/storage"
	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// Mode selects the weekly adjustment style.
type Mode string

const (
	// ModeLegRoll replaces the cheaper leg at a price-matched strike.
	ModeLegRoll Mode = "leg_roll"
	// ModeDeltaHedge re-hedges portfolio delta with a synthetic underlying
	// position and leaves the legs in place.
	ModeDeltaHedge Mode = "delta_hedge"
)

// Valid returns true for a known mode.
func (m Mode) Valid() bool { return m == ModeLegRoll || m == ModeDeltaHedge }

// Config tunes the engine.
type Config struct {
	TargetDelta  float64  // entry leg selection, e.g. 0.20
	ExitScanDays int      // backward scan budget from expiry
	IndexSymbols []string // exit on Tuesday instead of Wednesday
	Mode         Mode
}

// DefaultConfig matches the 20-delta monthly strangle template.
var DefaultConfig = Config{
	TargetDelta:  0.20,
	ExitScanDays: 14,
	Mode:         ModeLegRoll,
}

// Engine runs symbol-month simulations against a snapshot store and emits
// exactly one result row per attempted month. Data gaps become skip reasons;
// only sink faults surface as errors.
type Engine struct {
	store    storage.MarketDataStore
	sink     storage.ResultSink
	cfg      Config
	logger   *log.Logger
	indexSet map[string]struct{}
	runID    string
}

// New creates an engine. Zero-valued config fields fall back to defaults.
func New(store storage.MarketDataStore, sink storage.ResultSink, cfg Config, logger *log.Logger) *Engine {
	if cfg.TargetDelta <= 0 {
		cfg.TargetDelta = DefaultConfig.TargetDelta
	}
	if cfg.ExitScanDays <= 0 {
		cfg.ExitScanDays = DefaultConfig.ExitScanDays
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = ModeLegRoll
	}
	if logger == nil {
		logger = log.Default()
	}
	idx := make(map[string]struct{}, len(cfg.IndexSymbols))
	for _, s := range cfg.IndexSymbols {
		idx[s] = struct{}{}
	}
	return &Engine{store: store, sink: sink, cfg: cfg, logger: logger, indexSet: idx}
}

// SetRunID tags emitted result rows with a run identifier.
func (e *Engine) SetRunID(id string) { e.runID = id }

// monthEntry carries the state shared by both adjustment modes after the
// entry gates have passed.
type monthEntry struct {
	res     *models.BacktestResult
	machine *models.MonthMachine
	entry   time.Time
	expiry  time.Time
	snap    *models.MarketSnapshot
}

// RunMonth simulates one symbol-month and upserts its result row. The
// returned error is non-nil only for sink faults.
func (e *Engine) RunMonth(symbol string, year int, month time.Month) (*models.BacktestResult, error) {
	res := &models.BacktestResult{Symbol: symbol, Year: year, Month: int(month), RunID: e.runID}
	machine := models.NewMonthMachine()

	ent, skipped, err := e.enter(res, machine, symbol, year, month)
	if err != nil || skipped {
		return res, err
	}

	if e.cfg.Mode == ModeDeltaHedge {
		return e.runDeltaHedge(ent)
	}
	return e.runLegRoll(ent)
}

// enter walks the shared entry gates: trading days, entry snapshot,
// earnings window, and 20-delta leg selection. On a gate failure the skip
// row is emitted and skipped=true is returned.
func (e *Engine) enter(res *models.BacktestResult, machine *models.MonthMachine,
	symbol string, year int, month time.Month) (*monthEntry, bool, error) {

	first, last := util.MonthBounds(year, month)
	days := e.store.GetTradingDays(symbol, first, last)
	if len(days) == 0 {
		return nil, true, e.skip(res, machine, "entry_gate", "Missing Entry Data")
	}

	entry := days[0]
	res.EntryDate = models.Date(entry)

	snap, ok := e.store.GetSnapshot(symbol, entry)
	if !ok || snap.UnderlyingPrice <= 0 || snap.Expiry30D == nil || len(snap.OptionChain) == 0 {
		return nil, true, e.skip(res, machine, "entry_gate", "Missing Entry Data")
	}
	expiry := *snap.Expiry30D

	// no short-vol positions held through an earnings event
	if earn := snap.UpcomingEarning; earn != nil && !earn.Before(entry) && !earn.After(expiry) {
		reason := fmt.Sprintf("Earnings on %s", earn.Format(util.DayLayout))
		return nil, true, e.skip(res, machine, "entry_gate", reason)
	}

	call := snap.FindNearDelta(expiry, e.cfg.TargetDelta, models.Call)
	put := snap.FindNearDelta(expiry, -e.cfg.TargetDelta, models.Put)
	if call == nil || put == nil {
		return nil, true, e.skip(res, machine, "entry_gate", "No Suitable Options")
	}

	res.CallEntryStrike = models.Float(call.Strike)
	res.PutEntryStrike = models.Float(put.Strike)
	res.CallEntryDelta = models.Float(call.Delta)
	res.PutEntryDelta = models.Float(put.Delta)
	res.CallEntryPrice = models.Float(call.Settle)
	res.PutEntryPrice = models.Float(put.Settle)
	res.EntryCredit = models.Float(call.Settle + put.Settle)

	if err := machine.Transition(models.StateEntered, "legs_sold"); err != nil {
		return nil, true, fmt.Errorf("month machine: %w", err)
	}

	e.logger.Printf("%s %d-%02d entry %s: sell CE %.0f @ %.2f, sell PE %.0f @ %.2f (credit %.2f)",
		symbol, year, month, entry.Format(util.DayLayout),
		call.Strike, call.Settle, put.Strike, put.Settle, *res.EntryCredit)

	return &monthEntry{res: res, machine: machine, entry: entry, expiry: expiry, snap: snap}, false, nil
}

// runLegRoll is the primary mode: weekly replacement of the cheaper leg at
// a price-matched strike, then settlement at the exit date.
func (e *Engine) runLegRoll(ent *monthEntry) (*models.BacktestResult, error) {
	res, machine := ent.res, ent.machine
	symbol := res.Symbol

	exitDate, ok := e.findExitDate(symbol, ent.expiry)
	if !ok || !exitDate.After(ent.entry) {
		return res, e.skip(res, machine, "data_gap", "No Valid Exit Date")
	}
	res.ExitDate = models.Date(exitDate)

	state := &models.StrangleState{
		CallStrike:    *res.CallEntryStrike,
		PutStrike:     *res.PutEntryStrike,
		CallSoldPrice: *res.CallEntryPrice,
		PutSoldPrice:  *res.PutEntryPrice,
	}

	for _, rollDate := range e.rollDates(symbol, ent.entry, exitDate) {
		if !rollDate.Before(exitDate) {
			continue
		}
		rsnap, ok := e.store.GetSnapshot(symbol, rollDate)
		if !ok || len(rsnap.OptionChain) == 0 {
			e.logger.Printf("%s: no snapshot on roll date %s, skipping roll",
				symbol, rollDate.Format(util.DayLayout))
			continue
		}
		if err := machine.Transition(models.StateRolling, "roll_due"); err != nil {
			return res, fmt.Errorf("month machine: %w", err)
		}
		if !e.rollOnce(state, rsnap, ent.expiry, rollDate) {
			res.AdjustmentPnL = models.Float(state.AdjustmentPnL)
			reason := fmt.Sprintf("Failed hedge adjustment on %s", rollDate.Format(util.DayLayout))
			return res, e.skip(res, machine, "roll_failed", reason)
		}
		if err := machine.Transition(models.StateEntered, "leg_replaced"); err != nil {
			return res, fmt.Errorf("month machine: %w", err)
		}
	}
	res.AdjustmentPnL = models.Float(state.AdjustmentPnL)

	esnap, ok := e.store.GetSnapshot(symbol, exitDate)
	if !ok || len(esnap.OptionChain) == 0 {
		return res, e.skip(res, machine, "data_gap", "Missing Exit Data")
	}
	callExit := esnap.FindQuote(ent.expiry, state.CallStrike, models.Call)
	putExit := esnap.FindQuote(ent.expiry, state.PutStrike, models.Put)
	if callExit == nil || putExit == nil {
		return res, e.skip(res, machine, "data_gap", "Missing Exit Price")
	}

	res.CallExitPrice = models.Float(callExit.Settle)
	res.PutExitPrice = models.Float(putExit.Settle)
	res.ExitCost = models.Float(callExit.Settle + putExit.Settle)
	res.PnLPoints = models.Float(*res.EntryCredit - *res.ExitCost + state.AdjustmentPnL)

	if err := machine.Transition(models.StateSettled, "exit_filled"); err != nil {
		return res, fmt.Errorf("month machine: %w", err)
	}

	e.logger.Printf("%s %d-%02d settled: exit cost %.2f, adj %.2f, pnl %.2f points (%d rolls)",
		symbol, res.Year, res.Month, *res.ExitCost, state.AdjustmentPnL, *res.PnLPoints, machine.RollCount())

	return res, e.sink.UpsertResult(res)
}

// rollOnce closes the cheaper leg, realizing its decay, and opens a
// replacement of the same type at the same expiry whose settle price is
// nearest the still-open leg's current settle. Returns false when either
// held leg has no quote or no replacement exists.
func (e *Engine) rollOnce(state *models.StrangleState, snap *models.MarketSnapshot,
	expiry, rollDate time.Time) bool {

	callQ := snap.FindQuote(expiry, state.CallStrike, models.Call)
	putQ := snap.FindQuote(expiry, state.PutStrike, models.Put)
	if callQ == nil || putQ == nil {
		return false
	}

	if callQ.Settle <= putQ.Settle {
		repl := snap.FindNearSettle(expiry, putQ.Settle, models.Call)
		if repl == nil {
			return false
		}
		state.AdjustmentPnL += state.CallSoldPrice - callQ.Settle
		e.logger.Printf("%s roll %s: close CE %.0f @ %.2f (sold %.2f), open CE %.0f @ %.2f",
			snap.Symbol, rollDate.Format(util.DayLayout),
			state.CallStrike, callQ.Settle, state.CallSoldPrice, repl.Strike, repl.Settle)
		state.CallStrike = repl.Strike
		state.CallSoldPrice = repl.Settle
	} else {
		repl := snap.FindNearSettle(expiry, callQ.Settle, models.Put)
		if repl == nil {
			return false
		}
		state.AdjustmentPnL += state.PutSoldPrice - putQ.Settle
		e.logger.Printf("%s roll %s: close PE %.0f @ %.2f (sold %.2f), open PE %.0f @ %.2f",
			snap.Symbol, rollDate.Format(util.DayLayout),
			state.PutStrike, putQ.Settle, state.PutSoldPrice, repl.Strike, repl.Settle)
		state.PutStrike = repl.Strike
		state.PutSoldPrice = repl.Settle
	}
	return true
}

// findExitDate scans backward from the expiry, up to ExitScanDays, for a
// trading day that lands on the target weekday (Tuesday for index symbols,
// Wednesday otherwise) or earlier in the trading week than it.
func (e *Engine) findExitDate(symbol string, expiry time.Time) (time.Time, bool) {
	target := util.MondayIndex(time.Wednesday)
	if _, isIndex := e.indexSet[symbol]; isIndex {
		target = util.MondayIndex(time.Tuesday)
	}

	from := expiry.AddDate(0, 0, -e.cfg.ExitScanDays)
	trading := make(map[time.Time]bool)
	for _, d := range e.store.GetTradingDays(symbol, from, expiry.AddDate(0, 0, -1)) {
		trading[d] = true
	}

	d := util.Day(expiry).AddDate(0, 0, -1)
	for i := 0; i < e.cfg.ExitScanDays; i++ {
		if trading[d] && util.MondayIndex(d.Weekday()) <= target {
			return d, true
		}
		d = d.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}

// rollDates maps every Friday strictly after entry and on/before exit to the
// latest trading day on or before it, excluding the entry day itself and
// de-duplicating holiday weeks.
func (e *Engine) rollDates(symbol string, entry, exit time.Time) []time.Time {
	trading := make(map[time.Time]bool)
	for _, d := range e.store.GetTradingDays(symbol, entry, exit) {
		trading[d] = true
	}

	var dates []time.Time
	for friday := util.NextWeekday(entry, time.Friday); !friday.After(exit); friday = friday.AddDate(0, 0, 7) {
		for d := friday; !d.Before(entry); d = d.AddDate(0, 0, -1) {
			if !trading[d] {
				continue
			}
			if d.After(entry) && (len(dates) == 0 || !d.Equal(dates[len(dates)-1])) {
				dates = append(dates, d)
			}
			break
		}
	}
	return dates
}

// skip finalizes a month with a skip reason. Every skip path still emits a
// result row; only the sink error propagates.
func (e *Engine) skip(res *models.BacktestResult, machine *models.MonthMachine,
	condition, reason string) error {

	res.SkippedReason = reason
	if err := machine.Transition(models.StateSkipped, condition); err != nil {
		e.logger.Printf("%s %d-%02d: %v", res.Symbol, res.Year, res.Month, err)
	}
	e.logger.Printf("%s %d-%02d skipped: %s", res.Symbol, res.Year, res.Month, reason)
	return e.sink.UpsertResult(res)
}
