package backtest

import (
	"fmt"
	"math"

	"github.com/eddiefleurent/nse_strangler/internal/models"
	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// hedgeThreshold is the minimum portfolio-delta drift, in delta units, that
// triggers a rebalance of the synthetic underlying position.
const hedgeThreshold = 0.001

// runDeltaHedge is the alternative mode: the strangle legs stay fixed and a
// synthetic underlying position neutralizes portfolio delta on the weekly
// adjustment dates. Hedge mark-to-market lands in AdjustmentPnL so both
// modes report through the same result columns.
func (e *Engine) runDeltaHedge(ent *monthEntry) (*models.BacktestResult, error) {
	res, machine := ent.res, ent.machine
	symbol := res.Symbol

	exitDate, ok := e.findExitDate(symbol, ent.expiry)
	if !ok || !exitDate.After(ent.entry) {
		return res, e.skip(res, machine, "data_gap", "No Valid Exit Date")
	}
	res.ExitDate = models.Date(exitDate)

	callStrike := *res.CallEntryStrike
	putStrike := *res.PutEntryStrike

	var hedgePos, hedgePnL float64
	lastPrice := ent.snap.UnderlyingPrice

	for _, hedgeDate := range e.rollDates(symbol, ent.entry, exitDate) {
		if !hedgeDate.Before(exitDate) {
			continue
		}
		if err := machine.Transition(models.StateRolling, "roll_due"); err != nil {
			return res, fmt.Errorf("month machine: %w", err)
		}

		hsnap, ok := e.store.GetSnapshot(symbol, hedgeDate)
		var callQ, putQ *models.OptionQuote
		if ok && hsnap.UnderlyingPrice > 0 {
			callQ = hsnap.FindQuote(ent.expiry, callStrike, models.Call)
			putQ = hsnap.FindQuote(ent.expiry, putStrike, models.Put)
		}
		if callQ == nil || putQ == nil {
			res.AdjustmentPnL = models.Float(hedgePnL)
			reason := fmt.Sprintf("Failed hedge adjustment on %s", hedgeDate.Format(util.DayLayout))
			return res, e.skip(res, machine, "roll_failed", reason)
		}

		hedgePnL += hedgePos * (hsnap.UnderlyingPrice - lastPrice)
		lastPrice = hsnap.UnderlyingPrice

		// short one call and one put, so the book's delta is the negated sum
		target := -(callQ.Delta + putQ.Delta)
		if math.Abs(target-hedgePos) > hedgeThreshold {
			e.logger.Printf("%s hedge %s: delta %.4f -> %.4f at %.2f",
				symbol, hedgeDate.Format(util.DayLayout), hedgePos, target, lastPrice)
			hedgePos = target
		}

		if err := machine.Transition(models.StateEntered, "leg_replaced"); err != nil {
			return res, fmt.Errorf("month machine: %w", err)
		}
	}

	esnap, ok := e.store.GetSnapshot(symbol, exitDate)
	if !ok || len(esnap.OptionChain) == 0 {
		res.AdjustmentPnL = models.Float(hedgePnL)
		return res, e.skip(res, machine, "data_gap", "Missing Exit Data")
	}

	// liquidate the hedge at the exit spot
	if esnap.UnderlyingPrice > 0 {
		hedgePnL += hedgePos * (esnap.UnderlyingPrice - lastPrice)
	}
	res.AdjustmentPnL = models.Float(hedgePnL)

	callExit := esnap.FindQuote(ent.expiry, callStrike, models.Call)
	putExit := esnap.FindQuote(ent.expiry, putStrike, models.Put)
	if callExit == nil || putExit == nil {
		return res, e.skip(res, machine, "data_gap", "Missing Exit Price")
	}

	res.CallExitPrice = models.Float(callExit.Settle)
	res.PutExitPrice = models.Float(putExit.Settle)
	res.ExitCost = models.Float(callExit.Settle + putExit.Settle)
	res.PnLPoints = models.Float(*res.EntryCredit - *res.ExitCost + hedgePnL)

	if err := machine.Transition(models.StateSettled, "exit_filled"); err != nil {
		return res, fmt.Errorf("month machine: %w", err)
	}

	e.logger.Printf("%s %d-%02d settled (hedged): exit cost %.2f, hedge %.2f, pnl %.2f points",
		symbol, res.Year, res.Month, *res.ExitCost, hedgePnL, *res.PnLPoints)

	return res, e.sink.UpsertResult(res)
}
