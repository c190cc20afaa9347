package models

import (
	"fmt"
	"math"
	"time"
)

// BacktestResult is the one row emitted per attempted (symbol, year, month).
// SkippedReason is empty iff a full PnL was computed; partial fields filled
// before a skip gate fired are retained.
type BacktestResult struct {
	Symbol string `json:"symbol"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`

	EntryDate *time.Time `json:"entry_date,omitempty"`
	ExitDate  *time.Time `json:"exit_date,omitempty"`

	EntryCredit   *float64 `json:"entry_credit,omitempty"`
	ExitCost      *float64 `json:"exit_cost,omitempty"`
	PnLPoints     *float64 `json:"pnl_points,omitempty"`
	AdjustmentPnL *float64 `json:"adjustment_pnl,omitempty"`

	CallEntryStrike *float64 `json:"call_entry_strike,omitempty"`
	PutEntryStrike  *float64 `json:"put_entry_strike,omitempty"`
	CallEntryDelta  *float64 `json:"call_entry_delta,omitempty"`
	PutEntryDelta   *float64 `json:"put_entry_delta,omitempty"`
	CallEntryPrice  *float64 `json:"call_entry_price,omitempty"`
	PutEntryPrice   *float64 `json:"put_entry_price,omitempty"`
	CallExitPrice   *float64 `json:"call_exit_price,omitempty"`
	PutExitPrice    *float64 `json:"put_exit_price,omitempty"`

	SkippedReason string `json:"skipped_reason,omitempty"`
	RunID         string `json:"run_id,omitempty"`
}

// Key returns the natural upsert key, e.g. "HDFCBANK-2023-04".
func (r *BacktestResult) Key() string {
	return fmt.Sprintf("%s-%04d-%02d", r.Symbol, r.Year, r.Month)
}

// Traded reports whether the month produced a full PnL.
func (r *BacktestResult) Traded() bool {
	return r.SkippedReason == "" && r.PnLPoints != nil
}

// Sanitize replaces non-finite numeric fields with nil so JSON encoding
// never fails on a stray NaN from upstream arithmetic.
func (r *BacktestResult) Sanitize() {
	for _, f := range []**float64{
		&r.EntryCredit, &r.ExitCost, &r.PnLPoints, &r.AdjustmentPnL,
		&r.CallEntryStrike, &r.PutEntryStrike, &r.CallEntryDelta, &r.PutEntryDelta,
		&r.CallEntryPrice, &r.PutEntryPrice, &r.CallExitPrice, &r.PutExitPrice,
	} {
		if *f != nil && (math.IsNaN(**f) || math.IsInf(**f, 0)) {
			*f = nil
		}
	}
}

// StrangleState is the ephemeral two-leg position held during a single
// symbol-month simulation. Created at entry, mutated only by the roll step,
// discarded after the month's result is emitted.
type StrangleState struct {
	CallStrike    float64
	PutStrike     float64
	CallSoldPrice float64
	PutSoldPrice  float64
	AdjustmentPnL float64
}

// Float returns a pointer to v; convenience for optional result fields.
func Float(v float64) *float64 { return &v }

// Date returns a pointer to a copy of t.
func Date(t time.Time) *time.Time { return &t }
