package models

import (
	"math"
	"testing"
)

func TestBacktestResult_Key(t *testing.T) {
	r := &BacktestResult{Symbol: "HDFCBANK", Year: 2024, Month: 4}
	if got := r.Key(); got != "HDFCBANK-2024-04" {
		t.Errorf("Key() = %q, expected HDFCBANK-2024-04", got)
	}
}

func TestBacktestResult_Traded(t *testing.T) {
	r := &BacktestResult{Symbol: "X", PnLPoints: Float(1.0)}
	if !r.Traded() {
		t.Error("result with PnL and no skip reason should be traded")
	}

	r.SkippedReason = "Missing Exit Data"
	if r.Traded() {
		t.Error("skipped result should not be traded")
	}

	r2 := &BacktestResult{Symbol: "X"}
	if r2.Traded() {
		t.Error("result without PnL should not be traded")
	}
}

func TestBacktestResult_SanitizeDropsNonFinite(t *testing.T) {
	r := &BacktestResult{
		Symbol:      "X",
		EntryCredit: Float(22.5),
		ExitCost:    Float(math.NaN()),
		PnLPoints:   Float(math.Inf(1)),
	}
	r.Sanitize()

	if r.EntryCredit == nil || *r.EntryCredit != 22.5 {
		t.Error("finite field must survive Sanitize")
	}
	if r.ExitCost != nil {
		t.Error("NaN field must be nilled")
	}
	if r.PnLPoints != nil {
		t.Error("Inf field must be nilled")
	}
}

func TestOptionType(t *testing.T) {
	if !Call.Valid() || !Put.Valid() {
		t.Error("CE and PE must be valid option types")
	}
	if OptionType("XX").Valid() {
		t.Error("XX is not a valid option type")
	}
	if !Call.IsCall() || Put.IsCall() {
		t.Error("IsCall must distinguish CE from PE")
	}
}
