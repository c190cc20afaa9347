// Package storage persists market snapshots and backtest results.
package storage

import (
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

// MarketDataStore is the read side consumed by the backtest engine. Lookups
// express absence with a boolean, not an error: a missing day is a data gap,
// not a fault. Implementations must be safe for concurrent use and must only
// return fully committed snapshots.
type MarketDataStore interface {
	// GetSnapshot returns the snapshot for (symbol, date), or false when
	// no snapshot was committed for that day.
	GetSnapshot(symbol string, date time.Time) (*models.MarketSnapshot, bool)
	// GetTradingDays returns the ordered dates in [start, end] for which
	// snapshots exist.
	GetTradingDays(symbol string, start, end time.Time) []time.Time
}

// ResultSink persists backtest results keyed by (symbol, year, month) with
// overwrite semantics, so re-running a month is always safe.
type ResultSink interface {
	UpsertResult(r *models.BacktestResult) error
}

// SnapshotSink persists snapshots keyed by (symbol, date) with overwrite
// semantics.
type SnapshotSink interface {
	UpsertSnapshot(snap *models.MarketSnapshot) error
}

// Interface conformance
var (
	_ MarketDataStore = (*JSONStore)(nil)
	_ ResultSink      = (*JSONStore)(nil)
	_ SnapshotSink    = (*JSONStore)(nil)
)
