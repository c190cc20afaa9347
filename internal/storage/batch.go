package storage

import (
	"fmt"
	"log"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

// RetryConfig bounds the batch writer's backoff loop.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig retries transient write failures a bounded number of
// times with exponential backoff.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
}

// BatchWriter buffers snapshot upserts and flushes them in batches. A failed
// flush is retried with exponential backoff; exhausting the retry budget is
// fatal and propagates to the caller, matching the write-path error contract.
type BatchWriter struct {
	sink       SnapshotSink
	logger     *log.Logger
	cfg        RetryConfig
	flushEvery int
	buf        []*models.MarketSnapshot
	total      int

	sleep func(time.Duration) // test seam
}

// NewBatchWriter creates a writer flushing every flushEvery rows (default 500).
func NewBatchWriter(sink SnapshotSink, logger *log.Logger, flushEvery int, cfg ...RetryConfig) *BatchWriter {
	c := DefaultRetryConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if flushEvery <= 0 {
		flushEvery = 500
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BatchWriter{
		sink:       sink,
		logger:     logger,
		cfg:        c,
		flushEvery: flushEvery,
		sleep:      time.Sleep,
	}
}

// Write buffers one snapshot, flushing when the batch is full.
func (w *BatchWriter) Write(snap *models.MarketSnapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	w.buf = append(w.buf, snap)
	if len(w.buf) >= w.flushEvery {
		return w.Flush()
	}
	return nil
}

// Flush upserts the buffered rows, retrying the whole batch on failure.
// Upserts are idempotent by natural key, so a retried batch never
// double-counts.
func (w *BatchWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	var lastErr error
	backoff := w.cfg.InitialBackoff
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		lastErr = w.writeAll()
		if lastErr == nil {
			w.total += len(w.buf)
			w.buf = w.buf[:0]
			return nil
		}
		if attempt < w.cfg.MaxRetries {
			w.logger.Printf("batch flush failed (%v) - retry %d in %v", lastErr, attempt+1, backoff)
			w.sleep(backoff)
			backoff *= 2
			if backoff > w.cfg.MaxBackoff {
				backoff = w.cfg.MaxBackoff
			}
		}
	}
	return fmt.Errorf("batch flush failed after %d attempts: %w", w.cfg.MaxRetries+1, lastErr)
}

func (w *BatchWriter) writeAll() error {
	for _, snap := range w.buf {
		if err := w.sink.UpsertSnapshot(snap); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the remainder and logs the row count.
func (w *BatchWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.logger.Printf("rows written by batch writer: %d", w.total)
	return nil
}

// Total returns the number of rows successfully flushed.
func (w *BatchWriter) Total() int { return w.total }
