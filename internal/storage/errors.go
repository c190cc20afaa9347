package storage

import "errors"

var (
	// ErrClosed is returned by writes against a closed store.
	ErrClosed = errors.New("storage: store is closed")
	// ErrNilResult is returned when a nil result row is upserted.
	ErrNilResult = errors.New("storage: nil result")
	// ErrNilSnapshot is returned when a nil snapshot is upserted.
	ErrNilSnapshot = errors.New("storage: nil snapshot")
)
