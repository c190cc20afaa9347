package storage

import (
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

// BreakerSink wraps a ResultSink with a circuit breaker so a persistently
// failing store fails fast instead of stalling every symbol worker in its
// backoff loop.
type BreakerSink struct {
	sink    ResultSink
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSink wraps sink. The breaker opens after five consecutive write
// failures and probes again after 30 seconds.
func NewBreakerSink(sink ResultSink, logger *log.Logger) *BreakerSink {
	if logger == nil {
		logger = log.Default()
	}
	settings := gobreaker.Settings{
		Name:        "result-sink",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &BreakerSink{
		sink:    sink,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// UpsertResult implements ResultSink through the breaker.
func (b *BreakerSink) UpsertResult(r *models.BacktestResult) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.sink.UpsertResult(r)
	})
	return err
}

var _ ResultSink = (*BreakerSink)(nil)
