package source

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// BreakerSettings tunes the per-source circuit breaker.  The breaker never
// retries; while open it fails calls immediately instead of waiting on an
// upstream that has been failing.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit.  Default 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.  Default 1m.
	OpenTimeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = time.Minute
	}
	return s
}

type breakerAdapter struct {
	next Adapter
	cb   *gobreaker.CircuitBreaker[[]model.Show]
}

// WithBreaker guards a with a circuit breaker named after the adapter.
func WithBreaker(a Adapter, settings BreakerSettings) Adapter {
	settings = settings.withDefaults()
	name := a.Name()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]model.Show](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not the upstream's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).Msg("source breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &breakerAdapter{next: a, cb: cb}
}

func (b *breakerAdapter) Name() string { return b.next.Name() }

func (b *breakerAdapter) Fetch(ctx context.Context, date time.Time) ([]model.Show, error) {
	shows, err := b.cb.Execute(func() ([]model.Show, error) {
		return b.next.Fetch(ctx, date)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.SourceFetches.WithLabelValues(b.Name(), "rejected").Inc()
		return nil, &BreakerOpenError{Source: b.Name(), Err: err}
	}
	return shows, err
}

// BreakerOpenError reports a call refused because the source's circuit is open.
type BreakerOpenError struct {
	Source string
	Err    error
}

func (e *BreakerOpenError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e *BreakerOpenError) Unwrap() error { return e.Err }

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
