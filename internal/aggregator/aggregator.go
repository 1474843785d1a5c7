// Package aggregator fans a date out to every configured source adapter and
// fans the results back into one flat, future-only list of shows.
package aggregator

import (
	"context"
	"slices"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/source"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// Aggregator merges all adapters for a date.  It does not deduplicate:
// each source covers its own venues, so identical records are not expected.
type Aggregator struct {
	adapters []source.Adapter
	loc      *time.Location
	now      func() time.Time
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithClock replaces time.Now, which decides what counts as "future".
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New builds an Aggregator over adapters.
func New(adapters []source.Adapter, loc *time.Location, opts ...Option) *Aggregator {
	a := &Aggregator{adapters: adapters, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources returns the adapter names in fan-out order.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.adapters))
	for _, ad := range a.adapters {
		names = append(names, ad.Name())
	}
	return names
}

// GetAllMovies fetches every source for date and returns the union of their
// future shows.  If any source fails the whole call fails; the list for a
// requested day is either complete or absent.
func (a *Aggregator) GetAllMovies(ctx context.Context, date time.Time) ([]model.Show, error) {
	now := a.now()
	batches, err := JoinStrict(ctx, a.tasks(date))
	if err != nil {
		logging.Error().Str("date", utils.FormatISODate(date, a.loc)).Err(err).Msg("aggregation failed")
		return nil, err
	}
	return model.FutureOnly(slices.Concat(batches...), now), nil
}

// GetAllMoviesBestEffort is GetAllMovies with per-source failure isolation:
// failed sources contribute nothing.  The error, when non-nil, lists the
// failed sources while the returned shows remain usable.
func (a *Aggregator) GetAllMoviesBestEffort(ctx context.Context, date time.Time) ([]model.Show, error) {
	now := a.now()
	batches, err := JoinTolerant(ctx, a.tasks(date))
	if err != nil {
		logging.Warn().Str("date", utils.FormatISODate(date, a.loc)).Err(err).Msg("partial aggregation")
	}
	return model.FutureOnly(slices.Concat(batches...), now), err
}

func (a *Aggregator) tasks(date time.Time) []Task[[]model.Show] {
	tasks := make([]Task[[]model.Show], 0, len(a.adapters))
	for _, ad := range a.adapters {
		tasks = append(tasks, func(ctx context.Context) ([]model.Show, error) {
			return ad.Fetch(ctx, date)
		})
	}
	return tasks
}
