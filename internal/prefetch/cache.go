// Package prefetch runs the aggregator once across a rolling window of
// upcoming dates so filter menus can offer titles and cinemas the user has not
// browsed yet.
package prefetch

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/aggregator"
	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// DefaultDays is the prefetch window N.
const DefaultDays = 7

// MovieSource is the strict per-day aggregation the cache drives.
type MovieSource interface {
	GetAllMovies(ctx context.Context, date time.Time) ([]model.Show, error)
}

// UpcomingSource lists every published future event in one call.
type UpcomingSource interface {
	Name() string
	FetchUpcoming(ctx context.Context) ([]model.Show, error)
}

// Cache owns the Universe and Archive and guards the prefetch pass.  A pass
// covers the window starting at local midnight of the day it ran; once the
// calendar moves past that day the next caller starts a fresh pass.
type Cache struct {
	source   MovieSource
	upcoming []UpcomingSource
	universe *Universe
	archive  *Archive
	days     int
	loc      *time.Location
	now      func() time.Time

	mu      sync.Mutex
	pending chan struct{} // non-nil while a pass is in flight
	window  time.Time     // start of the most recently started pass
	ready   bool          // at least one pass has settled
}

// Option customizes a Cache.
type Option func(*Cache)

// WithDays overrides the window size.
func WithDays(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.days = n
		}
	}
}

// WithClock replaces time.Now for the window start.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithUpcoming adds a dateless feed queried once per pass.  Its shows
// within the window widen the universe only; they never enter the archive.
func WithUpcoming(feed UpcomingSource) Option {
	return func(c *Cache) {
		if feed != nil {
			c.upcoming = append(c.upcoming, feed)
		}
	}
}

// New builds a Cache over source.
func New(source MovieSource, loc *time.Location, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		universe: NewUniverse(),
		days:     DefaultDays,
		loc:      loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.archive = NewArchive(loc, c.now)
	return c
}

// Universe exposes the accumulated titles and cinemas.
func (c *Cache) Universe() *Universe { return c.universe }

// Archive exposes the per-date show lists.
func (c *Cache) Archive() *Archive { return c.archive }

// Ready reports whether a prefetch pass has settled.  It stays true while a
// later pass refreshes the window.
func (c *Cache) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// EnsureTitlesPrefetched runs the prefetch pass once per window.  Concurrent
// callers share the in-flight pass; later callers on the same day return
// immediately.  The pass itself is detached from ctx so one caller giving up
// does not abort it for the others; ctx only bounds how long this caller
// waits.
func (c *Cache) EnsureTitlesPrefetched(ctx context.Context) error {
	start := utils.DayStart(c.now(), c.loc)

	c.mu.Lock()
	if c.pending == nil {
		if c.ready && !start.After(c.window) {
			c.mu.Unlock()
			return nil
		}
		c.pending = make(chan struct{})
		c.window = start
		go c.run(context.WithoutCancel(ctx), start, c.pending)
	}
	pending := c.pending
	c.mu.Unlock()

	select {
	case <-pending:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Titles returns the known titles.
func (c *Cache) Titles() []string { return c.universe.Titles() }

// Cinemas returns the known cinemas.
func (c *Cache) Cinemas() []string { return c.universe.Cinemas() }

// AllShows returns every show archived so far across dates.
func (c *Cache) AllShows() []model.Show { return c.archive.All() }

// Observe folds a browsed date's shows into the universe and archive.
func (c *Cache) Observe(date time.Time, shows []model.Show) {
	c.universe.Add(shows)
	c.archive.Put(date, shows)
}

type dayResult struct {
	date    time.Time
	shows   []model.Show
	undated bool
}

func (c *Cache) run(ctx context.Context, start time.Time, pending chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.ready = true
		c.pending = nil
		c.mu.Unlock()
		close(pending)
	}()
	metrics.PrefetchRuns.Inc()

	dates := utils.UpcomingDates(start, c.days, c.loc)
	end := start.AddDate(0, 0, c.days)
	tasks := make([]aggregator.Task[dayResult], 0, len(dates)+len(c.upcoming))
	for _, d := range dates {
		tasks = append(tasks, func(ctx context.Context) (dayResult, error) {
			shows, err := c.source.GetAllMovies(ctx, d)
			if err != nil {
				logging.Warn().Str("date", utils.FormatISODate(d, c.loc)).Err(err).Msg("prefetch day skipped")
				return dayResult{}, err
			}
			return dayResult{date: d, shows: shows}, nil
		})
	}
	for _, feed := range c.upcoming {
		tasks = append(tasks, func(ctx context.Context) (dayResult, error) {
			shows, err := feed.FetchUpcoming(ctx)
			if err != nil {
				logging.Warn().Str("source", feed.Name()).Err(err).Msg("prefetch upcoming feed skipped")
				return dayResult{}, err
			}
			return dayResult{shows: inWindow(shows, start, end), undated: true}, nil
		})
	}

	results, _ := aggregator.JoinTolerant(ctx, tasks)
	total, loaded := 0, 0
	for _, r := range results {
		if r.undated {
			c.universe.Add(r.shows)
			continue
		}
		c.Observe(r.date, r.shows)
		total += len(r.shows)
		loaded++
	}
	logging.Info().
		Int("days", len(dates)).
		Int("days_loaded", loaded).
		Int("shows", total).
		Int("archived_days", c.archive.Len()).
		Int("titles", len(c.universe.Titles())).
		Msg("prefetch finished")
}

func inWindow(shows []model.Show, start, end time.Time) []model.Show {
	out := make([]model.Show, 0, len(shows))
	for _, s := range shows {
		if !s.Time.Before(start) && s.Time.Before(end) {
			out = append(out, s)
		}
	}
	return out
}
