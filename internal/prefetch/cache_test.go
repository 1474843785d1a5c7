package prefetch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	calls   atomic.Int32
	release chan struct{}
	failOn  string
	perDay  map[string][]model.Show
}

func (f *fakeSource) GetAllMovies(ctx context.Context, date time.Time) ([]model.Show, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	key := utils.FormatISODate(date, time.UTC)
	if key == f.failOn {
		return nil, errors.New("upstream down")
	}
	return f.perDay[key], nil
}

func show(title, cinema string, day int) model.Show {
	return model.Show{Title: title, Cinema: cinema, Time: time.Date(2026, 10, day, 20, 0, 0, 0, time.UTC)}
}

func newSource() *fakeSource {
	return &fakeSource{perDay: map[string][]model.Show{
		"2026-10-16": {show("Inception", "Forum Vilnius", 16)},
		"2026-10-18": {show("Dune", "Skalvija", 18), show("Inception", "Pasaka", 18)},
	}}
}

func TestEnsureTitlesPrefetchedRunsOnce(t *testing.T) {
	src := newSource()
	c := New(src, time.UTC, WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if got := src.calls.Load(); got != DefaultDays {
		t.Fatalf("want %d day fetches, got %d", DefaultDays, got)
	}
	if !c.Ready() {
		t.Fatal("cache should be ready")
	}
	if got := c.Universe().Titles(); !slices.Equal(got, []string{"Dune", "Inception"}) {
		t.Fatalf("unexpected titles: %v", got)
	}
	if got := c.Universe().Cinemas(); !slices.Equal(got, []string{"Forum Vilnius", "Pasaka", "Skalvija"}) {
		t.Fatalf("unexpected cinemas: %v", got)
	}
}

func TestEnsureTitlesPrefetchedSharesInFlightPass(t *testing.T) {
	src := newSource()
	src.release = make(chan struct{})
	c := New(src, time.UTC, WithDays(2), WithClock(func() time.Time { return now }))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
				t.Errorf("ensure: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	if got := src.calls.Load(); got != 2 {
		t.Fatalf("want 2 day fetches, got %d", got)
	}
}

func TestEnsureTitlesPrefetchedCallerCancelDoesNotAbortPass(t *testing.T) {
	src := newSource()
	src.release = make(chan struct{})
	c := New(src, time.UTC, WithDays(1), WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.EnsureTitlesPrefetched(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	close(src.release)
	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := c.Universe().Titles(); !slices.Equal(got, []string{"Inception"}) {
		t.Fatalf("pass should have completed, titles %v", got)
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("want a single fetch, got %d", got)
	}
}

func TestEnsureTitlesPrefetchedIsolatesFailedDay(t *testing.T) {
	src := newSource()
	src.failOn = "2026-10-16"
	c := New(src, time.UTC, WithClock(func() time.Time { return now }))

	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := c.Universe().Titles(); !slices.Equal(got, []string{"Dune", "Inception"}) {
		t.Fatalf("unexpected titles: %v", got)
	}
	if got := c.Universe().Cinemas(); slices.Contains(got, "Forum Vilnius") {
		t.Fatalf("failed day leaked into universe: %v", got)
	}
	if !c.Ready() {
		t.Fatal("a failed day must not block completion")
	}
}

func TestObserveReplacesArchivedDay(t *testing.T) {
	c := New(newSource(), time.UTC, WithClock(func() time.Time { return now }))
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	c.Observe(day, []model.Show{show("Dune", "Skalvija", 20), show("Alien", "Skalvija", 20)})
	c.Observe(day, []model.Show{show("Dune", "Skalvija", 20)})

	if got := len(c.Archive().All()); got != 1 {
		t.Fatalf("archive should hold the latest list only, got %d shows", got)
	}
	if got := c.Universe().Titles(); !slices.Equal(got, []string{"Alien", "Dune"}) {
		t.Fatalf("universe should only grow: %v", got)
	}
	if got := c.Archive().Len(); got != 1 {
		t.Fatalf("want one archived day, got %d", got)
	}
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (s *stepClock) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *stepClock) advance(d time.Duration) {
	s.mu.Lock()
	s.t = s.t.Add(d)
	s.mu.Unlock()
}

func TestEnsureTitlesPrefetchedRefreshesOnNewDay(t *testing.T) {
	src := newSource()
	src.perDay["2026-10-26"] = []model.Show{show("Alien", "Pasaka", 26)}
	clock := &stepClock{t: now}
	c := New(src, time.UTC, WithDays(3), WithClock(clock.now))

	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	clock.advance(10 * time.Hour) // still the same day
	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := src.calls.Load(); got != 3 {
		t.Fatalf("same day should reuse the pass, got %d fetches", got)
	}

	clock.advance(24 * time.Hour)
	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := src.calls.Load(); got != 6 {
		t.Fatalf("a new day should start a new pass, got %d fetches", got)
	}

	clock.advance(8 * 24 * time.Hour)
	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := c.Universe().Titles(); !slices.Equal(got, []string{"Alien", "Dune", "Inception"}) {
		t.Fatalf("universe should keep growing across passes: %v", got)
	}
	if !c.Ready() {
		t.Fatal("cache should be ready")
	}
}

type fakeUpcoming struct {
	shows []model.Show
	err   error
}

func (f *fakeUpcoming) Name() string { return "pasaka" }

func (f *fakeUpcoming) FetchUpcoming(ctx context.Context) ([]model.Show, error) {
	return f.shows, f.err
}

func TestEnsureTitlesPrefetchedWidensWithUpcomingFeed(t *testing.T) {
	feed := &fakeUpcoming{shows: []model.Show{
		show("Perfect Days", "Pasaka", 17),
		show("Far Future", "Pasaka", 30),
	}}
	broken := &fakeUpcoming{err: errors.New("upstream down")}
	c := New(newSource(), time.UTC, WithClock(func() time.Time { return now }),
		WithUpcoming(feed), WithUpcoming(broken))

	if err := c.EnsureTitlesPrefetched(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := c.Universe().Titles(); !slices.Equal(got, []string{"Dune", "Inception", "Perfect Days"}) {
		t.Fatalf("unexpected titles: %v", got)
	}
	for _, s := range c.AllShows() {
		if s.Title == "Perfect Days" {
			t.Fatal("undated feed must not enter the archive")
		}
	}
}

func TestArchiveDropsPastDays(t *testing.T) {
	clock := &stepClock{t: now}
	a := NewArchive(time.UTC, clock.now)

	a.Put(now, []model.Show{show("Dune", "Skalvija", 16)})
	a.Put(now.AddDate(0, 0, 1), []model.Show{show("Alien", "Skalvija", 17)})
	if got := a.Len(); got != 2 {
		t.Fatalf("want 2 days, got %d", got)
	}

	clock.advance(24 * time.Hour)
	a.Put(now.AddDate(0, 0, 2), []model.Show{show("Heat", "Pasaka", 18)})
	if got := a.Len(); got != 2 {
		t.Fatalf("yesterday should be evicted, got %d days", got)
	}
	a.Put(now.AddDate(0, 0, -3), []model.Show{show("Old", "Pasaka", 13)})
	if got := a.Len(); got != 2 {
		t.Fatalf("past day should not be stored, got %d days", got)
	}
	for _, s := range a.All() {
		if s.Title == "Dune" || s.Title == "Old" {
			t.Fatalf("past show kept: %+v", s)
		}
	}
}
