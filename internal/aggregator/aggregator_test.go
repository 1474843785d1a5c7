package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/source"
)

type stubAdapter struct {
	name  string
	shows []model.Show
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, _ time.Time) ([]model.Show, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.shows, s.err
}

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func titles(shows []model.Show) []string {
	out := make([]string, 0, len(shows))
	for _, s := range shows {
		out = append(out, s.Title)
	}
	sort.Strings(out)
	return out
}

func TestGetAllMoviesDropsPastShows(t *testing.T) {
	forum := &stubAdapter{name: "forumcinemas/1011", shows: []model.Show{
		{Title: "Movie X", Time: now.Add(2 * time.Hour)},
		{Title: "Movie X", Time: now.Add(-time.Hour)},
		{Title: "Movie X", Time: now.Add(5 * time.Hour)},
	}}
	agg := New([]source.Adapter{forum}, time.UTC, WithClock(fixedClock))
	shows, err := agg.GetAllMovies(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shows) != 2 {
		t.Fatalf("want exactly 2 future shows, got %d", len(shows))
	}
	for _, s := range shows {
		if !s.Time.After(now) {
			t.Fatalf("past show leaked: %s", s.Time)
		}
	}
}

func TestGetAllMoviesFailsWhenAnySourceFails(t *testing.T) {
	a := &stubAdapter{name: "a", shows: []model.Show{{Title: "A", Time: now.Add(time.Hour)}}}
	b := &stubAdapter{name: "b", shows: []model.Show{}}
	c := &stubAdapter{name: "c", shows: []model.Show{{Title: "B", Time: now.Add(time.Hour)}}}
	bad := &stubAdapter{name: "bad", err: errors.New("upstream down")}

	agg := New([]source.Adapter{a, b, bad, c}, time.UTC, WithClock(fixedClock))
	shows, err := agg.GetAllMovies(context.Background(), now)
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("want ErrAggregation, got %v", err)
	}
	if shows != nil {
		t.Fatalf("strict join must not return partial data, got %v", shows)
	}
	for _, s := range []*stubAdapter{a, b, c, bad} {
		if s.calls.Load() != 1 {
			t.Fatalf("%s: every source must be called exactly once, got %d", s.name, s.calls.Load())
		}
	}

	partial, err := agg.GetAllMoviesBestEffort(context.Background(), now)
	if err == nil {
		t.Fatal("best effort should still report the failure")
	}
	if got := titles(partial); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("best effort should keep successful sources, got %v", got)
	}
}

func TestGetAllMoviesRunsSourcesConcurrently(t *testing.T) {
	var adapters []source.Adapter
	for i := 0; i < 4; i++ {
		adapters = append(adapters, &stubAdapter{name: "slow", delay: 100 * time.Millisecond})
	}
	agg := New(adapters, time.UTC, WithClock(fixedClock))
	started := time.Now()
	if _, err := agg.GetAllMovies(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if took := time.Since(started); took > 350*time.Millisecond {
		t.Fatalf("sources should be fetched concurrently, took %s", took)
	}
}

func TestGetAllMoviesCapturesNowOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return now
	}
	a := &stubAdapter{name: "a", shows: []model.Show{
		{Title: "A", Time: now.Add(time.Minute)},
		{Title: "B", Time: now.Add(2 * time.Minute)},
	}}
	agg := New([]source.Adapter{a}, time.UTC, WithClock(clock))
	if _, err := agg.GetAllMovies(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("now must be captured once per call, got %d", calls)
	}
}

func TestSourcesOrder(t *testing.T) {
	agg := New([]source.Adapter{&stubAdapter{name: "x"}, &stubAdapter{name: "y"}}, time.UTC)
	if got := agg.Sources(); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("unexpected sources: %v", got)
	}
}

func TestJoinEmpty(t *testing.T) {
	res, err := JoinStrict[int](context.Background(), nil)
	if err != nil || len(res) != 0 {
		t.Fatalf("unexpected result %v, %v", res, err)
	}
}

func TestJoinTolerantAllFail(t *testing.T) {
	tasks := []Task[int]{
		func(context.Context) (int, error) { return 0, errors.New("a") },
		func(context.Context) (int, error) { return 0, errors.New("b") },
	}
	res, err := JoinTolerant(context.Background(), tasks)
	if err == nil || len(res) != 0 {
		t.Fatalf("unexpected result %v, %v", res, err)
	}
}
