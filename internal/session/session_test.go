package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/index"
	"github.com/iliyamo/cinema-showtimes/internal/model"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	shows map[string][]model.Show
	err   error
}

func (f *fakeSource) GetAllMovies(_ context.Context, date time.Time) ([]model.Show, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.shows[date.Format("2006-01-02")], nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	observed []string
	all      []model.Show
}

func (f *fakeCatalog) Observe(date time.Time, shows []model.Show) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, date.Format("2006-01-02"))
	f.all = append(f.all, shows...)
}

func (f *fakeCatalog) AllShows() []model.Show {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.all)
}

type fakeNotifier struct{ count int }

func (f *fakeNotifier) ScheduleAggregated(context.Context, time.Time, []model.Show) { f.count++ }

func show(title, cinema string, day, hour int) model.Show {
	return model.Show{Title: title, Cinema: cinema, Time: time.Date(2026, 10, day, hour, 0, 0, 0, time.UTC)}
}

func newSession(src *fakeSource) (*Session, *fakeCatalog, *fakeNotifier) {
	cat := &fakeCatalog{}
	n := &fakeNotifier{}
	s := New("s1", Deps{
		Source:   src,
		Catalog:  cat,
		Notifier: n,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	return s, cat, n
}

func fixture() *fakeSource {
	return &fakeSource{shows: map[string][]model.Show{
		"2026-10-16": {show("Inception", "Forum", 16, 18), show("Dune", "Skalvija", 16, 20)},
		"2026-10-17": {show("Alien", "Pasaka", 17, 19), show("Inception", "Pasaka", 17, 21)},
	}}
}

func titles(groups []index.TitleGroup) []string {
	out := []string{}
	for _, g := range groups {
		out = append(out, g.Title)
	}
	return out
}

func TestSelectDateLoadsAndNotifies(t *testing.T) {
	s, cat, n := newSession(fixture())
	var renders []Snapshot
	s.OnChange(func(snap Snapshot) { renders = append(renders, snap) })

	if err := s.SelectDate(context.Background(), now); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateReady || snap.Date != "2026-10-16" || snap.Label != "Today" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := titles(snap.View.Groups); !slices.Equal(got, []string{"Inception", "Dune"}) {
		t.Fatalf("unexpected groups: %v", got)
	}
	if len(cat.observed) != 1 || n.count != 1 {
		t.Fatalf("catalog/notifier not driven: %v %d", cat.observed, n.count)
	}
	if len(renders) != 1 {
		t.Fatalf("want one render, got %d", len(renders))
	}
}

func TestSelectDateFailureIsUnavailable(t *testing.T) {
	src := fixture()
	s, cat, n := newSession(src)
	if err := s.SelectDate(context.Background(), now); err != nil {
		t.Fatalf("select: %v", err)
	}

	src.err = errors.New("boom")
	err := s.SelectDate(context.Background(), now.AddDate(0, 0, 1))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateUnavailable || snap.Error == "" || !snap.View.Empty {
		t.Fatalf("failed day must be visibly absent: %+v", snap)
	}
	if len(cat.observed) != 1 || n.count != 1 {
		t.Fatal("failed load must not reach catalog or notifier")
	}
}

func TestHiddenResetOnDateChange(t *testing.T) {
	s, _, _ := newSession(fixture())
	ctx := context.Background()
	_ = s.SelectDate(ctx, now)

	s.HideTitle("Inception")
	s.HideCinema("Skalvija")
	if snap := s.Snapshot(); !snap.View.Empty {
		t.Fatalf("everything should be hidden: %v", titles(snap.View.Groups))
	}

	_ = s.SelectDate(ctx, now.AddDate(0, 0, 1))
	snap := s.Snapshot()
	if len(snap.HiddenTitles) != 0 || len(snap.HiddenCinemas) != 0 {
		t.Fatalf("hidden sets should reset: %+v", snap)
	}
	if got := titles(snap.View.Groups); !slices.Equal(got, []string{"Alien", "Inception"}) {
		t.Fatalf("unexpected groups: %v", got)
	}
	if snap.Label != "Tomorrow" {
		t.Fatalf("unexpected label %q", snap.Label)
	}
}

func TestSelectionSurvivesDateChange(t *testing.T) {
	s, _, _ := newSession(fixture())
	ctx := context.Background()
	_ = s.SelectDate(ctx, now)

	s.ToggleTitle("Dune")
	if got := titles(s.Snapshot().View.Groups); !slices.Equal(got, []string{"Dune"}) {
		t.Fatalf("unexpected groups: %v", got)
	}

	_ = s.SelectDate(ctx, now.AddDate(0, 0, 1))
	snap := s.Snapshot()
	if !snap.Selection.HasTitle("Dune") {
		t.Fatal("selection should survive a date change")
	}
	if !snap.View.Empty {
		t.Fatal("no Dune shows on the next day")
	}
}

func TestQuerySearchesAcrossDays(t *testing.T) {
	s, _, _ := newSession(fixture())
	ctx := context.Background()
	_ = s.SelectDate(ctx, now.AddDate(0, 0, 1))
	_ = s.SelectDate(ctx, now)

	s.SetQuery("ALI")
	snap := s.Snapshot()
	if !snap.View.Searching {
		t.Fatal("view should be searching")
	}
	if got := titles(snap.View.Groups); !slices.Equal(got, []string{"Alien"}) {
		t.Fatalf("unexpected groups: %v", got)
	}
}

func TestSetMode(t *testing.T) {
	s, _, _ := newSession(fixture())
	_ = s.SelectDate(context.Background(), now)
	if err := s.SetMode("grid"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	s.SetSelection(model.Selection{Titles: []string{"Dune"}})
	if err := s.SetMode(model.ModeCompact); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	snap := s.Snapshot()
	if got := titles(snap.View.Selected); !slices.Equal(got, []string{"Dune"}) {
		t.Fatalf("unexpected selected sublist: %v", got)
	}
	if got := titles(snap.View.Groups); !slices.Equal(got, []string{"Inception"}) {
		t.Fatalf("unexpected browse list: %v", got)
	}
	if snap.Selection.Cinemas == nil {
		t.Fatal("selection lists should never be nil")
	}
}
