// Package session holds the per-user browsing state: the active date and its
// shows, the filter selection, hidden entries and the presentation mode.
// Every mutation re-renders the view through the registered hooks.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/index"
	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// ErrUnavailable is returned when the active date could not be loaded.
var ErrUnavailable = errors.New("schedule unavailable")

// State describes whether the active date loaded.
type State string

const (
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateUnavailable State = "unavailable"
)

// MovieSource is the strict per-day aggregation.
type MovieSource interface {
	GetAllMovies(ctx context.Context, date time.Time) ([]model.Show, error)
}

// Catalog receives every loaded day and serves the multi-day search set.
type Catalog interface {
	Observe(date time.Time, shows []model.Show)
	AllShows() []model.Show
}

// Notifier is told about every successful day load.
type Notifier interface {
	ScheduleAggregated(ctx context.Context, date time.Time, shows []model.Show)
}

// Deps are the collaborators a Session drives.  Catalog and Notifier are
// optional.
type Deps struct {
	Source   MovieSource
	Catalog  Catalog
	Notifier Notifier
	Location *time.Location
	Now      func() time.Time
}

// Snapshot is a consistent copy of a session and its rendered view.
type Snapshot struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Label         string          `json:"label"`
	State         State           `json:"state"`
	Error         string          `json:"error,omitempty"`
	Selection     model.Selection `json:"selection"`
	Mode          model.Mode      `json:"mode"`
	HiddenTitles  []string        `json:"hiddenTitles"`
	HiddenCinemas []string        `json:"hiddenCinemas"`
	View          index.View      `json:"view"`
}

// Session is safe for concurrent use.
type Session struct {
	id   string
	deps Deps

	mu            sync.Mutex
	date          time.Time
	gen           uint64 // bumped on every SelectDate; stale loads are dropped
	state         State
	loadErr       error
	day           []model.Show
	selection     model.Selection
	mode          model.Mode
	hiddenTitles  []string
	hiddenCinemas []string
	hooks         []func(Snapshot)
	lastSeen      time.Time
}

// New returns an empty session in standard mode.  Call SelectDate to load a
// day.
func New(id string, deps Deps) *Session {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		id:        id,
		deps:      deps,
		state:     StateLoading,
		mode:      model.ModeStandard,
		selection: model.Selection{Titles: []string{}, Cinemas: []string{}},
		lastSeen:  deps.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// LastSeen reports when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// OnChange registers a hook called with a fresh snapshot after every change.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// SelectDate makes date active, clears hidden entries and loads the day with
// strict aggregation.  On failure the day is shown as unavailable rather than
// partially filled, and the returned error wraps ErrUnavailable.
func (s *Session) SelectDate(ctx context.Context, date time.Time) error {
	day := utils.DayStart(date, s.deps.Location)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.date = day
	s.state = StateLoading
	s.loadErr = nil
	s.day = nil
	s.hiddenTitles = nil
	s.hiddenCinemas = nil
	s.lastSeen = s.deps.Now()
	s.mu.Unlock()

	shows, err := s.deps.Source.GetAllMovies(ctx, day)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.state = StateUnavailable
		s.loadErr = err
	} else {
		s.state = StateReady
		s.day = shows
	}
	s.mu.Unlock()

	dateKey := utils.FormatISODate(day, s.deps.Location)
	if err != nil {
		logging.Error().Str("session", s.id).Str("date", dateKey).Err(err).Msg("could not load schedule")
		s.emit()
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, dateKey, err)
	}

	if s.deps.Catalog != nil {
		s.deps.Catalog.Observe(day, shows)
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.ScheduleAggregated(ctx, day, shows)
	}
	logging.Debug().Str("session", s.id).Str("date", dateKey).Int("shows", len(shows)).Msg("schedule loaded")
	s.emit()
	return nil
}

// SetSelection replaces the whole selection.
func (s *Session) SetSelection(sel model.Selection) {
	s.update(func() {
		s.selection = normalize(sel)
	})
}

// SetQuery changes only the free-text query.
func (s *Session) SetQuery(q string) {
	s.update(func() { s.selection.Query = q })
}

// SetMode changes the presentation mode.
func (s *Session) SetMode(m model.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown mode %q", m)
	}
	s.update(func() { s.mode = m })
	return nil
}

// ToggleTitle flips title in the selection.
func (s *Session) ToggleTitle(title string) {
	s.update(func() { s.selection.ToggleTitle(title) })
}

// ToggleCinema flips cinema in the selection.
func (s *Session) ToggleCinema(cinema string) {
	s.update(func() { s.selection.ToggleCinema(cinema) })
}

// HideTitle removes title from the view until the next date change.
func (s *Session) HideTitle(title string) {
	s.update(func() {
		if !slices.Contains(s.hiddenTitles, title) {
			s.hiddenTitles = append(s.hiddenTitles, title)
		}
	})
}

// HideCinema removes cinema from the view until the next date change.
func (s *Session) HideCinema(cinema string) {
	s.update(func() {
		if !slices.Contains(s.hiddenCinemas, cinema) {
			s.hiddenCinemas = append(s.hiddenCinemas, cinema)
		}
	})
}

// Snapshot returns the current state and view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	s.lastSeen = s.deps.Now()
	s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	s.lastSeen = s.deps.Now()
	s.mu.Unlock()
	s.emit()
}

func (s *Session) emit() {
	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()
	if len(hooks) == 0 {
		return
	}
	snap := s.snapshot()
	for _, fn := range hooks {
		fn(snap)
	}
}

func (s *Session) snapshot() Snapshot {
	var all []model.Show
	if s.deps.Catalog != nil {
		all = s.deps.Catalog.AllShows()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in := index.Input{
		Day:           s.day,
		All:           all,
		Selection:     s.selection.Clone(),
		Mode:          s.mode,
		HiddenTitles:  s.hiddenTitles,
		HiddenCinemas: s.hiddenCinemas,
	}
	if in.All == nil {
		in.All = s.day
	}
	// search covers archived days that may have started already
	in.All = model.FutureOnly(in.All, s.deps.Now())

	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		Selection:     s.selection.Clone(),
		Mode:          s.mode,
		HiddenTitles:  append([]string{}, s.hiddenTitles...),
		HiddenCinemas: append([]string{}, s.hiddenCinemas...),
		View:          index.Build(in),
	}
	if !s.date.IsZero() {
		snap.Date = utils.FormatISODate(s.date, s.deps.Location)
		snap.Label = utils.LabelForDate(s.date, s.deps.Now(), s.deps.Location)
	}
	if s.loadErr != nil {
		snap.Error = s.loadErr.Error()
	}
	return snap
}

func normalize(sel model.Selection) model.Selection {
	out := sel.Clone()
	if out.Titles == nil {
		out.Titles = []string{}
	}
	if out.Cinemas == nil {
		out.Cinemas = []string{}
	}
	return out
}
