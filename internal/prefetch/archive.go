package prefetch

import (
	"slices"
	"sync"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// Archive keeps the latest aggregated show list per calendar date.  It is
// the multi-day set free-text search runs over; re-aggregating a date
// replaces that date's entry, so a day is never counted twice.
type Archive struct {
	mu   sync.RWMutex
	loc  *time.Location
	now  func() time.Time
	days map[string][]model.Show
}

// NewArchive returns an empty Archive keyed by dates in loc.  now decides
// which days have passed.
func NewArchive(loc *time.Location, now func() time.Time) *Archive {
	if now == nil {
		now = time.Now
	}
	return &Archive{loc: loc, now: now, days: map[string][]model.Show{}}
}

// Put stores shows as the current list for date's calendar day and drops
// every day before today.
func (a *Archive) Put(date time.Time, shows []model.Show) {
	key := utils.FormatISODate(date, a.loc)
	today := utils.FormatISODate(a.now(), a.loc)
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.days {
		if k < today {
			delete(a.days, k)
		}
	}
	if key < today {
		return
	}
	a.days[key] = slices.Clone(shows)
}

// Len returns the number of archived days.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.days)
}

// All returns every stored show, ordered by date key.
func (a *Archive) All() []model.Show {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.days))
	for k := range a.days {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var out []model.Show
	for _, k := range keys {
		out = append(out, a.days[k]...)
	}
	return out
}
