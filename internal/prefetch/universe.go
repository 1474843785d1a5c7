package prefetch

import (
	"slices"
	"sync"

	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// Universe accumulates every distinct title and cinema observed during the
// process lifetime.  It only grows.
type Universe struct {
	mu      sync.RWMutex
	titles  map[string]struct{}
	cinemas map[string]struct{}
}

// NewUniverse returns an empty Universe.
func NewUniverse() *Universe {
	return &Universe{titles: map[string]struct{}{}, cinemas: map[string]struct{}{}}
}

// Add folds the titles and cinemas of shows into the universe.
func (u *Universe) Add(shows []model.Show) {
	if len(shows) == 0 {
		return
	}
	u.mu.Lock()
	for _, s := range shows {
		u.titles[s.Title] = struct{}{}
		u.cinemas[s.Cinema] = struct{}{}
	}
	nt, nc := len(u.titles), len(u.cinemas)
	u.mu.Unlock()

	metrics.UniverseSize.WithLabelValues("titles").Set(float64(nt))
	metrics.UniverseSize.WithLabelValues("cinemas").Set(float64(nc))
}

// Titles returns the known titles in byte order.
func (u *Universe) Titles() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return sortedKeys(u.titles)
}

// Cinemas returns the known cinemas in byte order.
func (u *Universe) Cinemas() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return sortedKeys(u.cinemas)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
