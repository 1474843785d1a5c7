package repository

import (
	"context" // context stops the janitor loop
	"sync"    // sessions are shared between request goroutines
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/session"
)

// SessionRepo stores sessions by id.  Nothing survives a restart; idle
// sessions are evicted after ttl by Sweep.
type SessionRepo struct {
	mu    sync.RWMutex
	items map[string]*session.Session
	ttl   time.Duration // zero keeps sessions forever
}

// NewSessionRepo constructs an empty SessionRepo.
func NewSessionRepo(ttl time.Duration) *SessionRepo {
	return &SessionRepo{items: make(map[string]*session.Session), ttl: ttl}
}

// Create registers s under its id.  It returns ErrConflict if the id is
// already in use.
func (r *SessionRepo) Create(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID()]; ok {
		return ErrConflict
	}
	r.items[s.ID()] = s
	metrics.Sessions.Set(float64(len(r.items)))
	return nil
}

// Get returns the session with the given id or ErrSessionNotFound.
func (r *SessionRepo) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	s, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session.  Deleting an unknown id returns
// ErrSessionNotFound.
func (r *SessionRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.items, id)
	metrics.Sessions.Set(float64(len(r.items)))
	return nil
}

// Len returns the number of live sessions.
func (r *SessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Sweep evicts sessions idle since before now-ttl and returns how many were
// removed.
func (r *SessionRepo) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.items {
		if s.LastSeen().Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	metrics.Sessions.Set(float64(len(r.items)))
	return n
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (r *SessionRepo) RunJanitor(ctx context.Context, every time.Duration) {
	if r.ttl <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := r.Sweep(now); n > 0 {
				logging.Debug().Int("evicted", n).Msg("idle sessions evicted")
			}
		}
	}
}
