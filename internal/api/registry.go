package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/wizard"
)

// ErrTooManySessions is returned by Create when the registry is full.
var ErrTooManySessions = errors.New("too many active sessions")

// Registry keeps the live wizard sessions of the process.
type Registry struct {
	newSession func() *wizard.Session
	ttl        time.Duration
	max        int

	mu       sync.Mutex
	sessions map[string]*wizard.Session
}

// NewRegistry creates a registry. Sessions idle for longer than ttl are
// closed by Sweep; max bounds the number of live sessions (0 means no
// bound).
func NewRegistry(newSession func() *wizard.Session, ttl time.Duration, max int) *Registry {
	return &Registry{
		newSession: newSession,
		ttl:        ttl,
		max:        max,
		sessions:   make(map[string]*wizard.Session),
	}
}

// Create starts a session.
func (r *Registry) Create() (*wizard.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, ErrTooManySessions
	}
	s := r.newSession()
	r.sessions[s.ID()] = s
	log.Debug().Str("session", s.ID()).Int("active", len(r.sessions)).Msg("Session created")
	return s, nil
}

// Get returns the session with id, or nil.
func (r *Registry) Get(id string) *wizard.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Delete closes and forgets a session. It reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle since before now-ttl and returns how many.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var expired []*wizard.Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) > r.ttl && !s.Generating() {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("Idle sessions closed")
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*wizard.Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
