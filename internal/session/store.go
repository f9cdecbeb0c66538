package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cityops/internal/chat"
	"cityops/internal/geo"
	"cityops/internal/logging"
	"cityops/internal/mapsync"
	"cityops/internal/scenario"
	"cityops/internal/wizard"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session: not found")

// Defaults for Options.
const (
	DefaultIdleTimeout  = 30 * time.Minute
	DefaultReapInterval = time.Minute
)

// Options configures the sessions a Store creates.
type Options struct {
	Registry        *scenario.Registry
	DefaultScenario string
	Responder       *chat.Responder
	Flow            wizard.Flow
	Frame           geo.FrameOptions
	Focus           float64
	ProcessingDelay time.Duration
	IdleTimeout     time.Duration
	Now             func() time.Time
	// OnReap is called by Run with the number of sessions each sweep
	// removed.
	OnReap func(n int)
}

// Store indexes live sessions by id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
}

// NewStore fills unset options with defaults.
func NewStore(opts Options) *Store {
	if opts.Registry == nil {
		opts.Registry = scenario.DefaultRegistry()
	}
	if opts.Responder == nil {
		opts.Responder = chat.NewResponder(chat.Options{})
	}
	if len(opts.Flow.Steps) == 0 {
		opts.Flow = wizard.DefaultFlow()
	}
	if opts.Focus == 0 {
		opts.Focus = mapsync.DefaultFocus
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{sessions: make(map[string]*Session), opts: opts}
}

// Create starts a session on the default scenario.
func (st *Store) Create() (*Session, error) {
	s, err := newSession(uuid.NewString(), st.opts.Now(), st.opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// Get returns the session with id and marks it as active.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(st.opts.Now())
	return s, nil
}

// Delete closes and removes the session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Close()
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Reap closes sessions idle for longer than the idle timeout and returns
// how many were removed.
func (st *Store) Reap(now time.Time) int {
	var idle []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.opts.IdleTimeout {
			idle = append(idle, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

// Run reaps idle sessions every interval until ctx is done, then closes
// every remaining session.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	log := logging.FromContext(ctx)
	log.Info("session reaper starting", "interval", interval, "idle_timeout", st.opts.IdleTimeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := st.Reap(st.opts.Now()); n > 0 {
				log.Info("reaped idle sessions", "count", n, "live", st.Len())
				if st.opts.OnReap != nil {
					st.opts.OnReap(n)
				}
			}
		case <-ctx.Done():
			st.Close()
			log.Info("session reaper stopped")
			return
		}
	}
}

// Close closes every session.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
