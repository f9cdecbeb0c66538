// Package session keeps per-visitor dashboard state: the selected scenario,
// the focus value, the recorded map widget, the chat assistants and the VLR
// wizard. Every delayed task a session starts runs on its own scheduler so
// closing the session cancels all of them.
package session

import (
	"fmt"
	"sync"
	"time"

	"cityops/internal/chat"
	"cityops/internal/geo"
	"cityops/internal/mapsync"
	"cityops/internal/scenario"
	"cityops/internal/schedule"
	"cityops/internal/wizard"
)

// Session is one visitor's dashboard.
type Session struct {
	ID      string
	Created time.Time

	mu        sync.Mutex
	lastSeen  time.Time
	registry  *scenario.Registry
	responder *chat.Responder
	sched     *schedule.Scheduler
	recorder  *mapsync.Recorder
	sync      *mapsync.Synchronizer
	viewport  geo.Viewport
	chats     map[string]*chat.Session
	wizard    *wizard.Run
	closed    bool
}

func newSession(id string, now time.Time, opts Options) (*Session, error) {
	s := &Session{
		ID:        id,
		Created:   now,
		lastSeen:  now,
		registry:  opts.Registry,
		responder: opts.Responder,
		sched:     schedule.New(),
		recorder:  mapsync.NewRecorder(),
		chats:     make(map[string]*chat.Session),
	}
	s.sync = mapsync.New(s.recorder, mapsync.Options{Frame: opts.Frame, Focus: opts.Focus})
	s.wizard = wizard.NewRun(opts.Flow, s.sched, opts.ProcessingDelay)
	for _, area := range opts.Responder.Areas() {
		cs, err := opts.Responder.NewSession(area, s.sched)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.chats[area] = cs
	}
	key := opts.DefaultScenario
	if key == "" && opts.Registry.Default() != nil {
		key = opts.Registry.Default().Key
	}
	if key != "" {
		if _, _, err := s.SelectScenario(key); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// State is a JSON view of a session.
type State struct {
	ID       string       `json:"id"`
	Scenario string       `json:"scenario"`
	Focus    float64      `json:"focus"`
	Layers   []string     `json:"layers"`
	Viewport geo.Viewport `json:"viewport"`
	Created  time.Time    `json:"created"`
	LastSeen time.Time    `json:"last_seen"`
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:       s.ID,
		Scenario: s.sync.Scenario(),
		Focus:    s.sync.Focus(),
		Layers:   s.sync.LayerIDs(),
		Viewport: s.viewport,
		Created:  s.Created,
		LastSeen: s.lastSeen,
	}
}

// SelectScenario syncs the map to key and frames its data.
func (s *Session) SelectScenario(key string) (*scenario.Definition, geo.Viewport, error) {
	def, err := s.registry.Get(key)
	if err != nil {
		return nil, geo.Viewport{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync.Sync(def); err != nil {
		return nil, geo.Viewport{}, fmt.Errorf("sync %s: %w", key, err)
	}
	v, err := s.sync.Frame(def)
	if err != nil {
		return nil, geo.Viewport{}, fmt.Errorf("frame %s: %w", key, err)
	}
	s.viewport = v
	return def, v, nil
}

// SetFocus rescales the map layers and returns the clamped focus.
func (s *Session) SetFocus(focus float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync.SetFocus(focus); err != nil {
		return s.sync.Focus(), err
	}
	return s.sync.Focus(), nil
}

// Ops returns the widget operations recorded since the previous call. With
// full set it returns a snapshot that rebuilds the map from empty and
// discards the pending log.
func (s *Session) Ops(full bool) []mapsync.Op {
	if full {
		s.recorder.Drain()
		return s.recorder.Snapshot()
	}
	return s.recorder.Drain()
}

// Chat answers input in area, first switching to section when it is set.
func (s *Session) Chat(area, section, input string) (chat.Reply, error) {
	cs, ok := s.chats[area]
	if !ok {
		return chat.Reply{}, fmt.Errorf("%w: %q", chat.ErrUnknownArea, area)
	}
	if section != "" {
		if err := cs.SelectSection(section); err != nil {
			return chat.Reply{}, err
		}
	}
	return s.responder.Reply(cs, input), nil
}

// ChatState returns the state of the assistant for area.
func (s *Session) ChatState(area string) (chat.State, error) {
	cs, ok := s.chats[area]
	if !ok {
		return chat.State{}, fmt.Errorf("%w: %q", chat.ErrUnknownArea, area)
	}
	return cs.State(), nil
}

// Wizard returns the session's VLR wizard run.
func (s *Session) Wizard() *wizard.Run { return s.wizard }

// Pending returns the number of scheduled tasks that have not run.
func (s *Session) Pending() int { return s.sched.Pending() }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close cancels every pending timer. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	for _, cs := range s.chats {
		cs.Close()
	}
	s.wizard.Close()
	s.sched.Close()
}
