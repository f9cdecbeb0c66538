package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cityops/internal/schedule"
)

// ErrUnknownArea is returned for an area without a script.
var ErrUnknownArea = errors.New("chat: unknown area")

// ErrUnknownSection is returned when selecting a section the area lacks.
var ErrUnknownSection = errors.New("chat: unknown section")

// Default delays.
const (
	DefaultResponseDelay = 900 * time.Millisecond
	DefaultRefineDelay   = 2500 * time.Millisecond
)

// Message is one transcript line.
type Message struct {
	Role    string    `json:"role"`
	Text    string    `json:"text"`
	Section string    `json:"section"`
	At      time.Time `json:"at"`
}

// State is a copy of a session's observable state.
type State struct {
	Area           string    `json:"area"`
	Section        string    `json:"section"`
	Turns          int       `json:"turns"`
	Excluded       bool      `json:"excluded"`
	Refined        bool      `json:"refined"`
	Refining       bool      `json:"refining"`
	DistrictFilter string    `json:"district_filter,omitempty"`
	Transcript     []Message `json:"transcript"`
}

// Reply is the assistant's answer to one input.
type Reply struct {
	Text     string `json:"text"`
	Section  string `json:"section"`
	Intent   string `json:"intent,omitempty"`
	District string `json:"district,omitempty"`
	// RevealAfter is how long clients show a typing indicator before the
	// text.
	RevealAfter time.Duration `json:"-"`
	State       State         `json:"state"`
}

// Options configures a Responder.
type Options struct {
	Scripts       map[string]Script
	ResponseDelay time.Duration
	RefineDelay   time.Duration
	Now           func() time.Time
}

// Responder produces scripted replies. It holds no per-visitor state and is
// safe for concurrent use.
type Responder struct {
	scripts       map[string]Script
	responseDelay time.Duration
	refineDelay   time.Duration
	now           func() time.Time
}

// NewResponder applies defaults to opts.
func NewResponder(opts Options) *Responder {
	if opts.Scripts == nil {
		opts.Scripts = DefaultScripts()
	}
	if opts.ResponseDelay < 0 {
		opts.ResponseDelay = 0
	}
	if opts.RefineDelay <= 0 {
		opts.RefineDelay = DefaultRefineDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Responder{
		scripts:       opts.Scripts,
		responseDelay: opts.ResponseDelay,
		refineDelay:   opts.RefineDelay,
		now:           opts.Now,
	}
}

// Areas returns the areas with a script.
func (r *Responder) Areas() []string {
	var out []string
	for _, a := range []string{AreaUpload, AreaInsights} {
		if _, ok := r.scripts[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Session is the per-visitor state of one assistant area.
type Session struct {
	mu       sync.Mutex
	script   Script
	sched    *schedule.Scheduler
	ownSched bool
	section  string
	turns    map[string]int
	excluded bool
	refined  bool
	refining bool
	district string
	log      []Message
	refine   schedule.Handle
	closed   bool
}

// NewSession starts a session for area. Delayed work runs on sched; when
// sched is nil the session creates and owns one.
func (r *Responder) NewSession(area string, sched *schedule.Scheduler) (*Session, error) {
	sc, ok := r.scripts[area]
	if !ok || len(sc.Sections) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArea, area)
	}
	s := &Session{script: sc, sched: sched, turns: make(map[string]int), section: sc.Sections[0].Name}
	if s.sched == nil {
		s.sched = schedule.New()
		s.ownSched = true
	}
	return s, nil
}

// SelectSection switches the active section. Turn counts are kept per
// section.
func (s *Session) SelectSection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.script.Section(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, name)
	}
	s.section = name
	return nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		Area:           s.script.Area,
		Section:        s.section,
		Turns:          s.turns[s.section],
		Excluded:       s.excluded,
		Refined:        s.refined,
		Refining:       s.refining,
		DistrictFilter: s.district,
		Transcript:     append([]Message(nil), s.log...),
	}
}

// Close cancels a pending refinement. The session keeps answering but no
// delayed state change will land after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	h := s.refine
	s.refining = false
	s.mu.Unlock()
	h.Cancel()
	if s.ownSched {
		s.sched.Close()
	}
}

func (s *Session) appendLocked(role, text string, at time.Time) {
	s.log = append(s.log, Message{Role: role, Text: text, Section: s.section, At: at})
}

// Reply answers input within the session's active section and applies the
// side effects of the detected intent.
func (r *Responder) Reply(s *Session, input string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := r.now()
	s.appendLocked("user", input, now)
	turn := s.turns[s.section]
	s.turns[s.section] = turn + 1

	rep := Reply{Section: s.section, RevealAfter: r.responseDelay}
	switch s.script.Area {
	case AreaUpload:
		r.upload(s, input, turn, &rep)
	default:
		r.insights(s, input, turn, &rep)
	}
	s.appendLocked("assistant", rep.Text, now.Add(rep.RevealAfter))
	rep.State = s.stateLocked()
	return rep
}

func (r *Responder) upload(s *Session, input string, turn int, rep *Reply) {
	if d, ok := Classify(DistrictKeywords, input); ok {
		s.district = d
		rep.District = d
		rep.Text = districtReply(AreaUpload, d)
		return
	}
	if intent, ok := Classify(IntentKeywords, input); ok && intent == IntentClear {
		s.district = ""
		rep.Intent = intent
		rep.Text = clearReply(AreaUpload)
		return
	}
	rep.Text = r.canned(s, turn)
}

func (r *Responder) insights(s *Session, input string, turn int, rep *Reply) {
	intent, ok := Classify(IntentKeywords, input)
	if !ok {
		if d, found := Classify(DistrictKeywords, input); found {
			s.district = d
			rep.District = d
			rep.Text = districtReply(AreaInsights, d)
			return
		}
		rep.Text = r.canned(s, turn)
		return
	}
	rep.Intent = intent
	switch intent {
	case IntentExclude:
		s.excluded = !s.excluded
		rep.Text = excludeReply(s.excluded)
	case IntentRefine:
		switch {
		case s.refining:
			rep.Text = refineBusyReply
		case s.refined:
			rep.Text = refineAlreadyReply
		default:
			s.refining = true
			rep.Text = refineStartReply
			s.refine = s.sched.After(r.refineDelay, func() { r.finishRefine(s) })
		}
	case IntentClear:
		s.district = ""
		rep.Text = clearReply(AreaInsights)
	}
}

func (r *Responder) finishRefine(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.refining {
		return
	}
	s.refining = false
	s.refined = true
	s.appendLocked("assistant", refineDoneReply, r.now())
}

func (r *Responder) canned(s *Session, turn int) string {
	sec, _ := s.script.Section(s.section)
	return sec.Response(turn)
}
