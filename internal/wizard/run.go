package wizard

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"cityops/internal/schedule"
)

var (
	// ErrUnknownStep is returned for a step name the flow does not define.
	ErrUnknownStep = errors.New("wizard: unknown step")
	// ErrNotCurrent is returned when submitting a step other than the
	// current one.
	ErrNotCurrent = errors.New("wizard: step is not current")
	// ErrNoSubmit is returned for steps that advance on their own.
	ErrNoSubmit = errors.New("wizard: step cannot be submitted")
	// ErrAtStart is returned by Back on the first step.
	ErrAtStart = errors.New("wizard: already at first step")
	// ErrPublished is returned once the review has been published.
	ErrPublished = errors.New("wizard: review already published")
)

// FieldError reports missing or malformed step fields.
type FieldError struct {
	Step   string
	Fields map[string]string
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("wizard: step %s: %s", e.Step, strings.Join(parts, "; "))
}

// Review statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// DefaultProcessingDelay is how long the processing step takes.
const DefaultProcessingDelay = 3 * time.Second

// Run is one visitor's pass through a Flow.
type Run struct {
	mu         sync.Mutex
	flow       Flow
	sched      *schedule.Scheduler
	ownSched   bool
	processing time.Duration
	step       string
	history    []string
	fields     map[string]string
	status     string
	pending    schedule.Handle
	now        func() time.Time
	published  time.Time
}

// NewRun starts a run at the first step of flow. Timed steps are scheduled
// on sched; a nil sched gives the run its own.
func NewRun(flow Flow, sched *schedule.Scheduler, processing time.Duration) *Run {
	if processing <= 0 {
		processing = DefaultProcessingDelay
	}
	r := &Run{flow: flow, sched: sched, processing: processing, fields: make(map[string]string), status: StatusDraft, now: time.Now}
	if r.sched == nil {
		r.sched = schedule.New()
		r.ownSched = true
	}
	if len(flow.Steps) > 0 {
		r.step = flow.Steps[0].Name
	}
	return r
}

// Current returns the active step name.
func (r *Run) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

// Submit completes step with fields and advances the wizard.
func (r *Run) Submit(step string, fields map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.flow.Step(step)
	if !ok {
		return r.step, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if r.status == StatusPublished {
		return r.step, ErrPublished
	}
	if step != r.step {
		return r.step, fmt.Errorf("%w: %s (current %s)", ErrNotCurrent, step, r.step)
	}
	next, ok := r.flow.NextStep(step, Event{Type: EventSubmitted})
	if !ok {
		return r.step, fmt.Errorf("%w: %s", ErrNoSubmit, step)
	}
	if err := checkFields(st, fields); err != nil {
		return r.step, err
	}
	for k, v := range fields {
		r.fields[k] = strings.TrimSpace(v)
	}
	if next == "" {
		r.status = StatusPublished
		r.published = r.now()
		return r.step, nil
	}
	r.enterLocked(next)
	return r.step, nil
}

func (r *Run) enterLocked(next string) {
	r.history = append(r.history, r.step)
	r.step = next
	if next == StepProcessing {
		r.pending = r.sched.After(r.processing, func() { r.Fire(Event{Type: EventProcessingComplete}) })
	}
}

// Fire applies an event to the current step. It reports whether the wizard
// moved.
func (r *Run) Fire(ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, ok := r.flow.NextStep(r.step, ev)
	if !ok || next == "" {
		return false
	}
	r.enterLocked(next)
	return true
}

// Back returns to the previous step. Leaving processing early cancels it.
func (r *Run) Back() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusPublished {
		return r.step, ErrPublished
	}
	if len(r.history) == 0 {
		return r.step, ErrAtStart
	}
	r.pending.Cancel()
	r.step = r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	// Processing only runs forward.
	if r.step == StepProcessing && len(r.history) > 0 {
		r.step = r.history[len(r.history)-1]
		r.history = r.history[:len(r.history)-1]
	}
	return r.step, nil
}

// Close cancels the processing timer, if any.
func (r *Run) Close() {
	r.mu.Lock()
	h := r.pending
	r.mu.Unlock()
	h.Cancel()
	if r.ownSched {
		r.sched.Close()
	}
}

// Report is the VLR document metadata collected so far.
type Report struct {
	Title       string     `json:"title"`
	City        string     `json:"city"`
	Year        int        `json:"year,omitempty"`
	SDGs        []string   `json:"sdgs"`
	Districts   []string   `json:"districts"`
	Datasets    []string   `json:"datasets"`
	Status      string     `json:"status"`
	Step        string     `json:"step"`
	StepIndex   int        `json:"step_index"`
	Steps       []Step     `json:"steps"`
	Progress    float64    `json:"progress"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Report summarizes the run.
func (r *Run) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.flow.index(r.step)
	rep := Report{
		Title:     r.fields["title"],
		City:      r.fields["city"],
		SDGs:      normalizeSDGs(splitList(r.fields["sdgs"])),
		Districts: splitList(r.fields["districts"]),
		Datasets:  splitList(r.fields["datasets"]),
		Status:    r.status,
		Step:      r.step,
		StepIndex: idx,
		Steps:     r.flow.Steps,
	}
	rep.Year, _ = strconv.Atoi(r.fields["year"])
	if n := len(r.flow.Steps); n > 1 && idx >= 0 {
		rep.Progress = float64(idx) / float64(n-1)
	}
	if r.status == StatusPublished {
		rep.Progress = 1
		at := r.published
		rep.PublishedAt = &at
	}
	return rep
}

func checkFields(st Step, fields map[string]string) error {
	bad := map[string]string{}
	for _, name := range st.Required {
		if strings.TrimSpace(fields[name]) == "" {
			bad[name] = "required"
		}
	}
	if y, ok := fields["year"]; ok && bad["year"] == "" {
		n, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil || n < 2000 || n > 2100 {
			bad["year"] = "must be a year between 2000 and 2100"
		}
	}
	if s, ok := fields["sdgs"]; ok && bad["sdgs"] == "" {
		for _, g := range splitList(s) {
			if _, err := sdgNumber(g); err != nil {
				bad["sdgs"] = err.Error()
				break
			}
		}
	}
	if len(bad) > 0 {
		return &FieldError{Step: st.Name, Fields: bad}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sdgNumber(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(s), "SDG"))
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 17 {
		return 0, fmt.Errorf("%q is not an SDG between 1 and 17", s)
	}
	return n, nil
}

func normalizeSDGs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, g := range in {
		if n, err := sdgNumber(g); err == nil {
			out = append(out, "SDG "+strconv.Itoa(n))
		}
	}
	return slices.Compact(out)
}
