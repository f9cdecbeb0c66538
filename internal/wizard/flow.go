// Package wizard drives the Create VLR (Voluntary Local Review) wizard: an
// ordered set of steps that advance on events, with a simulated processing
// step that completes on a timer.
package wizard

// Step names in display order.
const (
	StepCityProfile   = "city-profile"
	StepDataUpload    = "data-upload"
	StepProcessing    = "processing"
	StepSDGAlignment  = "sdg-alignment"
	StepInsightReview = "insight-review"
	StepPublish       = "publish"
)

// Events that move the wizard between steps.
const (
	EventSubmitted          = "submitted"
	EventProcessingComplete = "processing_complete"
	EventPublished          = "published"
)

// Flow is the ordered list of wizard steps.
type Flow struct {
	Steps []Step `yaml:"steps"`
}

// Step is one page of the wizard with the fields it requires and the
// triggers that leave it.
type Step struct {
	Name        string    `yaml:"name" json:"name"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Required    []string  `yaml:"required,omitempty" json:"required,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty" json:"-"`
}

// Trigger moves the wizard to another step when Event occurs.
type Trigger struct {
	Event string `yaml:"event"`
	Next  string `yaml:"next"`
}

// Event is a runtime occurrence that may advance the wizard.
type Event struct {
	Type string
}

// DefaultFlow returns the six-step VLR wizard.
func DefaultFlow() Flow {
	return Flow{Steps: []Step{
		{
			Name:        StepCityProfile,
			Title:       "City profile",
			Description: "Name the review and the reporting year.",
			Required:    []string{"title", "city", "year"},
			Triggers:    []Trigger{{Event: EventSubmitted, Next: StepDataUpload}},
		},
		{
			Name:        StepDataUpload,
			Title:       "Data upload",
			Description: "Attach the datasets the review draws on.",
			Required:    []string{"datasets"},
			Triggers:    []Trigger{{Event: EventSubmitted, Next: StepProcessing}},
		},
		{
			Name:        StepProcessing,
			Title:       "Processing",
			Description: "Datasets are validated and joined to district boundaries.",
			Triggers:    []Trigger{{Event: EventProcessingComplete, Next: StepSDGAlignment}},
		},
		{
			Name:        StepSDGAlignment,
			Title:       "SDG alignment",
			Description: "Choose the Sustainable Development Goals the review reports on.",
			Required:    []string{"sdgs"},
			Triggers:    []Trigger{{Event: EventSubmitted, Next: StepInsightReview}},
		},
		{
			Name:        StepInsightReview,
			Title:       "Insight review",
			Description: "Review generated insights with the copilot.",
			Triggers:    []Trigger{{Event: EventSubmitted, Next: StepPublish}},
		},
		{
			Name:        StepPublish,
			Title:       "Publish",
			Description: "Publish the review as a draft VLR document.",
			Triggers:    []Trigger{{Event: EventSubmitted, Next: ""}},
		},
	}}
}

// Step returns the named step.
func (f Flow) Step(name string) (Step, bool) {
	i := f.index(name)
	if i < 0 {
		return Step{}, false
	}
	return f.Steps[i], true
}

func (f Flow) index(name string) int {
	for i, s := range f.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// NextStep returns the step that follows current for ev. An empty next
// with ok true means the wizard is finished.
func (f Flow) NextStep(current string, ev Event) (next string, ok bool) {
	for _, s := range f.Steps {
		if s.Name != current {
			continue
		}
		for _, tr := range s.Triggers {
			if tr.Event == ev.Type {
				return tr.Next, true
			}
		}
	}
	return "", false
}
