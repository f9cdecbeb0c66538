// Package insights holds the policy insight catalogue shown in the insights
// browser and on the landing page.
package insights

import (
	"cmp"
	"slices"
	"strings"

	"cityops/internal/scenario"
)

// Themes.
const (
	ThemeMobility = "mobility"
	ThemeClimate  = "climate"
	ThemeEnergy   = "energy"
	ThemeHousing  = "housing"
	ThemeHealth   = "health"
)

// Insight is one policy finding.
type Insight struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Summary    string   `json:"summary" yaml:"summary"`
	Theme      string   `json:"theme" yaml:"theme"`
	District   string   `json:"district" yaml:"district"`
	Scenario   string   `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	SDGs       []int    `json:"sdgs" yaml:"sdgs"`
	Impact     float64  `json:"impact" yaml:"impact"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Actions    []string `json:"actions" yaml:"actions"`
}

// Filter narrows Browse. Zero fields match everything.
type Filter struct {
	Theme    string `json:"theme" validate:"omitempty,max=64"`
	District string `json:"district" validate:"omitempty,max=64"`
	SDG      int    `json:"sdg" validate:"gte=0,lte=17"`
	Query    string `json:"q" validate:"omitempty,max=200"`
}

func (f Filter) match(in Insight) bool {
	if f.Theme != "" && !strings.EqualFold(f.Theme, in.Theme) {
		return false
	}
	if f.District != "" && !strings.EqualFold(f.District, in.District) {
		return false
	}
	if f.SDG != 0 && !slices.Contains(in.SDGs, f.SDG) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		text := strings.ToLower(in.Title + " " + in.Summary + " " + strings.Join(in.Actions, " "))
		if !strings.Contains(text, q) {
			return false
		}
	}
	return true
}

// Catalogue is an immutable list of insights.
type Catalogue struct {
	items []Insight
}

// New returns a catalogue over items.
func New(items []Insight) *Catalogue {
	return &Catalogue{items: slices.Clone(items)}
}

// Default returns the built-in catalogue.
func Default() *Catalogue {
	return New(builtIn)
}

// Browse returns matching insights ordered by impact, highest first, then id.
func (c *Catalogue) Browse(f Filter) []Insight {
	var out []Insight
	for _, in := range c.items {
		if f.match(in) {
			out = append(out, in)
		}
	}
	slices.SortStableFunc(out, func(a, b Insight) int {
		if r := cmp.Compare(b.Impact, a.Impact); r != 0 {
			return r
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Get returns the insight with id.
func (c *Catalogue) Get(id string) (Insight, bool) {
	for _, in := range c.items {
		if in.ID == id {
			return in, true
		}
	}
	return Insight{}, false
}

// Themes returns the distinct themes, sorted.
func (c *Catalogue) Themes() []string {
	return c.distinct(func(in Insight) string { return in.Theme })
}

// Districts returns the distinct districts, sorted.
func (c *Catalogue) Districts() []string {
	return c.distinct(func(in Insight) string { return in.District })
}

func (c *Catalogue) distinct(key func(Insight) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, in := range c.items {
		k := key(in)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Highlights returns the n highest impact insights for the landing page.
func (c *Catalogue) Highlights(n int) []Insight {
	all := c.Browse(Filter{})
	if n < len(all) {
		all = all[:n]
	}
	return all
}

var builtIn = []Insight{
	{
		ID:         "mob-001",
		Title:      "Extend the 14th Street busway",
		Summary:    "Crosstown bus speeds rose 24% on the pilot corridor. Extending it to 23rd Street relieves the most congested district.",
		Theme:      ThemeMobility,
		District:   scenario.DistrictCentral,
		Scenario:   scenario.Mobility,
		SDGs:       []int{11, 13},
		Impact:     0.86,
		Confidence: 0.78,
		Actions:    []string{"Extend bus lanes to 23rd Street", "Add transit signal priority at 12 intersections"},
	},
	{
		ID:         "mob-002",
		Title:      "Dynamic curb pricing near transit hubs",
		Summary:    "Curb sensors show 91% peak occupancy around Penn Station. Demand-based pricing would free a space per block.",
		Theme:      ThemeMobility,
		District:   scenario.DistrictWestern,
		Scenario:   scenario.Mobility,
		SDGs:       []int{11},
		Impact:     0.62,
		Confidence: 0.7,
		Actions:    []string{"Pilot demand-based curb pricing", "Reserve loading zones for deliveries before 10am"},
	},
	{
		ID:         "cli-001",
		Title:      "Waterfront flood barrier study",
		Summary:    "Sensors recorded water above 80 cm three times last year. A deployable barrier would protect 4,200 residents.",
		Theme:      ThemeClimate,
		District:   scenario.DistrictWaterfront,
		Scenario:   scenario.ClimateResilience,
		SDGs:       []int{11, 13},
		Impact:     0.91,
		Confidence: 0.55,
		Actions:    []string{"Fund a deployable barrier feasibility study", "Raise critical equipment above the 100-year flood line"},
	},
	{
		ID:         "cli-002",
		Title:      "Cooling centres for the Southern District",
		Summary:    "The district has the lowest resilience index and the oldest housing stock. Heat waves put 1,100 seniors at risk.",
		Theme:      ThemeHealth,
		District:   scenario.DistrictSouthern,
		Scenario:   scenario.ClimateResilience,
		SDGs:       []int{3, 11, 13},
		Impact:     0.74,
		Confidence: 0.82,
		Actions:    []string{"Open two library branches as cooling centres", "Text alerts for registered seniors"},
	},
	{
		ID:         "eng-001",
		Title:      "Demand response at Eastern substations",
		Summary:    "Substation load peaks at 97% on summer afternoons. Enrolling large buildings in demand response cuts peaks by 8%.",
		Theme:      ThemeEnergy,
		District:   scenario.DistrictEastern,
		Scenario:   scenario.EnergyGrid,
		SDGs:       []int{7, 13},
		Impact:     0.81,
		Confidence: 0.74,
		Actions:    []string{"Enroll buildings above 50,000 sq ft", "Pre-cool municipal buildings on forecast peak days"},
	},
	{
		ID:         "eng-002",
		Title:      "Rooftop solar on public housing",
		Summary:    "Twelve housing campuses have unshaded roofs. Community solar would offset 18% of their common-area load.",
		Theme:      ThemeEnergy,
		District:   scenario.DistrictNorthern,
		Scenario:   scenario.EnergyGrid,
		SDGs:       []int{7, 11},
		Impact:     0.58,
		Confidence: 0.66,
		Actions:    []string{"Survey roof condition on 12 campuses", "Issue a community solar RFP"},
	},
	{
		ID:         "hou-001",
		Title:      "Retrofit fund for pre-war buildings",
		Summary:    "Pre-war buildings use twice the heating energy per unit. A revolving fund would pay back in nine years.",
		Theme:      ThemeHousing,
		District:   scenario.DistrictNorthern,
		SDGs:       []int{7, 11},
		Impact:     0.69,
		Confidence: 0.61,
		Actions:    []string{"Capitalise a revolving retrofit fund", "Offer free energy audits"},
	},
}
