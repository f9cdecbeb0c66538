// Package scenario holds the command-center scenario definitions: map
// layers, KPIs and the canned narrative shown for each scenario.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"
)

// Visualization kinds a layer can be rendered as.
const (
	KindFlow       = "flow"
	KindChoropleth = "choropleth"
	KindPoint      = "point"
)

// ErrUnknownScenario is returned when a key is not in the registry.
var ErrUnknownScenario = errors.New("unknown scenario")

// Style describes how a layer is painted before focus scaling.
type Style struct {
	Color     string     `yaml:"color" json:"color"`
	Ramp      []string   `yaml:"ramp,omitempty" json:"ramp,omitempty"`
	Property  string     `yaml:"property,omitempty" json:"property,omitempty"`
	Fallbacks []string   `yaml:"fallbacks,omitempty" json:"fallbacks,omitempty"`
	Domain    [2]float64 `yaml:"domain,omitempty" json:"domain"`
	Width     float64    `yaml:"width,omitempty" json:"width,omitempty"`
	Radius    float64    `yaml:"radius,omitempty" json:"radius,omitempty"`
	Opacity   float64    `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	Intensity float64    `yaml:"intensity,omitempty" json:"intensity"`
}

// Layer is one map layer of a scenario.
type Layer struct {
	ID     string                     `yaml:"id" json:"id"`
	Label  string                     `yaml:"label" json:"label"`
	Legend string                     `yaml:"legend,omitempty" json:"legend,omitempty"`
	Kind   string                     `yaml:"kind" json:"kind"`
	Style  Style                      `yaml:"style" json:"style"`
	Data   *geojson.FeatureCollection `yaml:"-" json:"data"`

	// Source is a .geojson path relative to the scenario file; GeoJSON is
	// inline feature collection text. One of them is required when loading.
	Source  string `yaml:"source,omitempty" json:"-"`
	GeoJSON string `yaml:"geojson,omitempty" json:"-"`
}

// KPI is a headline metric card.
type KPI struct {
	Label     string  `yaml:"label" json:"label"`
	Value     float64 `yaml:"value" json:"value"`
	Unit      string  `yaml:"unit,omitempty" json:"unit,omitempty"`
	Change    string  `yaml:"change,omitempty" json:"change,omitempty"`
	Direction string  `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// TrendPoint is one row of the scenario forecast chart.
type TrendPoint struct {
	Period    string  `yaml:"period" json:"period"`
	Baseline  float64 `yaml:"baseline" json:"baseline"`
	Projected float64 `yaml:"projected" json:"projected"`
}

// Insight is a canned finding shown beside the map.
type Insight struct {
	Title    string `yaml:"title" json:"title"`
	Body     string `yaml:"body" json:"body"`
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// Action is a canned recommended intervention.
type Action struct {
	Label  string `yaml:"label" json:"label"`
	Owner  string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Impact string `yaml:"impact,omitempty" json:"impact,omitempty"`
}

// Module is a copilot capability tile.
type Module struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Status string `yaml:"status" json:"status"`
}

// Mission is a copilot task with scripted progress.
type Mission struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Status   string `yaml:"status" json:"status"`
	Progress int    `yaml:"progress" json:"progress"`
}

// Message is one line of a canned copilot transcript.
type Message struct {
	Role string `yaml:"role" json:"role"`
	Text string `yaml:"text" json:"text"`
}

// Copilot bundles the copilot panel content for a scenario.
type Copilot struct {
	Modules    []Module  `yaml:"modules,omitempty" json:"modules"`
	Missions   []Mission `yaml:"missions,omitempty" json:"missions"`
	Transcript []Message `yaml:"transcript,omitempty" json:"transcript"`
}

// Definition is a complete scenario bundle.
type Definition struct {
	Key       string       `yaml:"key" json:"key"`
	Title     string       `yaml:"title" json:"title"`
	Subtitle  string       `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Narrative string       `yaml:"narrative,omitempty" json:"narrative,omitempty"`
	Layers    []Layer      `yaml:"layers" json:"layers"`
	KPIs      []KPI        `yaml:"kpis,omitempty" json:"kpis"`
	Trend     []TrendPoint `yaml:"trend,omitempty" json:"trend"`
	Insights  []Insight    `yaml:"insights,omitempty" json:"insights"`
	Actions   []Action     `yaml:"actions,omitempty" json:"actions"`
	Copilot   Copilot      `yaml:"copilot,omitempty" json:"copilot"`
}

// Collections returns the feature collections of all layers.
func (d *Definition) Collections() []*geojson.FeatureCollection {
	out := make([]*geojson.FeatureCollection, 0, len(d.Layers))
	for _, l := range d.Layers {
		out = append(out, l.Data)
	}
	return out
}

// Validate checks keys, kinds and layer id uniqueness.
func (d *Definition) Validate() error {
	if d.Key == "" {
		return errors.New("scenario key is required")
	}
	seen := make(map[string]bool, len(d.Layers))
	for _, l := range d.Layers {
		if l.ID == "" {
			return fmt.Errorf("scenario %s: layer id is required", d.Key)
		}
		if seen[l.ID] {
			return fmt.Errorf("scenario %s: duplicate layer id %s", d.Key, l.ID)
		}
		seen[l.ID] = true
		switch l.Kind {
		case KindFlow, KindChoropleth, KindPoint:
		default:
			return fmt.Errorf("scenario %s: layer %s has unknown kind %q", d.Key, l.ID, l.Kind)
		}
		if l.Data == nil {
			return fmt.Errorf("scenario %s: layer %s has no data", d.Key, l.ID)
		}
	}
	return nil
}

type file struct {
	Scenarios []Definition `yaml:"scenarios"`
}

// Load reads scenario definitions from a YAML file and resolves each
// layer's GeoJSON.
func Load(path string) ([]Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	dir := filepath.Dir(path)
	for i := range f.Scenarios {
		d := &f.Scenarios[i]
		for j := range d.Layers {
			if err := resolveData(dir, &d.Layers[j]); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", d.Key, err)
			}
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Scenarios, nil
}

func resolveData(dir string, l *Layer) error {
	var raw []byte
	switch {
	case l.GeoJSON != "":
		raw = []byte(l.GeoJSON)
	case l.Source != "":
		src := l.Source
		if !filepath.IsAbs(src) {
			src = filepath.Join(dir, src)
		}
		b, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("layer %s: read geojson: %w", l.ID, err)
		}
		raw = b
	default:
		return fmt.Errorf("layer %s: source or geojson required", l.ID)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return fmt.Errorf("layer %s: parse geojson: %w", l.ID, err)
	}
	l.Data = fc
	return nil
}
