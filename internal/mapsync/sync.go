package mapsync

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"cityops/internal/geo"
	"cityops/internal/scenario"
)

// trackedLayer remembers what was added for one widget layer so focus
// changes can be pushed without re-adding it.
type trackedLayer struct {
	id    string
	kind  string
	pass  string
	style style
}

// Synchronizer owns the scenario layers inside one Widget. It is not safe
// for concurrent use; callers serialize access the same way UI callbacks do.
type Synchronizer struct {
	widget   Widget
	frame    geo.FrameOptions
	scenario string
	focus    float64
	sources  []string
	layers   []trackedLayer
}

// Options configures a Synchronizer.
type Options struct {
	Frame geo.FrameOptions
	Focus float64
}

// New returns a Synchronizer driving w.
func New(w Widget, opts Options) *Synchronizer {
	return &Synchronizer{widget: w, frame: opts.Frame, focus: ClampFocus(opts.Focus)}
}

// SourceID is the widget source id for a scenario layer.
func SourceID(scenarioKey, layerID string) string {
	return scenarioKey + "-" + layerID
}

// Scenario returns the key of the last synced scenario.
func (s *Synchronizer) Scenario() string { return s.scenario }

// Focus returns the current focus value.
func (s *Synchronizer) Focus() float64 { return s.focus }

// LayerIDs returns the widget layer ids added by the last Sync.
func (s *Synchronizer) LayerIDs() []string {
	out := make([]string, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.id
	}
	return out
}

// Sync replaces the previously added layers and sources with def's layers,
// painted at the current focus. Syncing the same scenario twice leaves the
// widget with the same layer set.
func (s *Synchronizer) Sync(def *scenario.Definition) error {
	if def == nil {
		return errors.New("mapsync: nil scenario")
	}
	if err := s.clear(); err != nil {
		return err
	}
	s.scenario = def.Key
	for _, l := range def.Layers {
		if err := s.addLayer(def.Key, l); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) clear() error {
	for i := len(s.layers) - 1; i >= 0; i-- {
		id := s.layers[i].id
		if !s.widget.HasLayer(id) {
			continue
		}
		if err := s.widget.RemoveLayer(id); err != nil {
			return fmt.Errorf("remove layer %s: %w", id, err)
		}
	}
	s.layers = nil
	for _, id := range s.sources {
		if !s.widget.HasSource(id) {
			continue
		}
		if err := s.widget.RemoveSource(id); err != nil {
			return fmt.Errorf("remove source %s: %w", id, err)
		}
	}
	s.sources = nil
	return nil
}

func (s *Synchronizer) addLayer(scenarioKey string, l scenario.Layer) error {
	sourceID := SourceID(scenarioKey, l.ID)
	passes := passesFor(l.Kind, sourceID)
	if passes == nil {
		return &RenderError{Op: OpAddLayer, Err: fmt.Errorf("layer %s: unsupported kind %q", l.ID, l.Kind)}
	}
	// Leftovers from a widget that was driven by someone else.
	for _, p := range passes {
		if s.widget.HasLayer(p.id) {
			if err := s.widget.RemoveLayer(p.id); err != nil {
				return fmt.Errorf("remove stale layer %s: %w", p.id, err)
			}
		}
	}
	if s.widget.HasSource(sourceID) {
		if err := s.widget.RemoveSource(sourceID); err != nil {
			return fmt.Errorf("remove stale source %s: %w", sourceID, err)
		}
	}

	if err := s.widget.AddSource(sourceID, l.Data); err != nil {
		return fmt.Errorf("add source %s: %w", sourceID, err)
	}
	s.sources = append(s.sources, sourceID)

	st := resolveStyle(l.Style)
	intensity := EffectiveIntensity(st.Intensity, s.focus)
	for _, p := range passes {
		paint := staticPaint(l.Kind, p.name, st)
		for k, v := range dynamicPaint(l.Kind, p.name, st, intensity) {
			paint[k] = v
		}
		spec := LayerSpec{
			ID:       p.id,
			Type:     p.ltype,
			Source:   sourceID,
			Paint:    paint,
			Layout:   layoutFor(l.Kind),
			Metadata: map[string]any{"scenario": scenarioKey, "layer": l.ID, "pass": p.name, "legend": l.Legend},
		}
		if err := s.widget.AddLayer(spec); err != nil {
			return fmt.Errorf("add layer %s: %w", p.id, err)
		}
		s.layers = append(s.layers, trackedLayer{id: p.id, kind: l.Kind, pass: p.name, style: st})
	}
	return nil
}

// SetFocus rescales every tracked layer for the new focus value. Only
// paint properties are updated; layers are never re-added.
func (s *Synchronizer) SetFocus(focus float64) error {
	s.focus = ClampFocus(focus)
	for _, l := range s.layers {
		intensity := EffectiveIntensity(l.style.Intensity, s.focus)
		paint := dynamicPaint(l.kind, l.pass, l.style, intensity)
		for _, prop := range slices.Sorted(maps.Keys(paint)) {
			if err := s.widget.SetPaintProperty(l.id, prop, paint[prop]); err != nil {
				return fmt.Errorf("set %s on %s: %w", prop, l.id, err)
			}
		}
	}
	return nil
}

// Frame moves the camera to def's data: fit for an area, center at a fixed
// zoom for a single point, nothing when no finite coordinates exist.
func (s *Synchronizer) Frame(def *scenario.Definition) (geo.Viewport, error) {
	v := geo.Frame(geo.FeatureCollectionBounds(def.Collections()...), s.frame)
	switch v.Mode {
	case geo.ModeFit:
		return v, s.widget.FitBounds(*v.Bounds, v.Padding)
	case geo.ModeCenter:
		return v, s.widget.JumpTo(*v.Center, v.Zoom)
	}
	return v, nil
}
