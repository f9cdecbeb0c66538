// Package mapsync reconciles a mapping widget's sources and layers with the
// selected scenario and rescales paint properties from the focus control.
package mapsync

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb/geojson"

	"cityops/internal/geo"
)

// LayerSpec is a style layer in the mapping widget's vocabulary.
type LayerSpec struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Paint    map[string]any `json:"paint"`
	Layout   map[string]any `json:"layout,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Widget is the subset of a mapping library the synchronizer drives.
type Widget interface {
	AddSource(id string, data *geojson.FeatureCollection) error
	RemoveSource(id string) error
	HasSource(id string) bool
	AddLayer(spec LayerSpec) error
	RemoveLayer(id string) error
	HasLayer(id string) bool
	SetPaintProperty(layerID, property string, value any) error
	FitBounds(b geo.Bounds, padding int) error
	JumpTo(center [2]float64, zoom float64) error
}

// Operation names recorded by Recorder.
const (
	OpAddSource    = "addSource"
	OpRemoveSource = "removeSource"
	OpAddLayer     = "addLayer"
	OpRemoveLayer  = "removeLayer"
	OpSetPaint     = "setPaintProperty"
	OpFitBounds    = "fitBounds"
	OpJumpTo       = "jumpTo"
)

// Op is one widget call, serialized for a browser to replay.
type Op struct {
	Op       string                     `json:"op"`
	ID       string                     `json:"id,omitempty"`
	Data     *geojson.FeatureCollection `json:"data,omitempty"`
	Layer    *LayerSpec                 `json:"layer,omitempty"`
	Property string                     `json:"property,omitempty"`
	Value    any                        `json:"value,omitempty"`
	Bounds   *geo.Bounds                `json:"bounds,omitempty"`
	Padding  int                        `json:"padding,omitempty"`
	Center   *[2]float64                `json:"center,omitempty"`
	Zoom     float64                    `json:"zoom,omitempty"`
}

// Recorder is an in-memory Widget. It enforces the same add/remove rules as
// a real mapping library and keeps the calls as an ordered op log.
type Recorder struct {
	mu      sync.Mutex
	sources map[string]*geojson.FeatureCollection
	layers  []LayerSpec
	ops     []Op
	camera  *Op
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{sources: make(map[string]*geojson.FeatureCollection)}
}

func (r *Recorder) AddSource(id string, data *geojson.FeatureCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; ok {
		return &RenderError{Op: OpAddSource, Err: fmt.Errorf("source %q already exists", id)}
	}
	r.sources[id] = data
	r.ops = append(r.ops, Op{Op: OpAddSource, ID: id, Data: data})
	return nil
}

func (r *Recorder) RemoveSource(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		return &RenderError{Op: OpRemoveSource, Err: fmt.Errorf("source %q does not exist", id)}
	}
	for _, l := range r.layers {
		if l.Source == id {
			return &RenderError{Op: OpRemoveSource, Err: fmt.Errorf("source %q is in use by layer %q", id, l.ID)}
		}
	}
	delete(r.sources, id)
	r.ops = append(r.ops, Op{Op: OpRemoveSource, ID: id})
	return nil
}

func (r *Recorder) HasSource(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sources[id]
	return ok
}

func (r *Recorder) AddLayer(spec LayerSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(spec.ID) >= 0 {
		return &RenderError{Op: OpAddLayer, Err: fmt.Errorf("layer %q already exists", spec.ID)}
	}
	if _, ok := r.sources[spec.Source]; !ok {
		return &RenderError{Op: OpAddLayer, Err: fmt.Errorf("layer %q references missing source %q", spec.ID, spec.Source)}
	}
	spec.Paint = copyPaint(spec.Paint)
	r.layers = append(r.layers, spec)
	cp := spec
	cp.Paint = copyPaint(spec.Paint)
	r.ops = append(r.ops, Op{Op: OpAddLayer, ID: spec.ID, Layer: &cp})
	return nil
}

func (r *Recorder) RemoveLayer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return &RenderError{Op: OpRemoveLayer, Err: fmt.Errorf("layer %q does not exist", id)}
	}
	r.layers = append(r.layers[:i], r.layers[i+1:]...)
	r.ops = append(r.ops, Op{Op: OpRemoveLayer, ID: id})
	return nil
}

func (r *Recorder) HasLayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOf(id) >= 0
}

func (r *Recorder) SetPaintProperty(layerID, property string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(layerID)
	if i < 0 {
		return &RenderError{Op: OpSetPaint, Err: fmt.Errorf("layer %q does not exist", layerID)}
	}
	r.layers[i].Paint[property] = value
	r.ops = append(r.ops, Op{Op: OpSetPaint, ID: layerID, Property: property, Value: value})
	return nil
}

func (r *Recorder) FitBounds(b geo.Bounds, padding int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := Op{Op: OpFitBounds, Bounds: &b, Padding: padding}
	r.camera = &op
	r.ops = append(r.ops, op)
	return nil
}

func (r *Recorder) JumpTo(center [2]float64, zoom float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := Op{Op: OpJumpTo, Center: &center, Zoom: zoom}
	r.camera = &op
	r.ops = append(r.ops, op)
	return nil
}

// Drain returns the ops recorded since the last Drain and clears the log.
func (r *Recorder) Drain() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ops
	r.ops = nil
	if out == nil {
		out = []Op{}
	}
	return out
}

// Snapshot returns ops that rebuild the current widget state from empty:
// every source, every layer with its current paint and the last camera move.
func (r *Recorder) Snapshot() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	added := make(map[string]bool, len(r.sources))
	for _, l := range r.layers {
		if !added[l.Source] {
			added[l.Source] = true
			out = append(out, Op{Op: OpAddSource, ID: l.Source, Data: r.sources[l.Source]})
		}
		cp := l
		cp.Paint = copyPaint(l.Paint)
		out = append(out, Op{Op: OpAddLayer, ID: l.ID, Layer: &cp})
	}
	for id, data := range r.sources {
		if !added[id] {
			out = append(out, Op{Op: OpAddSource, ID: id, Data: data})
		}
	}
	if r.camera != nil {
		out = append(out, *r.camera)
	}
	return out
}

// LayerIDs returns layer ids in draw order.
func (r *Recorder) LayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.layers))
	for i, l := range r.layers {
		out[i] = l.ID
	}
	return out
}

// SourceIDs returns the set of live source ids.
func (r *Recorder) SourceIDs() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.sources))
	for id := range r.sources {
		out[id] = true
	}
	return out
}

// Paint returns the current value of a paint property.
func (r *Recorder) Paint(layerID, property string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(layerID)
	if i < 0 {
		return nil, false
	}
	v, ok := r.layers[i].Paint[property]
	return v, ok
}

func (r *Recorder) indexOf(id string) int {
	for i, l := range r.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func copyPaint(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
