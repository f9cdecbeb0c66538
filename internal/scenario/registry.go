package scenario

import "fmt"

// Registry is an ordered, read-only set of scenarios. Build it once at
// startup; lookups are safe for concurrent use afterwards.
type Registry struct {
	order []string
	defs  map[string]*Definition
}

// NewRegistry validates defs and indexes them in the given order.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		if err := r.put(defs[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry over BuiltIn.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltIn()...)
	if err != nil {
		panic(fmt.Sprintf("built-in scenarios invalid: %v", err))
	}
	return r
}

func (r *Registry) put(d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := r.defs[d.Key]; !ok {
		r.order = append(r.order, d.Key)
	}
	cp := d
	r.defs[d.Key] = &cp
	return nil
}

// With returns a new registry where defs replace scenarios with the same
// key and new keys are appended.
func (r *Registry) With(defs ...Definition) (*Registry, error) {
	out := &Registry{defs: make(map[string]*Definition, len(r.defs)+len(defs))}
	for _, k := range r.order {
		if err := out.put(*r.defs[k]); err != nil {
			return nil, err
		}
	}
	for _, d := range defs {
		if err := out.put(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns the scenario for key.
func (r *Registry) Get(key string) (*Definition, error) {
	d, ok := r.defs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, key)
	}
	return d, nil
}

// Keys returns scenario keys in registration order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns scenarios in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.defs[k])
	}
	return out
}

// Default returns the first registered scenario, or nil when empty.
func (r *Registry) Default() *Definition {
	if len(r.order) == 0 {
		return nil
	}
	return r.defs[r.order[0]]
}

// Len reports the number of scenarios.
func (r *Registry) Len() int { return len(r.order) }
