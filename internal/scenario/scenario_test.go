package scenario

import (
	"errors"
	"strings"
	"testing"
)

func TestBuiltInScenarios(t *testing.T) {
	defs := BuiltIn()
	keys := []string{Mobility, ClimateResilience, EnergyGrid}
	if len(defs) != len(keys) {
		t.Fatalf("expected %d scenarios, got %d", len(keys), len(defs))
	}
	for i, k := range keys {
		d := defs[i]
		if d.Key != k {
			t.Fatalf("scenario %d expected key %s got %s", i, k, d.Key)
		}
		if err := d.Validate(); err != nil {
			t.Fatalf("scenario %s invalid: %v", k, err)
		}
		if len(d.KPIs) == 0 || len(d.Trend) == 0 {
			t.Fatalf("scenario %s missing KPIs or trend", k)
		}
		kinds := map[string]bool{}
		for _, l := range d.Layers {
			kinds[l.Kind] = true
			if len(l.Data.Features) == 0 {
				t.Fatalf("scenario %s layer %s has no features", k, l.ID)
			}
		}
		for _, kind := range []string{KindFlow, KindChoropleth, KindPoint} {
			if !kinds[kind] {
				t.Errorf("scenario %s has no %s layer", k, kind)
			}
		}
	}
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()
	if r.Len() != 3 {
		t.Fatalf("expected 3 scenarios, got %d", r.Len())
	}
	if r.Default().Key != Mobility {
		t.Fatalf("expected mobility as default, got %s", r.Default().Key)
	}
	d, err := r.Get(EnergyGrid)
	if err != nil || d.Title != "Energy Grid" {
		t.Fatalf("Get(energy-grid)=%v, %v", d, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
	keys := r.Keys()
	keys[0] = "mutated"
	if r.Keys()[0] != Mobility {
		t.Fatalf("Keys must return a copy")
	}
}

func TestLoadScenario(t *testing.T) {
	defs, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(defs))
	}
	d := defs[0]
	if d.Key != "parks" || d.Title != "Parks Access" {
		t.Fatalf("unexpected scenario %s/%s", d.Key, d.Title)
	}
	if len(d.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(d.Layers))
	}
	if got := d.Layers[0].Data.Features[0].Properties["name"]; got != "Central Park" {
		t.Fatalf("expected file-backed layer data, got %v", got)
	}
	if got := d.Layers[1].Data.Features[0].Properties["name"]; got != "Columbus Circle" {
		t.Fatalf("expected inline layer data, got %v", got)
	}
	if d.Layers[0].Style.Domain != [2]float64{0, 100} {
		t.Fatalf("unexpected domain %v", d.Layers[0].Style.Domain)
	}
	if d.Trend[0].Projected != 91 {
		t.Fatalf("unexpected trend row %+v", d.Trend[0])
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	_, err := Load("testdata/bad_kind.yaml")
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestRegistryWithOverlay(t *testing.T) {
	defs, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	base := DefaultRegistry()
	r, err := base.With(defs...)
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	if r.Len() != 4 || r.Keys()[3] != "parks" {
		t.Fatalf("expected parks appended, got %v", r.Keys())
	}
	if base.Len() != 3 {
		t.Fatalf("base registry must not change")
	}

	replaced := BuiltIn()[0]
	replaced.Title = "Mobility v2"
	r2, err := r.With(replaced)
	if err != nil {
		t.Fatalf("with replacement: %v", err)
	}
	d, _ := r2.Get(Mobility)
	if d.Title != "Mobility v2" || r2.Keys()[0] != Mobility {
		t.Fatalf("expected in-place replacement, got %s at %v", d.Title, r2.Keys())
	}
}

func TestValidateDuplicateLayer(t *testing.T) {
	d := BuiltIn()[0]
	d.Layers = append(d.Layers, d.Layers[0])
	if err := d.Validate(); err == nil {
		t.Fatalf("expected duplicate layer error")
	}
}
