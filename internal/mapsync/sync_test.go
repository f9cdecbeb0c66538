package mapsync

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"cityops/internal/geo"
	"cityops/internal/scenario"
)

func mustScenario(t *testing.T, key string) *scenario.Definition {
	t.Helper()
	d, err := scenario.DefaultRegistry().Get(key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return d
}

func pointScenario(pts ...orb.Point) *scenario.Definition {
	fc := geojson.NewFeatureCollection()
	for _, p := range pts {
		fc.Append(geojson.NewFeature(p))
	}
	return &scenario.Definition{
		Key:    "pin",
		Layers: []scenario.Layer{{ID: "hq", Kind: scenario.KindPoint, Data: fc}},
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{Focus: 50})
	def := mustScenario(t, scenario.Mobility)

	if err := s.Sync(def); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	first := rec.LayerIDs()
	firstSources := rec.SourceIDs()
	if err := s.Sync(def); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	second := rec.LayerIDs()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("layer set changed: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(firstSources, rec.SourceIDs()) {
		t.Fatalf("source set changed: %v vs %v", firstSources, rec.SourceIDs())
	}
	seen := map[string]bool{}
	for _, id := range second {
		if seen[id] {
			t.Fatalf("duplicate layer %s", id)
		}
		seen[id] = true
	}
	if len(rec.SourceIDs()) != len(def.Layers) {
		t.Fatalf("expected %d sources, got %d", len(def.Layers), len(rec.SourceIDs()))
	}
}

func TestSyncPassesPerKind(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{})
	if err := s.Sync(mustScenario(t, scenario.Mobility)); err != nil {
		t.Fatalf("sync: %v", err)
	}
	want := []string{
		"mobility-transit-corridors-glow",
		"mobility-transit-corridors-main",
		"mobility-congestion-main",
		"mobility-curb-sensors-halo",
		"mobility-curb-sensors-main",
	}
	if got := rec.LayerIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got layers %v, want %v", got, want)
	}
	if !reflect.DeepEqual(s.LayerIDs(), want) {
		t.Fatalf("tracked layers %v, want %v", s.LayerIDs(), want)
	}
}

func TestSyncSwitchLeavesNoOrphans(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{})
	if err := s.Sync(mustScenario(t, scenario.Mobility)); err != nil {
		t.Fatalf("sync mobility: %v", err)
	}
	if err := s.Sync(mustScenario(t, scenario.ClimateResilience)); err != nil {
		t.Fatalf("sync climate: %v", err)
	}
	for _, id := range rec.LayerIDs() {
		if strings.HasPrefix(id, scenario.Mobility) {
			t.Fatalf("stale layer %s", id)
		}
	}
	for id := range rec.SourceIDs() {
		if strings.HasPrefix(id, scenario.Mobility) {
			t.Fatalf("stale source %s", id)
		}
	}
	if s.Scenario() != scenario.ClimateResilience {
		t.Fatalf("unexpected scenario %s", s.Scenario())
	}
}

func TestSyncReplacesUntrackedLeftovers(t *testing.T) {
	rec := NewRecorder()
	stale := geojson.NewFeatureCollection()
	if err := rec.AddSource("mobility-congestion", stale); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	if err := rec.AddLayer(LayerSpec{ID: "mobility-congestion-main", Type: "fill", Source: "mobility-congestion", Paint: map[string]any{}}); err != nil {
		t.Fatalf("seed layer: %v", err)
	}
	s := New(rec, Options{})
	if err := s.Sync(mustScenario(t, scenario.Mobility)); err != nil {
		t.Fatalf("sync over leftovers: %v", err)
	}
	if len(rec.LayerIDs()) != 5 {
		t.Fatalf("expected 5 layers, got %v", rec.LayerIDs())
	}
}

func TestIntensityScaling(t *testing.T) {
	if got := EffectiveIntensity(1.0, 100); got != 1.1 {
		t.Fatalf("EffectiveIntensity(1.0, 100)=%v, want 1.1", got)
	}
	for _, base := range []float64{1.137, 1.2, 2, 10} {
		if got := EffectiveIntensity(base, 100); got != MaxIntensity {
			t.Errorf("EffectiveIntensity(%v, 100)=%v, want %v", base, got, MaxIntensity)
		}
	}
	if got := IntensityScalar(0); got != 0.55 {
		t.Errorf("IntensityScalar(0)=%v, want 0.55", got)
	}
	if IntensityScalar(150) != IntensityScalar(100) || IntensityScalar(-5) != IntensityScalar(0) {
		t.Errorf("focus must be clamped to [0,100]")
	}
}

func TestSetFocusOnlyUpdatesPaint(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{Focus: 50})
	def := mustScenario(t, scenario.Mobility)
	if err := s.Sync(def); err != nil {
		t.Fatalf("sync: %v", err)
	}
	before := rec.LayerIDs()
	rec.Drain()

	if err := s.SetFocus(80); err != nil {
		t.Fatalf("set focus: %v", err)
	}
	ops := rec.Drain()
	if len(ops) == 0 {
		t.Fatalf("expected paint updates")
	}
	for _, op := range ops {
		if op.Op != OpSetPaint {
			t.Fatalf("focus change emitted %s", op.Op)
		}
	}
	if !reflect.DeepEqual(before, rec.LayerIDs()) {
		t.Fatalf("focus change altered layer set")
	}
	got, ok := rec.Paint("mobility-congestion-main", "fill-opacity")
	if !ok {
		t.Fatalf("missing fill-opacity")
	}
	want := opacity(0.55 * EffectiveIntensity(0.9, 80))
	if got != want {
		t.Fatalf("fill-opacity=%v, want %v", got, want)
	}
	if s.Focus() != 80 {
		t.Fatalf("focus=%v, want 80", s.Focus())
	}
}

func TestSetFocusIsDeterministic(t *testing.T) {
	run := func() []Op {
		rec := NewRecorder()
		s := New(rec, Options{})
		if err := s.Sync(mustScenario(t, scenario.EnergyGrid)); err != nil {
			t.Fatalf("sync: %v", err)
		}
		rec.Drain()
		if err := s.SetFocus(30); err != nil {
			t.Fatalf("focus: %v", err)
		}
		return rec.Drain()
	}
	if !reflect.DeepEqual(run(), run()) {
		t.Fatalf("focus ops differ between runs")
	}
}

func TestChoroplethFallbackChain(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{})
	if err := s.Sync(mustScenario(t, scenario.ClimateResilience)); err != nil {
		t.Fatalf("sync: %v", err)
	}
	v, ok := rec.Paint("climate-resilience-resilience-index-main", "fill-color")
	if !ok {
		t.Fatalf("missing fill-color")
	}
	expr, ok := v.([]any)
	if !ok || expr[0] != "interpolate" {
		t.Fatalf("expected interpolate expression, got %#v", v)
	}
	wantInput := []any{"coalesce", []any{"get", "resilience_score"}, []any{"get", "score"}, []any{"get", "value"}, 0.0}
	if !reflect.DeepEqual(expr[2], wantInput) {
		t.Fatalf("input=%#v, want %#v", expr[2], wantInput)
	}
	// 3 ramp colors -> stops at 0, 50, 100
	if expr[3] != 0.0 || expr[5] != 50.0 || expr[7] != 100.0 {
		t.Fatalf("unexpected stops %#v", expr[3:])
	}
}

func TestFrameSinglePointCenters(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{Frame: geo.DefaultFrameOptions()})
	v, err := s.Frame(pointScenario(orb.Point{-73.99, 40.74}))
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if v.Mode != geo.ModeCenter {
		t.Fatalf("expected center mode, got %s", v.Mode)
	}
	ops := rec.Drain()
	if len(ops) != 1 || ops[0].Op != OpJumpTo {
		t.Fatalf("expected a single jumpTo, got %+v", ops)
	}
	if ops[0].Zoom != geo.DefaultSinglePointZoom {
		t.Fatalf("unexpected zoom %v", ops[0].Zoom)
	}
}

func TestFrameAreaFits(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{})
	if _, err := s.Frame(mustScenario(t, scenario.Mobility)); err != nil {
		t.Fatalf("frame: %v", err)
	}
	ops := rec.Drain()
	if len(ops) != 1 || ops[0].Op != OpFitBounds || ops[0].Bounds == nil {
		t.Fatalf("expected fitBounds, got %+v", ops)
	}
}

func TestFrameNoDataIsNoop(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{})
	v, err := s.Frame(pointScenario())
	if err != nil || v.Mode != geo.ModeNone {
		t.Fatalf("expected none, got %v, %v", v.Mode, err)
	}
	if len(rec.Drain()) != 0 {
		t.Fatalf("expected no camera ops")
	}
}

func TestSnapshotRebuildsState(t *testing.T) {
	rec := NewRecorder()
	s := New(rec, Options{})
	def := mustScenario(t, scenario.Mobility)
	if err := s.Sync(def); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := s.Frame(def); err != nil {
		t.Fatalf("frame: %v", err)
	}
	replay := NewRecorder()
	for _, op := range rec.Snapshot() {
		var err error
		switch op.Op {
		case OpAddSource:
			err = replay.AddSource(op.ID, op.Data)
		case OpAddLayer:
			err = replay.AddLayer(*op.Layer)
		case OpFitBounds:
			err = replay.FitBounds(*op.Bounds, op.Padding)
		}
		if err != nil {
			t.Fatalf("replay %s: %v", op.Op, err)
		}
	}
	if !reflect.DeepEqual(replay.LayerIDs(), rec.LayerIDs()) {
		t.Fatalf("snapshot replay differs: %v vs %v", replay.LayerIDs(), rec.LayerIDs())
	}
}

func TestRecorderRejectsInvalidCalls(t *testing.T) {
	rec := NewRecorder()
	if err := rec.AddLayer(LayerSpec{ID: "x", Source: "missing"}); err == nil {
		t.Fatalf("expected error for missing source")
	}
	if err := rec.RemoveLayer("x"); err == nil {
		t.Fatalf("expected error removing unknown layer")
	}
	_ = rec.AddSource("s", geojson.NewFeatureCollection())
	_ = rec.AddLayer(LayerSpec{ID: "l", Source: "s", Paint: map[string]any{}})
	err := rec.RemoveSource("s")
	if err == nil {
		t.Fatalf("expected error removing source in use")
	}
	if Classify(err) != KindRender {
		t.Fatalf("recorder errors should classify as render")
	}
}

func TestClassify(t *testing.T) {
	tile := &TileError{URL: "https://tiles/1/2/3.png", Status: 503}
	wrapped := errors.Join(errors.New("context"), tile)
	if Classify(wrapped) != KindTileFetch {
		t.Fatalf("wrapped tile error should classify as tile fetch")
	}
	if Classify(errors.New("webgl context lost")) != KindRender {
		t.Fatalf("generic error should classify as render")
	}
	if UserMessage(KindTileFetch) == UserMessage(KindRender) {
		t.Fatalf("messages must differ by kind")
	}

	cases := []struct {
		report ClientReport
		want   Kind
	}{
		{ClientReport{Message: "Failed to fetch", URL: "https://tile.example/3/4/5.png", Status: 404}, KindTileFetch},
		{ClientReport{Message: "Tile could not be decoded"}, KindTileFetch},
		{ClientReport{Message: "boom", Source: "basemap"}, KindTileFetch},
		{ClientReport{Message: "WebGL context lost"}, KindRender},
	}
	for _, c := range cases {
		if got := Classify(c.report.Err()); got != c.want {
			t.Errorf("Classify(%+v)=%s, want %s", c.report, got, c.want)
		}
	}
}

func TestBasemapStyle(t *testing.T) {
	st := BasemapStyle(BasemapConfig{TileURL: "https://tile.example/{z}/{x}/{y}.png", MaxZoom: 19})
	src, ok := st.Sources["basemap"]
	if !ok || src.TileSize != 256 || src.Tiles[0] != "https://tile.example/{z}/{x}/{y}.png" {
		t.Fatalf("unexpected basemap source %+v", src)
	}
	if st.Version != 8 || len(st.Layers) != 1 {
		t.Fatalf("unexpected style %+v", st)
	}
}
