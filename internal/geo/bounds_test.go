package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestPointBoundsDegenerate(t *testing.T) {
	b := GeometryBounds(orb.Point{-73.99, 40.74})
	if b == nil {
		t.Fatalf("expected bound for finite point")
	}
	want := [4]float64{-73.99, 40.74, -73.99, 40.74}
	if b.Array() != want {
		t.Fatalf("got %v, want %v", b.Array(), want)
	}
}

func TestLineStringBounds(t *testing.T) {
	b := GeometryBounds(orb.LineString{{0, 0}, {2, 2}, {1, 5}})
	want := [4]float64{0, 0, 2, 5}
	if b == nil || b.Array() != want {
		t.Fatalf("got %v, want %v", b, want)
	}
}

func TestNonFinitePointRejected(t *testing.T) {
	if PointBounds(math.NaN(), 1) != nil {
		t.Errorf("NaN lng should be rejected")
	}
	if PointBounds(1, math.Inf(1)) != nil {
		t.Errorf("Inf lat should be rejected")
	}
	ls := orb.LineString{{1, 1}, {math.NaN(), 50}, {3, 4}}
	b := GeometryBounds(ls)
	want := [4]float64{1, 1, 3, 4}
	if b == nil || b.Array() != want {
		t.Fatalf("bad vertex should be skipped, got %v", b)
	}
}

func TestCollectionRecursion(t *testing.T) {
	g := orb.Collection{
		orb.Point{1, 1},
		orb.Collection{
			orb.Polygon{{{-2, -3}, {0, -3}, {0, 0}, {-2, -3}}},
			orb.MultiLineString{{{5, 5}, {6, 7}}},
		},
		orb.MultiPolygon{{{{10, -1}, {11, -1}, {11, 0}, {10, -1}}}},
		orb.MultiPoint{{math.Inf(-1), 0}},
	}
	b := GeometryBounds(g)
	want := [4]float64{-2, -3, 11, 7}
	if b == nil || b.Array() != want {
		t.Fatalf("got %v, want %v", b, want)
	}
}

func TestEmptyInputsAreAbsent(t *testing.T) {
	if GeometryBounds(nil) != nil {
		t.Errorf("nil geometry should be absent")
	}
	if GeometryBounds(orb.LineString{}) != nil {
		t.Errorf("empty line should be absent")
	}
	if FeatureCollectionBounds() != nil {
		t.Errorf("no collections should be absent")
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{math.NaN(), math.NaN()}))
	if FeatureCollectionBounds(fc) != nil {
		t.Errorf("collection with only corrupt points should be absent")
	}
}

func TestFeatureCollectionBoundsSkipsCorruptFeatures(t *testing.T) {
	a := geojson.NewFeatureCollection()
	a.Append(geojson.NewFeature(orb.Point{-74.0, 40.7}))
	a.Append(geojson.NewFeature(orb.Point{math.NaN(), 10}))
	b := geojson.NewFeatureCollection()
	b.Append(geojson.NewFeature(orb.LineString{{-73.9, 40.8}, {-73.95, 40.75}}))
	got := FeatureCollectionBounds(a, nil, b)
	want := [4]float64{-74.0, 40.7, -73.9, 40.8}
	if got == nil || got.Array() != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMergeIdentity(t *testing.T) {
	a := &Bounds{MinLng: 1, MinLat: 2, MaxLng: 3, MaxLat: 4}
	if got := Merge(a, nil); got == nil || *got != *a {
		t.Errorf("Merge(a, nil)=%v, want %v", got, a)
	}
	if got := Merge(nil, a); got == nil || *got != *a {
		t.Errorf("Merge(nil, a)=%v, want %v", got, a)
	}
	if Merge(nil, nil) != nil {
		t.Errorf("Merge(nil, nil) should be nil")
	}
	got := Merge(a, nil)
	got.MinLng = 99
	if a.MinLng != 1 {
		t.Errorf("Merge must not alias its input")
	}
}

func TestBoundsJSON(t *testing.T) {
	b := Bounds{MinLng: -74, MinLat: 40.7, MaxLng: -73.9, MaxLat: 40.8}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[-74,40.7,-73.9,40.8]" {
		t.Fatalf("unexpected json %s", data)
	}
	var back Bounds
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != b {
		t.Fatalf("got %v, want %v", back, b)
	}
	if err := json.Unmarshal([]byte("[1,2,3]"), &back); err == nil {
		t.Fatalf("expected error for short array")
	}
}

func TestFrameSinglePointCenters(t *testing.T) {
	v := Frame(PointBounds(-73.99, 40.74), DefaultFrameOptions())
	if v.Mode != ModeCenter {
		t.Fatalf("expected center mode, got %s", v.Mode)
	}
	if v.Center == nil || v.Center[0] != -73.99 || v.Center[1] != 40.74 {
		t.Fatalf("unexpected center %v", v.Center)
	}
	if v.Zoom != DefaultSinglePointZoom {
		t.Fatalf("expected zoom %d, got %f", DefaultSinglePointZoom, v.Zoom)
	}
	if v.Bounds != nil {
		t.Fatalf("center mode must not carry fit bounds")
	}
}

func TestFrameTinySpanCenters(t *testing.T) {
	b := &Bounds{MinLng: 10, MinLat: 10, MaxLng: 10.00005, MaxLat: 10.00002}
	if v := Frame(b, FrameOptions{}); v.Mode != ModeCenter {
		t.Fatalf("expected center for sub-epsilon span, got %s", v.Mode)
	}
}

func TestFrameOneWideAxisFits(t *testing.T) {
	b := &Bounds{MinLng: 10, MinLat: 10, MaxLng: 10.5, MaxLat: 10}
	v := Frame(b, FrameOptions{Padding: 20})
	if v.Mode != ModeFit {
		t.Fatalf("expected fit when one axis is wide, got %s", v.Mode)
	}
	if v.Padding != 20 || v.Bounds == nil || *v.Bounds != *b {
		t.Fatalf("unexpected viewport %+v", v)
	}
}

func TestFrameNil(t *testing.T) {
	if v := Frame(nil, DefaultFrameOptions()); v.Mode != ModeNone {
		t.Fatalf("expected none, got %s", v.Mode)
	}
}
