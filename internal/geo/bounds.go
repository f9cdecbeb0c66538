// Package geo computes bounding boxes over GeoJSON geometries and decides
// how a map viewport should frame them.
package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Bounds is a lng/lat bounding box. It serializes as
// [minLng, minLat, maxLng, maxLat].
type Bounds struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// PointBounds returns the degenerate bound of a single coordinate, or nil
// when either component is not a finite number.
func PointBounds(lng, lat float64) *Bounds {
	if !finite(lng) || !finite(lat) {
		return nil
	}
	return &Bounds{MinLng: lng, MinLat: lat, MaxLng: lng, MaxLat: lat}
}

// Merge combines two optional bounds. An absent side is the identity, so
// Merge(a, nil) == a and Merge(nil, nil) == nil.
func Merge(a, b *Bounds) *Bounds {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		cp := *b
		return &cp
	case b == nil:
		cp := *a
		return &cp
	}
	return &Bounds{
		MinLng: math.Min(a.MinLng, b.MinLng),
		MinLat: math.Min(a.MinLat, b.MinLat),
		MaxLng: math.Max(a.MaxLng, b.MaxLng),
		MaxLat: math.Max(a.MaxLat, b.MaxLat),
	}
}

// Span returns the width and height of the box in degrees.
func (b Bounds) Span() (lng, lat float64) {
	return b.MaxLng - b.MinLng, b.MaxLat - b.MinLat
}

// Center returns the midpoint of the box.
func (b Bounds) Center() orb.Point {
	return orb.Point{(b.MinLng + b.MaxLng) / 2, (b.MinLat + b.MaxLat) / 2}
}

// Array returns the box in [minLng, minLat, maxLng, maxLat] order.
func (b Bounds) Array() [4]float64 {
	return [4]float64{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat}
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Array())
}

func (b *Bounds) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 4 {
		return fmt.Errorf("bounds: expected 4 values, got %d", len(arr))
	}
	*b = Bounds{MinLng: arr[0], MinLat: arr[1], MaxLng: arr[2], MaxLat: arr[3]}
	return nil
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
}

// GeometryBounds reduces every coordinate of g into a bound. Points with
// non-finite components are skipped so one corrupt vertex does not discard
// the rest of the geometry. Returns nil when nothing finite was found.
func GeometryBounds(g orb.Geometry) *Bounds {
	switch v := g.(type) {
	case nil:
		return nil
	case orb.Point:
		return PointBounds(v[0], v[1])
	case orb.MultiPoint:
		return pointsBounds(v)
	case orb.LineString:
		return pointsBounds(v)
	case orb.Ring:
		return pointsBounds(v)
	case orb.MultiLineString:
		var out *Bounds
		for _, ls := range v {
			out = Merge(out, pointsBounds(ls))
		}
		return out
	case orb.Polygon:
		var out *Bounds
		for _, r := range v {
			out = Merge(out, pointsBounds(r))
		}
		return out
	case orb.MultiPolygon:
		var out *Bounds
		for _, p := range v {
			out = Merge(out, GeometryBounds(p))
		}
		return out
	case orb.Collection:
		var out *Bounds
		for _, child := range v {
			out = Merge(out, GeometryBounds(child))
		}
		return out
	case orb.Bound:
		return Merge(PointBounds(v.Min[0], v.Min[1]), PointBounds(v.Max[0], v.Max[1]))
	default:
		return nil
	}
}

// FeatureBounds returns the bound of a single feature's geometry.
func FeatureBounds(f *geojson.Feature) *Bounds {
	if f == nil {
		return nil
	}
	return GeometryBounds(f.Geometry)
}

// FeatureCollectionBounds merges the bounds of every feature in every
// collection. Features without usable geometry contribute nothing.
func FeatureCollectionBounds(fcs ...*geojson.FeatureCollection) *Bounds {
	var out *Bounds
	for _, fc := range fcs {
		if fc == nil {
			continue
		}
		for _, f := range fc.Features {
			out = Merge(out, FeatureBounds(f))
		}
	}
	return out
}

func pointsBounds(pts []orb.Point) *Bounds {
	var out *Bounds
	for _, p := range pts {
		out = Merge(out, PointBounds(p[0], p[1]))
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
