package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// ErrInvalidGeoJSON is returned for documents that are not a GeoJSON
// object with a type.
var ErrInvalidGeoJSON = errors.New("invalid geojson")

// ParseBounds computes the bound of a GeoJSON document, which may be a
// FeatureCollection, a Feature or a bare geometry. A valid document without
// finite coordinates yields nil.
func ParseBounds(data []byte) (*Bounds, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}
	switch head.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidGeoJSON)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
		}
		return FeatureCollectionBounds(fc), nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
		}
		return FeatureBounds(f), nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}
	return GeometryBounds(g.Geometry()), nil
}
