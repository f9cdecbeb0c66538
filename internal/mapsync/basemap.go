package mapsync

// BasemapConfig points at a raster tile endpoint.
type BasemapConfig struct {
	TileURL     string
	Attribution string
	TileSize    int
	MaxZoom     int
}

// Style is a minimal mapping-library style document with a single raster
// basemap. Scenario layers are added on top at runtime.
type Style struct {
	Version int                      `json:"version"`
	Name    string                   `json:"name"`
	Sources map[string]RasterSource  `json:"sources"`
	Layers  []map[string]interface{} `json:"layers"`
}

// RasterSource is a tiled raster source.
type RasterSource struct {
	Type        string   `json:"type"`
	Tiles       []string `json:"tiles"`
	TileSize    int      `json:"tileSize"`
	MaxZoom     int      `json:"maxzoom,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
}

// BasemapStyle builds the style document for cfg.
func BasemapStyle(cfg BasemapConfig) Style {
	size := cfg.TileSize
	if size <= 0 {
		size = 256
	}
	return Style{
		Version: 8,
		Name:    "cityops-basemap",
		Sources: map[string]RasterSource{
			"basemap": {Type: "raster", Tiles: []string{cfg.TileURL}, TileSize: size, MaxZoom: cfg.MaxZoom, Attribution: cfg.Attribution},
		},
		Layers: []map[string]interface{}{
			{"id": "basemap", "type": "raster", "source": "basemap"},
		},
	}
}
