package scenario

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Keys of the built-in scenarios.
const (
	Mobility          = "mobility"
	ClimateResilience = "climate-resilience"
	EnergyGrid        = "energy-grid"
)

// District names used across the demo data.
const (
	DistrictCentral    = "Central District"
	DistrictNorthern   = "Northern District"
	DistrictSouthern   = "Southern District"
	DistrictEastern    = "Eastern District"
	DistrictWestern    = "Western District"
	DistrictWaterfront = "Waterfront"
)

type district struct {
	name   string
	bounds orb.Bound
}

var districts = []district{
	{DistrictSouthern, orb.Bound{Min: orb.Point{-74.020, 40.700}, Max: orb.Point{-73.995, 40.720}}},
	{DistrictWaterfront, orb.Bound{Min: orb.Point{-74.020, 40.720}, Max: orb.Point{-74.012, 40.760}}},
	{DistrictWestern, orb.Bound{Min: orb.Point{-74.012, 40.720}, Max: orb.Point{-73.995, 40.770}}},
	{DistrictEastern, orb.Bound{Min: orb.Point{-73.985, 40.720}, Max: orb.Point{-73.960, 40.745}}},
	{DistrictCentral, orb.Bound{Min: orb.Point{-73.995, 40.745}, Max: orb.Point{-73.965, 40.765}}},
	{DistrictNorthern, orb.Bound{Min: orb.Point{-73.960, 40.790}, Max: orb.Point{-73.930, 40.820}}},
}

func feature(g orb.Geometry, props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func collection(fs ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		fc.Append(f)
	}
	return fc
}

// districtLayer builds one polygon per district with the value returned by
// score under property.
func districtLayer(property string, score map[string]float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range districts {
		v, ok := score[d.name]
		if !ok {
			continue
		}
		fc.Append(feature(d.bounds.ToPolygon(), geojson.Properties{"district": d.name, property: v}))
	}
	return fc
}

// BuiltIn returns the demo scenarios in display order.
func BuiltIn() []Definition {
	return []Definition{mobility(), climateResilience(), energyGrid()}
}

func mobility() Definition {
	return Definition{
		Key:       Mobility,
		Title:     "Mobility Pulse",
		Subtitle:  "Transit corridors, congestion and curb sensors",
		Narrative: "Evening peak congestion concentrates on the Central District while the 14th Street busway absorbs most crosstown demand.",
		Layers: []Layer{
			{
				ID:     "transit-corridors",
				Label:  "Transit corridors",
				Legend: "Line width shows daily ridership",
				Kind:   KindFlow,
				Style:  Style{Color: "#38bdf8", Property: "ridership", Domain: [2]float64{10000, 90000}, Width: 3, Opacity: 0.9, Intensity: 1.0},
				Data: collection(
					feature(orb.LineString{{-74.0134, 40.7056}, {-73.9897, 40.7411}, {-73.9857, 40.7580}, {-73.9819, 40.7681}}, geojson.Properties{"name": "Broadway", "ridership": 84000}),
					feature(orb.LineString{{-74.0080, 40.7400}, {-73.9780, 40.7310}}, geojson.Properties{"name": "14th St Busway", "ridership": 52000}),
					feature(orb.LineString{{-73.9870, 40.7236}, {-73.9680, 40.7560}, {-73.9520, 40.7760}}, geojson.Properties{"name": "2nd Ave", "ridership": 61000}),
				),
			},
			{
				ID:     "congestion",
				Label:  "Congestion index",
				Legend: "Share of road network below free-flow speed",
				Kind:   KindChoropleth,
				Style:  Style{Color: "#f97316", Ramp: []string{"#fde68a", "#f97316", "#b91c1c"}, Property: "congestion", Fallbacks: []string{"score", "value"}, Domain: [2]float64{0, 1}, Opacity: 0.55, Intensity: 0.9},
				Data: districtLayer("congestion", map[string]float64{
					DistrictCentral: 0.82, DistrictSouthern: 0.64, DistrictWestern: 0.51,
					DistrictEastern: 0.58, DistrictNorthern: 0.37, DistrictWaterfront: 0.22,
				}),
			},
			{
				ID:     "curb-sensors",
				Label:  "Curb sensors",
				Legend: "Radius shows sensor health",
				Kind:   KindPoint,
				Style:  Style{Color: "#a78bfa", Ramp: []string{"#ef4444", "#a78bfa"}, Property: "health", Fallbacks: []string{"value"}, Domain: [2]float64{0, 100}, Radius: 6, Opacity: 0.85, Intensity: 1.1},
				Data: collection(
					feature(orb.Point{-73.9857, 40.7580}, geojson.Properties{"id": "cs-101", "health": 96}),
					feature(orb.Point{-73.9934, 40.7505}, geojson.Properties{"id": "cs-102", "health": 71}),
					feature(orb.Point{-74.0060, 40.7128}, geojson.Properties{"id": "cs-103", "health": 43}),
					feature(orb.Point{-73.9712, 40.7831}, geojson.Properties{"id": "cs-104", "value": 88}),
				),
			},
		},
		KPIs: []KPI{
			{Label: "Average commute", Value: 38.5, Unit: "min", Change: "-4.2%", Direction: "down"},
			{Label: "Bus on-time rate", Value: 87, Unit: "%", Change: "+6 pts", Direction: "up"},
			{Label: "Active curb sensors", Value: 1240, Change: "+112", Direction: "up"},
		},
		Trend: []TrendPoint{
			{Period: "2025", Baseline: 41.2, Projected: 41.2},
			{Period: "2026", Baseline: 41.9, Projected: 39.8},
			{Period: "2027", Baseline: 42.6, Projected: 38.1},
			{Period: "2028", Baseline: 43.1, Projected: 36.9},
		},
		Insights: []Insight{
			{Title: "Central District bottleneck", Body: "Four signalized intersections account for 31% of evening delay.", Severity: "high"},
			{Title: "Busway spillover", Body: "Parallel streets show 9% more through-traffic since the busway opened.", Severity: "medium"},
		},
		Actions: []Action{
			{Label: "Retime Central District signals", Owner: "Department of Transportation", Impact: "-6% peak delay"},
			{Label: "Extend busway hours to 10pm", Owner: "Transit Authority", Impact: "+4,000 riders/day"},
		},
		Copilot: Copilot{
			Modules: []Module{
				{ID: "traffic-forecast", Name: "Traffic forecast", Status: "active"},
				{ID: "curb-optimizer", Name: "Curb optimizer", Status: "standby"},
			},
			Missions: []Mission{
				{ID: "m-signal", Title: "Signal retiming study", Status: "in_progress", Progress: 60},
				{ID: "m-curb", Title: "Curb pricing pilot", Status: "planned", Progress: 10},
			},
			Transcript: []Message{
				{Role: "user", Text: "Where is congestion worst tonight?"},
				{Role: "assistant", Text: "The Central District, with a congestion index of 0.82. Broadway between 34th and 42nd is the main contributor."},
			},
		},
	}
}

func climateResilience() Definition {
	return Definition{
		Key:       ClimateResilience,
		Title:     "Climate Resilience",
		Subtitle:  "Flood exposure, resilience index and evacuation routes",
		Narrative: "A 1-in-100 year storm surge would inundate most of the Waterfront and the Southern District within six hours.",
		Layers: []Layer{
			{
				ID:     "resilience-index",
				Label:  "Resilience index",
				Legend: "Composite of drainage, tree canopy and emergency access",
				Kind:   KindChoropleth,
				Style:  Style{Color: "#22c55e", Ramp: []string{"#b91c1c", "#facc15", "#22c55e"}, Property: "resilience_score", Fallbacks: []string{"score", "value"}, Domain: [2]float64{0, 100}, Opacity: 0.6, Intensity: 1.0},
				Data: districtLayer("resilience_score", map[string]float64{
					DistrictCentral: 64, DistrictSouthern: 31, DistrictWestern: 58,
					DistrictEastern: 47, DistrictNorthern: 72, DistrictWaterfront: 18,
				}),
			},
			{
				ID:     "flood-sensors",
				Label:  "Flood sensors",
				Legend: "Radius shows water level above baseline",
				Kind:   KindPoint,
				Style:  Style{Color: "#0ea5e9", Ramp: []string{"#7dd3fc", "#1d4ed8"}, Property: "water_level_cm", Fallbacks: []string{"value"}, Domain: [2]float64{0, 120}, Radius: 7, Opacity: 0.9, Intensity: 1.2},
				Data: collection(
					feature(orb.Point{-74.0170, 40.7050}, geojson.Properties{"id": "fs-01", "water_level_cm": 96, "health": "ok"}),
					feature(orb.Point{-74.0150, 40.7300}, geojson.Properties{"id": "fs-02", "water_level_cm": 54, "health": "ok"}),
					feature(orb.Point{-73.9740, 40.7280}, geojson.Properties{"id": "fs-03", "water_level_cm": 21, "health": "degraded"}),
				),
			},
			{
				ID:     "evacuation-routes",
				Label:  "Evacuation routes",
				Legend: "Designated inland routes",
				Kind:   KindFlow,
				Style:  Style{Color: "#f43f5e", Width: 4, Opacity: 0.8, Intensity: 0.8},
				Data: collection(
					feature(orb.LineString{{-74.0120, 40.7060}, {-73.9960, 40.7150}, {-73.9800, 40.7420}}, geojson.Properties{"name": "Route A"}),
					feature(orb.LineString{{-74.0140, 40.7350}, {-73.9950, 40.7500}, {-73.9750, 40.7640}}, geojson.Properties{"name": "Route B"}),
				),
			},
		},
		KPIs: []KPI{
			{Label: "Residents in flood zone", Value: 212000, Change: "+3%", Direction: "up"},
			{Label: "Green infrastructure", Value: 148, Unit: "acres", Change: "+22", Direction: "up"},
			{Label: "Mean resilience index", Value: 48.3, Change: "+2.1", Direction: "up"},
		},
		Trend: []TrendPoint{
			{Period: "2025", Baseline: 46.0, Projected: 46.0},
			{Period: "2030", Baseline: 44.5, Projected: 52.0},
			{Period: "2035", Baseline: 42.1, Projected: 58.7},
			{Period: "2040", Baseline: 39.8, Projected: 63.2},
		},
		Insights: []Insight{
			{Title: "Waterfront is the weakest link", Body: "Resilience index of 18 with two of three pumping stations below design capacity.", Severity: "high"},
			{Title: "Northern canopy dividend", Body: "Tree canopy above 30% keeps surface temperatures 4°C lower during heat events.", Severity: "low"},
		},
		Actions: []Action{
			{Label: "Deploy temporary flood barriers on the Waterfront", Owner: "Emergency Management", Impact: "-40% surge exposure"},
			{Label: "Fund bioswales in the Southern District", Owner: "Environmental Protection", Impact: "+12 index points"},
		},
		Copilot: Copilot{
			Modules: []Module{
				{ID: "surge-model", Name: "Storm surge model", Status: "active"},
				{ID: "heat-watch", Name: "Heat watch", Status: "active"},
			},
			Missions: []Mission{
				{ID: "m-barrier", Title: "Barrier deployment plan", Status: "in_progress", Progress: 45},
				{ID: "m-canopy", Title: "Canopy equity audit", Status: "done", Progress: 100},
			},
			Transcript: []Message{
				{Role: "user", Text: "Which districts flood first?"},
				{Role: "assistant", Text: "The Waterfront and the Southern District. Sensor fs-01 already reads 96 cm above baseline."},
			},
		},
	}
}

func energyGrid() Definition {
	return Definition{
		Key:       EnergyGrid,
		Title:     "Energy Grid",
		Subtitle:  "Substation load, feeders and demand response",
		Narrative: "Two substations in the Eastern District run above 90% load during heat waves; demand response can shave the peak by 8%.",
		Layers: []Layer{
			{
				ID:     "substations",
				Label:  "Substations",
				Legend: "Radius shows peak load",
				Kind:   KindPoint,
				Style:  Style{Color: "#facc15", Ramp: []string{"#facc15", "#dc2626"}, Property: "load_pct", Fallbacks: []string{"value"}, Domain: [2]float64{40, 100}, Radius: 8, Opacity: 0.9, Intensity: 1.0},
				Data: collection(
					feature(orb.Point{-73.9760, 40.7330}, geojson.Properties{"id": "ss-east-1", "load_pct": 94}),
					feature(orb.Point{-73.9680, 40.7400}, geojson.Properties{"id": "ss-east-2", "load_pct": 91}),
					feature(orb.Point{-74.0020, 40.7550}, geojson.Properties{"id": "ss-west-1", "load_pct": 67}),
					feature(orb.Point{-73.9450, 40.8050}, geojson.Properties{"id": "ss-north-1", "load_pct": 58}),
				),
			},
			{
				ID:     "feeders",
				Label:  "Feeder lines",
				Legend: "Primary distribution feeders",
				Kind:   KindFlow,
				Style:  Style{Color: "#fb923c", Width: 2, Opacity: 0.85, Intensity: 0.9},
				Data: collection(
					feature(orb.LineString{{-73.9760, 40.7330}, {-73.9680, 40.7400}, {-73.9600, 40.7600}}, geojson.Properties{"id": "f-12"}),
					feature(orb.LineString{{-74.0020, 40.7550}, {-73.9850, 40.7580}}, geojson.Properties{"id": "f-07"}),
				),
			},
			{
				ID:     "demand-response",
				Label:  "Demand response potential",
				Legend: "Peak reduction available through enrolled buildings",
				Kind:   KindChoropleth,
				Style:  Style{Color: "#34d399", Ramp: []string{"#ecfccb", "#34d399", "#047857"}, Property: "peak_reduction", Fallbacks: []string{"score", "value"}, Domain: [2]float64{0, 15}, Opacity: 0.5, Intensity: 0.85},
				Data: districtLayer("peak_reduction", map[string]float64{
					DistrictCentral: 11.5, DistrictEastern: 8.2, DistrictWestern: 6.1, DistrictNorthern: 4.4,
				}),
			},
		},
		KPIs: []KPI{
			{Label: "Peak demand", Value: 10.9, Unit: "GW", Change: "+1.8%", Direction: "up"},
			{Label: "Renewable share", Value: 27, Unit: "%", Change: "+5 pts", Direction: "up"},
			{Label: "Enrolled buildings", Value: 3120, Change: "+410", Direction: "up"},
		},
		Trend: []TrendPoint{
			{Period: "Q1", Baseline: 9.8, Projected: 9.8},
			{Period: "Q2", Baseline: 10.4, Projected: 10.1},
			{Period: "Q3", Baseline: 11.2, Projected: 10.3},
			{Period: "Q4", Baseline: 10.1, Projected: 9.6},
		},
		Insights: []Insight{
			{Title: "Eastern substations near limit", Body: "ss-east-1 and ss-east-2 exceed 90% load on 14 summer days.", Severity: "high"},
		},
		Actions: []Action{
			{Label: "Pre-cool enrolled offices before 2pm", Owner: "Utility Partnerships", Impact: "-8% peak"},
		},
		Copilot: Copilot{
			Modules: []Module{{ID: "load-forecast", Name: "Load forecast", Status: "active"}},
			Missions: []Mission{
				{ID: "m-dr", Title: "Demand response enrollment drive", Status: "in_progress", Progress: 35},
			},
			Transcript: []Message{
				{Role: "user", Text: "Can we avoid rolling outages this summer?"},
				{Role: "assistant", Text: "Yes, if demand response delivers at least 6% peak reduction in the Eastern District."},
			},
		},
	}
}
