package mapsync

import (
	"math"

	"cityops/internal/scenario"
)

// Focus scaling constants. The focus slider maps 0..100 onto an intensity
// scalar of 0.55..1.1; no layer is ever drawn above MaxIntensity.
const (
	FocusMin      = 0
	FocusMax      = 100
	focusBase     = 0.55
	focusGain     = 0.55
	MaxIntensity  = 1.25
	DefaultFocus  = 50
	glowWidthMul  = 3.0
	glowOpacity   = 0.25
	haloRadiusMul = 2.2
	haloOpacity   = 0.2
)

// Layer passes. Every layer has a main pass; flows add a glow pass and
// points add a halo pass underneath.
const (
	PassGlow = "glow"
	PassMain = "main"
	PassHalo = "halo"
)

// ClampFocus limits focus to [FocusMin, FocusMax]. NaN becomes DefaultFocus.
func ClampFocus(focus float64) float64 {
	if math.IsNaN(focus) {
		return DefaultFocus
	}
	return math.Max(FocusMin, math.Min(FocusMax, focus))
}

// IntensityScalar returns 0.55 + (focus/100)*0.55 for a clamped focus.
func IntensityScalar(focus float64) float64 {
	return focusBase + (ClampFocus(focus)/100)*focusGain
}

// EffectiveIntensity scales a layer's base intensity by the focus scalar
// and caps the result at MaxIntensity.
func EffectiveIntensity(base, focus float64) float64 {
	return math.Min(base*IntensityScalar(focus), MaxIntensity)
}

// style is a scenario.Style with defaults applied.
type style struct {
	scenario.Style
}

func resolveStyle(s scenario.Style) style {
	if s.Color == "" {
		s.Color = "#60a5fa"
	}
	if s.Width <= 0 {
		s.Width = 2
	}
	if s.Radius <= 0 {
		s.Radius = 6
	}
	if s.Opacity <= 0 {
		s.Opacity = 0.8
	}
	if s.Intensity <= 0 {
		s.Intensity = 1
	}
	if s.Domain[0] == s.Domain[1] {
		s.Domain = [2]float64{s.Domain[0], s.Domain[0] + 1}
	}
	return style{s}
}

// valueExpr reads the style property, walking the fallback chain and
// finally defaulting to the domain minimum.
func (s style) valueExpr() []any {
	expr := []any{"coalesce", []any{"get", s.Property}}
	for _, fb := range s.Fallbacks {
		expr = append(expr, []any{"get", fb})
	}
	return append(expr, s.Domain[0])
}

// interpolate returns a linear interpolation from lo at the domain minimum
// to hi at the domain maximum, or the constant hi when the style has no
// driving property.
func (s style) interpolate(lo, hi float64) any {
	if s.Property == "" {
		return round(hi)
	}
	return []any{"interpolate", []any{"linear"}, s.valueExpr(), s.Domain[0], round(lo), s.Domain[1], round(hi)}
}

// colorRamp spreads the ramp colors evenly over the domain.
func (s style) colorRamp() any {
	if s.Property == "" || len(s.Ramp) < 2 {
		return s.Color
	}
	expr := []any{"interpolate", []any{"linear"}, s.valueExpr()}
	step := (s.Domain[1] - s.Domain[0]) / float64(len(s.Ramp)-1)
	for i, c := range s.Ramp {
		expr = append(expr, round(s.Domain[0]+step*float64(i)), c)
	}
	return expr
}

func opacity(v float64) float64 {
	return round(math.Min(1, math.Max(0, v)))
}

// round trims float noise so paint values compare and serialize cleanly.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// pass is one widget layer derived from a scenario layer.
type pass struct {
	id    string
	name  string
	ltype string
}

func passesFor(kind, base string) []pass {
	switch kind {
	case scenario.KindFlow:
		return []pass{
			{id: base + "-" + PassGlow, name: PassGlow, ltype: "line"},
			{id: base + "-" + PassMain, name: PassMain, ltype: "line"},
		}
	case scenario.KindChoropleth:
		return []pass{{id: base + "-" + PassMain, name: PassMain, ltype: "fill"}}
	case scenario.KindPoint:
		return []pass{
			{id: base + "-" + PassHalo, name: PassHalo, ltype: "circle"},
			{id: base + "-" + PassMain, name: PassMain, ltype: "circle"},
		}
	}
	return nil
}

// dynamicPaint returns the focus-dependent paint properties of a pass.
func dynamicPaint(kind, passName string, s style, intensity float64) map[string]any {
	switch kind {
	case scenario.KindFlow:
		if passName == PassGlow {
			return map[string]any{
				"line-width":   s.interpolate(s.Width*glowWidthMul*0.6*intensity, s.Width*glowWidthMul*1.4*intensity),
				"line-opacity": opacity(glowOpacity * intensity),
			}
		}
		return map[string]any{
			"line-width":   s.interpolate(s.Width*0.6*intensity, s.Width*1.4*intensity),
			"line-opacity": opacity(s.Opacity * intensity),
		}
	case scenario.KindChoropleth:
		return map[string]any{
			"fill-opacity": opacity(s.Opacity * intensity),
		}
	case scenario.KindPoint:
		if passName == PassHalo {
			return map[string]any{
				"circle-radius":  s.interpolate(s.Radius*haloRadiusMul*0.6*intensity, s.Radius*haloRadiusMul*1.4*intensity),
				"circle-opacity": opacity(haloOpacity * intensity),
			}
		}
		return map[string]any{
			"circle-radius":  s.interpolate(s.Radius*0.6*intensity, s.Radius*1.4*intensity),
			"circle-opacity": s.interpolateOpacity(0.45*s.Opacity*intensity, s.Opacity*intensity),
		}
	}
	return nil
}

func (s style) interpolateOpacity(lo, hi float64) any {
	if s.Property == "" {
		return opacity(hi)
	}
	return []any{"interpolate", []any{"linear"}, s.valueExpr(), s.Domain[0], opacity(lo), s.Domain[1], opacity(hi)}
}

// staticPaint returns paint properties that do not change with focus.
func staticPaint(kind, passName string, s style) map[string]any {
	switch kind {
	case scenario.KindFlow:
		p := map[string]any{"line-color": s.Color}
		if passName == PassGlow {
			p["line-blur"] = 4.0
		}
		return p
	case scenario.KindChoropleth:
		return map[string]any{"fill-color": s.colorRamp(), "fill-outline-color": s.Color}
	case scenario.KindPoint:
		if passName == PassHalo {
			return map[string]any{"circle-color": s.Color, "circle-blur": 0.6}
		}
		return map[string]any{"circle-color": s.colorRamp(), "circle-stroke-color": "#0f172a", "circle-stroke-width": 1.0}
	}
	return nil
}

func layoutFor(kind string) map[string]any {
	if kind == scenario.KindFlow {
		return map[string]any{"line-cap": "round", "line-join": "round"}
	}
	return nil
}
