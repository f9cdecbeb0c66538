package geo

// Framing modes for a map viewport.
const (
	ModeNone   = "none"
	ModeFit    = "fit"
	ModeCenter = "center"
)

// Defaults used when FrameOptions fields are left zero.
const (
	DefaultEpsilon         = 1e-4
	DefaultSinglePointZoom = 14
	DefaultPadding         = 48
)

// FrameOptions controls how Frame turns a bound into a viewport.
type FrameOptions struct {
	// Epsilon is the span in degrees below which a bound is treated as a
	// single point on that axis.
	Epsilon         float64
	SinglePointZoom float64
	Padding         int
}

// DefaultFrameOptions returns the package defaults.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{Epsilon: DefaultEpsilon, SinglePointZoom: DefaultSinglePointZoom, Padding: DefaultPadding}
}

func (o FrameOptions) withDefaults() FrameOptions {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.SinglePointZoom <= 0 {
		o.SinglePointZoom = DefaultSinglePointZoom
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	return o
}

// Viewport describes the camera move a map widget should perform.
type Viewport struct {
	Mode    string      `json:"mode"`
	Bounds  *Bounds     `json:"bounds,omitempty"`
	Center  *[2]float64 `json:"center,omitempty"`
	Zoom    float64     `json:"zoom,omitempty"`
	Padding int         `json:"padding,omitempty"`
}

// Frame decides between fitting the bound and centering on it. A nil bound
// yields ModeNone. A bound narrower than Epsilon on both axes is centered at
// a fixed zoom so the widget never tries to fit a zero-area box.
func Frame(b *Bounds, opts FrameOptions) Viewport {
	if b == nil {
		return Viewport{Mode: ModeNone}
	}
	opts = opts.withDefaults()
	lngSpan, latSpan := b.Span()
	if lngSpan < opts.Epsilon && latSpan < opts.Epsilon {
		c := b.Center()
		center := [2]float64{c[0], c[1]}
		return Viewport{Mode: ModeCenter, Center: &center, Zoom: opts.SinglePointZoom}
	}
	cp := *b
	return Viewport{Mode: ModeFit, Bounds: &cp, Padding: opts.Padding}
}
