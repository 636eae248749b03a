package geo

import "math"

// Bounds is the axis-aligned region covering a set of group coordinates.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Viewport is a map camera position: center plus a Web-Mercator zoom level.
type Viewport struct {
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	Zoom      float64 `json:"zoom"`
}

// FitOptions tune the viewport fit.
type FitOptions struct {
	// Padding is the extra margin around the bounds, as a fraction of the
	// span on each side (0.1 = 10% each side).
	Padding float64
	MinZoom float64
	MaxZoom float64
}

// DefaultFitOptions matches the dashboard map defaults.
var DefaultFitOptions = FitOptions{Padding: 0.1, MinZoom: 2, MaxZoom: 6}

// BoundsOf returns the region covering all group coordinates.
// ok is false for an empty group list.
func BoundsOf(groups []Group) (b Bounds, ok bool) {
	if len(groups) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: groups[0].Lat, MaxLat: groups[0].Lat, MinLng: groups[0].Lng, MaxLng: groups[0].Lng}
	for _, g := range groups[1:] {
		b.MinLat = math.Min(b.MinLat, g.Lat)
		b.MaxLat = math.Max(b.MaxLat, g.Lat)
		b.MinLng = math.Min(b.MinLng, g.Lng)
		b.MaxLng = math.Max(b.MaxLng, g.Lng)
	}
	return b, true
}

// FitViewport computes the camera that shows every group with the requested
// padding, never zooming past MaxZoom. No groups resets to the default view:
// centered on (0, 0) at MinZoom. A single group (or any zero-area bounds)
// clamps to MaxZoom instead of dividing by the zero span.
func FitViewport(groups []Group, opts FitOptions) Viewport {
	b, ok := BoundsOf(groups)
	if !ok {
		return Viewport{CenterLat: 0, CenterLng: 0, Zoom: opts.MinZoom}
	}

	vp := Viewport{
		CenterLat: (b.MinLat + b.MaxLat) / 2,
		CenterLng: (b.MinLng + b.MaxLng) / 2,
	}

	lngSpan := (b.MaxLng - b.MinLng) * (1 + 2*opts.Padding)
	latSpan := (mercatorY(b.MaxLat) - mercatorY(b.MinLat)) * (1 + 2*opts.Padding)

	zoom := math.Min(zoomForSpan(lngSpan, 360), zoomForSpan(latSpan, 2*math.Pi))
	vp.Zoom = clamp(zoom, opts.MinZoom, opts.MaxZoom)
	return vp
}

// zoomForSpan is the zoom level at which span fills one world tile of the
// given world extent. Degenerate spans get +Inf so the MaxZoom clamp wins.
func zoomForSpan(span, world float64) float64 {
	if span <= 0 {
		return math.Inf(1)
	}
	return math.Log2(world / span)
}

// mercatorY projects a latitude onto the Web-Mercator vertical axis.
// Latitudes are clamped to the projection's usable range first.
func mercatorY(lat float64) float64 {
	lat = clamp(lat, -85.05112878, 85.05112878)
	rad := lat * math.Pi / 180
	return math.Log(math.Tan(math.Pi/4 + rad/2))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
