package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsOf(t *testing.T) {
	groups := []Group{
		{Lat: 10, Lng: -20},
		{Lat: -5, Lng: 30},
		{Lat: 7, Lng: 0},
	}

	b, ok := BoundsOf(groups)

	require.True(t, ok)
	assert.Equal(t, Bounds{MinLat: -5, MinLng: -20, MaxLat: 10, MaxLng: 30}, b)
}

func TestBoundsOf_Empty(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)
}

func TestFitViewport_EmptyResetsToDefaultView(t *testing.T) {
	vp := FitViewport(nil, DefaultFitOptions)

	assert.Equal(t, 0.0, vp.CenterLat)
	assert.Equal(t, 0.0, vp.CenterLng)
	assert.Equal(t, DefaultFitOptions.MinZoom, vp.Zoom)
}

// A single group has zero-area bounds; the fit must clamp to max zoom
// instead of dividing by the zero span.
func TestFitViewport_SinglePointClampsToMaxZoom(t *testing.T) {
	groups := []Group{{Lat: 48.8566, Lng: 2.3522}}

	vp := FitViewport(groups, DefaultFitOptions)

	assert.Equal(t, 48.8566, vp.CenterLat)
	assert.Equal(t, 2.3522, vp.CenterLng)
	assert.Equal(t, DefaultFitOptions.MaxZoom, vp.Zoom)
}

func TestFitViewport_CentersOnBounds(t *testing.T) {
	groups := []Group{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
	}

	vp := FitViewport(groups, DefaultFitOptions)

	assert.Equal(t, 0.0, vp.CenterLat)
	assert.Equal(t, 5.0, vp.CenterLng)
	// padded span 12° → log2(360/12) ≈ 4.9
	assert.InDelta(t, 4.9, vp.Zoom, 0.1)
}

func TestFitViewport_ZoomStaysInRange(t *testing.T) {
	cases := []struct {
		name   string
		groups []Group
	}{
		{"world-spanning", []Group{{Lat: -60, Lng: -170}, {Lat: 70, Lng: 170}}},
		{"city-scale", []Group{{Lat: 52.3676, Lng: 4.9041}, {Lat: 52.3680, Lng: 4.9050}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vp := FitViewport(tc.groups, DefaultFitOptions)
			assert.GreaterOrEqual(t, vp.Zoom, DefaultFitOptions.MinZoom)
			assert.LessOrEqual(t, vp.Zoom, DefaultFitOptions.MaxZoom)
		})
	}
}

func TestFitViewport_MorePaddingZoomsOut(t *testing.T) {
	groups := []Group{
		{Lat: 10, Lng: 10},
		{Lat: 20, Lng: 40},
	}

	tight := FitViewport(groups, FitOptions{Padding: 0, MinZoom: 0, MaxZoom: 18})
	padded := FitViewport(groups, FitOptions{Padding: 0.5, MinZoom: 0, MaxZoom: 18})

	assert.Less(t, padded.Zoom, tight.Zoom)
}

func TestMercatorY_ClampsPoles(t *testing.T) {
	assert.False(t, math.IsInf(mercatorY(90), 1))
	assert.False(t, math.IsInf(mercatorY(-90), -1))
	assert.InDelta(t, 0, mercatorY(0), 1e-12)
}
