package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransformer_Unsupported(t *testing.T) {
	for _, code := range []int{0, 2154, 32600, 32661, 25827, 3003} {
		_, err := NewTransformer(code)
		require.ErrorIs(t, err, ErrUnsupportedEPSG, "epsg %d", code)
	}
}

func TestUTM_KnownPoints(t *testing.T) {
	tr, err := NewTransformer(32633)
	require.NoError(t, err)
	assert.Equal(t, 32633, tr.EPSG())

	tests := []struct {
		name       string
		lat, lon   float64
		wantX      float64
		wantY      float64
		toleranceM float64
	}{
		{"central meridian on equator", 0, 15, 500000, 0, 0.001},
		{"zone edge on equator", 0, 12, 166021.443, 0, 0.01},
		{"central meridian at 45N", 45, 15, 500000, 4982950.400, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tr.FromLatLon(tt.lat, tt.lon)
			assert.InDelta(t, tt.wantX, x, tt.toleranceM)
			assert.InDelta(t, tt.wantY, y, tt.toleranceM)
		})
	}
}

func TestUTM_RoundTrip(t *testing.T) {
	codes := []int{32633, 32632, 32733, 25833}
	points := [][2]float64{
		{41.97, 12.48},
		{42.0, 15.0},
		{38.1, 13.36},
		{46.5, 17.9},
	}

	for _, code := range codes {
		tr, err := NewTransformer(code)
		require.NoError(t, err)
		for _, p := range points {
			lat, lon := p[0], p[1]
			if code == 32733 {
				lat = -lat
			}
			x, y := tr.FromLatLon(lat, lon)
			gotLat, gotLon := tr.ToLatLon(x, y)
			assert.InDelta(t, lat, gotLat, 1e-8, "epsg %d lat", code)
			assert.InDelta(t, lon, gotLon, 1e-8, "epsg %d lon", code)
		}
	}
}

func TestUTM_DemoTurbine(t *testing.T) {
	tr, err := NewTransformer(32633)
	require.NoError(t, err)

	lat, lon := tr.ToLatLon(500200, 4649800)
	assert.InDelta(t, 42.0002, lat, 1e-4)
	assert.InDelta(t, 15.0024, lon, 1e-4)
}

func TestUTM_SouthernHemisphere(t *testing.T) {
	tr, err := NewTransformer(32733)
	require.NoError(t, err)

	x, y := tr.FromLatLon(0, 15)
	assert.InDelta(t, 500000, x, 0.001)
	assert.InDelta(t, 10000000, y, 0.001)
}

func TestIdentityAndWebMercator(t *testing.T) {
	id, err := NewTransformer(4326)
	require.NoError(t, err)
	lat, lon := id.ToLatLon(12.48, 41.97)
	assert.Equal(t, 41.97, lat)
	assert.Equal(t, 12.48, lon)

	wm, err := NewTransformer(3857)
	require.NoError(t, err)
	x, y := wm.FromLatLon(0, 180)
	assert.InDelta(t, 20037508.34, x, 0.01)
	assert.InDelta(t, 0, y, 1e-6)

	lat, lon = wm.ToLatLon(wm.FromLatLon(41.97, 12.48))
	assert.InDelta(t, 41.97, lat, 1e-9)
	assert.InDelta(t, 12.48, lon, 1e-9)
}

func square(minX, minY, size float64) Polygon {
	return NewPolygon(
		Point{minX, minY},
		Point{minX + size, minY},
		Point{minX + size, minY + size},
		Point{minX, minY + size},
	)
}

func TestPolygon_Contains(t *testing.T) {
	p := square(0, 0, 10)
	p.Holes = []Ring{square(4, 4, 2).Outer}

	assert.True(t, p.Contains(Point{1, 1}))
	assert.False(t, p.Contains(Point{5, 5}), "inside hole")
	assert.False(t, p.Contains(Point{11, 5}))
}

func TestPolygon_Intersects(t *testing.T) {
	base := square(0, 0, 10)

	tests := []struct {
		name  string
		other Polygon
		want  bool
	}{
		{"overlapping", square(5, 5, 10), true},
		{"contained", square(2, 2, 1), true},
		{"containing", square(-5, -5, 30), true},
		{"touching edge", square(10, 0, 5), true},
		{"touching corner", square(10, 10, 5), true},
		{"disjoint", square(20, 20, 5), false},
		{"bbox overlap only", NewPolygon(Point{9, 12}, Point{12, 9}, Point{12, 12}), false},
		{"crossing without vertices inside", NewPolygon(Point{-1, 4}, Point{11, 4}, Point{11, 6}, Point{-1, 6}), true},
		{"closed ring form", NewPolygon(Point{2, 2}, Point{3, 2}, Point{3, 3}, Point{2, 2}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Intersects(tt.other))
			assert.Equal(t, tt.want, tt.other.Intersects(base), "symmetric")
		})
	}
}

func TestPolygon_IntersectsInsideHole(t *testing.T) {
	donut := square(0, 0, 10)
	donut.Holes = []Ring{square(3, 3, 4).Outer}

	assert.False(t, donut.Intersects(square(4, 4, 1)), "entirely inside the hole")
	assert.True(t, donut.Intersects(square(2, 4, 2)), "crosses the hole boundary")
}

func TestMultiPolygon(t *testing.T) {
	m := MultiPolygon{square(0, 0, 1), square(10, 10, 1)}

	assert.Equal(t, BBox{MinX: 0, MinY: 0, MaxX: 11, MaxY: 11}, m.Bounds())
	assert.True(t, m.Intersects(square(10.5, 10.5, 2)))
	assert.False(t, m.Intersects(square(5, 5, 1)))
	assert.True(t, m.Contains(Point{0.5, 0.5}))
	assert.False(t, m.Contains(Point{5, 5}))
}

func TestBBox(t *testing.T) {
	b := EmptyBBox()
	assert.True(t, b.Empty())

	b = b.Extend(Point{1, 2}).Extend(Point{-1, 5})
	assert.False(t, b.Empty())
	assert.Equal(t, BBox{MinX: -1, MinY: 2, MaxX: 1, MaxY: 5}, b)
	assert.True(t, b.Overlaps(BBox{MinX: 1, MinY: 5, MaxX: 3, MaxY: 6}))
	assert.False(t, b.Overlaps(BBox{MinX: 1.1, MinY: 0, MaxX: 3, MaxY: 6}))
}
