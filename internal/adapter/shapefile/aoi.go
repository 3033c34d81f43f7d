// Package shapefile reads and writes area-of-interest polygons in ESRI
// shapefile format.
package shapefile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"

	"github.com/couchcryptid/windshadow-calendar/internal/geo"
)

// ErrNoPolygons is returned when a shapefile holds no polygon records.
var ErrNoPolygons = errors.New("shapefile has no polygon records")

// LoadAOI reads every polygon record of the shapefile at path into a
// MultiPolygon. Within a record, parts that lie inside the first part become
// its holes; other parts are kept as separate polygons.
func LoadAOI(path string) (geo.MultiPolygon, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		path += ".shp"
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", path, err)
	}
	defer r.Close()

	var aoi geo.MultiPolygon
	for r.Next() {
		_, shape := r.Shape()
		parts, points, ok := polygonParts(shape)
		if !ok {
			continue
		}
		aoi = append(aoi, assemble(splitRings(parts, points))...)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading shapefile %s: %w", path, err)
	}
	if len(aoi) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPolygons)
	}
	return aoi, nil
}

func polygonParts(shape shp.Shape) ([]int32, []shp.Point, bool) {
	switch p := shape.(type) {
	case *shp.Polygon:
		return p.Parts, p.Points, true
	case *shp.PolygonZ:
		return p.Parts, p.Points, true
	case *shp.PolygonM:
		return p.Parts, p.Points, true
	default:
		return nil, nil, false
	}
}

// splitRings cuts the flat point list at the part offsets.
func splitRings(parts []int32, points []shp.Point) []geo.Ring {
	rings := make([]geo.Ring, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end || end > len(points) {
			continue
		}
		ring := make(geo.Ring, 0, end-int(start))
		for _, pt := range points[start:end] {
			ring = append(ring, geo.Point{X: pt.X, Y: pt.Y})
		}
		if len(ring) >= 3 {
			rings = append(rings, ring)
		}
	}
	return rings
}

func assemble(rings []geo.Ring) geo.MultiPolygon {
	if len(rings) == 0 {
		return nil
	}
	shell := geo.Polygon{Outer: rings[0]}
	outline := geo.Polygon{Outer: rings[0]}
	var extra geo.MultiPolygon
	for _, ring := range rings[1:] {
		if outline.Contains(ring[0]) {
			shell.Holes = append(shell.Holes, ring)
			continue
		}
		extra = append(extra, geo.Polygon{Outer: ring})
	}
	return append(geo.MultiPolygon{shell}, extra...)
}
