// Package shadow approximates the ground shadow cast by a turbine rotor.
package shadow

import (
	"math"

	"github.com/couchcryptid/windshadow-calendar/internal/geo"
)

// DefaultVertices is the number of points used to sample the ellipse outline.
const DefaultVertices = 48

// Footprint is the elliptical shadow of a rotor disc on flat ground.
type Footprint struct {
	Polygon     geo.Polygon
	Center      geo.Point
	MajorM      float64
	MinorM      float64
	RotationDeg float64
}

// Ellipse returns the shadow footprint of a turbine at (x, y) for the given
// sun position. The footprint centre lies hub/tan(elevation) metres from the
// tower, opposite the sun. The minor axis equals the rotor diameter and the
// major axis stretches with 1/sin(elevation). Elevations below 0.01 degrees
// are clamped so that shadows stay finite.
func Ellipse(x, y, hubHeightM, rotorDiameterM, sunAzimuthDeg, sunElevationDeg float64, vertices int) Footprint {
	if vertices < 3 {
		vertices = DefaultVertices
	}

	elev := radians(math.Max(sunElevationDeg, 0.01))
	major := math.Max(rotorDiameterM, rotorDiameterM/math.Max(math.Sin(elev), 1e-3))
	minor := rotorDiameterM
	shadowLen := hubHeightM / math.Tan(elev)

	theta := radians(math.Mod(sunAzimuthDeg+180, 360))
	cx := x + shadowLen*math.Sin(theta)
	cy := y + shadowLen*math.Cos(theta)
	rotDeg := math.Mod(sunAzimuthDeg+90, 360)
	center := geo.Point{X: cx, Y: cy}

	return Footprint{
		Polygon:     geo.Polygon{Outer: Outline(center, major, minor, rotDeg, vertices)},
		Center:      center,
		MajorM:      major,
		MinorM:      minor,
		RotationDeg: rotDeg,
	}
}

// Outline samples an ellipse with the given full axis lengths, its major axis
// rotated counter-clockwise from +x by rotationDeg.
func Outline(center geo.Point, major, minor, rotationDeg float64, vertices int) geo.Ring {
	if vertices < 3 {
		vertices = DefaultVertices
	}
	a, b := major/2, minor/2
	rot := radians(rotationDeg)
	sinRot, cosRot := math.Sin(rot), math.Cos(rot)
	ring := make(geo.Ring, vertices)
	for i := range ring {
		t := 2 * math.Pi * float64(i) / float64(vertices)
		ex, ey := a*math.Cos(t), b*math.Sin(t)
		ring[i] = geo.Point{
			X: center.X + ex*cosRot - ey*sinRot,
			Y: center.Y + ex*sinRot + ey*cosRot,
		}
	}
	return ring
}

func radians(d float64) float64 { return d * math.Pi / 180 }
