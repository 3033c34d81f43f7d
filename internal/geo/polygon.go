package geo

import "math"

// Point is a planar coordinate in project units.
type Point struct {
	X float64
	Y float64
}

// Ring is a closed sequence of vertices. The closing vertex may be repeated
// or omitted; both forms are handled.
type Ring []Point

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyBBox returns a box that any Extend call replaces.
func EmptyBBox() BBox {
	return BBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// Extend grows the box to include p.
func (b BBox) Extend(p Point) BBox {
	return BBox{
		MinX: math.Min(b.MinX, p.X),
		MinY: math.Min(b.MinY, p.Y),
		MaxX: math.Max(b.MaxX, p.X),
		MaxY: math.Max(b.MaxY, p.Y),
	}
}

// Union returns the smallest box containing both.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Overlaps reports whether the boxes share at least one point.
func (b BBox) Overlaps(o BBox) bool {
	return !(b.MaxX < o.MinX || b.MinX > o.MaxX || b.MaxY < o.MinY || b.MinY > o.MaxY)
}

// Empty reports whether no point was ever added.
func (b BBox) Empty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Bounds returns the bounding box of the ring.
func (r Ring) Bounds() BBox {
	b := EmptyBBox()
	for _, p := range r {
		b = b.Extend(p)
	}
	return b
}

// edges calls fn for every segment of the ring, including the closing one.
func (r Ring) edges(fn func(a, b Point) bool) bool {
	n := len(r)
	if n < 2 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		if a == b {
			continue
		}
		if fn(a, b) {
			return true
		}
	}
	return false
}

// containsEvenOdd reports whether p lies inside the ring by ray casting.
func (r Ring) containsEvenOdd(p Point) bool {
	inside := false
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// Polygon is an outer ring with optional holes.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// NewPolygon builds a hole-free polygon from a list of points.
func NewPolygon(points ...Point) Polygon {
	return Polygon{Outer: Ring(points)}
}

// Bounds returns the bounding box of the outer ring.
func (p Polygon) Bounds() BBox {
	return p.Outer.Bounds()
}

// Contains reports whether pt lies strictly inside the polygon: inside the
// outer ring and outside every hole.
func (p Polygon) Contains(pt Point) bool {
	if !p.Outer.containsEvenOdd(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.containsEvenOdd(pt) {
			return false
		}
	}
	return true
}

func (p Polygon) rings() []Ring {
	return append([]Ring{p.Outer}, p.Holes...)
}

// Intersects reports whether the polygons share at least one point,
// boundaries included.
func (p Polygon) Intersects(o Polygon) bool {
	if len(p.Outer) == 0 || len(o.Outer) == 0 {
		return false
	}
	if !p.Bounds().Overlaps(o.Bounds()) {
		return false
	}

	for _, ra := range p.rings() {
		for _, rb := range o.rings() {
			crossed := ra.edges(func(a1, a2 Point) bool {
				return rb.edges(func(b1, b2 Point) bool {
					return segmentsIntersect(a1, a2, b1, b2)
				})
			})
			if crossed {
				return true
			}
		}
	}

	// No boundary contact: either one lies inside the other or they are disjoint.
	return p.Contains(o.Outer[0]) || o.Contains(p.Outer[0])
}

// MultiPolygon is a union of polygons, e.g. all records of an AOI shapefile.
type MultiPolygon []Polygon

// Bounds returns the bounding box over all members.
func (m MultiPolygon) Bounds() BBox {
	b := EmptyBBox()
	for _, p := range m {
		b = b.Union(p.Bounds())
	}
	return b
}

// Contains reports whether any member contains pt.
func (m MultiPolygon) Contains(pt Point) bool {
	for _, p := range m {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// Intersects reports whether any member intersects poly.
func (m MultiPolygon) Intersects(poly Polygon) bool {
	for _, p := range m {
		if p.Intersects(poly) {
			return true
		}
	}
	return false
}

// orientation returns >0 for counter-clockwise, <0 for clockwise, 0 for collinear.
func orientation(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// segmentsIntersect reports whether closed segments p1p2 and q1q2 touch or cross.
func segmentsIntersect(p1, p2, q1, q2 Point) bool {
	d1 := sign(orientation(q1, q2, p1))
	d2 := sign(orientation(q1, q2, p2))
	d3 := sign(orientation(p1, p2, q1))
	d4 := sign(orientation(p1, p2, q2))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}

	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}
