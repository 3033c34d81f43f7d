// Package render draws animation timesteps and the export placeholder as PNG.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/geo"
	"github.com/couchcryptid/windshadow-calendar/internal/shadow"
)

// Default canvas size.
const (
	Width  = 1280
	Height = 720
)

// PlaceholderText is drawn on the export placeholder image.
const PlaceholderText = "Wind Shadow Calendar Studio export placeholder"

const (
	margin       = 40
	outlineWidth = 2.0
	dotRadius    = 4.0
)

var (
	background = color.RGBA{0x11, 0x11, 0x11, 0xff}
	aoiColor   = color.NRGBA{0xff, 0x8c, 0x00, 0xff}
	hitColor   = color.NRGBA{0xe0, 0x30, 0x30, 0x90}
	missColor  = color.NRGBA{0x9a, 0x9a, 0x9a, 0x70}
	dotColor   = color.White
)

// ErrNoFrame is returned when a FrameInput carries no frame.
var ErrNoFrame = errors.New("no frame to render")

// Scene holds what stays fixed across a sequence of frames.
type Scene struct {
	AOI      geo.MultiPolygon
	Turbines []domain.Turbine
	// Extent fixes the visible area; when empty it is fitted to the content.
	Extent geo.BBox
	Width  int
	Height int
}

// FrameInput is one timestep to draw.
type FrameInput struct {
	Scene
	Timestamp string
	Frame     *domain.Frame
}

// Placeholder writes the 1280x720 export placeholder PNG.
func Placeholder(w io.Writer) error {
	img := newCanvas(Width, Height)
	drawText(img, 50, 50, PlaceholderText)
	return png.Encode(w, img)
}

// Frame draws one timestep: shadow footprints, the AOI outline, turbine
// positions and a caption with the timestamp and sun position.
func Frame(w io.Writer, in FrameInput) error {
	img, err := drawFrame(in)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func drawFrame(in FrameInput) (*image.RGBA, error) {
	if in.Frame == nil {
		return nil, ErrNoFrame
	}
	width, height := in.Width, in.Height
	if width <= 0 || height <= 0 {
		width, height = Width, Height
	}
	img := newCanvas(width, height)

	extent := in.Extent
	if unset(extent) {
		extent = frameExtent(in.Scene, in.Frame)
	}
	vp := fit(extent, width, height)
	z := vector.NewRasterizer(width, height)

	for _, sf := range in.Frame.Turbines {
		ring := shadow.Outline(geo.Point{X: sf.Center[0], Y: sf.Center[1]}, sf.MajorM, sf.MinorM, sf.RotationDeg, shadow.DefaultVertices)
		col := missColor
		if sf.IntersectsAOI {
			col = hitColor
		}
		z.Reset(width, height)
		addRing(z, vp, ring)
		z.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{})
	}

	z.Reset(width, height)
	for _, poly := range in.AOI {
		strokeRing(z, vp, poly.Outer)
		for _, hole := range poly.Holes {
			strokeRing(z, vp, hole)
		}
	}
	z.Draw(img, img.Bounds(), image.NewUniform(aoiColor), image.Point{})

	z.Reset(width, height)
	for _, t := range in.Turbines {
		x, y := vp.pixel(geo.Point{X: t.X, Y: t.Y})
		addDot(z, x, y)
	}
	z.Draw(img, img.Bounds(), image.NewUniform(dotColor), image.Point{})

	sun := in.Frame.Sun
	drawText(img, 20, 30, fmt.Sprintf("%s  sun az %.1f el %.1f", in.Timestamp, sun.AzimuthDeg, sun.ElevationDeg))
	return img, nil
}

func newCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	return img
}

func drawText(img draw.Image, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func unset(b geo.BBox) bool {
	return b.Empty() || b == (geo.BBox{})
}

// frameExtent covers the AOI, the turbines and every footprint of the frame.
func frameExtent(sc Scene, frame *domain.Frame) geo.BBox {
	b := sc.AOI.Bounds()
	for _, t := range sc.Turbines {
		b = b.Extend(geo.Point{X: t.X, Y: t.Y})
	}
	return b.Union(footprintExtent(frame))
}

func footprintExtent(frame *domain.Frame) geo.BBox {
	b := geo.EmptyBBox()
	if frame == nil {
		return b
	}
	for _, sf := range frame.Turbines {
		r := sf.MajorM / 2
		b = b.Extend(geo.Point{X: sf.Center[0] - r, Y: sf.Center[1] - r})
		b = b.Extend(geo.Point{X: sf.Center[0] + r, Y: sf.Center[1] + r})
	}
	return b
}

// viewport maps project coordinates to pixels with a uniform scale and y pointing down.
type viewport struct {
	minX, maxY float64
	scale      float64
	offX, offY float64
}

func fit(b geo.BBox, width, height int) viewport {
	if b.Empty() {
		b = geo.BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	}
	spanX := math.Max(b.MaxX-b.MinX, 1)
	spanY := math.Max(b.MaxY-b.MinY, 1)
	availX := float64(max(width-2*margin, 1))
	availY := float64(max(height-2*margin, 1))
	scale := math.Min(availX/spanX, availY/spanY)
	return viewport{
		minX:  b.MinX,
		maxY:  b.MaxY,
		scale: scale,
		offX:  float64(margin) + (availX-spanX*scale)/2,
		offY:  float64(margin) + (availY-spanY*scale)/2,
	}
}

func (v viewport) pixel(p geo.Point) (float32, float32) {
	return float32(v.offX + (p.X-v.minX)*v.scale), float32(v.offY + (v.maxY-p.Y)*v.scale)
}

func addRing(z *vector.Rasterizer, vp viewport, ring geo.Ring) {
	if len(ring) < 3 {
		return
	}
	x, y := vp.pixel(ring[0])
	z.MoveTo(x, y)
	for _, p := range ring[1:] {
		x, y = vp.pixel(p)
		z.LineTo(x, y)
	}
	z.ClosePath()
}

// strokeRing adds a quad of outlineWidth pixels around every edge.
func strokeRing(z *vector.Rasterizer, vp viewport, ring geo.Ring) {
	n := len(ring)
	for i := 0; i < n; i++ {
		ax, ay := vp.pixel(ring[i])
		bx, by := vp.pixel(ring[(i+1)%n])
		dx, dy := bx-ax, by-ay
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*outlineWidth/2, dx/l*outlineWidth/2
		z.MoveTo(ax+nx, ay+ny)
		z.LineTo(bx+nx, by+ny)
		z.LineTo(bx-nx, by-ny)
		z.LineTo(ax-nx, ay-ny)
		z.ClosePath()
	}
}

func addDot(z *vector.Rasterizer, x, y float32) {
	const sides = 12
	for i := 0; i <= sides; i++ {
		a := 2 * math.Pi * float64(i) / sides
		px := x + dotRadius*float32(math.Cos(a))
		py := y + dotRadius*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(px, py)
			continue
		}
		z.LineTo(px, py)
	}
	z.ClosePath()
}
