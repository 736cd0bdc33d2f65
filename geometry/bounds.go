package geometry

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Bounds is an axis-aligned box enclosing vertex positions.
// A cleared Bounds has Min > Max on both axes and reports IsEmpty.
type Bounds struct {
	Min f32.Vec2
	Max f32.Vec2
}

// Clear resets the bounds to the empty state so points can be accumulated
// with AddPoint.
func (b *Bounds) Clear() {
	b.Min = f32.Vec2{float32(math.Inf(1)), float32(math.Inf(1))}
	b.Max = f32.Vec2{float32(math.Inf(-1)), float32(math.Inf(-1))}
}

// AddPoint grows the bounds to include (x, y).
func (b *Bounds) AddPoint(x, y float32) {
	if x < b.Min[0] {
		b.Min[0] = x
	}
	if x > b.Max[0] {
		b.Max[0] = x
	}
	if y < b.Min[1] {
		b.Min[1] = y
	}
	if y > b.Max[1] {
		b.Max[1] = y
	}
}

// IsEmpty reports whether the bounds enclose no points.
func (b *Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1]
}

// Width returns the horizontal extent, 0 when empty.
func (b *Bounds) Width() float32 {
	if b.IsEmpty() {
		return 0
	}
	return b.Max[0] - b.Min[0]
}

// Height returns the vertical extent, 0 when empty.
func (b *Bounds) Height() float32 {
	if b.IsEmpty() {
		return 0
	}
	return b.Max[1] - b.Min[1]
}

// BoundsCalculator computes the bounds of a geometry from a designated
// position attribute. The result is written into out in place so the
// geometry can reuse its cache object across recomputations.
type BoundsCalculator interface {
	ComputeBounds(g *Geometry, attributeName string, out *Bounds) error
}

// PositionBounds is the default BoundsCalculator. It scans the named
// attribute's float32 data, honoring stride and offset, and treats the
// first two components of each vertex as its x/y position.
//
// A missing attribute yields cleared (empty) bounds, not an error.
type PositionBounds struct{}

// ComputeBounds implements BoundsCalculator.
func (PositionBounds) ComputeBounds(g *Geometry, attributeName string, out *Bounds) error {
	out.Clear()

	attr, ok := g.attributes[attributeName]
	if !ok || attr.Buffer == nil {
		return nil
	}

	buf := attr.Buffer
	byteLen := uint32(buf.Len())

	stride := attr.Stride
	if stride == 0 {
		per := attr.Size
		if per < 2 {
			per = 2
		}
		stride = per * 4
	}
	for off := attr.Offset; off+8 <= byteLen; off += stride {
		x := buf.Float32At(int(off / 4))
		y := buf.Float32At(int(off/4) + 1)
		out.AddPoint(x, y)
	}
	return nil
}
