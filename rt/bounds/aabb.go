package bounds

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Extents are the analytic size of an item. The local box is centred on X
// and Y and rises from Z=0 to Z=Depth.
type Extents struct {
	Width  float32
	Height float32
	Depth  float32
}

// LocalBox returns the base-at-zero local box described by e.
func (e Extents) LocalBox() AABB {
	return AABB{
		Min: mgl32.Vec3{-e.Width / 2, -e.Height / 2, 0},
		Max: mgl32.Vec3{e.Width / 2, e.Height / 2, e.Depth},
	}
}

func (e Extents) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{e.Width, e.Height, e.Depth}
}

type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

var (
	posInf = float32(math.Inf(1))
	negInf = float32(math.Inf(-1))
)

// EmptyAABB returns a box with inverted infinite bounds. Any point expands it.
func EmptyAABB() AABB {
	return AABB{
		Min: mgl32.Vec3{posInf, posInf, posInf},
		Max: mgl32.Vec3{negInf, negInf, negInf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() || b.Max.Z() < b.Min.Z()
}

func (b AABB) ExpandByPoint(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

func (b AABB) Union(other AABB) AABB {
	if other.IsEmpty() {
		return b
	}
	return b.ExpandByPoint(other.Min).ExpandByPoint(other.Max)
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Expand grows the box by margin on every side.
func (b AABB) Expand(margin float32) AABB {
	m := mgl32.Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Intersects treats touching faces as intersecting.
func (b AABB) Intersects(other AABB) bool {
	return b.Min.X() <= other.Max.X() && b.Max.X() >= other.Min.X() &&
		b.Min.Y() <= other.Max.Y() && b.Max.Y() >= other.Min.Y() &&
		b.Min.Z() <= other.Max.Z() && b.Max.Z() >= other.Min.Z()
}

func (b AABB) Translate(offset mgl32.Vec3) AABB {
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

func (b AABB) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
}

// AABBFromTransformAndExtents transforms all 8 corners of the analytic local
// box, so the result is exact under any rotation.
func AABBFromTransformAndExtents(m mgl32.Mat4, e Extents) AABB {
	return AABBFromTransformAndLocalBox(m, e.LocalBox())
}

// AABBFromTransformAndLocalBox is AABBFromTransformAndExtents for a local box
// supplied by the caller, e.g. the bounds of a loaded model.
func AABBFromTransformAndLocalBox(m mgl32.Mat4, local AABB) AABB {
	out := EmptyAABB()
	for _, c := range local.Corners() {
		out = out.ExpandByPoint(m.Mul4x1(c.Vec4(1)).Vec3())
	}
	return out
}

// MergeAABBs returns the smallest box containing all inputs. With no inputs
// the result is empty and must be checked with IsEmpty before use.
func MergeAABBs(boxes ...AABB) AABB {
	out := EmptyAABB()
	for _, b := range boxes {
		out = out.Union(b)
	}
	return out
}
