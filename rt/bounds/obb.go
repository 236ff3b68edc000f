package bounds

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/placer/rt/core"
)

var worldAxes = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// OBB is an oriented box: Axes are the item's local X/Y/Z in world space and
// stay orthonormal.
type OBB struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
	Axes        [3]mgl32.Vec3
}

// OBBFromTransform derives the oriented box of an analytic item. The centre
// comes from the exact AABB so it honours the base-at-zero convention rather
// than the raw translation.
func OBBFromTransform(m mgl32.Mat4, e Extents) OBB {
	_, rot, scale := core.Decompose(m)

	return OBB{
		Center:      AABBFromTransformAndExtents(m, e).Center(),
		HalfExtents: mulElem(e.Vec3(), scale).Mul(0.5),
		Axes:        rotatedAxes(rot),
	}
}

func OBBFromTransformAndLocalBox(m mgl32.Mat4, local AABB) OBB {
	_, rot, scale := core.Decompose(m)

	return OBB{
		Center:      core.TransformPoint(m, local.Center()),
		HalfExtents: mulElem(local.Size(), scale).Mul(0.5),
		Axes:        rotatedAxes(rot),
	}
}

func (o OBB) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	ax := o.Axes[0].Mul(o.HalfExtents.X())
	ay := o.Axes[1].Mul(o.HalfExtents.Y())
	az := o.Axes[2].Mul(o.HalfExtents.Z())

	i := 0
	for _, sx := range [2]float32{-1, 1} {
		for _, sy := range [2]float32{-1, 1} {
			for _, sz := range [2]float32{-1, 1} {
				out[i] = o.Center.Add(ax.Mul(sx)).Add(ay.Mul(sy)).Add(az.Mul(sz))
				i++
			}
		}
	}
	return out
}

// AABB is a conservative axis-aligned bound, meant for cheap rejection before
// the precise tests.
func (o OBB) AABB() AABB {
	out := EmptyAABB()
	for _, c := range o.Corners() {
		out = out.ExpandByPoint(c)
	}
	return out
}

// Project returns the interval covered by the box along axis.
func (o OBB) Project(axis mgl32.Vec3) (float32, float32) {
	corners := o.Corners()
	lo := corners[0].Dot(axis)
	hi := lo
	for _, c := range corners[1:] {
		d := c.Dot(axis)
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return lo, hi
}

// MergeOBBs bounds all inputs with an axis-aligned OBB built from the AABB of
// every corner. It is not a minimal oriented bound; group bounds rely on the
// axis-aligned shape.
func MergeOBBs(obbs ...OBB) OBB {
	if len(obbs) == 0 {
		return OBB{Axes: worldAxes}
	}

	box := EmptyAABB()
	for _, o := range obbs {
		for _, c := range o.Corners() {
			box = box.ExpandByPoint(c)
		}
	}

	return OBB{
		Center:      box.Center(),
		HalfExtents: box.Size().Mul(0.5),
		Axes:        worldAxes,
	}
}

func rotatedAxes(rot mgl32.Quat) [3]mgl32.Vec3 {
	var axes [3]mgl32.Vec3
	for i, a := range worldAxes {
		axes[i] = rot.Rotate(a).Normalize()
	}
	return axes
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
