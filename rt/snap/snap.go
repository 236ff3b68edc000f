package snap

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/placer/rt/bounds"
)

const (
	// CrossAxisTolerance lets boxes that merely touch on the other axes
	// still snap on this one.
	CrossAxisTolerance = -0.1

	// MinCorrection suppresses jitter from near-zero OBB corrections.
	MinCorrection = 0.1
)

// Axes mirrors the gizmo axis lock: only enabled world axes may move.
type Axes struct {
	X bool
	Y bool
	Z bool
}

func AllAxes() Axes {
	return Axes{X: true, Y: true, Z: true}
}

func (a Axes) Enabled(axis int) bool {
	switch axis {
	case 0:
		return a.X
	case 1:
		return a.Y
	case 2:
		return a.Z
	}
	return false
}

func (a Axes) Any() bool {
	return a.X || a.Y || a.Z
}

// Constrain zeroes the components of v on disabled axes. Apply it once to
// the raw solver output.
func (a Axes) Constrain(v mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		if !a.Enabled(i) {
			v[i] = 0
		}
	}
	return v
}

// CalculateSnapVector returns the correction that puts moving flush against
// the nearest face of static, resolving every enabled axis on its own.
func CalculateSnapVector(moving, static bounds.AABB, threshold float32, enabled Axes) (mgl32.Vec3, bool) {
	var out mgl32.Vec3
	snapped := false

	for axis := 0; axis < 3; axis++ {
		if !enabled.Enabled(axis) {
			continue
		}

		// Boxes passing by each other must not snap.
		u, v := (axis+1)%3, (axis+2)%3
		if overlap(moving, static, u) < CrossAxisTolerance || overlap(moving, static, v) < CrossAxisTolerance {
			continue
		}

		distToLowFace := abs(static.Min[axis] - moving.Max[axis])
		distToHighFace := abs(static.Max[axis] - moving.Min[axis])

		if distToHighFace < distToLowFace {
			if distToHighFace <= threshold {
				out[axis] = static.Max[axis] - moving.Min[axis]
				snapped = true
			}
		} else if distToLowFace <= threshold {
			out[axis] = static.Min[axis] - moving.Max[axis]
			snapped = true
		}
	}

	if !snapped {
		return mgl32.Vec3{}, false
	}
	return out, true
}

// CalculateOBBSnapVector tests only the static box's face normals, so the
// result does not depend on how the moving box is rotated. The vector is in
// world space and not yet constrained to any axis lock.
func CalculateOBBSnapVector(moving, static bounds.OBB, threshold float32) (mgl32.Vec3, bool) {
	bestGap := float32(0)
	bestAxis := -1
	var bestMoving, bestStatic [2]float32

	for i, axis := range static.Axes {
		mMin, mMax := moving.Project(axis)
		sMin, sMax := static.Project(axis)

		gap := -(min(mMax, sMax) - max(mMin, sMin))
		if gap <= 0 || gap > threshold {
			continue
		}
		if bestAxis < 0 || gap < bestGap {
			bestGap = gap
			bestAxis = i
			bestMoving = [2]float32{mMin, mMax}
			bestStatic = [2]float32{sMin, sMax}
		}
	}

	if bestAxis < 0 {
		return mgl32.Vec3{}, false
	}

	var correction float32
	switch {
	case bestMoving[1] < bestStatic[0]:
		correction = bestStatic[0] - bestMoving[1]
	case bestMoving[0] > bestStatic[1]:
		correction = bestStatic[1] - bestMoving[0]
	default:
		return mgl32.Vec3{}, false
	}

	v := static.Axes[bestAxis].Mul(correction)
	if v.Len() <= MinCorrection {
		return mgl32.Vec3{}, false
	}
	return v, true
}

func overlap(a, b bounds.AABB, axis int) float32 {
	return min(a.Max[axis], b.Max[axis]) - max(a.Min[axis], b.Min[axis])
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
