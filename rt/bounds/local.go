package bounds

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type localKind uint8

const (
	localExtents localKind = iota + 1
	localBox
)

// Local is the local-space shape of an item kind: either analytic extents
// or an explicit box from an asset, never both. The zero value is invalid.
type Local struct {
	kind    localKind
	extents Extents
	box     AABB
}

func FromExtents(width, height, depth float32) Local {
	return Local{kind: localExtents, extents: Extents{Width: width, Height: height, Depth: depth}}
}

func FromLocalBox(min, max mgl32.Vec3) Local {
	return Local{kind: localBox, box: AABB{Min: min, Max: max}}
}

func (l Local) IsValid() bool {
	return l.kind == localExtents || l.kind == localBox
}

// Extents reports the analytic extents, if this is that variant.
func (l Local) Extents() (Extents, bool) {
	return l.extents, l.kind == localExtents
}

// Box reports the explicit local box, if this is that variant.
func (l Local) Box() (AABB, bool) {
	return l.box, l.kind == localBox
}

// LocalBox returns the local-space box of either variant.
func (l Local) LocalBox() AABB {
	switch l.kind {
	case localExtents:
		return l.extents.LocalBox()
	case localBox:
		return l.box
	default:
		panic(fmt.Sprintf("bounds: invalid local bounds kind %d", l.kind))
	}
}

func (l Local) AABB(m mgl32.Mat4) AABB {
	switch l.kind {
	case localExtents:
		return AABBFromTransformAndExtents(m, l.extents)
	case localBox:
		return AABBFromTransformAndLocalBox(m, l.box)
	default:
		panic(fmt.Sprintf("bounds: invalid local bounds kind %d", l.kind))
	}
}

func (l Local) OBB(m mgl32.Mat4) OBB {
	switch l.kind {
	case localExtents:
		return OBBFromTransform(m, l.extents)
	case localBox:
		return OBBFromTransformAndLocalBox(m, l.box)
	default:
		panic(fmt.Sprintf("bounds: invalid local bounds kind %d", l.kind))
	}
}

func (l Local) String() string {
	switch l.kind {
	case localExtents:
		return fmt.Sprintf("extents(%g x %g x %g)", l.extents.Width, l.extents.Height, l.extents.Depth)
	case localBox:
		return fmt.Sprintf("box(%v .. %v)", l.box.Min, l.box.Max)
	default:
		return "invalid"
	}
}
