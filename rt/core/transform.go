package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

const scaleEpsilon = 1e-8

var canonicalAxes = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// TransformFromMatrix splits an affine matrix back into its components.
func TransformFromMatrix(m mgl32.Mat4) *Transform {
	pos, rot, scale := Decompose(m)
	return &Transform{Position: pos, Rotation: rot, Scale: scale}
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	return Compose(t.Position, t.Rotation, t.Scale)
}

func (t *Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	invScale := mgl32.Scale3D(safeInv(t.Scale.X()), safeInv(t.Scale.Y()), safeInv(t.Scale.Z()))

	// Conjugate is the inverse for a unit quaternion
	invRotate := t.Rotation.Conjugate().Mat4()

	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// Compose builds M = T * R * S.
func Compose(pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	translate := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z())
	rotate := rot.Normalize().Mat4()
	s := mgl32.Scale3D(scale.X(), scale.Y(), scale.Z())

	return translate.Mul4(rotate).Mul4(s)
}

// Decompose is the inverse of Compose for matrices without shear.
// A collapsed (zero scale) axis is rebuilt from the remaining ones so the
// returned rotation is always a unit quaternion.
func Decompose(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	pos := m.Col(3).Vec3()

	var cols [3]mgl32.Vec3
	var scale mgl32.Vec3
	for i := 0; i < 3; i++ {
		c := m.Col(i).Vec3()
		scale[i] = c.Len()
		if scale[i] > scaleEpsilon {
			cols[i] = c.Mul(1 / scale[i])
		}
	}

	repairBasis(&cols, scale)

	rot := mgl32.Mat4FromCols(
		cols[0].Vec4(0),
		cols[1].Vec4(0),
		cols[2].Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	)
	return pos, mgl32.Mat4ToQuat(rot).Normalize(), scale
}

func repairBasis(cols *[3]mgl32.Vec3, scale mgl32.Vec3) {
	var valid []int
	for i := 0; i < 3; i++ {
		if scale[i] > scaleEpsilon {
			valid = append(valid, i)
		}
	}

	switch len(valid) {
	case 3:
		return
	case 2:
		// Missing axis is the cross product of the other two, in cyclic order.
		missing := 3 - valid[0] - valid[1]
		a := cols[(missing+1)%3]
		b := cols[(missing+2)%3]
		cols[missing] = a.Cross(b).Normalize()
	case 1:
		keep := valid[0]
		a := cols[keep]
		helper := canonicalAxes[(keep+1)%3]
		if abs(a.Dot(helper)) > 0.99 {
			helper = canonicalAxes[(keep+2)%3]
		}
		next := (keep + 1) % 3
		cols[(keep+2)%3] = a.Cross(helper).Normalize()
		cols[next] = cols[(keep+2)%3].Cross(a).Normalize()
	default:
		*cols = canonicalAxes
	}
}

// EulerToQuat converts host Euler angles in degrees (X roll, Y pitch, Z yaw)
// into a quaternion composed as qx * qy * qz.
func EulerToQuat(deg mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(deg.X()), canonicalAxes[0])
	qy := mgl32.QuatRotate(mgl32.DegToRad(deg.Y()), canonicalAxes[1])
	qz := mgl32.QuatRotate(mgl32.DegToRad(deg.Z()), canonicalAxes[2])
	return qx.Mul(qy).Mul(qz).Normalize()
}

// ComposeEuler is Compose with the rotation given as host Euler angles.
func ComposeEuler(pos, rotDeg, scale mgl32.Vec3) mgl32.Mat4 {
	return Compose(pos, EulerToQuat(rotDeg), scale)
}

func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Translate returns m with delta added to its translation column.
func Translate(m mgl32.Mat4, delta mgl32.Vec3) mgl32.Mat4 {
	pos, rot, scale := Decompose(m)
	return Compose(pos.Add(delta), rot, scale)
}

func safeInv(v float32) float32 {
	if abs(v) < scaleEpsilon {
		return 0
	}
	return 1 / v
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
