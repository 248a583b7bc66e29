package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the three component vector used for translation, Euler angles and scale.
type Vec3 = mgl64.Vec3

// gimbalEpsilon is how close |sin(y)| may get to 1 before the X and Z
// angles are folded together.
const gimbalEpsilon = 1e-9

// Transform is a translation, rotation and scale triple.
type Transform struct {
	translation Vec3
	rotation    mgl64.Quat
	scale       Vec3
}

// Identity returns the transform that leaves geometry unchanged.
func Identity() Transform {
	return Transform{
		rotation: mgl64.QuatIdent(),
		scale:    Vec3{1, 1, 1},
	}
}

// New constructs a transform. Rotation is given as XYZ Euler angles.
func New(translation, rotation, scale Vec3) Transform {
	return Transform{
		translation: translation,
		rotation:    quatFromEuler(rotation),
		scale:       scale,
	}
}

// FromQuat constructs a transform from an explicit rotation quaternion.
// The quaternion is normalised.
func FromQuat(translation Vec3, rotation mgl64.Quat, scale Vec3) Transform {
	return Transform{
		translation: translation,
		rotation:    rotation.Normalize(),
		scale:       scale,
	}
}

// Translation returns the translation of this transform.
func (t Transform) Translation() Vec3 { return t.translation }

// SetTranslation sets the translation component.
func (t *Transform) SetTranslation(v Vec3) { t.translation = v }

// Rotation returns the rotation as XYZ Euler angles.
func (t Transform) Rotation() Vec3 { return eulerFromQuat(t.rotation) }

// SetRotation sets the rotation from XYZ Euler angles.
func (t *Transform) SetRotation(v Vec3) { t.rotation = quatFromEuler(v) }

// Quat returns the stored rotation quaternion.
func (t Transform) Quat() mgl64.Quat { return t.rotation }

// Scale returns the scale of this transform.
func (t Transform) Scale() Vec3 { return t.scale }

// SetScale sets the scale component.
func (t *Transform) SetScale(v Vec3) { t.scale = v }

// Matrix returns the affine matrix applying scale, then rotation, then translation.
func (t Transform) Matrix() mgl64.Mat4 {
	tr := mgl64.Translate3D(t.translation[0], t.translation[1], t.translation[2])
	sc := mgl64.Scale3D(t.scale[0], t.scale[1], t.scale[2])
	return tr.Mul4(t.rotation.Mat4()).Mul4(sc)
}

// SetFromMatrix decomposes an affine matrix into this transform's
// components. A negative determinant is attributed to the X scale.
func (t *Transform) SetFromMatrix(m mgl64.Mat4) {
	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	sx, sy, sz := c0.Len(), c1.Len(), c2.Len()
	if m.Det() < 0 {
		sx = -sx
	}

	t.translation = m.Col(3).Vec3()
	t.scale = Vec3{sx, sy, sz}

	if sx == 0 || sy == 0 || sz == 0 {
		// Degenerate scale carries no rotation information.
		t.rotation = mgl64.QuatIdent()
		return
	}
	rot := mgl64.Mat4FromCols(
		c0.Mul(1/sx).Vec4(0),
		c1.Mul(1/sy).Vec4(0),
		c2.Mul(1/sz).Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)
	t.rotation = mgl64.Mat4ToQuat(rot).Normalize()
}

// ApproxEqual compares two transforms component-wise within eps. Rotations
// q and -q are treated as equal.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	if !t.translation.ApproxEqualThreshold(o.translation, eps) ||
		!t.scale.ApproxEqualThreshold(o.scale, eps) {
		return false
	}
	dot := t.rotation.Dot(o.rotation)
	return math.Abs(math.Abs(dot)-1) <= eps
}

func quatFromEuler(e Vec3) mgl64.Quat {
	qx := mgl64.QuatRotate(e[0], Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(e[1], Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(e[2], Vec3{0, 0, 1})
	return qx.Mul(qy).Mul(qz).Normalize()
}

func eulerFromQuat(q mgl64.Quat) Vec3 {
	m := q.Normalize().Mat4()
	sy := clamp(m.At(0, 2), -1, 1)
	y := math.Asin(sy)
	if math.Abs(sy) > 1-gimbalEpsilon {
		return Vec3{math.Atan2(m.At(2, 1), m.At(1, 1)), y, 0}
	}
	x := math.Atan2(-m.At(1, 2), m.At(2, 2))
	z := math.Atan2(-m.At(0, 1), m.At(0, 0))
	return Vec3{x, y, z}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
