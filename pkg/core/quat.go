package core

import "math"

// Quat is a rotation quaternion with vector part V and scalar part W
type Quat struct {
	V Vec3
	W float64
}

// QuatIdentity returns the identity rotation
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle creates a rotation of angle radians around the given axis
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	sin, cos := math.Sincos(angle * 0.5)
	return Quat{V: axis.Normalize().Multiply(sin), W: cos}
}

// Rotate applies the rotation to v
func (q Quat) Rotate(v Vec3) Vec3 {
	cross := q.V.Cross(v)
	// v + 2w(qv x v) + 2qv x (qv x v)
	return v.Add(cross.Multiply(2 * q.W)).Add(q.V.Multiply(2).Cross(cross))
}

// Mul composes two rotations; q.Mul(r) applies r first
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		V: q.V.Cross(r.V).Add(r.V.Multiply(q.W)).Add(q.V.Multiply(r.W)),
		W: q.W*r.W - q.V.Dot(r.V),
	}
}

// Dot returns the 4D dot product of two quaternions
func (q Quat) Dot(r Quat) float64 {
	return q.V.Dot(r.V) + q.W*r.W
}

// Length returns the norm of the quaternion
func (q Quat) Length() float64 {
	return math.Sqrt(q.Dot(q))
}

// Normalize returns the unit quaternion, or the identity for a zero quaternion
func (q Quat) Normalize() Quat {
	length := q.Length()
	if length == 0 {
		return QuatIdentity()
	}
	return Quat{V: q.V.Multiply(1 / length), W: q.W / length}
}

// Inverse returns the conjugate divided by the squared length
func (q Quat) Inverse() Quat {
	scale := 1 / q.Dot(q)
	return Quat{V: q.V.Multiply(-scale), W: q.W * scale}
}

// Slerp spherically interpolates between q and r along the shortest arc
func (q Quat) Slerp(r Quat, t float64) Quat {
	cosTheta := q.Dot(r)
	if cosTheta < 0 {
		r = Quat{V: r.V.Negate(), W: -r.W}
		cosTheta = -cosTheta
	}

	// Nearly parallel: fall back to normalized lerp
	if cosTheta > 0.9995 {
		return Quat{
			V: q.V.Lerp(r.V, t),
			W: q.W*(1-t) + r.W*t,
		}.Normalize()
	}

	theta := math.Acos(cosTheta)
	sinTheta := math.Sin(theta)
	a := math.Sin((1-t)*theta) / sinTheta
	b := math.Sin(t*theta) / sinTheta
	return Quat{
		V: q.V.Multiply(a).Add(r.V.Multiply(b)),
		W: q.W*a + r.W*b,
	}
}
