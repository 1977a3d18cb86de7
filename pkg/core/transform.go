package core

import (
	"math"
	"sort"
)

// Mat4 is a row-major 4x4 matrix
type Mat4 [16]float64

// Mat4Identity returns the identity matrix
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns the matrix product m * o
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[row*4+k] * o[k*4+col]
			}
			r[row*4+col] = sum
		}
	}
	return r
}

// Invert returns the inverse of an affine matrix and false when it is singular
func (m Mat4) Invert() (Mat4, bool) {
	// Invert the upper 3x3 block and apply it to the translation column
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[4], m[5], m[6]
	g, h, i := m[8], m[9], m[10]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if math.Abs(det) < 1e-300 {
		return Mat4Identity(), false
	}
	inv := 1 / det

	var r Mat4
	r[0] = (e*i - f*h) * inv
	r[1] = (c*h - b*i) * inv
	r[2] = (b*f - c*e) * inv
	r[4] = (f*g - d*i) * inv
	r[5] = (a*i - c*g) * inv
	r[6] = (c*d - a*f) * inv
	r[8] = (d*h - e*g) * inv
	r[9] = (b*g - a*h) * inv
	r[10] = (a*e - b*d) * inv

	tx, ty, tz := m[3], m[7], m[11]
	r[3] = -(r[0]*tx + r[1]*ty + r[2]*tz)
	r[7] = -(r[4]*tx + r[5]*ty + r[6]*tz)
	r[11] = -(r[8]*tx + r[9]*ty + r[10]*tz)
	r[15] = 1
	return r, true
}

// TRS is a decomposed transform: scale, then rotation, then translation
type TRS struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

// IdentityTRS returns the TRS that leaves points unchanged
func IdentityTRS() TRS {
	return TRS{Rotation: QuatIdentity(), Scale: NewVec3(1, 1, 1)}
}

// Matrix returns the local-to-parent matrix of the decomposition
func (trs TRS) Matrix() Mat4 {
	q := trs.Rotation.Normalize()
	w, x, y, z := q.W, q.V.X, q.V.Y, q.V.Z
	s := trs.Scale
	t := trs.Translation
	return Mat4{
		(1 - 2*y*y - 2*z*z) * s.X, (2*x*y - 2*w*z) * s.Y, (2*x*z + 2*w*y) * s.Z, t.X,
		(2*x*y + 2*w*z) * s.X, (1 - 2*x*x - 2*z*z) * s.Y, (2*y*z - 2*w*x) * s.Z, t.Y,
		(2*x*z - 2*w*y) * s.X, (2*y*z + 2*w*x) * s.Y, (1 - 2*x*x - 2*y*y) * s.Z, t.Z,
		0, 0, 0, 1,
	}
}

// Lerp interpolates translation and scale linearly and rotation spherically
func (trs TRS) Lerp(other TRS, t float64) TRS {
	return TRS{
		Translation: trs.Translation.Lerp(other.Translation, t),
		Rotation:    trs.Rotation.Slerp(other.Rotation, t),
		Scale:       trs.Scale.Lerp(other.Scale, t),
	}
}

// Transform is an affine local-to-parent mapping together with its inverse
type Transform struct {
	localToParent Mat4
	parentToLocal Mat4
}

// IdentityTransform returns the identity mapping
func IdentityTransform() Transform {
	return Transform{localToParent: Mat4Identity(), parentToLocal: Mat4Identity()}
}

// NewTransform creates a transform from a local-to-parent matrix.
// A singular matrix yields an inverse equal to the identity.
func NewTransform(localToParent Mat4) Transform {
	inv, _ := localToParent.Invert()
	return Transform{localToParent: localToParent, parentToLocal: inv}
}

// NewTranslation creates a pure translation
func NewTranslation(offset Vec3) Transform {
	return NewTransform(TRS{Translation: offset, Rotation: QuatIdentity(), Scale: NewVec3(1, 1, 1)}.Matrix())
}

// LocalToParent returns the forward matrix
func (t Transform) LocalToParent() Mat4 { return t.localToParent }

// ParentToLocal returns the inverse matrix
func (t Transform) ParentToLocal() Mat4 { return t.parentToLocal }

// Inverse swaps the forward and inverse mappings
func (t Transform) Inverse() Transform {
	return Transform{localToParent: t.parentToLocal, parentToLocal: t.localToParent}
}

// Compose returns the transform applying child first and then t
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		localToParent: t.localToParent.Mul(child.localToParent),
		parentToLocal: child.parentToLocal.Mul(t.parentToLocal),
	}
}

// IsIdentity reports whether the forward matrix is exactly the identity
func (t Transform) IsIdentity() bool {
	return t.localToParent == Mat4Identity()
}

// Point maps a local point to parent space
func (t Transform) Point(p Vec3) Vec3 {
	return transformPoint(t.localToParent, p)
}

// Vector maps a local direction to parent space
func (t Transform) Vector(v Vec3) Vec3 {
	return transformVector(t.localToParent, v)
}

// Normal maps a local normal to parent space using the inverse transpose; the result is not normalized
func (t Transform) Normal(n Vec3) Vec3 {
	m := t.parentToLocal
	return Vec3{
		X: m[0]*n.X + m[4]*n.Y + m[8]*n.Z,
		Y: m[1]*n.X + m[5]*n.Y + m[9]*n.Z,
		Z: m[2]*n.X + m[6]*n.Y + m[10]*n.Z,
	}
}

// PointToLocal maps a parent point into local space
func (t Transform) PointToLocal(p Vec3) Vec3 {
	return transformPoint(t.parentToLocal, p)
}

// VectorToLocal maps a parent direction into local space
func (t Transform) VectorToLocal(v Vec3) Vec3 {
	return transformVector(t.parentToLocal, v)
}

// ParentToLocalRay expresses a parent-space ray in local space.
// The direction is not renormalized so ray distances are preserved.
func (t Transform) ParentToLocalRay(ray Ray) Ray {
	return Ray{
		Origin:    t.PointToLocal(ray.Origin),
		Direction: t.VectorToLocal(ray.Direction),
		TMin:      ray.TMin,
		TMax:      ray.TMax,
		Time:      ray.Time,
	}
}

// LocalToParentBox returns the parent-space box bounding the transformed local box
func (t Transform) LocalToParentBox(box AABB) AABB {
	if !box.IsValid() {
		return box
	}
	result := EmptyAABB()
	for _, corner := range box.Corners() {
		result = result.Insert(t.Point(corner))
	}
	return result
}

func transformPoint(m Mat4, p Vec3) Vec3 {
	return Vec3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

func transformVector(m Mat4, v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// TransformKey is one keyframe of a transform sequence
type TransformKey struct {
	Time float64
	TRS  TRS
}

// TransformSequence is a time-keyed list of TRS keyframes, optionally nested under a parent sequence.
// An empty sequence is the identity. A sequence must not be mutated once it is shared.
type TransformSequence struct {
	keys   []TransformKey
	parent *TransformSequence
}

// NewTransformSequence creates a sequence holding a single static transform
func NewTransformSequence(trs TRS) *TransformSequence {
	seq := &TransformSequence{}
	seq.SetTransform(0, trs)
	return seq
}

// SetTransform sets or replaces the keyframe at the given time
func (s *TransformSequence) SetTransform(time float64, trs TRS) {
	for i := range s.keys {
		if s.keys[i].Time == time {
			s.keys[i].TRS = trs
			return
		}
	}
	s.keys = append(s.keys, TransformKey{Time: time, TRS: trs})
}

// Prepare sorts the keyframes by time
func (s *TransformSequence) Prepare() {
	sort.SliceStable(s.keys, func(i, j int) bool { return s.keys[i].Time < s.keys[j].Time })
}

// Size returns the number of local keyframes
func (s *TransformSequence) Size() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Empty reports whether the sequence has no keyframes in its whole chain
func (s *TransformSequence) Empty() bool {
	for seq := s; seq != nil; seq = seq.parent {
		if len(seq.keys) > 0 {
			return false
		}
	}
	return true
}

// IsStatic reports whether the sequence evaluates to the same transform at every time
func (s *TransformSequence) IsStatic() bool {
	for seq := s; seq != nil; seq = seq.parent {
		if len(seq.keys) > 1 {
			return false
		}
	}
	return true
}

// Keys returns a copy of the local keyframes
func (s *TransformSequence) Keys() []TransformKey {
	if s == nil {
		return nil
	}
	return append([]TransformKey(nil), s.keys...)
}

// Compose returns a sequence evaluating parent after s
func (s *TransformSequence) Compose(parent *TransformSequence) *TransformSequence {
	if parent.Empty() {
		return s
	}
	if s.Empty() {
		return parent
	}
	return &TransformSequence{keys: s.keys, parent: parent}
}

// Evaluate returns the local-to-world transform at the given time.
// Times outside the keyframe range clamp to the first or last key.
func (s *TransformSequence) Evaluate(time float64) Transform {
	if s == nil {
		return IdentityTransform()
	}
	local := s.evaluateLocal(time)
	if s.parent == nil {
		return local
	}
	return s.parent.Evaluate(time).Compose(local)
}

func (s *TransformSequence) evaluateLocal(time float64) Transform {
	n := len(s.keys)
	switch {
	case n == 0:
		return IdentityTransform()
	case n == 1 || time <= s.keys[0].Time:
		return NewTransform(s.keys[0].TRS.Matrix())
	case time >= s.keys[n-1].Time:
		return NewTransform(s.keys[n-1].TRS.Matrix())
	}

	i := sort.Search(n, func(i int) bool { return s.keys[i].Time > time }) - 1
	k0, k1 := s.keys[i], s.keys[i+1]
	t := (time - k0.Time) / (k1.Time - k0.Time)
	return NewTransform(k0.TRS.Lerp(k1.TRS, t).Matrix())
}

// EarliestTransform returns the transform at the earliest keyframe time of the chain
func (s *TransformSequence) EarliestTransform() Transform {
	earliest := math.Inf(1)
	for seq := s; seq != nil; seq = seq.parent {
		if len(seq.keys) > 0 {
			earliest = math.Min(earliest, seq.keys[0].Time)
		}
	}
	if math.IsInf(earliest, 1) {
		return IdentityTransform()
	}
	return s.Evaluate(earliest)
}

// ToParent returns a box bounding the local box over the shutter interval [0, 1].
// Moving sequences are sampled at steps evenly spaced times plus every keyframe time.
func (s *TransformSequence) ToParent(box AABB, steps int) AABB {
	if s.IsStatic() {
		return s.Evaluate(0).LocalToParentBox(box)
	}

	if steps < 2 {
		steps = 2
	}
	times := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		times = append(times, float64(i)/float64(steps-1))
	}
	for seq := s; seq != nil; seq = seq.parent {
		for _, key := range seq.keys {
			if key.Time > 0 && key.Time < 1 {
				times = append(times, key.Time)
			}
		}
	}

	result := EmptyAABB()
	for _, time := range times {
		result = result.Union(s.Evaluate(time).LocalToParentBox(box))
	}
	return result
}
