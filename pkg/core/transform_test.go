package core

import (
	"math"
	"testing"
)

func approxVec(a, b Vec3, tol float64) bool {
	return a.Subtract(b).Length() <= tol
}

func TestQuat_Rotate(t *testing.T) {
	tests := []struct {
		name     string
		axis     Vec3
		angle    float64
		vector   Vec3
		expected Vec3
	}{
		{"No rotation", NewVec3(0, 0, 1), 0, NewVec3(1, 0, 0), NewVec3(1, 0, 0)},
		{"90 degrees around Z", NewVec3(0, 0, 1), math.Pi / 2, NewVec3(1, 0, 0), NewVec3(0, 1, 0)},
		{"90 degrees around Y", NewVec3(0, 1, 0), math.Pi / 2, NewVec3(1, 0, 0), NewVec3(0, 0, -1)},
		{"90 degrees around X", NewVec3(1, 0, 0), math.Pi / 2, NewVec3(0, 1, 0), NewVec3(0, 0, 1)},
		{"180 degrees around Y", NewVec3(0, 1, 0), math.Pi, NewVec3(1, 0, 0), NewVec3(-1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatFromAxisAngle(tt.axis, tt.angle)
			result := q.Rotate(tt.vector)
			if !approxVec(result, tt.expected, 1e-9) {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}

			// The matrix form must agree with the quaternion form
			trs := TRS{Rotation: q, Scale: NewVec3(1, 1, 1)}
			matrix := NewTransform(trs.Matrix()).Vector(tt.vector)
			if !approxVec(matrix, tt.expected, 1e-9) {
				t.Errorf("Expected matrix rotation %v, got %v", tt.expected, matrix)
			}
		})
	}
}

func TestQuat_Slerp(t *testing.T) {
	a := QuatIdentity()
	b := QuatFromAxisAngle(NewVec3(0, 0, 1), math.Pi/2)
	half := a.Slerp(b, 0.5).Rotate(NewVec3(1, 0, 0))
	expected := NewVec3(math.Sqrt2/2, math.Sqrt2/2, 0)
	if !approxVec(half, expected, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, half)
	}
}

func TestTransform_InverseRoundTrip(t *testing.T) {
	trs := TRS{
		Translation: NewVec3(1, -2, 3),
		Rotation:    QuatFromAxisAngle(NewVec3(1, 1, 0), 0.7),
		Scale:       NewVec3(2, 0.5, 3),
	}
	xf := NewTransform(trs.Matrix())
	p := NewVec3(0.3, 0.4, -0.5)

	back := xf.PointToLocal(xf.Point(p))
	if !approxVec(back, p, 1e-9) {
		t.Errorf("Expected %v, got %v", p, back)
	}

	composed := xf.Compose(xf.Inverse())
	if !approxVec(composed.Point(p), p, 1e-9) {
		t.Errorf("Expected identity composition, got %v", composed.Point(p))
	}
}

func TestTransform_NormalStaysPerpendicular(t *testing.T) {
	xf := NewTransform(TRS{Rotation: QuatIdentity(), Scale: NewVec3(1, 4, 1)}.Matrix())
	tangent := NewVec3(1, 1, 0)
	normal := NewVec3(1, -1, 0)

	tw := xf.Vector(tangent)
	nw := xf.Normal(normal)
	if math.Abs(tw.Dot(nw)) > 1e-9 {
		t.Errorf("Expected transformed normal perpendicular to tangent, dot %f", tw.Dot(nw))
	}
}

func TestTransform_ParentToLocalRayPreservesDistance(t *testing.T) {
	xf := NewTransform(TRS{Translation: NewVec3(0, 0, 5), Rotation: QuatIdentity(), Scale: NewVec3(2, 2, 2)}.Matrix())
	ray := NewRay(NewVec3(0, 0, 0), NewVec3(0, 0, 1))
	local := xf.ParentToLocalRay(ray)

	// The parent point at t=5 is the local origin
	if !approxVec(local.At(5), NewVec3(0, 0, 0), 1e-9) {
		t.Errorf("Expected local origin at t=5, got %v", local.At(5))
	}
}

func TestTransformSequence_Evaluate(t *testing.T) {
	seq := &TransformSequence{}
	seq.SetTransform(1, TRS{Translation: NewVec3(10, 0, 0), Rotation: QuatIdentity(), Scale: NewVec3(1, 1, 1)})
	seq.SetTransform(0, IdentityTRS())
	seq.Prepare()

	tests := []struct {
		time     float64
		expected Vec3
	}{
		{-1, NewVec3(0, 0, 0)},
		{0, NewVec3(0, 0, 0)},
		{0.25, NewVec3(2.5, 0, 0)},
		{1, NewVec3(10, 0, 0)},
		{2, NewVec3(10, 0, 0)},
	}
	for _, tt := range tests {
		p := seq.Evaluate(tt.time).Point(Vec3{})
		if !approxVec(p, tt.expected, 1e-9) {
			t.Errorf("At time %f expected %v, got %v", tt.time, tt.expected, p)
		}
	}

	if seq.IsStatic() {
		t.Error("Expected moving sequence")
	}
	if !approxVec(seq.EarliestTransform().Point(Vec3{}), Vec3{}, 1e-9) {
		t.Error("Expected earliest transform at time 0")
	}
}

func TestTransformSequence_ComposeAndMotionBox(t *testing.T) {
	local := &TransformSequence{}
	local.SetTransform(0, IdentityTRS())
	local.SetTransform(1, TRS{Translation: NewVec3(4, 0, 0), Rotation: QuatIdentity(), Scale: NewVec3(1, 1, 1)})
	local.Prepare()

	parent := NewTransformSequence(TRS{Translation: NewVec3(0, 10, 0), Rotation: QuatIdentity(), Scale: NewVec3(1, 1, 1)})
	seq := local.Compose(parent)

	p := seq.Evaluate(0.5).Point(Vec3{})
	if !approxVec(p, NewVec3(2, 10, 0), 1e-9) {
		t.Errorf("Expected (2,10,0), got %v", p)
	}

	box := seq.ToParent(NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1)), 4)
	expected := NewAABB(NewVec3(-1, 9, -1), NewVec3(5, 11, 1))
	if !approxVec(box.Min, expected.Min, 1e-9) || !approxVec(box.Max, expected.Max, 1e-9) {
		t.Errorf("Expected %v, got %v", expected, box)
	}
}

func TestTransformSequence_EmptyIsIdentity(t *testing.T) {
	var seq *TransformSequence
	if !seq.Empty() || !seq.IsStatic() {
		t.Error("Expected nil sequence to be empty and static")
	}
	if !seq.Evaluate(0.3).IsIdentity() {
		t.Error("Expected identity transform")
	}
}
