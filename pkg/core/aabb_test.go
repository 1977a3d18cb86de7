package core

import (
	"math"
	"testing"
)

func TestAABB_Hit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name     string
		ray      Ray
		expected bool
	}{
		{"Straight through", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), true},
		{"Miss to the side", NewRay(NewVec3(3, 0, -5), NewVec3(0, 0, 1)), false},
		{"Pointing away", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, -1)), false},
		{"Origin inside", NewRay(NewVec3(0, 0, 0), NewVec3(1, 0, 0)), true},
		{"Parallel outside slab", NewRay(NewVec3(0, 2, -5), NewVec3(0, 0, 1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Hit(tt.ray, 0, math.Inf(1)); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAABB_Intersect(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))
	tNear, tFar, ok := box.Intersect(NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), 0, math.Inf(1))
	if !ok {
		t.Fatal("Expected intersection")
	}
	if math.Abs(tNear-4) > 1e-12 || math.Abs(tFar-6) > 1e-12 {
		t.Errorf("Expected [4, 6], got [%f, %f]", tNear, tFar)
	}
}

func TestAABB_EmptyIsUnionIdentity(t *testing.T) {
	box := NewAABB(NewVec3(0, 1, 2), NewVec3(3, 4, 5))
	union := EmptyAABB().Union(box)
	if !union.Equal(box) {
		t.Errorf("Expected %v, got %v", box, union)
	}
	if EmptyAABB().IsValid() {
		t.Error("Expected empty box to be invalid")
	}
	if EmptyAABB().SurfaceArea() != 0 {
		t.Errorf("Expected zero surface area, got %f", EmptyAABB().SurfaceArea())
	}
}

func TestAABB_SurfaceArea(t *testing.T) {
	box := NewAABB(NewVec3(0, 0, 0), NewVec3(4, 2, 1))
	if box.SurfaceArea() != 28 {
		t.Errorf("Expected surface area 28, got %f", box.SurfaceArea())
	}
}

func TestNewAABBFromPoints(t *testing.T) {
	box := NewAABBFromPoints(NewVec3(1, -2, 3), NewVec3(-1, 2, 0))
	expected := NewAABB(NewVec3(-1, -2, 0), NewVec3(1, 2, 3))
	if !box.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, box)
	}
}
