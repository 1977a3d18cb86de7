package sampling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
)

// rayTriangle returns the distance along d from o to the triangle abc, or false on a miss
func rayTriangle(o, d, a, b, c core.Vec3) (float64, bool) {
	e1 := b.Subtract(a)
	e2 := c.Subtract(a)
	p := d.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < 1e-14 {
		return 0, false
	}
	inv := 1 / det
	tv := o.Subtract(a)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tv.Cross(e1)
	v := d.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	return t, t > 0
}

func TestSphericalTriangleSampler_OctantSolidAngle(t *testing.T) {
	s := NewSphericalTriangleSampler(
		core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1), core.Vec3{})

	if math.Abs(s.SolidAngle()-math.Pi/2) > 1e-12 {
		t.Errorf("Expected solid angle π/2, got %f", s.SolidAngle())
	}
}

func TestSphericalTriangleSampler_OctantIsUniform(t *testing.T) {
	s := NewSphericalTriangleSampler(
		core.NewVec3(2, 0, 0), core.NewVec3(0, 3, 0), core.NewVec3(0, 0, 1), core.Vec3{})
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	var mean core.Vec3
	const n = 40000
	for i := 0; i < n; i++ {
		d := s.Sample(sampler.Get2D())
		if math.Abs(d.Length()-1) > 1e-9 {
			t.Fatalf("Expected unit direction, got length %f", d.Length())
		}
		if d.X < -1e-9 || d.Y < -1e-9 || d.Z < -1e-9 {
			t.Fatalf("Expected direction inside the octant, got %v", d)
		}
		mean = mean.Add(d)
	}
	mean = mean.Multiply(1.0 / n)

	// A uniform direction over the octant has mean 1/2 along every axis
	expected := core.NewVec3(0.5, 0.5, 0.5)
	if mean.Subtract(expected).Length() > 0.01 {
		t.Errorf("Expected mean direction %v, got %v", expected, mean)
	}
}

func TestSphericalTriangleSampler_SolidAngleMatchesMonteCarlo(t *testing.T) {
	a := core.NewVec3(-1, -1, 2)
	b := core.NewVec3(1, -1, 2)
	c := core.NewVec3(0, 1.5, 2.5)
	o := core.NewVec3(0.2, 0.1, 0)
	s := NewSphericalTriangleSampler(a, b, c, o)

	random := rand.New(rand.NewSource(42))
	const n = 400000
	hits := 0
	for i := 0; i < n; i++ {
		d := core.SampleSphereUniform(core.NewVec2(random.Float64(), random.Float64()))
		if _, ok := rayTriangle(o, d, a, b, c); ok {
			hits++
		}
	}

	estimate := 4 * math.Pi * float64(hits) / n
	if math.Abs(estimate-s.SolidAngle())/s.SolidAngle() > 0.03 {
		t.Errorf("Expected solid angle %f, Monte Carlo estimate %f", s.SolidAngle(), estimate)
	}
}

func TestSphericalTriangleSampler_ReciprocalDensityIntegratesToArea(t *testing.T) {
	a := core.NewVec3(-1, -1, 2)
	b := core.NewVec3(1, -1, 2)
	c := core.NewVec3(0, 1.5, 2.5)
	o := core.NewVec3(0.2, 0.1, 0)
	s := NewSphericalTriangleSampler(a, b, c, o)
	normal := b.Subtract(a).Cross(c.Subtract(a))
	area := 0.5 * normal.Length()
	normal = normal.Normalize()

	sampler := core.NewRandomSampler(rand.New(rand.NewSource(7)))
	const n = 40000
	var sum float64
	for i := 0; i < n; i++ {
		d := s.Sample(sampler.Get2D())
		cosTheta := math.Abs(normal.Dot(d))
		dist := math.Abs(a.Subtract(o).Dot(normal)) / cosTheta
		// 1 / (area density) of the sample
		sum += s.SolidAngle() * dist * dist / cosTheta
	}

	estimate := sum / n
	if math.Abs(estimate-area)/area > 0.02 {
		t.Errorf("Expected reciprocal density to integrate to area %f, got %f", area, estimate)
	}
}

func TestSphericalTriangleSampler_DegenerateTriangle(t *testing.T) {
	s := NewSphericalTriangleSampler(
		core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 1), core.NewVec3(2, 0, 1), core.Vec3{})
	if s.SolidAngle() > 1e-9 {
		t.Errorf("Expected zero solid angle for a collinear triangle, got %f", s.SolidAngle())
	}
}
