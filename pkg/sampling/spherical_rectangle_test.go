package sampling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
)

type rectCase struct {
	name   string
	origin core.Vec3
	ex, ey core.Vec3
	o      core.Vec3
}

func rectCases() []rectCase {
	return []rectCase{
		{"Centered unit square", core.NewVec3(-0.5, -0.5, 1), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.Vec3{}},
		{"Viewed from the back", core.NewVec3(-0.5, -0.5, 1), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 3)},
		{"Off-center long edges", core.NewVec3(1, 2, -1), core.NewVec3(3, 0, 0), core.NewVec3(0, 0.5, 0), core.NewVec3(0, 0, 0.5)},
		{"Tilted rectangle", core.NewVec3(0, 0, 2), core.NewVec3(1, 1, 0), core.NewVec3(-0.5, 0.5, 1), core.NewVec3(0.1, -0.3, 0)},
	}
}

func TestSphericalRectangleSampler_KnownSolidAngle(t *testing.T) {
	s := NewSphericalRectangleSampler(
		core.NewVec3(-0.5, -0.5, 1), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1), core.Vec3{})

	// Centered a×b rectangle at distance d: 4·asin(ab / sqrt((a²+4d²)(b²+4d²)))
	expected := 4 * math.Asin(1.0/5.0)
	if math.Abs(s.SolidAngle()-expected) > 1e-9 {
		t.Errorf("Expected solid angle %f, got %f", expected, s.SolidAngle())
	}
}

func TestSphericalRectangleSampler_SamplesLieOnRectangle(t *testing.T) {
	for _, tc := range rectCases() {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.ex.Cross(tc.ey).Normalize()
			s := NewSphericalRectangleSampler(tc.origin, tc.ex, tc.ey, n, tc.o)
			sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

			for i := 0; i < 2000; i++ {
				p := s.Sample(sampler.Get2D())
				local := p.Subtract(tc.origin)
				if math.Abs(local.Dot(n)) > 1e-9 {
					t.Fatalf("Expected point on the rectangle plane, got offset %g", local.Dot(n))
				}
				u := local.Dot(tc.ex) / tc.ex.LengthSquared()
				v := local.Dot(tc.ey) / tc.ey.LengthSquared()
				if u < -1e-9 || u > 1+1e-9 || v < -1e-9 || v > 1+1e-9 {
					t.Fatalf("Expected point inside the rectangle, got (%f, %f)", u, v)
				}
			}
		})
	}
}

func TestSphericalRectangleSampler_ReciprocalDensityIntegratesToArea(t *testing.T) {
	for _, tc := range rectCases() {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.ex.Cross(tc.ey)
			area := n.Length()
			n = n.Normalize()
			s := NewSphericalRectangleSampler(tc.origin, tc.ex, tc.ey, n, tc.o)
			sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

			const count = 40000
			var sum float64
			for i := 0; i < count; i++ {
				p := s.Sample(sampler.Get2D())
				d := p.Subtract(tc.o)
				dist2 := d.LengthSquared()
				cosTheta := math.Abs(n.Dot(d.Normalize()))
				sum += s.SolidAngle() * dist2 / cosTheta
			}

			estimate := sum / count
			if math.Abs(estimate-area)/area > 0.02 {
				t.Errorf("Expected reciprocal density to integrate to area %f, got %f", area, estimate)
			}
		})
	}
}

func TestSphericalRectangleSampler_SolidAngleMatchesTriangles(t *testing.T) {
	for _, tc := range rectCases() {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.ex.Cross(tc.ey).Normalize()
			s := NewSphericalRectangleSampler(tc.origin, tc.ex, tc.ey, n, tc.o)

			p0 := tc.origin
			p1 := tc.origin.Add(tc.ex)
			p2 := tc.origin.Add(tc.ex).Add(tc.ey)
			p3 := tc.origin.Add(tc.ey)
			split := NewSphericalTriangleSampler(p0, p1, p2, tc.o).SolidAngle() +
				NewSphericalTriangleSampler(p0, p2, p3, tc.o).SolidAngle()

			if math.Abs(split-s.SolidAngle()) > 1e-9 {
				t.Errorf("Expected solid angle %f from two triangles, got %f", split, s.SolidAngle())
			}
		})
	}
}
