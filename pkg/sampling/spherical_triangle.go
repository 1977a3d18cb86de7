// Package sampling implements solid-angle samplers for spherical triangles and rectangles.
package sampling

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
)

// SphericalTriangleSampler distributes directions uniformly over the solid angle
// subtended by a triangle as seen from a reference point (Arvo 1995).
type SphericalTriangleSampler struct {
	a, b, c core.Vec3 // unit directions from the reference point to the vertices

	alpha, beta, gamma float64 // interior angles at a, b and c
	solidAngle         float64
}

// NewSphericalTriangleSampler projects the triangle abc onto the unit sphere centered at o
func NewSphericalTriangleSampler(a, b, c, o core.Vec3) *SphericalTriangleSampler {
	s := &SphericalTriangleSampler{
		a: a.Subtract(o).Normalize(),
		b: b.Subtract(o).Normalize(),
		c: c.Subtract(o).Normalize(),
	}

	nab := s.a.Cross(s.b).Normalize()
	nbc := s.b.Cross(s.c).Normalize()
	nca := s.c.Cross(s.a).Normalize()

	s.alpha = core.SafeAcos(nab.Negate().Dot(nca))
	s.beta = core.SafeAcos(nbc.Negate().Dot(nab))
	s.gamma = core.SafeAcos(nca.Negate().Dot(nbc))
	s.solidAngle = math.Max(0, s.alpha+s.beta+s.gamma-math.Pi)
	return s
}

// SolidAngle returns the area of the spherical triangle in steradians
func (s *SphericalTriangleSampler) SolidAngle() float64 {
	return s.solidAngle
}

// Sample maps a uniform 2D sample to a unit direction inside the spherical triangle.
// The density of the returned direction is 1/SolidAngle().
func (s *SphericalTriangleSampler) Sample(u core.Vec2) core.Vec3 {
	// Pick the sub-triangle area, then find the vertex C' that carves it out
	area := s.solidAngle * u.X
	sinPhi, cosPhi := math.Sincos(area - s.alpha)
	sinAlpha, cosAlpha := math.Sincos(s.alpha)
	cosC := s.a.Dot(s.b)

	uu := cosPhi - cosAlpha
	vv := sinPhi + sinAlpha*cosC

	denom := (vv*sinPhi + uu*cosPhi) * sinAlpha
	cosBHat := 1.0
	if denom != 0 {
		cosBHat = ((vv*cosPhi-uu*sinPhi)*cosAlpha - vv) / denom
	}
	cosBHat = math.Max(-1, math.Min(1, cosBHat))

	cHat := s.a.Multiply(cosBHat).Add(orthoVector(s.c, s.a).Multiply(core.SafeSqrt(1 - cosBHat*cosBHat)))

	// Sample along the arc from b to C'
	cosTheta := 1 - u.Y*(1-cHat.Dot(s.b))
	return s.b.Multiply(cosTheta).Add(orthoVector(cHat, s.b).Multiply(core.SafeSqrt(1 - cosTheta*cosTheta)))
}

// orthoVector returns the unit component of x orthogonal to the unit vector y
func orthoVector(x, y core.Vec3) core.Vec3 {
	return x.Subtract(y.Multiply(x.Dot(y))).Normalize()
}
