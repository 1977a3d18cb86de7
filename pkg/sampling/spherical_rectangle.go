package sampling

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
)

// SphericalRectangleSampler distributes points on a rectangle so that the directions
// toward them are uniform over the subtended solid angle (Ureña et al. 2013).
type SphericalRectangleSampler struct {
	x, y, z core.Vec3 // unit local frame; z points away from the reference point
	o       core.Vec3

	x0, x1 float64
	y0, y1 float64
	z0     float64 // always <= 0

	b0, b1     float64 // z components of the first and third edge plane normals
	k          float64
	solidAngle float64
}

// NewSphericalRectangleSampler builds a sampler for the rectangle spanned by the edge vectors ex and ey
// from origin, with unit normal n, as seen from o. The edge vectors may have any length.
func NewSphericalRectangleSampler(origin, ex, ey, n, o core.Vec3) *SphericalRectangleSampler {
	exLen := ex.Length()
	eyLen := ey.Length()

	s := &SphericalRectangleSampler{
		x: ex.Normalize(),
		y: ey.Normalize(),
		z: n.Normalize(),
		o: o,
	}

	d := origin.Subtract(o)
	s.x0 = d.Dot(s.x)
	s.x1 = s.x0 + exLen
	s.y0 = d.Dot(s.y)
	s.y1 = s.y0 + eyLen
	s.z0 = d.Dot(s.z)

	// Flip the frame so the rectangle lies on the negative z side
	if s.z0 > 0 {
		s.z0 = -s.z0
		s.z = s.z.Negate()
	}

	z0z0 := s.z0 * s.z0

	// z components of the inward normals of the four planes through o and each edge
	nz := [4]float64{
		-s.y0 / math.Sqrt(z0z0+s.y0*s.y0),
		s.x1 / math.Sqrt(z0z0+s.x1*s.x1),
		s.y1 / math.Sqrt(z0z0+s.y1*s.y1),
		-s.x0 / math.Sqrt(z0z0+s.x0*s.x0),
	}

	g0 := core.SafeAcos(-nz[0] * nz[1])
	g1 := core.SafeAcos(-nz[1] * nz[2])
	g2 := core.SafeAcos(-nz[2] * nz[3])
	g3 := core.SafeAcos(-nz[3] * nz[0])

	s.b0 = nz[0]
	s.b1 = nz[2]
	s.k = 2*math.Pi - g2 - g3
	s.solidAngle = g0 + g1 + g2 + g3 - 2*math.Pi
	if !core.IsFinite(s.solidAngle) || s.solidAngle < 0 {
		s.solidAngle = 0
	}
	return s
}

// SolidAngle returns the solid angle subtended by the rectangle in steradians
func (s *SphericalRectangleSampler) SolidAngle() float64 {
	return s.solidAngle
}

// Sample maps a uniform 2D sample to a world-space point on the rectangle.
// The direction from the reference point to the returned point has density 1/SolidAngle().
func (s *SphericalRectangleSampler) Sample(u core.Vec2) core.Vec3 {
	z0z0 := s.z0 * s.z0

	// Invert the cumulative solid angle along x
	au := u.X*s.solidAngle + s.k
	sinAu, cosAu := math.Sincos(au)
	fu := (cosAu*s.b0 - s.b1) / sinAu
	cu := math.Copysign(1, fu) / math.Sqrt(fu*fu+s.b0*s.b0)
	xu := -cu * s.z0 / core.SafeSqrt(1-cu*cu)
	if !core.IsFinite(xu) {
		xu = s.x0
	}
	xu = math.Max(s.x0, math.Min(s.x1, xu))

	// Invert along y at the chosen x
	d2 := xu*xu + z0z0
	d := math.Sqrt(d2)
	h0 := s.y0 / math.Sqrt(d2+s.y0*s.y0)
	h1 := s.y1 / math.Sqrt(d2+s.y1*s.y1)
	hv := h0 + u.Y*(h1-h0)
	var yv float64
	switch {
	case hv*hv < 1-1e-12:
		yv = hv * d / core.SafeSqrt(1-hv*hv)
	case hv > 0:
		yv = s.y1
	default:
		yv = s.y0
	}
	yv = math.Max(s.y0, math.Min(s.y1, yv))

	return s.o.Add(s.x.Multiply(xu)).Add(s.y.Multiply(yv)).Add(s.z.Multiply(s.z0))
}
