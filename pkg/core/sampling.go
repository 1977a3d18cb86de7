package core

import (
	"math"
	"math/rand"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
	Get3D() Vec3
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// NewSeededSampler creates a sampler with its own generator seeded with seed
func NewSeededSampler(seed int64) *RandomSampler {
	return NewRandomSampler(rand.New(rand.NewSource(seed)))
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Get3D returns three random float64 values in [0, 1)
func (r *RandomSampler) Get3D() Vec3 {
	return NewVec3(r.random.Float64(), r.random.Float64(), r.random.Float64())
}

// Basis is an orthonormal frame with W aligned to a given direction
type Basis struct {
	U, V, W Vec3
}

// NewBasis builds an orthonormal frame around the unit vector w
func NewBasis(w Vec3) Basis {
	var a Vec3
	if math.Abs(w.X) > 0.1 {
		a = NewVec3(0, 1, 0)
	} else {
		a = NewVec3(1, 0, 0)
	}
	u := a.Cross(w).Normalize()
	v := w.Cross(u)
	return Basis{U: u, V: v, W: w}
}

// ToWorld transforms local frame coordinates into world space
func (b Basis) ToWorld(local Vec3) Vec3 {
	return b.U.Multiply(local.X).Add(b.V.Multiply(local.Y)).Add(b.W.Multiply(local.Z))
}

// ToLocal expresses a world-space vector in frame coordinates
func (b Basis) ToLocal(world Vec3) Vec3 {
	return NewVec3(world.Dot(b.U), world.Dot(b.V), world.Dot(b.W))
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	a := 2.0 * math.Pi * sample.X
	r := math.Sqrt(sample.Y)

	local := NewVec3(r*math.Cos(a), r*math.Sin(a), math.Sqrt(math.Max(0, 1.0-sample.Y)))
	return NewBasis(normal).ToWorld(local)
}

// SampleCone samples a direction uniformly within a cone
func SampleCone(direction Vec3, cosTotalWidth float64, sample Vec2) Vec3 {
	cosTheta := 1.0 - sample.X*(1.0-cosTotalWidth)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * sample.Y

	local := NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta)
	return NewBasis(direction).ToWorld(local)
}

// SampleSphereUniform generates a uniform random direction on the unit sphere
func SampleSphereUniform(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

// SampleDiskUniform maps a square sample to the unit disk using concentric mapping
func SampleDiskUniform(sample Vec2) Vec2 {
	// Map sample to [-1,1]² and handle degeneracy at the origin
	ox := 2*sample.X - 1
	oy := 2*sample.Y - 1
	if ox == 0 && oy == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}

	return NewVec2(r*math.Cos(theta), r*math.Sin(theta))
}

// SampleTriangleUniform returns uniformly distributed barycentric coordinates
func SampleTriangleUniform(sample Vec2) (b0, b1, b2 float64) {
	su := math.Sqrt(sample.X)
	b0 = 1 - su
	b1 = sample.Y * su
	b2 = 1 - b0 - b1
	return b0, b1, b2
}

// SphericalCoordinates returns the polar angle theta in [0, π] and azimuth phi in [0, 2π)
// of a unit direction with Y as the pole.
func SphericalCoordinates(d Vec3) (theta, phi float64) {
	theta = math.Acos(math.Max(-1, math.Min(1, d.Y)))
	phi = math.Atan2(d.Z, d.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return theta, phi
}

// SafeSqrt returns the square root of x clamped to zero
func SafeSqrt(x float64) float64 {
	return math.Sqrt(math.Max(0, x))
}

// SafeAcos returns acos of x clamped to [-1, 1]
func SafeAcos(x float64) float64 {
	return math.Acos(math.Max(-1, math.Min(1, x)))
}
