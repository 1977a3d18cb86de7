// Package bsdf provides the microfacet distributions, Fresnel terms and reflection models used by
// the direct lighting renderer. Directions passed to an MDF are expressed in the local shading
// frame, with the normal along +Z.
package bsdf

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/pkg/errors"
)

// MDF is a microfacet normal distribution together with its shadowing-masking term
type MDF interface {
	Name() string

	// D returns the density of microfacets with normal h
	D(h core.Vec3, alpha float64) float64

	// G returns the height-correlated shadowing-masking term for the pair wi, wo
	G(wi, wo, h core.Vec3, alpha float64) float64

	// Sample draws a microfacet normal proportionally to D(h)·cos(h)
	Sample(wo core.Vec3, s core.Vec2, alpha float64) core.Vec3

	// PDF returns the density of Sample over microfacet normals
	PDF(wo, h core.Vec3, alpha float64) float64
}

// NewMicrofacetDistribution returns the distribution registered under name
func NewMicrofacetDistribution(name string) (MDF, error) {
	switch name {
	case "ggx", "":
		return GGX{}, nil
	case "beckmann":
		return Beckmann{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownDistribution, "%q", name)
}

func cosTheta(w core.Vec3) float64 { return w.Z }

func cos2Theta(w core.Vec3) float64 { return w.Z * w.Z }

func tan2Theta(w core.Vec3) float64 {
	c2 := cos2Theta(w)
	if c2 == 0 {
		return math.Inf(1)
	}
	return math.Max(0, 1-c2) / c2
}

// sphericalNormal builds a unit vector in the upper hemisphere
func sphericalNormal(cosTheta, phi float64) core.Vec3 {
	sinTheta := core.SafeSqrt(1 - cosTheta*cosTheta)
	return core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta)
}

// smithG combines the lambda terms of both directions, zero when either sees the back of h
func smithG(wi, wo, h core.Vec3, lambda func(core.Vec3) float64) float64 {
	if wi.Dot(h)*cosTheta(wi) <= 0 || wo.Dot(h)*cosTheta(wo) <= 0 {
		return 0
	}
	return 1 / (1 + lambda(wi) + lambda(wo))
}

// GGX is the Trowbridge-Reitz distribution
type GGX struct{}

// Name returns "ggx"
func (GGX) Name() string { return "ggx" }

// D evaluates the distribution
func (GGX) D(h core.Vec3, alpha float64) float64 {
	c := cosTheta(h)
	if c <= 0 {
		return 0
	}
	a2 := alpha * alpha
	d := c*c*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

func (GGX) lambda(w core.Vec3, alpha float64) float64 {
	t2 := tan2Theta(w)
	if math.IsInf(t2, 0) {
		return math.Inf(1)
	}
	return (-1 + math.Sqrt(1+alpha*alpha*t2)) / 2
}

// G evaluates the Smith shadowing-masking term
func (g GGX) G(wi, wo, h core.Vec3, alpha float64) float64 {
	return smithG(wi, wo, h, func(w core.Vec3) float64 { return g.lambda(w, alpha) })
}

// Sample draws h with density D(h)·cos(h)
func (GGX) Sample(wo core.Vec3, s core.Vec2, alpha float64) core.Vec3 {
	a2 := alpha * alpha
	c2 := (1 - s.X) / (1 + (a2-1)*s.X)
	return sphericalNormal(math.Sqrt(math.Max(0, c2)), 2*math.Pi*s.Y)
}

// PDF returns D(h)·cos(h)
func (g GGX) PDF(wo, h core.Vec3, alpha float64) float64 {
	return g.D(h, alpha) * math.Abs(cosTheta(h))
}

// Beckmann is the Gaussian slope distribution
type Beckmann struct{}

// Name returns "beckmann"
func (Beckmann) Name() string { return "beckmann" }

// D evaluates the distribution
func (Beckmann) D(h core.Vec3, alpha float64) float64 {
	c := cosTheta(h)
	if c <= 0 {
		return 0
	}
	a2 := alpha * alpha
	c2 := c * c
	return math.Exp(-tan2Theta(h)/a2) / (math.Pi * a2 * c2 * c2)
}

// lambda uses the rational approximation of Walter et al.
func (Beckmann) lambda(w core.Vec3, alpha float64) float64 {
	t2 := tan2Theta(w)
	if t2 == 0 {
		return 0
	}
	if math.IsInf(t2, 0) {
		return math.Inf(1)
	}
	a := 1 / (alpha * math.Sqrt(t2))
	if a >= 1.6 {
		return 0
	}
	return (1 - 1.259*a + 0.396*a*a) / (3.535*a + 2.181*a*a)
}

// G evaluates the Smith shadowing-masking term
func (b Beckmann) G(wi, wo, h core.Vec3, alpha float64) float64 {
	return smithG(wi, wo, h, func(w core.Vec3) float64 { return b.lambda(w, alpha) })
}

// Sample draws h with density D(h)·cos(h)
func (Beckmann) Sample(wo core.Vec3, s core.Vec2, alpha float64) core.Vec3 {
	t2 := -alpha * alpha * math.Log(math.Max(1-s.X, math.SmallestNonzeroFloat64))
	return sphericalNormal(1/math.Sqrt(1+t2), 2*math.Pi*s.Y)
}

// PDF returns D(h)·cos(h)
func (b Beckmann) PDF(wo, h core.Vec3, alpha float64) float64 {
	return b.D(h, alpha) * math.Abs(cosTheta(h))
}
