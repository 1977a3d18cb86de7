package bsdf

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

// minAlpha keeps the microfacet lobe away from a delta
const minAlpha = 1e-3

// BRDF is a reflection model evaluated in world space around the shading normal n. wo points
// toward the viewer and wi toward the light.
type BRDF interface {
	// Sample draws wi and returns the BRDF value and the solid angle density of wi
	Sample(wo, n core.Vec3, s core.Vec2) (wi, value core.Vec3, pdf float64, ok bool)

	// Evaluate returns the BRDF value for the pair, zero below the surface
	Evaluate(wo, wi, n core.Vec3) core.Vec3

	// PDF returns the solid angle density with which Sample produces wi
	PDF(wo, wi, n core.Vec3) float64
}

// New creates the BRDF described by params
func New(params scene.BSDFParams) (BRDF, error) {
	switch params.Model {
	case scene.ModelLambertian, "":
		return &Lambertian{Reflectance: params.Reflectance}, nil
	case scene.ModelMicrofacet:
		mdf, err := NewMicrofacetDistribution(params.Distribution)
		if err != nil {
			return nil, err
		}
		return NewMicrofacet(mdf, params.Reflectance, params.Roughness), nil
	}
	return nil, errors.Wrapf(ErrUnknownModel, "%q", params.Model)
}

// Lambertian is a perfectly diffuse reflector
type Lambertian struct {
	Reflectance core.Vec3
}

// Sample draws a cosine-weighted direction
func (l *Lambertian) Sample(wo, n core.Vec3, s core.Vec2) (core.Vec3, core.Vec3, float64, bool) {
	if wo.Dot(n) <= 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	wi := core.SampleCosineHemisphere(n, s).Normalize()
	pdf := l.PDF(wo, wi, n)
	if pdf <= 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	return wi, l.Evaluate(wo, wi, n), pdf, true
}

// Evaluate returns reflectance / π
func (l *Lambertian) Evaluate(wo, wi, n core.Vec3) core.Vec3 {
	if wo.Dot(n) <= 0 || wi.Dot(n) <= 0 {
		return core.Vec3{}
	}
	return l.Reflectance.Multiply(1 / math.Pi)
}

// PDF returns cos(θ) / π
func (l *Lambertian) PDF(wo, wi, n core.Vec3) float64 {
	cos := wi.Dot(n)
	if wo.Dot(n) <= 0 || cos <= 0 {
		return 0
	}
	return cos / math.Pi
}

// Microfacet is a Torrance-Sparrow reflector with a Schlick Fresnel term
type Microfacet struct {
	MDF         MDF
	Reflectance core.Vec3 // reflectance at normal incidence
	Alpha       float64
}

// NewMicrofacet maps the perceptual roughness to the distribution width alpha = roughness²
func NewMicrofacet(mdf MDF, reflectance core.Vec3, roughness float64) *Microfacet {
	return &Microfacet{
		MDF:         mdf,
		Reflectance: reflectance,
		Alpha:       math.Max(minAlpha, roughness*roughness),
	}
}

func reflect(v, h core.Vec3) core.Vec3 {
	return h.Multiply(2 * v.Dot(h)).Subtract(v)
}

// Sample draws a microfacet normal and reflects wo about it
func (m *Microfacet) Sample(wo, n core.Vec3, s core.Vec2) (core.Vec3, core.Vec3, float64, bool) {
	frame := core.NewBasis(n)
	localWo := frame.ToLocal(wo)
	if cosTheta(localWo) <= 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}

	h := m.MDF.Sample(localWo, s, m.Alpha)
	localWi := reflect(localWo, h)
	if cosTheta(localWi) <= 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}

	pdf := m.pdf(localWo, h)
	if !(pdf > 0) {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	return frame.ToWorld(localWi).Normalize(), m.evaluate(localWo, localWi, h), pdf, true
}

// Evaluate returns F·D·G / (4 cos(θi) cos(θo))
func (m *Microfacet) Evaluate(wo, wi, n core.Vec3) core.Vec3 {
	frame := core.NewBasis(n)
	localWo, localWi := frame.ToLocal(wo), frame.ToLocal(wi)
	if cosTheta(localWo) <= 0 || cosTheta(localWi) <= 0 {
		return core.Vec3{}
	}
	return m.evaluate(localWo, localWi, localWo.Add(localWi).Normalize())
}

// PDF returns the density of the reflected direction, D(h)·cos(h) / (4 |wo·h|)
func (m *Microfacet) PDF(wo, wi, n core.Vec3) float64 {
	frame := core.NewBasis(n)
	localWo, localWi := frame.ToLocal(wo), frame.ToLocal(wi)
	if cosTheta(localWo) <= 0 || cosTheta(localWi) <= 0 {
		return 0
	}
	return m.pdf(localWo, localWo.Add(localWi).Normalize())
}

func (m *Microfacet) evaluate(wo, wi, h core.Vec3) core.Vec3 {
	d := m.MDF.D(h, m.Alpha)
	g := m.MDF.G(wi, wo, h, m.Alpha)
	if d == 0 || g == 0 {
		return core.Vec3{}
	}
	f := FresnelSchlick(m.Reflectance, wo.Dot(h))
	return f.Multiply(d * g / (4 * cosTheta(wi) * cosTheta(wo)))
}

func (m *Microfacet) pdf(wo, h core.Vec3) float64 {
	woDotH := math.Abs(wo.Dot(h))
	if woDotH == 0 {
		return 0
	}
	return m.MDF.PDF(wo, h, m.Alpha) / (4 * woDotH)
}
