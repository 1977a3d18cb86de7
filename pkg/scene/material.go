package scene

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
)

// SurfacePoint is the geometric context an EDF or texture is evaluated at
type SurfacePoint struct {
	Point  core.Vec3
	Normal core.Vec3
	UV     core.Vec2
}

// Texture provides spatially-varying colors
type Texture interface {
	// Evaluate returns color at given UV coordinates and 3D point
	Evaluate(uv core.Vec2, point core.Vec3) core.Vec3
}

// SolidColor is a uniform texture
type SolidColor struct {
	Color core.Vec3
}

// Evaluate returns the solid color regardless of UV or position
func (s SolidColor) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	return s.Color
}

// CheckerTexture alternates two colors on a UV grid
type CheckerTexture struct {
	Even, Odd core.Vec3
	Checks    int // checks per unit of UV
}

// Evaluate returns the check color containing uv
func (c CheckerTexture) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	n := float64(max(1, c.Checks))
	x := int(math.Floor(uv.X * n))
	y := int(math.Floor(uv.Y * n))
	if (x+y)%2 == 0 {
		return c.Even
	}
	return c.Odd
}

// EDF is the emission distribution of a light-emitting material
type EDF interface {
	// Radiance returns the emitted radiance leaving the surface point along its normal side
	Radiance(sp SurfacePoint) core.Vec3
}

// ConstantEDF emits the same radiance everywhere
type ConstantEDF struct {
	Emission core.Vec3
}

// Radiance returns the constant emission
func (e ConstantEDF) Radiance(sp SurfacePoint) core.Vec3 {
	return e.Emission
}

// TexturedEDF modulates a texture by a scalar multiplier
type TexturedEDF struct {
	Texture    Texture
	Multiplier float64
}

// Radiance evaluates the texture at the surface point
func (e TexturedEDF) Radiance(sp SurfacePoint) core.Vec3 {
	return e.Texture.Evaluate(sp.UV, sp.Point).Multiply(e.Multiplier)
}

// BSDF model names
const (
	ModelLambertian = "lambertian"
	ModelMicrofacet = "microfacet"
)

// BSDFParams describes the reflection model of a material
type BSDFParams struct {
	Model        string
	Distribution string // microfacet distribution name, e.g. "ggx"
	Roughness    float64
	Reflectance  core.Vec3
}

// Material combines an optional EDF with BSDF parameters
type Material struct {
	Entity
	EDF  EDF
	BSDF BSDFParams
}

// NewMaterial creates a material with the given EDF (may be nil) and BSDF
func NewMaterial(name string, edf EDF, bsdf BSDFParams) *Material {
	return &Material{Entity: newEntity(name), EDF: edf, BSDF: bsdf}
}

// NewDiffuseMaterial creates a non-emitting lambertian material
func NewDiffuseMaterial(name string, albedo core.Vec3) *Material {
	return NewMaterial(name, nil, BSDFParams{Model: ModelLambertian, Reflectance: albedo})
}

// NewEmissiveMaterial creates a black lambertian material with constant emission
func NewEmissiveMaterial(name string, emission core.Vec3) *Material {
	return NewMaterial(name, ConstantEDF{Emission: emission}, BSDFParams{Model: ModelLambertian})
}

// HasEmission reports whether the material carries an EDF
func (m *Material) HasEmission() bool {
	return m != nil && m.EDF != nil
}
