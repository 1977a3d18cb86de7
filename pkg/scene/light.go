package scene

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
)

// DistantLightDistance is how far from the target a directional light is placed
const DistantLightDistance = 1e7

// Light is a non-physical light (no surface area) attached to an assembly
type Light interface {
	Name() string
	UID() UniqueID

	// Importance is the non-negative weight used to select the light
	Importance() float64

	// Sample emits a ray from the light for forward sampling; directions are in world space
	Sample(xf core.Transform, s core.Vec2) (position, direction, value core.Vec3, pdf float64)

	// Evaluate returns the world-space light position and the radiance contribution reaching target
	Evaluate(xf core.Transform, target core.Vec3) (position, value core.Vec3)
}

// PointLight emits uniformly in all directions
type PointLight struct {
	Entity
	Position  core.Vec3
	Intensity core.Vec3
}

// NewPointLight creates a point light
func NewPointLight(name string, position, intensity core.Vec3) *PointLight {
	return &PointLight{Entity: newEntity(name), Position: position, Intensity: intensity}
}

// Importance returns the luminance of the intensity
func (l *PointLight) Importance() float64 {
	return math.Max(0, l.Intensity.Luminance())
}

// Sample picks a uniform direction
func (l *PointLight) Sample(xf core.Transform, s core.Vec2) (core.Vec3, core.Vec3, core.Vec3, float64) {
	return xf.Point(l.Position), core.SampleSphereUniform(s), l.Intensity, 1 / (4 * math.Pi)
}

// Evaluate applies inverse square falloff
func (l *PointLight) Evaluate(xf core.Transform, target core.Vec3) (core.Vec3, core.Vec3) {
	position := xf.Point(l.Position)
	dist2 := target.Subtract(position).LengthSquared()
	if dist2 == 0 {
		return position, core.Vec3{}
	}
	return position, l.Intensity.Multiply(1 / dist2)
}

// SpotLight emits inside a cone with a smooth falloff between the inner and outer angles
type SpotLight struct {
	Entity
	Position  core.Vec3
	Direction core.Vec3
	Intensity core.Vec3
	cosInner  float64
	cosOuter  float64
}

// NewSpotLight creates a spot light; angles are in degrees measured from the axis
func NewSpotLight(name string, position, direction, intensity core.Vec3, innerAngle, outerAngle float64) *SpotLight {
	if innerAngle > outerAngle {
		innerAngle = outerAngle
	}
	return &SpotLight{
		Entity:    newEntity(name),
		Position:  position,
		Direction: direction.Normalize(),
		Intensity: intensity,
		cosInner:  math.Cos(innerAngle * math.Pi / 180),
		cosOuter:  math.Cos(outerAngle * math.Pi / 180),
	}
}

// Importance returns the luminance of the intensity
func (l *SpotLight) Importance() float64 {
	return math.Max(0, l.Intensity.Luminance())
}

// Falloff returns the angular attenuation for a unit direction leaving the light
func (l *SpotLight) Falloff(axis, dir core.Vec3) float64 {
	cos := axis.Dot(dir)
	switch {
	case cos >= l.cosInner:
		return 1
	case cos <= l.cosOuter:
		return 0
	}
	t := (cos - l.cosOuter) / (l.cosInner - l.cosOuter)
	return t * t * (3 - 2*t)
}

// Sample picks a uniform direction inside the outer cone
func (l *SpotLight) Sample(xf core.Transform, s core.Vec2) (core.Vec3, core.Vec3, core.Vec3, float64) {
	axis := xf.Vector(l.Direction).Normalize()
	dir := core.SampleCone(axis, l.cosOuter, s)
	pdf := 1 / (2 * math.Pi * (1 - l.cosOuter))
	return xf.Point(l.Position), dir, l.Intensity.Multiply(l.Falloff(axis, dir)), pdf
}

// Evaluate applies the cone falloff and inverse square falloff
func (l *SpotLight) Evaluate(xf core.Transform, target core.Vec3) (core.Vec3, core.Vec3) {
	position := xf.Point(l.Position)
	toTarget := target.Subtract(position)
	dist2 := toTarget.LengthSquared()
	if dist2 == 0 {
		return position, core.Vec3{}
	}
	axis := xf.Vector(l.Direction).Normalize()
	falloff := l.Falloff(axis, toTarget.Normalize())
	return position, l.Intensity.Multiply(falloff / dist2)
}

// DirectionalLight illuminates the scene from infinitely far away
type DirectionalLight struct {
	Entity
	Direction  core.Vec3 // direction the light travels
	Irradiance core.Vec3
}

// NewDirectionalLight creates a directional light
func NewDirectionalLight(name string, direction, irradiance core.Vec3) *DirectionalLight {
	return &DirectionalLight{Entity: newEntity(name), Direction: direction.Normalize(), Irradiance: irradiance}
}

// Importance returns the luminance of the irradiance
func (l *DirectionalLight) Importance() float64 {
	return math.Max(0, l.Irradiance.Luminance())
}

// Sample returns the light direction from a far away origin; the pdf is a delta and reported as 1
func (l *DirectionalLight) Sample(xf core.Transform, s core.Vec2) (core.Vec3, core.Vec3, core.Vec3, float64) {
	dir := xf.Vector(l.Direction).Normalize()
	return dir.Multiply(-DistantLightDistance), dir, l.Irradiance, 1
}

// Evaluate places the light DistantLightDistance away from target, against the light direction
func (l *DirectionalLight) Evaluate(xf core.Transform, target core.Vec3) (core.Vec3, core.Vec3) {
	dir := xf.Vector(l.Direction).Normalize()
	return target.Subtract(dir.Multiply(DistantLightDistance)), l.Irradiance
}
