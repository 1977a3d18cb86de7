package lighting

import (
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// LightSample is a point drawn on an emitting shape, or a selected non-physical light.
// Exactly one of Shape and Light is set on a valid sample.
type LightSample struct {
	Point           core.Vec3
	ShadingNormal   core.Vec3
	GeometricNormal core.Vec3
	Bary            core.Vec2 // barycentric coordinates for triangles, sample parameters otherwise

	Shape *EmittingShape

	Light          scene.Light
	LightTransform core.Transform // light's assembly to world at the sample time

	// Probability is an area density for shapes and a discrete probability for non-physical lights
	Probability float64
}

// IsPhysical reports whether the sample lies on an emitting shape
func (ls *LightSample) IsPhysical() bool {
	return ls.Shape != nil
}

// Valid reports whether the sample can be used
func (ls *LightSample) Valid() bool {
	return (ls.Shape == nil) != (ls.Light == nil) && validProbability(ls.Probability)
}

// EmittingShapeKey identifies the primitive behind an emitting shape
type EmittingShapeKey struct {
	InstanceID          scene.InstanceID
	ObjectInstanceIndex int
	PrimitiveIndex      int
}

// ShadingPointKey returns the key of the primitive a shading point lies on
func ShadingPointKey(sp *intersection.ShadingPoint) EmittingShapeKey {
	return EmittingShapeKey{
		InstanceID:          sp.InstanceID(),
		ObjectInstanceIndex: sp.ObjectInstanceIndex(),
		PrimitiveIndex:      sp.PrimitiveIndex(),
	}
}

// ShadingPointMaker rebuilds shading points on known surface locations, like *intersection.Intersector
type ShadingPointMaker interface {
	MakeTriangleShadingPoint(sp *intersection.ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
		objectInstanceIndex, triangleIndex int, point, direction core.Vec3, bary core.Vec2, time float64)
	MakeProceduralSurfaceShadingPoint(sp *intersection.ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
		objectInstanceIndex int, point, direction core.Vec3, time float64)
}

// packageMaker forwards to the intersection package functions
type packageMaker struct{}

func (packageMaker) MakeTriangleShadingPoint(sp *intersection.ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
	objectInstanceIndex, triangleIndex int, point, direction core.Vec3, bary core.Vec2, time float64) {
	intersection.MakeTriangleShadingPoint(sp, instance, transform, objectInstanceIndex, triangleIndex, point, direction, bary, time)
}

func (packageMaker) MakeProceduralSurfaceShadingPoint(sp *intersection.ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
	objectInstanceIndex int, point, direction core.Vec3, time float64) {
	intersection.MakeProceduralSurfaceShadingPoint(sp, instance, transform, objectInstanceIndex, point, direction, time)
}

// EmittedRadiance returns the radiance leaving an emitting surface toward the origin of the ray that
// hit it. Surfaces emit from the side their geometric normal points to.
func EmittedRadiance(sp *intersection.ShadingPoint) core.Vec3 {
	if !sp.Hit() {
		return core.Vec3{}
	}
	m := sp.Material()
	if !m.HasEmission() || !sp.FrontFacing() {
		return core.Vec3{}
	}
	return m.EDF.Radiance(sp.SurfacePoint())
}
