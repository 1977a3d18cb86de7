package intersection

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// PrimitiveType tells which kind of primitive a shading point lies on
type PrimitiveType int

const (
	PrimitiveNone PrimitiveType = iota
	PrimitiveTriangle
	PrimitiveProceduralSurface
)

func (t PrimitiveType) String() string {
	switch t {
	case PrimitiveTriangle:
		return "triangle"
	case PrimitiveProceduralSurface:
		return "procedural surface"
	}
	return "none"
}

// ShadingPoint is the result of a ray query. Geometry is resolved lazily on first access and is
// expressed in world space. A shading point refers to the instance tree items of the frame it was
// produced in and must not outlive that frame.
type ShadingPoint struct {
	ray       core.Ray
	distance  float64
	primitive PrimitiveType
	bary      core.Vec2

	instance            *scene.FlatInstance
	transform           core.Transform // assembly to world
	objectInstanceIndex int
	primitiveIndex      int

	pointSet bool
	resolved bool
	point    core.Vec3
	geoN     core.Vec3
	shadingN core.Vec3
	dpdu     core.Vec3
	dpdv     core.Vec3
	uv       core.Vec2
	material *scene.Material
}

// Clear resets the shading point to a miss
func (sp *ShadingPoint) Clear() {
	*sp = ShadingPoint{}
}

// Hit reports whether the shading point lies on a primitive
func (sp *ShadingPoint) Hit() bool {
	return sp.primitive != PrimitiveNone
}

// Ray returns the world-space ray that produced the shading point
func (sp *ShadingPoint) Ray() core.Ray { return sp.ray }

// Distance returns the hit distance along the ray
func (sp *ShadingPoint) Distance() float64 { return sp.distance }

// PrimitiveType returns the kind of primitive that was hit
func (sp *ShadingPoint) PrimitiveType() PrimitiveType { return sp.primitive }

// Bary returns the barycentric coordinates for triangles or the surface parameters for procedural surfaces
func (sp *ShadingPoint) Bary() core.Vec2 { return sp.bary }

// Instance returns the flattened assembly instance that was hit
func (sp *ShadingPoint) Instance() *scene.FlatInstance { return sp.instance }

// InstanceID returns the id of the flattened assembly instance, or 0 on a miss
func (sp *ShadingPoint) InstanceID() scene.InstanceID {
	if sp.instance == nil {
		return 0
	}
	return sp.instance.ID
}

// Assembly returns the assembly that was hit
func (sp *ShadingPoint) Assembly() *scene.Assembly {
	if sp.instance == nil {
		return nil
	}
	return sp.instance.Assembly
}

// AssemblyInstanceTransform returns the assembly to world transform at the ray time
func (sp *ShadingPoint) AssemblyInstanceTransform() core.Transform { return sp.transform }

// ObjectInstanceIndex returns the index of the object instance in its assembly
func (sp *ShadingPoint) ObjectInstanceIndex() int { return sp.objectInstanceIndex }

// PrimitiveIndex returns the triangle index in its mesh, or 0 for procedural surfaces
func (sp *ShadingPoint) PrimitiveIndex() int { return sp.primitiveIndex }

// ObjectInstance returns the object instance that was hit
func (sp *ShadingPoint) ObjectInstance() *scene.ObjectInstance {
	a := sp.Assembly()
	if a == nil || sp.objectInstanceIndex < 0 || sp.objectInstanceIndex >= len(a.ObjectInstances) {
		return nil
	}
	return a.ObjectInstances[sp.objectInstanceIndex]
}

// SamePrimitive reports whether both shading points lie on the same primitive of the same instance
func (sp *ShadingPoint) SamePrimitive(other *ShadingPoint) bool {
	return sp.Hit() && other != nil && other.Hit() &&
		sp.primitive == other.primitive &&
		sp.InstanceID() == other.InstanceID() &&
		sp.objectInstanceIndex == other.objectInstanceIndex &&
		sp.primitiveIndex == other.primitiveIndex
}

// MaterialSlot returns the material slot of the primitive
func (sp *ShadingPoint) MaterialSlot() int {
	oi := sp.ObjectInstance()
	if oi == nil {
		return -1
	}
	switch object := oi.Object.(type) {
	case *scene.MeshObject:
		if sp.primitiveIndex < len(object.Triangles) {
			return object.Triangles[sp.primitiveIndex].MaterialSlot
		}
	case scene.SurfaceObject:
		return object.MaterialSlot()
	}
	return -1
}

// Point returns the world-space hit point
func (sp *ShadingPoint) Point() core.Vec3 {
	sp.resolve()
	return sp.point
}

// GeometricNormal returns the unit normal of the primitive
func (sp *ShadingPoint) GeometricNormal() core.Vec3 {
	sp.resolve()
	return sp.geoN
}

// ShadingNormal returns the interpolated unit normal, or the geometric normal
func (sp *ShadingPoint) ShadingNormal() core.Vec3 {
	sp.resolve()
	return sp.shadingN
}

// Dpdu returns the position derivative along the first surface parameter
func (sp *ShadingPoint) Dpdu() core.Vec3 {
	sp.resolve()
	return sp.dpdu
}

// Dpdv returns the position derivative along the second surface parameter
func (sp *ShadingPoint) Dpdv() core.Vec3 {
	sp.resolve()
	return sp.dpdv
}

// UV returns the texture coordinates of the hit point
func (sp *ShadingPoint) UV() core.Vec2 {
	sp.resolve()
	return sp.uv
}

// Material returns the material bound to the primitive's slot, or nil
func (sp *ShadingPoint) Material() *scene.Material {
	sp.resolve()
	return sp.material
}

// SurfacePoint returns the attributes used to evaluate textures and EDFs
func (sp *ShadingPoint) SurfacePoint() scene.SurfacePoint {
	sp.resolve()
	return scene.SurfacePoint{Point: sp.point, Normal: sp.geoN, UV: sp.uv}
}

// FrontFacing reports whether the ray arrives on the side the geometric normal points to
func (sp *ShadingPoint) FrontFacing() bool {
	return sp.ray.Direction.Dot(sp.GeometricNormal()) < 0
}

func (sp *ShadingPoint) resolve() {
	if sp.resolved || !sp.Hit() {
		return
	}
	sp.resolved = true

	if !sp.pointSet {
		sp.point = sp.ray.At(sp.distance)
	}

	oi := sp.ObjectInstance()
	if oi == nil {
		return
	}
	sp.material = oi.Material(sp.MaterialSlot())
	xf := sp.transform.Compose(oi.Transform)

	switch object := oi.Object.(type) {
	case *scene.MeshObject:
		sp.resolveTriangle(object, xf)
	case scene.SurfaceObject:
		frame := evaluateSurface(object, sp.bary)
		sp.geoN = xf.Normal(frame.normal).Normalize()
		sp.shadingN = sp.geoN
		sp.dpdu = xf.Vector(frame.dpdu)
		sp.dpdv = xf.Vector(frame.dpdv)
		sp.uv = sp.bary
	}
}

func (sp *ShadingPoint) resolveTriangle(mesh *scene.MeshObject, xf core.Transform) {
	i := sp.primitiveIndex
	if i < 0 || i >= len(mesh.Triangles) {
		return
	}

	b1, b2 := sp.bary.X, sp.bary.Y
	b0 := 1 - b1 - b2

	v0, v1, v2 := mesh.TriangleVertices(i)
	p0, p1, p2 := xf.Point(v0), xf.Point(v1), xf.Point(v2)
	sp.geoN = p1.Subtract(p0).Cross(p2.Subtract(p0)).Normalize()

	sp.shadingN = sp.geoN
	if n0, n1, n2, ok := mesh.TriangleNormals(i); ok {
		n := n0.Multiply(b0).Add(n1.Multiply(b1)).Add(n2.Multiply(b2))
		if shading := xf.Normal(n).Normalize(); !shading.IsZero() {
			sp.shadingN = shading
		}
	}

	t0, t1, t2 := mesh.TriangleUVs(i)
	sp.uv = core.NewVec2(
		b0*t0.X+b1*t1.X+b2*t2.X,
		b0*t0.Y+b1*t1.Y+b2*t2.Y,
	)

	// Position derivatives from the uv parameterization
	du02, dv02 := t0.X-t2.X, t0.Y-t2.Y
	du12, dv12 := t1.X-t2.X, t1.Y-t2.Y
	dp02, dp12 := p0.Subtract(p2), p1.Subtract(p2)
	det := du02*dv12 - dv02*du12
	if math.Abs(det) < 1e-12 {
		basis := core.NewBasis(sp.geoN)
		sp.dpdu, sp.dpdv = basis.U, basis.V
		return
	}
	inv := 1 / det
	sp.dpdu = dp02.Multiply(dv12).Subtract(dp12.Multiply(dv02)).Multiply(inv)
	sp.dpdv = dp12.Multiply(du02).Subtract(dp02.Multiply(du12)).Multiply(inv)
}

func (sp *ShadingPoint) setHit(ray core.Ray, distance float64, primitive PrimitiveType, bary core.Vec2,
	instance *scene.FlatInstance, transform core.Transform, objectInstanceIndex, primitiveIndex int) {
	*sp = ShadingPoint{
		ray:                 ray,
		distance:            distance,
		primitive:           primitive,
		bary:                bary,
		instance:            instance,
		transform:           transform,
		objectInstanceIndex: objectInstanceIndex,
		primitiveIndex:      primitiveIndex,
	}
}

// MakeTriangleShadingPoint fills sp for a known point on a mesh triangle, without tracing.
// transform maps the instance's assembly to world space and direction is the incoming direction.
func MakeTriangleShadingPoint(sp *ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
	objectInstanceIndex, triangleIndex int, point, direction core.Vec3, bary core.Vec2, time float64) {
	ray := core.Ray{Origin: point.Subtract(direction), Direction: direction, TMax: 1, Time: time}
	sp.setHit(ray, 1, PrimitiveTriangle, bary, instance, transform, objectInstanceIndex, triangleIndex)
	sp.point = point
	sp.pointSet = true
}

// MakeProceduralSurfaceShadingPoint fills sp for a known world point on a procedural surface.
// The surface parameters are recovered from the point.
func MakeProceduralSurfaceShadingPoint(sp *ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
	objectInstanceIndex int, point, direction core.Vec3, time float64) {
	ray := core.Ray{Origin: point.Subtract(direction), Direction: direction, TMax: 1, Time: time}
	sp.setHit(ray, 1, PrimitiveProceduralSurface, core.Vec2{}, instance, transform, objectInstanceIndex, 0)
	sp.point = point
	sp.pointSet = true

	if oi := sp.ObjectInstance(); oi != nil {
		if surface, ok := oi.Object.(scene.SurfaceObject); ok {
			local := transform.Compose(oi.Transform).PointToLocal(point)
			sp.bary = surfaceParams(surface, local)
		}
	}
}
