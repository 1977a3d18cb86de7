// Package lighting builds the light sampling distributions used for next event estimation:
// emitting shapes with uniform and solid angle sampling, and the forward and backward samplers
// over every emitting shape and non-physical light of a scene.
package lighting

import (
	"fmt"
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/sampling"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// sideEpsilon is the minimum signed distance of a reference point in front of a planar shape
const sideEpsilon = 1e-6

// ShapeType tags the geometry of an emitting shape
type ShapeType int

const (
	DiskShape ShapeType = iota
	TriangleShape
	SphereShape
	RectShape
)

func (t ShapeType) String() string {
	switch t {
	case DiskShape:
		return "disk"
	case TriangleShape:
		return "triangle"
	case SphereShape:
		return "sphere"
	case RectShape:
		return "rect"
	}
	return fmt.Sprintf("shape(%d)", int(t))
}

// shapeGeometry is the world-space payload of one shape type
type shapeGeometry interface {
	shapeType() ShapeType
}

type triangleGeometry struct {
	v0, v1, v2 core.Vec3
	n0, n1, n2 core.Vec3 // vertex shading normals
	normal     core.Vec3 // unit geometric normal
	planeDist  float64
}

type sphereGeometry struct {
	center core.Vec3
	radius float64
}

type rectGeometry struct {
	origin        core.Vec3 // corner at parameters (0, 0)
	x, y          core.Vec3 // edge vectors
	width, height float64
	normal        core.Vec3
	planeDist     float64
}

type diskGeometry struct {
	center    core.Vec3
	normal    core.Vec3
	x, y      core.Vec3 // unit tangent axes
	radius    float64
	planeDist float64
}

func (*triangleGeometry) shapeType() ShapeType { return TriangleShape }
func (*sphereGeometry) shapeType() ShapeType   { return SphereShape }
func (*rectGeometry) shapeType() ShapeType     { return RectShape }
func (*diskGeometry) shapeType() ShapeType     { return DiskShape }

// EmittingShape is one light-emitting primitive in world space. The geometry never changes after
// construction; only the shape probability and the average radiance are set, once, while the
// owning light sampler is built. The instance and material are borrowed from the scene.
type EmittingShape struct {
	geom                shapeGeometry
	instance            *scene.FlatInstance
	objectInstanceIndex int
	primitiveIndex      int
	material            *scene.Material

	area            float64
	rcpArea         float64
	shapeProb       float64
	averageRadiance float64
}

func newEmittingShape(geom shapeGeometry, instance *scene.FlatInstance, objectInstanceIndex, primitiveIndex int,
	material *scene.Material, area float64) *EmittingShape {
	shape := &EmittingShape{
		geom:                geom,
		instance:            instance,
		objectInstanceIndex: objectInstanceIndex,
		primitiveIndex:      primitiveIndex,
		material:            material,
		averageRadiance:     1,
	}
	if core.IsFinite(area) && area > 0 {
		shape.area = area
		shape.rcpArea = 1 / area
	}
	return shape
}

// NewTriangleShape creates a triangle shape from world-space vertices and vertex normals.
// The geometric normal is normalized; a degenerate triangle gets a zero area.
func NewTriangleShape(instance *scene.FlatInstance, objectInstanceIndex, primitiveIndex int, material *scene.Material,
	v0, v1, v2, n0, n1, n2, geometricNormal core.Vec3) *EmittingShape {
	normal := geometricNormal.Normalize()
	geom := &triangleGeometry{
		v0: v0, v1: v1, v2: v2,
		n0: n0, n1: n1, n2: n2,
		normal:    normal,
		planeDist: -v0.Dot(normal),
	}
	area := 0.5 * v1.Subtract(v0).Cross(v2.Subtract(v0)).Length()
	return newEmittingShape(geom, instance, objectInstanceIndex, primitiveIndex, material, area)
}

// NewSphereShape creates a sphere shape
func NewSphereShape(instance *scene.FlatInstance, objectInstanceIndex int, material *scene.Material,
	center core.Vec3, radius float64) *EmittingShape {
	geom := &sphereGeometry{center: center, radius: radius}
	return newEmittingShape(geom, instance, objectInstanceIndex, 0, material, 4*math.Pi*radius*radius)
}

// NewRectShape creates a rectangle spanned by the edge vectors x and y from origin, facing n
func NewRectShape(instance *scene.FlatInstance, objectInstanceIndex int, material *scene.Material,
	origin, x, y, n core.Vec3) *EmittingShape {
	normal := n.Normalize()
	geom := &rectGeometry{
		origin:    origin,
		x:         x,
		y:         y,
		width:     x.Length(),
		height:    y.Length(),
		normal:    normal,
		planeDist: -origin.Dot(normal),
	}
	return newEmittingShape(geom, instance, objectInstanceIndex, 0, material, x.Cross(y).Length())
}

// NewDiskShape creates a disk shape facing n
func NewDiskShape(instance *scene.FlatInstance, objectInstanceIndex int, material *scene.Material,
	center, n core.Vec3, radius float64) *EmittingShape {
	normal := n.Normalize()
	basis := core.NewBasis(normal)
	geom := &diskGeometry{
		center:    center,
		normal:    normal,
		x:         basis.U,
		y:         basis.V,
		radius:    radius,
		planeDist: -center.Dot(normal),
	}
	return newEmittingShape(geom, instance, objectInstanceIndex, 0, material, math.Pi*radius*radius)
}

// Type returns the shape type
func (s *EmittingShape) Type() ShapeType { return s.geom.shapeType() }

// Instance returns the flattened assembly instance the shape belongs to
func (s *EmittingShape) Instance() *scene.FlatInstance { return s.instance }

// ObjectInstanceIndex returns the index of the object instance in its assembly
func (s *EmittingShape) ObjectInstanceIndex() int { return s.objectInstanceIndex }

// PrimitiveIndex returns the triangle index for triangle shapes and 0 otherwise
func (s *EmittingShape) PrimitiveIndex() int { return s.primitiveIndex }

// Material returns the emitting material
func (s *EmittingShape) Material() *scene.Material { return s.material }

// Area returns the world-space area
func (s *EmittingShape) Area() float64 { return s.area }

// RcpArea returns the reciprocal of the area, or 0 for degenerate shapes
func (s *EmittingShape) RcpArea() float64 { return s.rcpArea }

// ShapeProb returns the probability of selecting this shape in its light sampler
func (s *EmittingShape) ShapeProb() float64 { return s.shapeProb }

// SetShapeProb sets the selection probability
func (s *EmittingShape) SetShapeProb(prob float64) { s.shapeProb = prob }

// AverageRadiance returns the estimated average emitted radiance, 1 until estimated
func (s *EmittingShape) AverageRadiance() float64 { return s.averageRadiance }

// EstimateAverageRadiance stores the estimator's value for this shape
func (s *EmittingShape) EstimateAverageRadiance(estimator RadianceEstimator) {
	s.averageRadiance = estimator.Estimate(s)
}

// Key returns the hash key identifying the shape's primitive
func (s *EmittingShape) Key() EmittingShapeKey {
	var id scene.InstanceID
	if s.instance != nil {
		id = s.instance.ID
	}
	return EmittingShapeKey{InstanceID: id, ObjectInstanceIndex: s.objectInstanceIndex, PrimitiveIndex: s.primitiveIndex}
}

// SampleUniform draws a point with density proportional to area.
// The reported probability is shapeProb·RcpArea() for every point.
func (s *EmittingShape) SampleUniform(u core.Vec2, shapeProb float64, ls *LightSample) {
	*ls = LightSample{Shape: s}

	switch g := s.geom.(type) {
	case *triangleGeometry:
		b0, b1, b2 := core.SampleTriangleUniform(u)
		ls.Bary = core.NewVec2(b1, b2)
		ls.Point = g.v0.Multiply(b0).Add(g.v1.Multiply(b1)).Add(g.v2.Multiply(b2))
		ls.ShadingNormal = g.shadingNormal(b0, b1, b2)
		ls.GeometricNormal = g.normal

	case *sphereGeometry:
		n := core.SampleSphereUniform(u)
		ls.Bary = u
		ls.Point = g.center.Add(n.Multiply(g.radius))
		ls.ShadingNormal = n
		ls.GeometricNormal = n

	case *rectGeometry:
		ls.Bary = u
		ls.Point = g.origin.Add(g.x.Multiply(u.X)).Add(g.y.Multiply(u.Y))
		ls.ShadingNormal = g.normal
		ls.GeometricNormal = g.normal

	case *diskGeometry:
		d := core.SampleDiskUniform(u)
		ls.Bary = u
		ls.Point = g.center.Add(g.x.Multiply(d.X * g.radius)).Add(g.y.Multiply(d.Y * g.radius))
		ls.ShadingNormal = g.normal
		ls.GeometricNormal = g.normal
	}

	ls.Probability = shapeProb * s.rcpArea
}

// EvaluatePDFUniform returns the area density reported by SampleUniform
func (s *EmittingShape) EvaluatePDFUniform() float64 {
	return s.shapeProb * s.rcpArea
}

// SampleSolidAngle draws a point whose direction from the reference point is distributed over
// the solid angle the shape subtends. The reported probability is converted to area measure with
// cosθ/t², matching EvaluatePDFSolidAngle. It returns false, leaving ls unusable, when the point lies
// behind or on the plane of a planar shape or when the configuration is degenerate.
func (s *EmittingShape) SampleSolidAngle(point core.Vec3, u core.Vec2, shapeProb float64, ls *LightSample) bool {
	*ls = LightSample{Shape: s}

	switch g := s.geom.(type) {
	case *triangleGeometry:
		return g.sampleSolidAngle(point, u, shapeProb, ls)
	case *sphereGeometry:
		return s.sampleSphere(g, point, u, shapeProb, ls)
	case *rectGeometry:
		return g.sampleSolidAngle(point, u, shapeProb, ls)
	case *diskGeometry:
		// No spherical disk sampler, so the disk samples its area and converts nothing
		if signedPlaneDistance(g.normal, g.planeDist, point) < sideEpsilon {
			return false
		}
		s.SampleUniform(u, shapeProb, ls)
		return ls.Probability > 0
	}
	return false
}

// EvaluatePDFSolidAngle returns the area density SampleSolidAngle reports when it samples lightPoint
// from point. It is zero whenever the sampler would reject the configuration.
func (s *EmittingShape) EvaluatePDFSolidAngle(point, lightPoint core.Vec3) float64 {
	switch g := s.geom.(type) {
	case *triangleGeometry:
		if signedPlaneDistance(g.normal, g.planeDist, point) < sideEpsilon {
			return 0
		}
		sampler := sampling.NewSphericalTriangleSampler(g.v0, g.v1, g.v2, point)
		return s.shapeProb * planarPDF(g.normal, sampler.SolidAngle(), point, lightPoint)

	case *sphereGeometry:
		return s.shapeProb * g.pdf(point, lightPoint, s.rcpArea)

	case *rectGeometry:
		if signedPlaneDistance(g.normal, g.planeDist, point) < sideEpsilon {
			return 0
		}
		sampler := sampling.NewSphericalRectangleSampler(g.origin, g.x, g.y, g.normal, point)
		return s.shapeProb * planarPDF(g.normal, sampler.SolidAngle(), point, lightPoint)

	case *diskGeometry:
		if signedPlaneDistance(g.normal, g.planeDist, point) < sideEpsilon {
			return 0
		}
		return s.shapeProb * s.rcpArea
	}
	return 0
}

// MakeShadingPoint fills sp with the full differential geometry at a point of the shape.
// bary holds the barycentric coordinates of triangle samples and is ignored by other shapes,
// whose parameters are recovered from the point. maker may be nil.
func (s *EmittingShape) MakeShadingPoint(sp *intersection.ShadingPoint, point, direction core.Vec3, bary core.Vec2,
	maker ShadingPointMaker) {
	if maker == nil {
		maker = packageMaker{}
	}

	xf := core.IdentityTransform()
	if s.instance != nil {
		xf = s.instance.TransformSequence.EarliestTransform()
	}

	if s.Type() == TriangleShape {
		maker.MakeTriangleShadingPoint(sp, s.instance, xf, s.objectInstanceIndex, s.primitiveIndex, point, direction, bary, 0)
		return
	}
	maker.MakeProceduralSurfaceShadingPoint(sp, s.instance, xf, s.objectInstanceIndex, point, direction, 0)
}

func (g *triangleGeometry) shadingNormal(b0, b1, b2 float64) core.Vec3 {
	n := g.n0.Multiply(b0).Add(g.n1.Multiply(b1)).Add(g.n2.Multiply(b2)).Normalize()
	if n.IsZero() {
		return g.normal
	}
	return n
}

func (g *triangleGeometry) sampleSolidAngle(o core.Vec3, u core.Vec2, shapeProb float64, ls *LightSample) bool {
	if signedPlaneDistance(g.normal, g.planeDist, o) < sideEpsilon {
		return false
	}

	sampler := sampling.NewSphericalTriangleSampler(g.v0, g.v1, g.v2, o)
	omega := sampler.SolidAngle()
	if omega <= 0 || !core.IsFinite(omega) {
		return false
	}

	d := sampler.Sample(u)
	t, b1, b2, ok := intersectTriangle(g.v0, g.v1, g.v2, o, d)
	if !ok {
		return false
	}

	cosTheta := -g.normal.Dot(d)
	if cosTheta <= 0 {
		return false
	}

	ls.Point = o.Add(d.Multiply(t))
	ls.Bary = core.NewVec2(b1, b2)
	ls.GeometricNormal = g.normal
	ls.ShadingNormal = g.shadingNormal(1-b1-b2, b1, b2)
	ls.Probability = shapeProb * cosTheta / (omega * t * t)
	return validProbability(ls.Probability)
}

func (g *rectGeometry) sampleSolidAngle(o core.Vec3, u core.Vec2, shapeProb float64, ls *LightSample) bool {
	if signedPlaneDistance(g.normal, g.planeDist, o) < sideEpsilon {
		return false
	}

	sampler := sampling.NewSphericalRectangleSampler(g.origin, g.x, g.y, g.normal, o)
	omega := sampler.SolidAngle()
	if omega <= 0 || !core.IsFinite(omega) {
		return false
	}

	p := sampler.Sample(u)
	toLight := p.Subtract(o)
	t := toLight.Length()
	if t <= 0 {
		return false
	}
	d := toLight.Multiply(1 / t)

	cosTheta := -g.normal.Dot(d)
	if cosTheta <= 0 {
		return false
	}

	local := p.Subtract(g.origin)
	ls.Point = p
	ls.Bary = core.NewVec2(local.Dot(g.x)/(g.width*g.width), local.Dot(g.y)/(g.height*g.height))
	ls.GeometricNormal = g.normal
	ls.ShadingNormal = g.normal
	ls.Probability = shapeProb * cosTheta / (omega * t * t)
	return validProbability(ls.Probability)
}

// sampleSphere samples the cone of directions toward the visible cap. Points inside the sphere
// sample its area instead.
func (s *EmittingShape) sampleSphere(g *sphereGeometry, o core.Vec3, u core.Vec2, shapeProb float64, ls *LightSample) bool {
	toCenter := g.center.Subtract(o)
	dist2 := toCenter.LengthSquared()
	r2 := g.radius * g.radius
	if dist2 <= r2 {
		s.SampleUniform(u, shapeProb, ls)
		return ls.Probability > 0
	}

	cosMax, coneSolidAngle := g.cone(dist2)
	if coneSolidAngle <= 0 {
		return false
	}

	w := toCenter.Multiply(1 / math.Sqrt(dist2))
	d := core.SampleCone(w, cosMax, u)

	// Nearest root of |o + t·d - c|² = r²; a grazing direction falls back to the closest approach
	b := d.Dot(toCenter)
	disc := b*b - (dist2 - r2)
	t := b
	if disc > 0 {
		t = b - math.Sqrt(disc)
	}
	if t <= 0 {
		return false
	}

	p := o.Add(d.Multiply(t))
	n := p.Subtract(g.center).Normalize()
	cosTheta := -n.Dot(d)
	if cosTheta <= 0 {
		return false
	}

	ls.Point = p
	ls.Bary = u
	ls.GeometricNormal = n
	ls.ShadingNormal = n
	ls.Probability = shapeProb * cosTheta / (coneSolidAngle * t * t)
	return validProbability(ls.Probability)
}

// cone returns the cosine of the half angle and the solid angle subtended from squared distance dist2
func (g *sphereGeometry) cone(dist2 float64) (cosMax, solidAngle float64) {
	sin2 := g.radius * g.radius / dist2
	cosMax = core.SafeSqrt(1 - sin2)
	// 1 - cosMax without cancellation for distant spheres
	return cosMax, 2 * math.Pi * sin2 / (1 + cosMax)
}

func (g *sphereGeometry) pdf(o, l core.Vec3, rcpArea float64) float64 {
	dist2 := g.center.Subtract(o).LengthSquared()
	if dist2 <= g.radius*g.radius {
		return rcpArea
	}

	_, coneSolidAngle := g.cone(dist2)
	if coneSolidAngle <= 0 {
		return 0
	}

	toLight := l.Subtract(o)
	t2 := toLight.LengthSquared()
	if t2 == 0 {
		return 0
	}
	d := toLight.Multiply(1 / math.Sqrt(t2))
	cosTheta := -l.Subtract(g.center).Normalize().Dot(d)
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / (coneSolidAngle * t2)
}

// planarPDF converts the uniform solid angle density 1/omega to area measure at lightPoint
func planarPDF(normal core.Vec3, omega float64, point, lightPoint core.Vec3) float64 {
	if omega <= 0 || !core.IsFinite(omega) {
		return 0
	}
	toLight := lightPoint.Subtract(point)
	t2 := toLight.LengthSquared()
	if t2 == 0 {
		return 0
	}
	cosTheta := -normal.Dot(toLight.Multiply(1 / math.Sqrt(t2)))
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / (omega * t2)
}

func signedPlaneDistance(normal core.Vec3, planeDist float64, p core.Vec3) float64 {
	return p.Dot(normal) + planeDist
}

func validProbability(p float64) bool {
	return p > 0 && core.IsFinite(p)
}

// intersectTriangle is the Möller-Trumbore test along an unbounded ray; it returns the distance and
// the weights of v1 and v2
func intersectTriangle(v0, v1, v2, origin, dir core.Vec3) (float64, float64, float64, bool) {
	const epsilon = 1e-12

	e1 := v1.Subtract(v0)
	e2 := v2.Subtract(v0)
	h := dir.Cross(e2)
	a := e1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, 0, 0, false
	}

	f := 1 / a
	s := origin.Subtract(v0)
	u := f * s.Dot(h)
	// Directions from the spherical sampler land on the edges up to rounding
	const slack = 1e-9
	if u < -slack || u > 1+slack {
		return 0, 0, 0, false
	}
	q := s.Cross(e1)
	v := f * dir.Dot(q)
	if v < -slack || u+v > 1+slack {
		return 0, 0, 0, false
	}

	t := f * e2.Dot(q)
	if t <= 0 {
		return 0, 0, 0, false
	}
	return t, math.Max(0, u), math.Max(0, v), true
}
