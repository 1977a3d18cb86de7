package lighting

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/log"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

var logger = log.New("lighting")

// NonPhysicalLightInfo is a light without surface together with the sequence placing it in the world
type NonPhysicalLightInfo struct {
	Light             scene.Light
	Instance          *scene.FlatInstance
	TransformSequence *core.TransformSequence // light's assembly to world
}

// LightSamplerBase collects the lights of a scene once per frame and holds the distributions shared
// by the forward and backward samplers. It is immutable after construction and safe for concurrent use.
type LightSamplerBase struct {
	instances []scene.FlatInstance

	nonPhysicalLights    []NonPhysicalLightInfo
	nonPhysicalLightsCDF *core.CDF[int]

	emittingShapes    []*EmittingShape
	emittingShapesCDF *core.CDF[int]
	shapes            map[EmittingShapeKey]*EmittingShape
}

func newLightSamplerBase(s *scene.Scene, cfg *config.Config, maker ShadingPointMaker) (*LightSamplerBase, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if algorithm := cfg.LightSampler.Algorithm; algorithm != "" && algorithm != "cdf" {
		return nil, errors.Wrapf(config.ErrInvalidConfig, "unknown light sampling algorithm %q", algorithm)
	}
	estimator, err := NewRadianceEstimator(cfg.LightSampler.RadianceEstimator, maker)
	if err != nil {
		return nil, errors.Wrap(err, "while building light sampler")
	}

	b := &LightSamplerBase{
		instances:            s.FlattenAssemblyInstances(),
		nonPhysicalLightsCDF: core.NewCDF[int](),
		emittingShapesCDF:    core.NewCDF[int](),
		shapes:               make(map[EmittingShapeKey]*EmittingShape),
	}
	b.collectNonPhysicalLights()
	b.collectEmittingShapes(estimator)

	logger.Infof("found %d non-physical %s, %d emitting %s",
		len(b.nonPhysicalLights), plural(len(b.nonPhysicalLights), "light"),
		len(b.emittingShapes), plural(len(b.emittingShapes), "shape"))
	if !b.HasLights() {
		logger.Warningf("%v: nothing will be lit by next event estimation", ErrNoLights)
	}
	return b, nil
}

func (b *LightSamplerBase) collectNonPhysicalLights() {
	for i := range b.instances {
		fi := &b.instances[i]
		for _, light := range fi.Assembly.Lights {
			importance := light.Importance()
			if !(importance > 0) || math.IsInf(importance, 0) {
				continue
			}
			b.nonPhysicalLightsCDF.Insert(len(b.nonPhysicalLights), importance)
			b.nonPhysicalLights = append(b.nonPhysicalLights, NonPhysicalLightInfo{
				Light:             light,
				Instance:          fi,
				TransformSequence: fi.TransformSequence,
			})
		}
	}
	b.nonPhysicalLightsCDF.Prepare()
}

func (b *LightSamplerBase) collectEmittingShapes(estimator RadianceEstimator) {
	for i := range b.instances {
		fi := &b.instances[i]
		xf := fi.TransformSequence.EarliestTransform()
		for index, oi := range fi.Assembly.ObjectInstances {
			collectObjectInstanceShapes(fi, index, oi, xf.Compose(oi.Transform), func(shape *EmittingShape) {
				if shape.Area() == 0 {
					return
				}
				shape.EstimateAverageRadiance(estimator)
				weight := shape.Area() * shape.AverageRadiance()
				if !(weight > 0) || math.IsInf(weight, 0) {
					return
				}
				b.emittingShapesCDF.Insert(len(b.emittingShapes), weight)
				b.emittingShapes = append(b.emittingShapes, shape)
			})
		}
	}

	b.emittingShapesCDF.Prepare()
	for i, shape := range b.emittingShapes {
		shape.SetShapeProb(b.emittingShapesCDF.Prob(i))
		b.shapes[shape.Key()] = shape
	}
}

// collectObjectInstanceShapes emits one world-space shape per emitting primitive of oi
func collectObjectInstanceShapes(fi *scene.FlatInstance, index int, oi *scene.ObjectInstance, xf core.Transform,
	add func(*EmittingShape)) {
	switch object := oi.Object.(type) {
	case *scene.MeshObject:
		for ti, tri := range object.Triangles {
			material := oi.Material(tri.MaterialSlot)
			if !material.HasEmission() {
				continue
			}
			v0, v1, v2 := object.TriangleVertices(ti)
			p0, p1, p2 := xf.Point(v0), xf.Point(v1), xf.Point(v2)
			normal := p1.Subtract(p0).Cross(p2.Subtract(p0)).Normalize()

			n0, n1, n2 := normal, normal, normal
			if l0, l1, l2, ok := object.TriangleNormals(ti); ok {
				n0, n1, n2 = xf.Normal(l0).Normalize(), xf.Normal(l1).Normalize(), xf.Normal(l2).Normalize()
			}
			add(NewTriangleShape(fi, index, ti, material, p0, p1, p2, n0, n1, n2, normal))
		}

	case *scene.SphereObject:
		if material := oi.Material(object.Slot); material.HasEmission() {
			add(NewSphereShape(fi, index, material, xf.Point(object.Center), scaledRadius(xf, object.Radius)))
		}

	case *scene.RectObject:
		if material := oi.Material(object.Slot); material.HasEmission() {
			x, y := xf.Vector(object.X), xf.Vector(object.Y)
			add(NewRectShape(fi, index, material, xf.Point(object.Origin), x, y, x.Cross(y)))
		}

	case *scene.DiskObject:
		if material := oi.Material(object.Slot); material.HasEmission() {
			normal := xf.Normal(object.Normal)
			add(NewDiskShape(fi, index, material, xf.Point(object.Center), normal, scaledRadius(xf, object.Radius)))
		}
	}
}

// scaledRadius assumes a uniform scale
func scaledRadius(xf core.Transform, radius float64) float64 {
	return radius * xf.Vector(core.NewVec3(1, 0, 0)).Length()
}

// HasLights reports whether anything can be sampled
func (b *LightSamplerBase) HasLights() bool {
	return b.nonPhysicalLightsCDF.Valid() || b.emittingShapesCDF.Valid()
}

// HasNonPhysicalLights reports whether the non-physical light distribution is valid
func (b *LightSamplerBase) HasNonPhysicalLights() bool { return b.nonPhysicalLightsCDF.Valid() }

// HasEmittingShapes reports whether the emitting shape distribution is valid
func (b *LightSamplerBase) HasEmittingShapes() bool { return b.emittingShapesCDF.Valid() }

// NonPhysicalLightCount returns the number of non-physical lights with positive importance
func (b *LightSamplerBase) NonPhysicalLightCount() int { return len(b.nonPhysicalLights) }

// EmittingShapeCount returns the number of emitting shapes with positive weight
func (b *LightSamplerBase) EmittingShapeCount() int { return len(b.emittingShapes) }

// NonPhysicalLights returns the collected non-physical lights
func (b *LightSamplerBase) NonPhysicalLights() []NonPhysicalLightInfo { return b.nonPhysicalLights }

// EmittingShapes returns the collected emitting shapes
func (b *LightSamplerBase) EmittingShapes() []*EmittingShape { return b.emittingShapes }

// EmittingShape returns the shape registered for the primitive a shading point lies on, or nil
func (b *LightSamplerBase) EmittingShape(sp *intersection.ShadingPoint) *EmittingShape {
	if !sp.Hit() {
		return nil
	}
	return b.shapes[ShadingPointKey(sp)]
}

// sampleEmittingShapes selects a shape with s.X and samples its area with s.Y and s.Z
func (b *LightSamplerBase) sampleEmittingShapes(s core.Vec3, ls *LightSample) bool {
	index, prob, ok := b.emittingShapesCDF.Sample(s.X)
	if !ok {
		return false
	}
	b.emittingShapes[index].SampleUniform(core.NewVec2(s.Y, s.Z), prob, ls)
	return ls.Valid()
}

// sampleNonPhysicalLights selects a light with s.X
func (b *LightSamplerBase) sampleNonPhysicalLights(time float64, s core.Vec3, ls *LightSample) bool {
	index, prob, ok := b.nonPhysicalLightsCDF.Sample(s.X)
	if !ok {
		return false
	}
	b.sampleNonPhysicalLight(time, index, prob, ls)
	return ls.Valid()
}

func (b *LightSamplerBase) sampleNonPhysicalLight(time float64, index int, prob float64, ls *LightSample) {
	info := &b.nonPhysicalLights[index]
	*ls = LightSample{
		Light:          info.Light,
		LightTransform: info.TransformSequence.Evaluate(time),
		Probability:    prob,
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
