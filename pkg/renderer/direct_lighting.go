package renderer

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/bsdf"
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/lighting"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// shadowEpsilon shortens shadow rays so they stop before the light surface
const shadowEpsilon = 1e-4

// LightingStats counts the light queries of one worker
type LightingStats struct {
	LightSamples   uint64
	RejectedLights uint64
	ShadowRays     uint64
	Occluded       uint64
	NonFinite      uint64 // camera samples discarded because their radiance was not finite
}

// DirectLighting estimates the light arriving at camera hits directly from the lights. Emitting
// shapes are sampled both through the light sampler and through the BRDF, and the two estimates
// are combined with an MIS heuristic.
type DirectLighting struct {
	lights       *lighting.BackwardLightSampler
	brdfs        map[*scene.Material]bsdf.BRDF
	lightSamples int
	heuristic    core.MISHeuristic
}

// NewDirectLighting creates an estimator taking lightSamples light samples per camera hit.
// A nil heuristic selects the power heuristic.
func NewDirectLighting(lights *lighting.BackwardLightSampler, brdfs map[*scene.Material]bsdf.BRDF, lightSamples int,
	heuristic core.MISHeuristic) *DirectLighting {
	if heuristic == nil {
		heuristic = core.PowerHeuristic
	}
	return &DirectLighting{lights: lights, brdfs: brdfs, lightSamples: max(1, lightSamples), heuristic: heuristic}
}

// misHeuristic maps a configured heuristic name to its function
func misHeuristic(name string) core.MISHeuristic {
	if name == config.HeuristicBalance {
		return core.BalanceHeuristic
	}
	return core.PowerHeuristic
}

// shadowRay is the segment from a shading point toward a light at distance dist, stopping just short of it
func shadowRay(origin, wi core.Vec3, dist, time float64) core.Ray {
	ray := core.NewRaySegment(origin, wi, 0, dist*(1-shadowEpsilon))
	ray.Time = time
	return ray
}

// Li returns the radiance arriving along ray
func (d *DirectLighting) Li(ray core.Ray, it *intersection.Intersector, sampler *core.RandomSampler, stats *LightingStats) core.Vec3 {
	var sp intersection.ShadingPoint
	if !it.Trace(ray, &sp, nil) {
		return core.Vec3{}
	}

	radiance := lighting.EmittedRadiance(&sp)
	brdf := d.brdfs[sp.Material()]
	if brdf == nil {
		return radiance
	}

	wo := ray.Direction.Normalize().Negate()
	n := sp.ShadingNormal()
	if wo.Dot(n) < 0 {
		n = n.Negate()
	}

	radiance = radiance.Add(d.sampleEmittingShapes(ray.Time, &sp, brdf, wo, n, it, sampler, stats))
	radiance = radiance.Add(d.sampleNonPhysicalLights(ray.Time, &sp, brdf, wo, n, it, sampler, stats))
	radiance = radiance.Add(d.sampleBRDF(ray.Time, &sp, brdf, wo, n, it, sampler))
	return radiance
}

func (d *DirectLighting) sampleEmittingShapes(time float64, sp *intersection.ShadingPoint, brdf bsdf.BRDF, wo, n core.Vec3,
	it *intersection.Intersector, sampler *core.RandomSampler, stats *LightingStats) core.Vec3 {
	if !d.lights.HasEmittingShapes() {
		return core.Vec3{}
	}

	var (
		ls      lighting.LightSample
		lightSP intersection.ShadingPoint
		sum     core.Vec3
	)
	for k := 0; k < d.lightSamples; k++ {
		stats.LightSamples++
		if !d.lights.SampleLightset(time, sampler.Get3D(), sp, &ls) {
			stats.RejectedLights++
			continue
		}

		toLight := ls.Point.Subtract(sp.Point())
		dist := toLight.Length()
		if dist == 0 {
			continue
		}
		wi := toLight.Multiply(1 / dist)
		cosLight := -wi.Dot(ls.GeometricNormal)
		cosSurface := wi.Dot(n)
		if cosLight <= 0 || cosSurface <= 0 {
			continue
		}

		f := brdf.Evaluate(wo, wi, n)
		if f.IsZero() {
			continue
		}
		ls.Shape.MakeShadingPoint(&lightSP, ls.Point, wi, ls.Bary, it)
		emitted := lighting.EmittedRadiance(&lightSP)
		if emitted.IsZero() {
			continue
		}

		stats.ShadowRays++
		if it.TraceProbe(shadowRay(sp.Point(), wi, dist, time), sp) {
			stats.Occluded++
			continue
		}

		lightPdf := ls.Probability * dist * dist / cosLight
		weight := d.heuristic(d.lightSamples, lightPdf, 1, brdf.PDF(wo, wi, n))
		sum = sum.Add(f.MultiplyVec(emitted).Multiply(cosSurface * weight / lightPdf))
	}
	return sum.Multiply(1 / float64(d.lightSamples))
}

func (d *DirectLighting) sampleNonPhysicalLights(time float64, sp *intersection.ShadingPoint, brdf bsdf.BRDF, wo, n core.Vec3,
	it *intersection.Intersector, sampler *core.RandomSampler, stats *LightingStats) core.Vec3 {
	var ls lighting.LightSample
	if !d.lights.SampleNonPhysical(time, sampler.Get3D(), &ls) {
		return core.Vec3{}
	}

	position, value := ls.Light.Evaluate(ls.LightTransform, sp.Point())
	toLight := position.Subtract(sp.Point())
	dist := toLight.Length()
	if dist == 0 || value.IsZero() {
		return core.Vec3{}
	}
	wi := toLight.Multiply(1 / dist)
	cosSurface := wi.Dot(n)
	if cosSurface <= 0 {
		return core.Vec3{}
	}
	f := brdf.Evaluate(wo, wi, n)
	if f.IsZero() {
		return core.Vec3{}
	}

	stats.ShadowRays++
	if it.TraceProbe(shadowRay(sp.Point(), wi, dist, time), sp) {
		stats.Occluded++
		return core.Vec3{}
	}
	return f.MultiplyVec(value).Multiply(cosSurface / ls.Probability)
}

func (d *DirectLighting) sampleBRDF(time float64, sp *intersection.ShadingPoint, brdf bsdf.BRDF, wo, n core.Vec3,
	it *intersection.Intersector, sampler *core.RandomSampler) core.Vec3 {
	wi, f, pdf, ok := brdf.Sample(wo, n, sampler.Get2D())
	if !ok || f.IsZero() {
		return core.Vec3{}
	}

	var hit intersection.ShadingPoint
	ray := core.NewRay(sp.Point(), wi)
	ray.Time = time
	if !it.Trace(ray, &hit, sp) {
		return core.Vec3{}
	}
	emitted := lighting.EmittedRadiance(&hit)
	if emitted.IsZero() {
		return core.Vec3{}
	}

	weight := 1.0
	if areaPdf := d.lights.EvaluatePDF(&hit, sp); areaPdf > 0 {
		dist := hit.Point().Subtract(sp.Point()).Length()
		cosLight := math.Abs(wi.Dot(hit.GeometricNormal()))
		if cosLight > 0 {
			weight = d.heuristic(1, pdf, d.lightSamples, areaPdf*dist*dist/cosLight)
		}
	}
	return f.MultiplyVec(emitted).Multiply(wi.Dot(n) * weight / pdf)
}
