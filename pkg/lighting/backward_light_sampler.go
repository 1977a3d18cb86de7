package lighting

import (
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// BackwardLightSampler draws light samples as seen from a shading point, for next event estimation
type BackwardLightSampler struct {
	*LightSamplerBase
}

// NewBackwardLightSampler collects the lights of s. maker builds shading points for the radiance
// estimator and may be nil.
func NewBackwardLightSampler(s *scene.Scene, cfg *config.Config, maker ShadingPointMaker) (*BackwardLightSampler, error) {
	base, err := newLightSamplerBase(s, cfg, maker)
	if err != nil {
		return nil, err
	}
	return &BackwardLightSampler{LightSamplerBase: base}, nil
}

// SampleLightset selects an emitting shape with s.X and samples the solid angle it subtends from sp
// with s.Y and s.Z. It returns false when there is no emitting shape or the selected shape cannot
// be seen from sp; the sample then contributes nothing, which EvaluatePDF accounts for.
func (b *BackwardLightSampler) SampleLightset(time float64, s core.Vec3, sp *intersection.ShadingPoint, ls *LightSample) bool {
	index, prob, ok := b.emittingShapesCDF.Sample(s.X)
	if !ok {
		return false
	}
	return b.emittingShapes[index].SampleSolidAngle(sp.Point(), core.NewVec2(s.Y, s.Z), prob, ls)
}

// SampleNonPhysical selects a non-physical light with s.X. It returns false when there is none.
func (b *BackwardLightSampler) SampleNonPhysical(time float64, s core.Vec3, ls *LightSample) bool {
	return b.sampleNonPhysicalLights(time, s, ls)
}

// EvaluatePDF returns the area density with which SampleLightset, called from surfaceSP, produces
// the point of lightSP. It is 0 when lightSP does not lie on an emitting shape.
func (b *BackwardLightSampler) EvaluatePDF(lightSP, surfaceSP *intersection.ShadingPoint) float64 {
	shape := b.EmittingShape(lightSP)
	if shape == nil {
		return 0
	}
	return shape.EvaluatePDFSolidAngle(surfaceSP.Point(), lightSP.Point())
}
