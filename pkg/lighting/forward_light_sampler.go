package lighting

import (
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// ForwardLightSampler draws emission points for paths starting at the lights
type ForwardLightSampler struct {
	*LightSamplerBase
}

// NewForwardLightSampler collects the lights of s. maker builds shading points for the radiance
// estimator and may be nil.
func NewForwardLightSampler(s *scene.Scene, cfg *config.Config, maker ShadingPointMaker) (*ForwardLightSampler, error) {
	base, err := newLightSamplerBase(s, cfg, maker)
	if err != nil {
		return nil, err
	}
	return &ForwardLightSampler{LightSamplerBase: base}, nil
}

// Sample draws a light sample. When both emitting shapes and non-physical lights exist, s.X below
// 0.5 selects the non-physical lights and the probability is halved. It returns false when the
// scene has no light.
func (f *ForwardLightSampler) Sample(time float64, s core.Vec3, ls *LightSample) bool {
	if f.HasNonPhysicalLights() {
		if f.HasEmittingShapes() {
			var ok bool
			if s.X < 0.5 {
				ok = f.sampleNonPhysicalLights(time, core.NewVec3(s.X*2, s.Y, s.Z), ls)
			} else {
				ok = f.sampleEmittingShapes(core.NewVec3((s.X-0.5)*2, s.Y, s.Z), ls)
			}
			ls.Probability *= 0.5
			return ok
		}
		return f.sampleNonPhysicalLights(time, s, ls)
	}
	return f.sampleEmittingShapes(s, ls)
}

// EvaluatePDF returns the area density with which Sample produces the point of lightSP, or 0
// when the primitive does not emit
func (f *ForwardLightSampler) EvaluatePDF(lightSP *intersection.ShadingPoint) float64 {
	shape := f.EmittingShape(lightSP)
	if shape == nil {
		return 0
	}
	pdf := shape.EvaluatePDFUniform()
	if f.HasNonPhysicalLights() {
		pdf *= 0.5
	}
	return pdf
}
