package lighting

import (
	"math"
	"math/rand"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

// minEstimatorSamples is the number of samples taken before the estimator may stop early
const minEstimatorSamples = 16

// RadianceEstimator computes the average emitted radiance of a shape, used to weight it in the
// light sampler
type RadianceEstimator interface {
	Estimate(shape *EmittingShape) float64
}

// ConstantRadianceEstimator weights every shape by its area alone
type ConstantRadianceEstimator struct{}

// Estimate returns 1
func (ConstantRadianceEstimator) Estimate(*EmittingShape) float64 { return 1 }

// MonteCarloRadianceEstimator averages the luminance of the material EDF over stratified points of
// the shape. Constant EDFs are evaluated once.
type MonteCarloRadianceEstimator struct {
	Samples   int     // maximum number of samples per shape
	Tolerance float64 // stop once the relative standard error is below this, 0 never stops early
	Maker     ShadingPointMaker

	random *rand.Rand
}

// NewMonteCarloRadianceEstimator creates an estimator with its own seeded generator
func NewMonteCarloRadianceEstimator(samples int, tolerance float64, seed int64, maker ShadingPointMaker) *MonteCarloRadianceEstimator {
	return &MonteCarloRadianceEstimator{
		Samples:   samples,
		Tolerance: tolerance,
		Maker:     maker,
		random:    rand.New(rand.NewSource(seed)),
	}
}

// NewRadianceEstimator creates the estimator selected by cfg
func NewRadianceEstimator(cfg config.RadianceEstimatorConfig, maker ShadingPointMaker) (RadianceEstimator, error) {
	switch cfg.Kind {
	case config.EstimatorConstant, "":
		return ConstantRadianceEstimator{}, nil
	case config.EstimatorMonteCarlo:
		if cfg.Samples <= 0 {
			return nil, errors.Wrapf(config.ErrInvalidConfig, "radiance estimator needs a positive sample count, got %d", cfg.Samples)
		}
		return NewMonteCarloRadianceEstimator(cfg.Samples, cfg.Tolerance, cfg.Seed, maker), nil
	}
	return nil, errors.Wrapf(config.ErrInvalidConfig, "unknown radiance estimator %q", cfg.Kind)
}

// Estimate returns the mean EDF luminance over the shape, 0 when the material does not emit
func (e *MonteCarloRadianceEstimator) Estimate(shape *EmittingShape) float64 {
	m := shape.Material()
	if !m.HasEmission() {
		return 0
	}
	if c, ok := m.EDF.(scene.ConstantEDF); ok {
		return math.Max(0, c.Emission.Luminance())
	}
	if e.random == nil {
		e.random = rand.New(rand.NewSource(1))
	}

	samples := max(1, e.Samples)
	strata := int(math.Ceil(math.Sqrt(float64(samples))))
	cells := e.random.Perm(strata * strata)

	var (
		ls   LightSample
		sp   intersection.ShadingPoint
		mean float64
		m2   float64
		n    int
	)
	for _, cell := range cells[:samples] {
		u := core.NewVec2(
			(float64(cell%strata)+e.random.Float64())/float64(strata),
			(float64(cell/strata)+e.random.Float64())/float64(strata),
		)
		shape.SampleUniform(u, 1, &ls)
		shape.MakeShadingPoint(&sp, ls.Point, ls.GeometricNormal.Negate(), ls.Bary, e.Maker)
		value := m.EDF.Radiance(sp.SurfacePoint()).Luminance()

		n++
		delta := value - mean
		mean += delta / float64(n)
		m2 += delta * (value - mean)

		if n >= minEstimatorSamples && e.Tolerance > 0 && mean > 0 {
			stdErr := math.Sqrt(m2/float64(n-1)) / math.Sqrt(float64(n))
			if stdErr/mean <= e.Tolerance {
				break
			}
		}
	}
	return math.Max(0, mean)
}
