package bsdf

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distributions(t *testing.T) []MDF {
	t.Helper()
	var result []MDF
	for _, name := range []string{"ggx", "beckmann"} {
		mdf, err := NewMicrofacetDistribution(name)
		require.NoError(t, err)
		require.Equal(t, name, mdf.Name())
		result = append(result, mdf)
	}
	return result
}

func uniformHemisphere(s core.Vec2) core.Vec3 {
	return sphericalNormal(s.X, 2*math.Pi*s.Y)
}

func TestNewMicrofacetDistributionUnknownName(t *testing.T) {
	_, err := NewMicrofacetDistribution("ashikhmin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDistribution)
	assert.Contains(t, err.Error(), "ashikhmin")
}

func TestMDFProjectedAreaIsOne(t *testing.T) {
	random := core.NewRandomSampler(rand.New(rand.NewSource(42)))
	const n = 200000

	for _, mdf := range distributions(t) {
		for _, alpha := range []float64{0.4, 0.8} {
			sum := 0.0
			for i := 0; i < n; i++ {
				h := uniformHemisphere(random.Get2D())
				sum += mdf.D(h, alpha) * cosTheta(h) * 2 * math.Pi
			}
			assert.InDelta(t, 1, sum/n, 0.03, "%s alpha=%v", mdf.Name(), alpha)
		}
	}
}

func TestMDFSampleMatchesPDF(t *testing.T) {
	random := core.NewRandomSampler(rand.New(rand.NewSource(42)))
	const n = 100000
	wo := core.NewVec3(0.3, 0, 1).Normalize()

	// Integrating 1/pdf over the samples inside a cone recovers its solid angle
	for _, mdf := range distributions(t) {
		alpha := 0.5
		sum := 0.0
		for i := 0; i < n; i++ {
			h := mdf.Sample(wo, random.Get2D(), alpha)
			require.InDelta(t, 1, h.Length(), 1e-9)
			require.GreaterOrEqual(t, cosTheta(h), 0.0)
			if cosTheta(h) > 0.5 {
				pdf := mdf.PDF(wo, h, alpha)
				require.Greater(t, pdf, 0.0)
				sum += 1 / pdf
			}
		}
		assert.InEpsilon(t, math.Pi, sum/n, 0.03, mdf.Name())
	}
}

func TestMDFShadowingMasking(t *testing.T) {
	random := core.NewRandomSampler(rand.New(rand.NewSource(42)))
	up := core.NewVec3(0, 0, 1)

	for _, mdf := range distributions(t) {
		assert.InDelta(t, 1, mdf.G(up, up, up, 0.5), 1e-12, mdf.Name())

		for i := 0; i < 1000; i++ {
			wi := uniformHemisphere(random.Get2D())
			wo := uniformHemisphere(random.Get2D())
			h := wi.Add(wo).Normalize()
			g := mdf.G(wi, wo, h, 0.5)
			require.GreaterOrEqual(t, g, 0.0)
			require.LessOrEqual(t, g, 1.0)
		}

		below := core.NewVec3(0, 0.6, -0.8)
		assert.Zero(t, mdf.G(below, up, up, 0.5), mdf.Name())
		assert.Zero(t, mdf.D(below, 0.5), mdf.Name())
	}
}

func TestMDFSmoothLimit(t *testing.T) {
	// Narrow lobes concentrate their density around the normal
	for _, mdf := range distributions(t) {
		up := core.NewVec3(0, 0, 1)
		tilted := core.NewVec3(0.5, 0, 1).Normalize()
		assert.Greater(t, mdf.D(up, 0.05), mdf.D(up, 0.5), mdf.Name())
		assert.Less(t, mdf.D(tilted, 0.05), mdf.D(tilted, 0.5), mdf.Name())
	}
}
