package renderer

import (
	"context"
	"testing"

	"github.com/df07/go-light-kernel/pkg/bsdf"
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig(workers int) *config.Config {
	cfg := config.Default()
	cfg.Render.Width = 24
	cfg.Render.Height = 16
	cfg.Render.Samples = 2
	cfg.Render.Passes = 2
	cfg.Render.TileSize = 8
	cfg.Render.Workers = workers
	return cfg
}

// floorScene is a grey floor at y = 0 seen from the side, lit by whatever setup adds. The
// triangle diagonals avoid the origin, where the camera looks.
func floorScene(setup func(a *scene.Assembly)) *scene.Scene {
	s := &scene.Scene{
		Name: "floor",
		Camera: scene.CameraParams{
			Center: core.NewVec3(0, 0.5, 3),
			LookAt: core.Vec3{},
			Up:     core.NewVec3(0, 1, 0),
			VFov:   40,
		},
	}
	a := s.AddAssembly(scene.NewAssembly("floor"))
	floor := a.AddObject(scene.NewQuadMesh("floor", core.NewVec3(-4, 0, -6), core.NewVec3(0, 0, 10), core.NewVec3(10, 0, 0), 0))
	a.AddObjectInstance(scene.NewObjectInstance("floor_inst", floor, core.IdentityTransform(),
		scene.NewDiffuseMaterial("grey", core.NewVec3(0.5, 0.5, 0.5))))
	setup(a)
	s.AddAssemblyInstance(scene.NewAssemblyInstance("floor_inst", a, nil))
	return s
}

// estimate averages the direct lighting at the floor origin as seen by the camera
func estimate(t *testing.T, s *scene.Scene, cfg *config.Config, samples int) (core.Vec3, LightingStats) {
	t.Helper()
	r, err := New(s, cfg)
	require.NoError(t, err)
	f, err := r.beginFrame(context.Background())
	require.NoError(t, err)

	it := intersection.NewIntersector(r.Tree())
	sampler := core.NewSeededSampler(42)
	ray := core.NewRay(s.Camera.Center, s.Camera.LookAt.Subtract(s.Camera.Center).Normalize())

	var stats LightingStats
	sum := core.Vec3{}
	for i := 0; i < samples; i++ {
		sum = sum.Add(f.integrator.Li(ray, it, sampler, &stats))
	}
	return sum.Multiply(1 / float64(samples)), stats
}

func TestDirectLightingDiskIrradiance(t *testing.T) {
	// A disk of radius R at height h delivers E = π·L·R²/(h²+R²) to the point below its center
	s := floorScene(func(a *scene.Assembly) {
		disk := a.AddObject(scene.NewDiskObject("disk", core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0), 0.5, 0))
		a.AddObjectInstance(scene.NewObjectInstance("disk_inst", disk, core.IdentityTransform(),
			scene.NewEmissiveMaterial("light", core.NewVec3(4, 4, 4))))
	})
	expected := 0.5 * 4 * 0.25 / 1.25

	for _, heuristic := range []string{config.HeuristicPower, config.HeuristicBalance} {
		for _, lightSamples := range []int{1, 4} {
			cfg := config.Default()
			cfg.Render.LightSamples = lightSamples
			cfg.Render.MISHeuristic = heuristic

			radiance, stats := estimate(t, s, cfg, 20000)
			assert.InEpsilon(t, expected, radiance.X, 0.02, "%s heuristic, light samples %d", heuristic, lightSamples)
			assert.InDelta(t, radiance.X, radiance.Z, 1e-9)
			assert.Equal(t, uint64(20000*lightSamples), stats.LightSamples)
			assert.Zero(t, stats.RejectedLights)
			assert.Zero(t, stats.Occluded)
		}
	}
}

func TestMISHeuristicByName(t *testing.T) {
	assert.InDelta(t, 0.5, misHeuristic(config.HeuristicBalance)(1, 1, 1, 1), 1e-12)
	assert.InDelta(t, 0.75, misHeuristic(config.HeuristicBalance)(1, 3, 1, 1), 1e-12)
	assert.InDelta(t, 0.9, misHeuristic(config.HeuristicPower)(1, 3, 1, 1), 1e-12)
	assert.InDelta(t, 0.9, misHeuristic("")(1, 3, 1, 1), 1e-12)
}

func TestShadowRayKeepsTime(t *testing.T) {
	origin := core.NewVec3(1, 2, 3)
	wi := core.NewVec3(0, 1, 0)

	ray := shadowRay(origin, wi, 2, 0.7)
	assert.Equal(t, 0.7, ray.Time)
	assert.Equal(t, origin, ray.Origin)
	assert.Equal(t, wi, ray.Direction)
	assert.Zero(t, ray.TMin)
	assert.InDelta(t, 2*(1-shadowEpsilon), ray.TMax, 1e-12)
}

func TestDirectLightingPointLight(t *testing.T) {
	s := floorScene(func(a *scene.Assembly) {
		a.AddLight(scene.NewPointLight("bulb", core.NewVec3(0, 1, 0), core.NewVec3(2, 2, 2)))
	})

	radiance, stats := estimate(t, s, nil, 10)
	assert.InDelta(t, 0.5*2/3.141592653589793, radiance.Y, 1e-6)
	assert.Equal(t, uint64(10), stats.ShadowRays)
}

func TestDirectLightingShadow(t *testing.T) {
	s := floorScene(func(a *scene.Assembly) {
		a.AddLight(scene.NewPointLight("bulb", core.NewVec3(0, 1, 0), core.NewVec3(2, 2, 2)))
		blocker := a.AddObject(scene.NewQuadMesh("blocker", core.NewVec3(-1.2, 0.5, -0.9), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 2), 0))
		a.AddObjectInstance(scene.NewObjectInstance("blocker_inst", blocker, core.IdentityTransform(),
			scene.NewDiffuseMaterial("black", core.Vec3{})))
	})

	radiance, stats := estimate(t, s, nil, 10)
	assert.True(t, radiance.IsZero(), "expected shadow, got %v", radiance)
	assert.Equal(t, uint64(10), stats.Occluded)
}

func TestRenderLightsScene(t *testing.T) {
	r, err := New(scene.NewLightsScene(), smallConfig(2))
	require.NoError(t, err)

	img, stats, err := r.Render(context.Background())
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	assert.Equal(t, 24*16, stats.TotalPixels)
	assert.Equal(t, 24*16*2, stats.TotalSamples)
	assert.InDelta(t, 2.0, stats.AverageSamples, 1e-12)
	assert.Equal(t, 2, stats.Passes)
	assert.Greater(t, stats.ShadowRays, uint64(0))
	assert.Greater(t, stats.Intersection.Rays, uint64(0))
	assert.Greater(t, stats.Intersection.ProbeRays, uint64(0))
	assert.Greater(t, CalculateAverageLuminance(img), 0.0)
}

func TestRenderIsDeterministicAcrossWorkerCounts(t *testing.T) {
	render := func(workers int) []uint8 {
		r, err := New(scene.NewLightsScene(), smallConfig(workers))
		require.NoError(t, err)
		img, _, err := r.Render(context.Background())
		require.NoError(t, err)
		return img.Pix
	}

	assert.Equal(t, render(1), render(3))
}

func TestRenderReusesInstanceTree(t *testing.T) {
	r, err := New(scene.NewInstancedScene(), smallConfig(2))
	require.NoError(t, err)

	_, _, err = r.Render(context.Background())
	require.NoError(t, err)
	_, _, err = r.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, r.Tree().RebuildCount())
	assert.Equal(t, intersection.TreeBuilt, r.Tree().State())
}

func TestRenderCancelled(t *testing.T) {
	r, err := New(scene.NewLightsScene(), smallConfig(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = r.Render(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderConfigurationErrors(t *testing.T) {
	t.Run("unknown microfacet distribution", func(t *testing.T) {
		s := floorScene(func(a *scene.Assembly) {
			ball := a.AddObject(scene.NewSphereObject("ball", core.NewVec3(0, 1, 0), 0.5, 0))
			a.AddObjectInstance(scene.NewObjectInstance("ball_inst", ball, core.IdentityTransform(),
				scene.NewMaterial("odd", nil, scene.BSDFParams{Model: scene.ModelMicrofacet, Distribution: "phong"})))
		})
		r, err := New(s, smallConfig(1))
		require.NoError(t, err)

		_, _, err = r.Render(context.Background())
		assert.ErrorIs(t, err, bsdf.ErrUnknownDistribution)
		assert.Contains(t, err.Error(), "odd")
	})

	t.Run("unsupported acceleration structure", func(t *testing.T) {
		cfg := smallConfig(1)
		cfg.AccelerationStructure.Algorithm = config.AlgorithmSBVH
		r, err := New(scene.NewLightsScene(), cfg)
		require.NoError(t, err)

		_, _, err = r.Render(context.Background())
		assert.ErrorIs(t, err, intersection.ErrNotImplemented)
	})

	t.Run("invalid render settings", func(t *testing.T) {
		cfg := smallConfig(1)
		cfg.Render.Samples = 0
		_, err := New(scene.NewLightsScene(), cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}
