// Package renderer is a tiled direct lighting renderer driving the light samplers and the
// instance tree.
package renderer

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/df07/go-light-kernel/pkg/bsdf"
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/lighting"
	"github.com/df07/go-light-kernel/pkg/log"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

var logger = log.New("renderer")

// Renderer renders one scene. The instance tree persists across frames, so rendering again after
// editing the scene only rebuilds what changed.
type Renderer struct {
	scene *scene.Scene
	cfg   *config.Config
	tree  *intersection.InstanceTree
}

// New creates a renderer. A nil cfg uses the defaults.
func New(s *scene.Scene, cfg *config.Config) (*Renderer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{
		scene: s,
		cfg:   cfg,
		tree:  intersection.NewInstanceTree(s, cfg),
	}, nil
}

// Tree returns the instance tree shared by the workers
func (r *Renderer) Tree() *intersection.InstanceTree { return r.tree }

// frame is the state fixed at frame begin and shared read-only by the workers
type frame struct {
	camera     *Camera
	integrator *DirectLighting
}

// beginFrame brings the acceleration structures and the light sampler up to date with the scene.
// It runs before any worker starts.
func (r *Renderer) beginFrame(ctx context.Context) (*frame, error) {
	if err := r.tree.Update(); err != nil {
		return nil, err
	}
	if err := r.tree.BuildChildTrees(ctx, r.cfg.Render.Workers); err != nil {
		logger.Errorf("while building acceleration structures for scene %q: %v", r.scene.Name, err)
		return nil, errors.Wrapf(err, "while building acceleration structures for scene %q", r.scene.Name)
	}

	lights, err := lighting.NewBackwardLightSampler(r.scene, r.cfg, intersection.NewIntersector(r.tree))
	if err != nil {
		logger.Errorf("while building light sampler for scene %q: %v", r.scene.Name, err)
		return nil, err
	}

	brdfs, err := r.createBRDFs()
	if err != nil {
		return nil, err
	}

	render := r.cfg.Render
	return &frame{
		camera:     NewCamera(r.scene.Camera, render.Width, render.Height),
		integrator: NewDirectLighting(lights, brdfs, render.LightSamples, misHeuristic(render.MISHeuristic)),
	}, nil
}

// createBRDFs creates one BRDF per material reachable from the scene
func (r *Renderer) createBRDFs() (map[*scene.Material]bsdf.BRDF, error) {
	brdfs := make(map[*scene.Material]bsdf.BRDF)
	for _, fi := range r.scene.FlattenAssemblyInstances() {
		for _, oi := range fi.Assembly.ObjectInstances {
			for _, m := range oi.Materials {
				if m == nil {
					continue
				}
				if _, ok := brdfs[m]; ok {
					continue
				}
				brdf, err := bsdf.New(m.BSDF)
				if err != nil {
					logger.Errorf("while creating bsdf for material %q of assembly %q: %v", m.Name(), fi.Assembly.Name(), err)
					return nil, errors.Wrapf(err, "while creating bsdf for material %q", m.Name())
				}
				brdfs[m] = brdf
			}
		}
	}
	return brdfs, nil
}

// Render renders the configured number of passes and returns the final image. Cancelling ctx
// stops the render between passes.
func (r *Renderer) Render(ctx context.Context) (*image.RGBA, RenderStats, error) {
	f, err := r.beginFrame(ctx)
	if err != nil {
		return nil, RenderStats{}, err
	}

	cfg := r.cfg.Render
	pixelStats := make([][]PixelStats, cfg.Height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, cfg.Width)
	}
	tiles := NewTileGrid(cfg.Width, cfg.Height, cfg.TileSize, cfg.Seed)
	pool := NewWorkerPool(cfg.Workers)
	workers := make([]*TileRenderer, pool.NumWorkers())
	for i := range workers {
		workers[i] = NewTileRenderer(f.camera, f.integrator, r.tree, pixelStats)
	}

	logger.Noticef("rendering %q at %dx%d, %d samples in %d passes with %d workers",
		r.scene.Name, cfg.Width, cfg.Height, cfg.Samples, cfg.Passes, pool.NumWorkers())

	stats := RenderStats{MaxSamples: cfg.Samples}
	for pass := 1; pass <= cfg.Passes; pass++ {
		select {
		case <-ctx.Done():
			logger.Warningf("rendering cancelled before pass %d", pass)
			return nil, stats, ctx.Err()
		default:
		}

		start := time.Now()
		target := samplesForPass(pass, cfg.Passes, cfg.Samples)
		err := pool.Run(tiles, func(worker int, tile *Tile) error {
			return workers[worker].RenderTile(tile, target)
		})
		if err != nil {
			return nil, stats, err
		}
		stats.Passes = pass
		logger.Infof("pass %d/%d completed in %v (%d samples/pixel)", pass, cfg.Passes, time.Since(start), target)
	}

	for _, w := range workers {
		lightingStats, intersectorStats := w.Statistics()
		stats.addLighting(lightingStats)
		stats.Intersection.Add(intersectorStats)
	}
	img := assembleImage(pixelStats, &stats)
	return img, stats, nil
}

// samplesForPass spreads samples evenly over the passes; the last pass reaches the total
func samplesForPass(pass, passes, samples int) int {
	if pass >= passes {
		return samples
	}
	return max(1, samples*pass/passes)
}

func assembleImage(pixelStats [][]PixelStats, stats *RenderStats) *image.RGBA {
	height := len(pixelStats)
	width := len(pixelStats[0])
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixel := &pixelStats[y][x]
			img.SetRGBA(x, y, toRGBA(pixel.GetColor()))
			stats.TotalSamples += pixel.SampleCount
		}
	}
	stats.TotalPixels = width * height
	stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	return img
}

// toRGBA converts a linear color to RGBA with gamma 2 and clamping
func toRGBA(c core.Vec3) color.RGBA {
	c = c.GammaCorrect(2.0).Clamp(0.0, 1.0)
	return color.RGBA{
		R: uint8(255 * c.X),
		G: uint8(255 * c.Y),
		B: uint8(255 * c.Z),
		A: 255,
	}
}
