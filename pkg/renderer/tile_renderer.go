package renderer

import (
	"image"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/pkg/errors"
)

// TileRenderer renders tiles into the shared pixel buffer. Each worker owns one, together with
// its intersector; tiles never overlap so the pixel buffer needs no locking.
type TileRenderer struct {
	camera      *Camera
	integrator  *DirectLighting
	intersector *intersection.Intersector
	pixelStats  [][]PixelStats
	stats       LightingStats
}

// NewTileRenderer creates a tile renderer tracing against tree
func NewTileRenderer(camera *Camera, integrator *DirectLighting, tree *intersection.InstanceTree, pixelStats [][]PixelStats) *TileRenderer {
	return &TileRenderer{
		camera:      camera,
		integrator:  integrator,
		intersector: intersection.NewIntersector(tree),
		pixelStats:  pixelStats,
	}
}

// RenderTile brings every pixel of the tile up to targetSamples samples
func (tr *TileRenderer) RenderTile(tile *Tile, targetSamples int) error {
	frame := image.Rect(0, 0, len(tr.pixelStats[0]), len(tr.pixelStats))
	if !tile.Bounds.In(frame) {
		return errors.Errorf("renderer: tile %d bounds %v exceed image %v", tile.ID, tile.Bounds, frame)
	}

	sampler := core.NewRandomSampler(tile.Random)
	for j := tile.Bounds.Min.Y; j < tile.Bounds.Max.Y; j++ {
		for i := tile.Bounds.Min.X; i < tile.Bounds.Max.X; i++ {
			ps := &tr.pixelStats[j][i]
			for ps.SampleCount < targetSamples {
				ray := tr.camera.GetRay(i, j, sampler.Get2D())
				color := tr.integrator.Li(ray, tr.intersector, sampler, &tr.stats)
				if !color.IsFinite() {
					tr.stats.NonFinite++
					color = core.Vec3{}
				}
				ps.AddSample(color)
			}
		}
	}
	return nil
}

// Statistics returns the counters accumulated over every tile rendered so far
func (tr *TileRenderer) Statistics() (LightingStats, intersection.IntersectorStatistics) {
	return tr.stats, tr.intersector.Statistics()
}
