package renderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestCalculateAverageLuminance(t *testing.T) {
	// Red, green, blue and black average to a quarter of the weight sum
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{0, 0, 0, 255})

	assert.InDelta(t, 0.25, CalculateAverageLuminance(img), 1e-4)
}

func TestCalculateAverageLuminance_White(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})

	assert.InDelta(t, 1.0, CalculateAverageLuminance(img), 1e-4)
}

func TestPixelStats(t *testing.T) {
	var ps PixelStats
	assert.True(t, ps.GetColor().IsZero())

	ps.AddSample(core.NewVec3(1, 0, 0.5))
	ps.AddSample(core.NewVec3(0, 1, 0.5))
	assert.Equal(t, 2, ps.SampleCount)
	assert.Equal(t, core.NewVec3(0.5, 0.5, 0.5), ps.GetColor())
}

func TestToRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, toRGBA(core.Vec3{}))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, toRGBA(core.NewVec3(4, 1, 2)))
	// Gamma 2 maps 0.25 to 0.5
	assert.Equal(t, uint8(127), toRGBA(core.NewVec3(0.25, 0.25, 0.25)).R)
}
