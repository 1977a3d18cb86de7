package renderer

import (
	"image"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels    int     // Total number of pixels rendered
	TotalSamples   int     // Total number of camera samples taken
	AverageSamples float64 // Average samples per pixel
	MaxSamples     int     // Samples requested per pixel
	Passes         int     // Passes completed
	LightSamples   uint64  // Emitting shape samples drawn for next event estimation
	RejectedLights uint64  // Light samples skipped because the shape faced away
	ShadowRays     uint64  // Probe rays traced toward light samples
	Occluded       uint64  // Shadow rays that hit an occluder
	Intersection   intersection.IntersectorStatistics
}

// addLighting accumulates the lighting counters of a worker into s
func (s *RenderStats) addLighting(other LightingStats) {
	s.LightSamples += other.LightSamples
	s.RejectedLights += other.RejectedLights
	s.ShadowRays += other.ShadowRays
	s.Occluded += other.Occluded
}

// PixelStats accumulates the samples of a single pixel
type PixelStats struct {
	ColorAccum  core.Vec3
	SampleCount int
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Vec3) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Vec3 {
	if ps.SampleCount == 0 {
		return core.Vec3{}
	}
	return ps.ColorAccum.Multiply(1.0 / float64(ps.SampleCount))
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of an 8-bit image in [0, 1]
func CalculateAverageLuminance(img *image.RGBA) float64 {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}
	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			total += (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
		}
	}
	return total / float64(bounds.Dx()*bounds.Dy())
}
