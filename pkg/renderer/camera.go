package renderer

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// Camera generates primary rays for a look-at pinhole camera
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	forward         core.Vec3
	width, height   int
}

// NewCamera creates a camera for an image of width x height pixels
func NewCamera(params scene.CameraParams, width, height int) *Camera {
	aspectRatio := float64(width) / float64(height)
	vfov := params.VFov
	if vfov <= 0 {
		vfov = 45
	}
	viewportHeight := 2 * math.Tan(vfov*math.Pi/360)
	viewportWidth := aspectRatio * viewportHeight

	up := params.Up
	if up.IsZero() {
		up = core.NewVec3(0, 1, 0)
	}
	forward := params.LookAt.Subtract(params.Center).Normalize()
	right := forward.Cross(up).Normalize()
	trueUp := right.Cross(forward)

	horizontal := right.Multiply(viewportWidth)
	vertical := trueUp.Multiply(viewportHeight)
	lowerLeftCorner := params.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Add(forward)

	return &Camera{
		origin:          params.Center,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
		forward:         forward,
		width:           width,
		height:          height,
	}
}

// Forward returns the unit viewing direction
func (c *Camera) Forward() core.Vec3 { return c.forward }

// GetRay generates a ray through pixel (i, j), row 0 at the top, jittered by offset in [0,1)²
func (c *Camera) GetRay(i, j int, offset core.Vec2) core.Ray {
	s := (float64(i) + offset.X) / float64(c.width)
	t := 1 - (float64(j)+offset.Y)/float64(c.height)
	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin)

	return core.NewRay(c.origin, direction.Normalize())
}
