package renderer

import (
	"math"
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, expected, actual core.Vec3, delta float64) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, delta, "x")
	assert.InDelta(t, expected.Y, actual.Y, delta, "y")
	assert.InDelta(t, expected.Z, actual.Z, delta, "z")
}

func TestCameraForward(t *testing.T) {
	camera := NewCamera(scene.CameraParams{
		Center: core.NewVec3(0, 0, 0),
		LookAt: core.NewVec3(0, 0, -1),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   45,
	}, 400, 400)

	assertVec(t, core.NewVec3(0, 0, -1), camera.Forward(), 1e-12)
}

func TestCameraCenterRay(t *testing.T) {
	params := scene.CameraParams{
		Center: core.NewVec3(1, 2, 3),
		LookAt: core.NewVec3(1, 2, -7),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   60,
	}
	camera := NewCamera(params, 200, 100)

	ray := camera.GetRay(100, 50, core.NewVec2(0, 0))
	assertVec(t, params.Center, ray.Origin, 1e-12)
	assertVec(t, core.NewVec3(0, 0, -1), ray.Direction, 1e-12)
}

func TestCameraFieldOfView(t *testing.T) {
	camera := NewCamera(scene.CameraParams{
		LookAt: core.NewVec3(0, 0, -1),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   90,
	}, 100, 50)

	// The top edge of the middle column is 45 degrees above the axis
	top := camera.GetRay(50, 0, core.NewVec2(0, 0))
	assert.InDelta(t, math.Pi/4, math.Acos(-top.Direction.Z), 1e-9)
	assert.Greater(t, top.Direction.Y, 0.0)

	// Row 0 is the top of the image and column 0 the left
	bottomLeft := camera.GetRay(0, 49, core.NewVec2(0, 1))
	assert.Less(t, bottomLeft.Direction.X, 0.0)
	assert.Less(t, bottomLeft.Direction.Y, 0.0)
	assert.InDelta(t, 1, bottomLeft.Direction.Length(), 1e-12)
}
