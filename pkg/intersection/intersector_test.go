package intersection

import (
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec(t *testing.T, expected, actual core.Vec3, tolerance float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, 0, expected.Subtract(actual).Length(), tolerance, msgAndArgs...)
}

func cornellIntersector(t *testing.T) *Intersector {
	return NewIntersector(buildTree(t, scene.NewCornellScene()))
}

func TestTraceCornellBackWall(t *testing.T) {
	it := cornellIntersector(t)

	var sp ShadingPoint
	ray := core.NewRay(core.NewVec3(270, 290, -800), core.NewVec3(0, 0, 1))
	require.True(t, it.Trace(ray, &sp, nil))

	assert.InDelta(t, 1355.0, sp.Distance(), 1e-6)
	assert.Equal(t, PrimitiveTriangle, sp.PrimitiveType())
	assert.Equal(t, "white", sp.Material().Name())
	assertVec(t, core.NewVec3(270, 290, 555), sp.Point(), 1e-6)
	assertVec(t, core.NewVec3(0, 0, -1), sp.GeometricNormal(), 1e-9)
	assertVec(t, sp.GeometricNormal(), sp.ShadingNormal(), 1e-9)
	assert.True(t, sp.FrontFacing())

	uv := sp.UV()
	assert.InDelta(t, 290.0/555, uv.X, 1e-9)
	assert.InDelta(t, 270.0/555, uv.Y, 1e-9)
	assertVec(t, core.NewVec3(0, 555, 0), sp.Dpdu(), 1e-6)
	assertVec(t, core.NewVec3(555, 0, 0), sp.Dpdv(), 1e-6)
}

func TestTraceCornellLightAndSphere(t *testing.T) {
	it := cornellIntersector(t)

	var sp ShadingPoint
	require.True(t, it.Trace(core.NewRay(core.NewVec3(277.5, 300, 277.5), core.NewVec3(0, 1, 0)), &sp, nil))
	assert.Equal(t, PrimitiveProceduralSurface, sp.PrimitiveType())
	assert.InDelta(t, 254.0, sp.Distance(), 1e-9)
	assert.True(t, sp.Material().HasEmission())
	assertVec(t, core.NewVec3(0, -1, 0), sp.GeometricNormal(), 1e-9)
	assert.InDelta(t, 0.5, sp.Bary().X, 1e-9)
	assert.InDelta(t, 0.5, sp.Bary().Y, 1e-9)

	require.True(t, it.Trace(core.NewRay(core.NewVec3(185, 82.5, -100), core.NewVec3(0, 0, 1)), &sp, nil))
	assert.Equal(t, "glossy", sp.Material().Name())
	assert.InDelta(t, 186.5, sp.Distance(), 1e-9)
	assertVec(t, core.NewVec3(0, 0, -1), sp.GeometricNormal(), 1e-9)
	assert.InDelta(t, 0, sp.GeometricNormal().Dot(sp.Dpdu()), 1e-6)
}

func TestTraceProbe(t *testing.T) {
	it := cornellIntersector(t)

	// The sphere blocks the vertical ray above its contact point
	assert.True(t, it.TraceProbe(core.NewRay(core.NewVec3(185, 0.5, 169), core.NewVec3(0, 1, 0)), nil))
	assert.False(t, it.TraceProbe(core.NewRaySegment(core.NewVec3(185, 0.5, 169), core.NewVec3(0, 1, 0), 0, 1), nil))

	// Looking out of the open front of the box
	assert.False(t, it.TraceProbe(core.NewRay(core.NewVec3(278, 278, 100), core.NewVec3(0, 0, -1)), nil))

	stats := it.Statistics()
	assert.Equal(t, uint64(3), stats.ProbeRays)
	assert.Equal(t, uint64(1), stats.ProbeHits)
}

func TestTraceIgnoresParentPrimitive(t *testing.T) {
	it := cornellIntersector(t)

	var floor ShadingPoint
	require.True(t, it.Trace(core.NewRay(core.NewVec3(100, 100, 150), core.NewVec3(0, -1, 0)), &floor, nil))
	require.InDelta(t, 0.0, floor.Point().Y, 1e-9)

	// Leaving the floor from the hit point itself must not report the floor again
	var ceiling ShadingPoint
	up := core.NewRay(floor.Point(), core.NewVec3(0, 1, 0))
	require.True(t, it.Trace(up, &ceiling, &floor))
	assert.InDelta(t, 555.0, ceiling.Distance(), 1e-9)
	assert.False(t, ceiling.SamePrimitive(&floor))
	assert.True(t, floor.SamePrimitive(&floor))
}

func TestTraceMovingInstance(t *testing.T) {
	it := NewIntersector(buildTree(t, scene.NewInstancedScene()))

	ray := core.NewRay(core.NewVec3(0.1, 0.3, -10), core.NewVec3(0, 0, 1))

	var sp ShadingPoint
	ray.Time = 0
	require.True(t, it.Trace(ray, &sp, nil))
	assert.InDelta(t, 7.5, sp.Distance(), 1e-9)
	assert.Equal(t, "crate", sp.Assembly().Name())
	assert.Equal(t, "row_back", sp.Instance().Path[0].Name())
	backID := sp.InstanceID()

	// At the end of the shutter the back row has moved out of the way
	ray.Time = 1
	require.True(t, it.Trace(ray, &sp, nil))
	assert.InDelta(t, 11.5, sp.Distance(), 1e-9)
	assert.Equal(t, "row_front", sp.Instance().Path[0].Name())
	assert.NotEqual(t, backID, sp.InstanceID())
}

func TestMakeTriangleShadingPointMatchesTrace(t *testing.T) {
	it := cornellIntersector(t)

	var traced ShadingPoint
	ray := core.NewRay(core.NewVec3(400, 200, -800), core.NewVec3(-0.1, 0.05, 1).Normalize())
	require.True(t, it.Trace(ray, &traced, nil))
	require.Equal(t, PrimitiveTriangle, traced.PrimitiveType())

	var made ShadingPoint
	it.MakeTriangleShadingPoint(&made, traced.Instance(), traced.AssemblyInstanceTransform(),
		traced.ObjectInstanceIndex(), traced.PrimitiveIndex(), traced.Point(), ray.Direction, traced.Bary(), 0)

	assert.True(t, made.Hit())
	assertVec(t, traced.Point(), made.Point(), 1e-9)
	assertVec(t, traced.GeometricNormal(), made.GeometricNormal(), 1e-9)
	assertVec(t, traced.ShadingNormal(), made.ShadingNormal(), 1e-9)
	assert.InDelta(t, traced.UV().X, made.UV().X, 1e-9)
	assert.InDelta(t, traced.UV().Y, made.UV().Y, 1e-9)
	assert.Same(t, traced.Material(), made.Material())
	assert.True(t, made.SamePrimitive(&traced))
}

func TestMakeProceduralSurfaceShadingPointRecoversParameters(t *testing.T) {
	it := cornellIntersector(t)

	var traced ShadingPoint
	ray := core.NewRay(core.NewVec3(250, 100, 300), core.NewVec3(0.05, 1, -0.02).Normalize())
	require.True(t, it.Trace(ray, &traced, nil))
	require.Equal(t, PrimitiveProceduralSurface, traced.PrimitiveType())

	var made ShadingPoint
	it.MakeProceduralSurfaceShadingPoint(&made, traced.Instance(), traced.AssemblyInstanceTransform(),
		traced.ObjectInstanceIndex(), traced.Point(), ray.Direction, 0)

	assert.InDelta(t, traced.Bary().X, made.Bary().X, 1e-9)
	assert.InDelta(t, traced.Bary().Y, made.Bary().Y, 1e-9)
	assertVec(t, traced.GeometricNormal(), made.GeometricNormal(), 1e-9)
	assertVec(t, traced.Dpdu(), made.Dpdu(), 1e-6)
	assert.True(t, made.Material().HasEmission())
}

func TestShadingPointMiss(t *testing.T) {
	it := cornellIntersector(t)

	var sp ShadingPoint
	assert.False(t, it.Trace(core.NewRay(core.NewVec3(278, 278, -800), core.NewVec3(0, 0, -1)), &sp, nil))
	assert.False(t, sp.Hit())
	assert.Nil(t, sp.Material())
	assert.Nil(t, sp.ObjectInstance())
	assert.Equal(t, scene.InstanceID(0), sp.InstanceID())
	assert.Equal(t, -1, sp.MaterialSlot())

	stats := it.Statistics()
	assert.Equal(t, uint64(1), stats.Rays)
	assert.Equal(t, uint64(0), stats.Hits)
}
