package intersection

import (
	"context"
	"testing"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T, s *scene.Scene) *InstanceTree {
	t.Helper()
	tree := NewInstanceTree(s, config.Default())
	require.NoError(t, tree.Update())
	return tree
}

// twoAssemblyScene has a quad assembly at the origin and a sphere assembly at x = 10
func twoAssemblyScene() (*scene.Scene, *scene.AssemblyInstance, *scene.AssemblyInstance) {
	s := &scene.Scene{Name: "two"}
	white := scene.NewDiffuseMaterial("white", core.NewVec3(1, 1, 1))

	quads := s.AddAssembly(scene.NewAssembly("quads"))
	quad := quads.AddObject(scene.NewQuadMesh("quad", core.NewVec3(-1, -1, 0), core.NewVec3(0, 2, 0), core.NewVec3(2, 0, 0), 0))
	quads.AddObjectInstance(scene.NewObjectInstance("quad_inst", quad, core.IdentityTransform(), white))

	spheres := s.AddAssembly(scene.NewAssembly("spheres"))
	sphere := spheres.AddObject(scene.NewSphereObject("sphere", core.Vec3{}, 1, 0))
	spheres.AddObjectInstance(scene.NewObjectInstance("sphere_inst", sphere, core.IdentityTransform(), white))

	a := s.AddAssemblyInstance(scene.NewAssemblyInstance("quads_inst", quads, nil))
	b := s.AddAssemblyInstance(scene.NewAssemblyInstance("spheres_inst", spheres, scene.NewTransformSequenceAt(core.NewVec3(10, 0, 0))))
	return s, a, b
}

func TestInstanceTreeStartsUnbuilt(t *testing.T) {
	s, _, _ := twoAssemblyScene()
	tree := NewInstanceTree(s, config.Default())
	assert.Equal(t, TreeUnbuilt, tree.State())
	assert.True(t, tree.NeedsUpdate())
	assert.Equal(t, 0, tree.RebuildCount())

	require.NoError(t, tree.Update())
	assert.Equal(t, TreeBuilt, tree.State())
	assert.Len(t, tree.Items(), 2)
	assert.Equal(t, 2, tree.ChildTreeCount())
}

func TestInstanceTreeUpdateIsIdempotent(t *testing.T) {
	tree := buildTree(t, scene.NewInstancedScene())
	require.NoError(t, tree.BuildChildTrees(context.Background(), 2))

	rebuilds := tree.RebuildCount()
	builds := tree.ChildTreeBuildCount()
	assert.Equal(t, 1, rebuilds)

	require.NoError(t, tree.Update())
	require.NoError(t, tree.Update())
	assert.Equal(t, rebuilds, tree.RebuildCount())
	assert.Equal(t, builds, tree.ChildTreeBuildCount())
	assert.False(t, tree.NeedsUpdate())
}

func TestInstanceTreeSkipsGroupingAssemblies(t *testing.T) {
	s := scene.NewInstancedScene()
	tree := buildTree(t, s)

	// ground, plus three crates under each of the two rows; the rows themselves hold no geometry
	assert.Len(t, s.FlattenAssemblyInstances(), 9)
	assert.Len(t, tree.Items(), 7)

	// crate and ground each own a triangle tree and a patch tree
	assert.Equal(t, 4, tree.ChildTreeCount())
}

func TestInstanceTreeRebuildsAfterInstanceEdit(t *testing.T) {
	s, _, b := twoAssemblyScene()
	tree := buildTree(t, s)

	b.TransformSequence = scene.NewTransformSequenceAt(core.NewVec3(20, 0, 0))
	b.BumpVersion()

	assert.True(t, tree.NeedsUpdate())
	assert.Equal(t, TreeStale, tree.State())

	require.NoError(t, tree.Update())
	assert.Equal(t, TreeBuilt, tree.State())
	assert.Equal(t, 2, tree.RebuildCount())

	var sp ShadingPoint
	it := NewIntersector(tree)
	assert.False(t, it.Trace(core.NewRay(core.NewVec3(10, 0, -5), core.NewVec3(0, 0, 1)), &sp, nil))
	assert.True(t, it.Trace(core.NewRay(core.NewVec3(20, 0, -5), core.NewVec3(0, 0, 1)), &sp, nil))
}

func TestInstanceTreeRemovedInstanceDisappears(t *testing.T) {
	s, _, b := twoAssemblyScene()
	tree := buildTree(t, s)
	it := NewIntersector(tree)

	toSphere := core.NewRay(core.NewVec3(10, 0, -5), core.NewVec3(0, 0, 1))
	var sp ShadingPoint
	require.True(t, it.Trace(toSphere, &sp, nil))
	assert.Equal(t, "spheres", sp.Assembly().Name())

	require.True(t, s.RemoveAssemblyInstance(b))
	require.NoError(t, tree.Update())

	assert.Len(t, tree.Items(), 1)
	assert.Equal(t, 1, tree.ChildTreeCount(), "the sphere assembly is no longer referenced")
	assert.False(t, it.Trace(toSphere, &sp, nil))
	assert.False(t, it.TraceProbe(toSphere, nil))
	for _, item := range tree.Items() {
		assert.NotEqual(t, "spheres", item.Assembly.Name())
	}
}

func TestInstanceTreeSharedAssemblyKeepsTreeWhileReferenced(t *testing.T) {
	s, a, _ := twoAssemblyScene()
	second := s.AddAssemblyInstance(scene.NewAssemblyInstance("quads_inst_2", a.Assembly, scene.NewTransformSequenceAt(core.NewVec3(0, 5, 0))))
	tree := buildTree(t, s)
	assert.Equal(t, 2, tree.ChildTreeCount())

	require.True(t, s.RemoveAssemblyInstance(second))
	require.NoError(t, tree.Update())
	assert.Equal(t, 2, tree.ChildTreeCount())

	require.True(t, s.RemoveAssemblyInstance(a))
	require.NoError(t, tree.Update())
	assert.Equal(t, 1, tree.ChildTreeCount())
}

func TestInstanceTreeAssemblyVersionInvalidatesChildTree(t *testing.T) {
	s, a, _ := twoAssemblyScene()
	tree := buildTree(t, s)
	it := NewIntersector(tree)

	probe := core.NewRay(core.NewVec3(0.2, -0.3, -5), core.NewVec3(0, 0, 1))
	var sp ShadingPoint
	require.True(t, it.Trace(probe, &sp, nil))
	assert.InDelta(t, 5.0, sp.Distance(), 1e-9)
	builds := tree.ChildTreeBuildCount()

	// Add a second quad in front of the first
	assembly := a.Assembly
	quad := assembly.Objects[0]
	assembly.AddObjectInstance(scene.NewObjectInstance("front", quad, core.NewTranslation(core.NewVec3(0, 0, -2))))
	assembly.BumpVersion()
	require.NoError(t, tree.Update())

	require.True(t, it.Trace(probe, &sp, nil))
	assert.InDelta(t, 3.0, sp.Distance(), 1e-9)
	assert.Equal(t, builds+1, tree.ChildTreeBuildCount(), "only the edited assembly is rebuilt")
}

func TestInstanceTreeSeesObjectInstanceAddedAfterUpdate(t *testing.T) {
	s, a, _ := twoAssemblyScene()
	tree := buildTree(t, s)
	it := NewIntersector(tree)

	var sp ShadingPoint
	require.True(t, it.Trace(core.NewRay(core.NewVec3(0.2, -0.3, -5), core.NewVec3(0, 0, 1)), &sp, nil))

	before := a.Assembly.Version()
	quad := a.Assembly.Objects[0]
	a.Assembly.AddObjectInstance(scene.NewObjectInstance("raised", quad, core.NewTranslation(core.NewVec3(0, 20, 0))))
	assert.NotEqual(t, before, a.Assembly.Version())
	require.NoError(t, tree.Update())

	raised := core.NewRay(core.NewVec3(0.2, 20.3, -5), core.NewVec3(0, 0, 1))
	require.True(t, it.Trace(raised, &sp, nil), "added instance is missing from the child tree")
	assert.InDelta(t, 5.0, sp.Distance(), 1e-9)
	assert.Equal(t, 1, sp.ObjectInstanceIndex())
}

func TestInstanceTreeUnsupportedAlgorithmIsAMiss(t *testing.T) {
	s, a, _ := twoAssemblyScene()
	a.Assembly.Params.AccelerationStructure = &config.AccelerationConfig{Algorithm: config.AlgorithmSBVH}
	tree := buildTree(t, s)

	err := tree.BuildChildTrees(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.Contains(t, err.Error(), `assembly "quads"`)

	var sp ShadingPoint
	it := NewIntersector(tree)
	assert.False(t, it.Trace(core.NewRay(core.NewVec3(0.2, -0.3, -5), core.NewVec3(0, 0, 1)), &sp, nil))
	assert.True(t, it.Trace(core.NewRay(core.NewVec3(10, 0, -5), core.NewVec3(0, 0, 1)), &sp, nil))
}

func TestInstanceTreeRejectsInvalidParameters(t *testing.T) {
	cfg := config.Default()
	cfg.AccelerationStructure.MaxLeafSize = 0
	tree := NewInstanceTree(scene.NewCornellScene(), cfg)

	err := tree.Update()
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	assert.Equal(t, TreeUnbuilt, tree.State())
}

func boxContains(outer, inner core.AABB, eps float64) bool {
	for axis := 0; axis < 3; axis++ {
		if inner.Min.Component(axis) < outer.Min.Component(axis)-eps ||
			inner.Max.Component(axis) > outer.Max.Component(axis)+eps {
			return false
		}
	}
	return true
}

func TestInstanceTreeItemBoundsCoverMotion(t *testing.T) {
	tree := buildTree(t, scene.NewInstancedScene())

	for _, item := range tree.Items() {
		local := item.Assembly.ComputeNonHierarchicalLocalBBox()
		// The motion steps sample the shutter at i/7
		for i := 0; i <= 7; i++ {
			time := float64(i) / 7
			box := item.TransformAt(time).LocalToParentBox(local)
			assert.True(t, boxContains(item.BBox, box, 1e-9), "%s at %.3f", item.Instance.Name(), time)
		}
	}
	assert.True(t, tree.Bounds().IsValid())
	assert.Contains(t, tree.Statistics().Table("instances"), "instances")
}
