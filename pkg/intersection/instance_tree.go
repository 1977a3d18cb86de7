package intersection

import (
	"context"
	"time"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

// TreeState is the lifecycle state of an InstanceTree
type TreeState int

const (
	TreeUnbuilt TreeState = iota
	TreeBuilt
	TreeStale
	TreeRebuilding
)

func (s TreeState) String() string {
	switch s {
	case TreeUnbuilt:
		return "unbuilt"
	case TreeBuilt:
		return "built"
	case TreeStale:
		return "stale"
	case TreeRebuilding:
		return "rebuilding"
	}
	return "unknown"
}

// Item is one flattened assembly instance stored in a leaf of the instance tree
type Item struct {
	scene.FlatInstance
	BBox    core.AABB // world-space bounds over the shutter interval
	version scene.VersionID
	static  bool
	xf      core.Transform // assembly to world when static
}

// TransformAt returns the assembly to world transform at the given time
func (it *Item) TransformAt(t float64) core.Transform {
	if it.static {
		return it.xf
	}
	return it.TransformSequence.Evaluate(t)
}

// AssemblyVersionMap records the version of every referenced assembly at the last update
type AssemblyVersionMap map[scene.UniqueID]scene.VersionID

// InstanceTree is the outer tree over every flattened assembly instance of a scene. Child trees
// are built lazily per assembly and reached through bounded access caches shared by all
// intersectors. The tree is updated between frames and is read-only while rendering.
type InstanceTree struct {
	scene       *scene.Scene
	params      config.AccelerationConfig
	cacheParams config.AccessCacheConfig

	state     TreeState
	tree      Tree
	items     []Item // leaf order
	collected []Item // collection order, compared on update
	versions  AssemblyVersionMap
	stats     TreeStatistics
	rebuilds  int

	triangleTrees *TreeRepository[*TriangleTree]
	patchTrees    *TreeRepository[*PatchTree]
	triangleCache *AccessCache[*TriangleTree]
	patchCache    *AccessCache[*PatchTree]
}

// NewInstanceTree creates an unbuilt instance tree for the scene; call Update before tracing
func NewInstanceTree(s *scene.Scene, cfg *config.Config) *InstanceTree {
	if cfg == nil {
		cfg = config.Default()
	}
	return &InstanceTree{
		scene:         s,
		params:        cfg.AccelerationStructure,
		cacheParams:   cfg.AccessCache,
		versions:      make(AssemblyVersionMap),
		triangleTrees: NewTreeRepository[*TriangleTree](),
		patchTrees:    NewTreeRepository[*PatchTree](),
		triangleCache: NewAccessCache[*TriangleTree](cfg.AccessCache.Lines, cfg.AccessCache.Ways),
		patchCache:    NewAccessCache[*PatchTree](cfg.AccessCache.Lines, cfg.AccessCache.Ways),
	}
}

// State returns the lifecycle state
func (t *InstanceTree) State() TreeState { return t.state }

// Items returns the items in leaf order
func (t *InstanceTree) Items() []Item { return t.items }

// Tree returns the outer node hierarchy
func (t *InstanceTree) Tree() *Tree { return &t.tree }

// Bounds returns the world bounds of the scene geometry
func (t *InstanceTree) Bounds() core.AABB { return t.tree.Bounds() }

// RebuildCount returns how many times the outer hierarchy was built
func (t *InstanceTree) RebuildCount() int { return t.rebuilds }

// ChildTreeCount returns the number of registered triangle and patch trees
func (t *InstanceTree) ChildTreeCount() int {
	return t.triangleTrees.Len() + t.patchTrees.Len()
}

// ChildTreeBuildCount returns the number of child tree builds run so far
func (t *InstanceTree) ChildTreeBuildCount() int {
	return t.triangleTrees.BuildCount() + t.patchTrees.BuildCount()
}

// Statistics returns the statistics of the outer hierarchy
func (t *InstanceTree) Statistics() TreeStatistics { return t.stats }

// TriangleTrees returns the triangle trees built so far
func (t *InstanceTree) TriangleTrees() []*TriangleTree { return t.triangleTrees.Built() }

// PatchTrees returns the patch trees built so far
func (t *InstanceTree) PatchTrees() []*PatchTree { return t.patchTrees.Built() }

// CacheStatistics returns the combined hit and miss counts of the child tree caches
func (t *InstanceTree) CacheStatistics() (hits, misses uint64) {
	return t.triangleCache.Hits() + t.patchCache.Hits(), t.triangleCache.Misses() + t.patchCache.Misses()
}

// NeedsUpdate reports whether the scene changed since the last update and marks a built tree stale
func (t *InstanceTree) NeedsUpdate() bool {
	items := t.collectAssemblyInstances()
	changed := t.state == TreeUnbuilt || t.hasChanged(items, collectAssemblyVersions(items))
	if changed && t.state == TreeBuilt {
		t.state = TreeStale
	}
	return changed
}

// Update synchronizes the tree with the scene. Child trees of assemblies that are no longer
// referenced are deleted, those of modified assemblies are invalidated and rebuilt on next
// access, and the outer hierarchy is rebuilt when anything changed. Calling Update again without
// scene changes does nothing.
func (t *InstanceTree) Update() error {
	if t.scene == nil {
		return errors.New("intersection: instance tree has no scene")
	}
	if err := t.params.Validate(); err != nil {
		return errors.Wrap(err, "while updating instance tree")
	}

	items := t.collectAssemblyInstances()
	versions := collectAssemblyVersions(items)
	if t.state != TreeUnbuilt && !t.hasChanged(items, versions) {
		t.state = TreeBuilt
		return nil
	}

	t.state = TreeRebuilding
	t.deleteUnusedChildTrees(versions)
	t.createChildTrees(items, versions)
	t.rebuildInstanceTree(items)
	t.versions = versions

	// Cached handles may refer to invalidated trees
	t.triangleCache.Clear()
	t.patchCache.Clear()

	t.state = TreeBuilt
	return nil
}

// BuildChildTrees eagerly builds every registered child tree with up to workers goroutines.
// It returns the first build failure, such as an unsupported acceleration structure.
func (t *InstanceTree) BuildChildTrees(ctx context.Context, workers int) error {
	if err := t.triangleTrees.BuildAll(ctx, workers); err != nil {
		return err
	}
	return t.patchTrees.BuildAll(ctx, workers)
}

func (t *InstanceTree) collectAssemblyInstances() []Item {
	steps := t.params.MotionSteps
	var items []Item
	for _, flat := range t.scene.FlattenAssemblyInstances() {
		bbox := flat.TransformSequence.ToParent(flat.Assembly.ComputeNonHierarchicalLocalBBox(), steps)
		if !bbox.IsValid() {
			// Assemblies that only group other assemblies have no geometry of their own
			continue
		}

		var version scene.VersionID
		for _, ai := range flat.Path {
			version += ai.Version()
		}

		item := Item{FlatInstance: flat, BBox: bbox, version: version, static: flat.TransformSequence.IsStatic()}
		if item.static {
			item.xf = flat.TransformSequence.Evaluate(0)
		}
		items = append(items, item)
	}
	return items
}

func collectAssemblyVersions(items []Item) AssemblyVersionMap {
	versions := make(AssemblyVersionMap, len(items))
	for i := range items {
		a := items[i].Assembly
		versions[a.UID()] = a.Version()
	}
	return versions
}

func (t *InstanceTree) hasChanged(items []Item, versions AssemblyVersionMap) bool {
	if len(items) != len(t.collected) || len(versions) != len(t.versions) {
		return true
	}
	for uid, version := range versions {
		if previous, ok := t.versions[uid]; !ok || previous != version {
			return true
		}
	}
	for i := range items {
		a, b := &items[i], &t.collected[i]
		if a.ID != b.ID || a.Assembly != b.Assembly || a.version != b.version || !a.BBox.Equal(b.BBox) {
			return true
		}
	}
	return false
}

func (t *InstanceTree) deleteUnusedChildTrees(versions AssemblyVersionMap) {
	for uid := range t.versions {
		if _, ok := versions[uid]; !ok {
			t.triangleTrees.Delete(uid)
			t.patchTrees.Delete(uid)
			logger.Debugf("deleted child trees of assembly #%d", uid)
		}
	}
}

func (t *InstanceTree) createChildTrees(items []Item, versions AssemblyVersionMap) {
	seen := make(map[scene.UniqueID]bool, len(versions))
	for i := range items {
		assembly := items[i].Assembly
		uid := assembly.UID()
		if seen[uid] {
			continue
		}
		seen[uid] = true

		previous, known := t.versions[uid]
		if known && previous == versions[uid] && t.isRegistered(uid) {
			continue
		}
		t.registerChildTrees(assembly)
	}
}

func (t *InstanceTree) isRegistered(uid scene.UniqueID) bool {
	return t.triangleTrees.Contains(uid) || t.patchTrees.Contains(uid)
}

func (t *InstanceTree) registerChildTrees(assembly *scene.Assembly) {
	uid := assembly.UID()
	params := t.params.Merge(assembly.Params.AccelerationStructure)

	var meshes, surfaces bool
	for _, oi := range assembly.ObjectInstances {
		switch oi.Object.(type) {
		case *scene.MeshObject:
			meshes = true
		case scene.SurfaceObject:
			surfaces = true
		}
	}

	t.triangleTrees.Delete(uid)
	t.patchTrees.Delete(uid)

	if meshes {
		t.triangleTrees.Register(uid, func() (*TriangleTree, error) {
			tree, err := NewTriangleTree(assembly, params)
			if err != nil {
				logger.Error(err)
			}
			return tree, err
		})
	}
	if surfaces {
		t.patchTrees.Register(uid, func() (*PatchTree, error) {
			tree, err := NewPatchTree(assembly, params)
			if err != nil {
				logger.Error(err)
			}
			return tree, err
		})
	}
}

func (t *InstanceTree) rebuildInstanceTree(items []Item) {
	logger.Infof("building instance tree (%s, %d %s)...",
		algorithmName(t.params.Algorithm), len(items), plural(len(items), "assembly instance"))

	start := time.Now()
	boxes := make([]core.AABB, len(items))
	for i := range items {
		boxes[i] = items[i].BBox
	}
	tree, ordering := BuildTree(boxes, BuildParamsFromConfig(t.params))

	// Store items in leaf order so that leaves index them directly
	leafItems := make([]Item, len(ordering))
	for slot, index := range ordering {
		leafItems[slot] = items[index]
	}

	t.tree = tree
	t.items = leafItems
	t.collected = items
	t.rebuilds++

	t.stats = ComputeTreeStatistics(&t.tree, t.params.InteriorNodeTraversalCost, t.params.ItemIntersectionCost)
	t.stats.BuildDuration = time.Since(start).String()
	logger.Debugf("instance tree statistics:\n%s", t.stats.Table("instance tree"))
}

func (t *InstanceTree) triangleTree(uid scene.UniqueID) *TriangleTree {
	tree, err := t.triangleCache.Get(uid, t.triangleTrees.Acquire)
	if err != nil {
		return nil
	}
	return tree
}

func (t *InstanceTree) patchTree(uid scene.UniqueID) *PatchTree {
	tree, err := t.patchCache.Get(uid, t.patchTrees.Acquire)
	if err != nil {
		return nil
	}
	return tree
}
