package intersection

import (
	"time"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

// patch is an analytic surface together with its object instance transform
type patch struct {
	object    scene.SurfaceObject
	transform core.Transform
	static    bool // identity transform, rays are used as is
}

func (p *patch) intersect(ray *core.Ray, tMin, tMax float64) (float64, core.Vec2, bool) {
	if p.static {
		return intersectSurface(p.object, ray, tMin, tMax)
	}
	local := p.transform.ParentToLocalRay(*ray)
	return intersectSurface(p.object, &local, tMin, tMax)
}

// PatchTree is the inner tree over the procedural surfaces of one assembly
type PatchTree struct {
	assemblyUID  scene.UniqueID
	assemblyName string
	tree         Tree
	keys         []PatchKey
	patches      []patch
	stats        TreeStatistics
}

// NewPatchTree collects the sphere, rect and disk objects instanced by the assembly and builds a tree over them
func NewPatchTree(assembly *scene.Assembly, params config.AccelerationConfig) (*PatchTree, error) {
	if err := checkAlgorithm(params.Algorithm); err != nil {
		return nil, errors.Wrapf(err, "while building patch tree for assembly %q", assembly.Name())
	}

	id := treeCounter.Add(1)
	logger.Infof("collecting geometry for patch tree #%d from assembly %q...", id, assembly.Name())

	var keys []PatchKey
	var patches []patch
	var boxes []core.AABB
	for oiIndex, oi := range assembly.ObjectInstances {
		surface, ok := oi.Object.(scene.SurfaceObject)
		if !ok {
			continue
		}
		keys = append(keys, PatchKey{
			ObjectInstanceIndex: uint32(oiIndex),
			PatchPA:             uint16(surface.MaterialSlot()),
			Type:                patchTypeOf(surface.Kind()),
		})
		patches = append(patches, patch{object: surface, transform: oi.Transform, static: oi.Transform.IsIdentity()})
		boxes = append(boxes, oi.ParentBBox())
	}

	logger.Infof("building patch tree #%d (%s, %d %s)...",
		id, algorithmName(params.Algorithm), len(patches), plural(len(patches), "patch"))

	start := time.Now()
	tree, ordering := BuildTree(boxes, BuildParamsFromConfig(params))

	t := &PatchTree{
		assemblyUID:  assembly.UID(),
		assemblyName: assembly.Name(),
		tree:         tree,
		keys:         make([]PatchKey, len(ordering)),
		patches:      make([]patch, len(ordering)),
	}
	for slot, item := range ordering {
		t.keys[slot] = keys[item]
		t.keys[slot].PatchIndexTree = uint32(slot)
		t.patches[slot] = patches[item]
	}

	t.stats = ComputeTreeStatistics(&t.tree, params.InteriorNodeTraversalCost, params.ItemIntersectionCost)
	t.stats.BuildDuration = time.Since(start).String()
	logger.Debugf("patch tree #%d statistics:\n%s", id, t.stats.Table("patch tree #"+itoa(id)))

	return t, nil
}

// AssemblyUID returns the uid of the assembly the tree was built from
func (t *PatchTree) AssemblyUID() scene.UniqueID { return t.assemblyUID }

// AssemblyName returns the name of the assembly the tree was built from
func (t *PatchTree) AssemblyName() string { return t.assemblyName }

// Tree returns the node hierarchy
func (t *PatchTree) Tree() *Tree { return &t.tree }

// Len returns the number of patches
func (t *PatchTree) Len() int { return len(t.patches) }

// Keys returns the patch keys in leaf order
func (t *PatchTree) Keys() []PatchKey { return t.keys }

// Statistics returns the statistics computed at build time
func (t *PatchTree) Statistics() TreeStatistics { return t.stats }

// PatchHit is the closest patch found by a PatchLeafVisitor
type PatchHit struct {
	Found    bool
	Key      PatchKey
	Distance float64
	Bary     core.Vec2 // surface parameters of the hit point
}

// PatchLeafVisitor records the closest patch hit
type PatchLeafVisitor struct {
	tree   *PatchTree
	filter primitiveFilter
	Hit    PatchHit
}

// NewPatchLeafVisitor creates a closest-hit visitor over tree
func NewPatchLeafVisitor(tree *PatchTree) *PatchLeafVisitor {
	return &PatchLeafVisitor{tree: tree}
}

func (v *PatchLeafVisitor) Visit(node *Node, ray *core.Ray, distance *float64) bool {
	end := node.ItemIndex() + node.ItemCount()
	for i := node.ItemIndex(); i < end; i++ {
		key := &v.tree.keys[i]
		if v.filter.excludes(key.ObjectInstanceIndex, key.PatchIndex) {
			continue
		}
		t, bary, ok := v.tree.patches[i].intersect(ray, ray.TMin, *distance)
		if !ok {
			continue
		}
		*distance = t
		v.Hit = PatchHit{Found: true, Key: *key, Distance: t, Bary: bary}
	}
	return true
}

// PatchLeafProbeVisitor stops at the first patch hit
type PatchLeafProbeVisitor struct {
	tree   *PatchTree
	filter primitiveFilter
	Hit    bool
}

// NewPatchLeafProbeVisitor creates an any-hit visitor over tree
func NewPatchLeafProbeVisitor(tree *PatchTree) *PatchLeafProbeVisitor {
	return &PatchLeafProbeVisitor{tree: tree}
}

func (v *PatchLeafProbeVisitor) Visit(node *Node, ray *core.Ray, distance *float64) bool {
	end := node.ItemIndex() + node.ItemCount()
	for i := node.ItemIndex(); i < end; i++ {
		key := &v.tree.keys[i]
		if v.filter.excludes(key.ObjectInstanceIndex, key.PatchIndex) {
			continue
		}
		if _, _, ok := v.tree.patches[i].intersect(ray, ray.TMin, *distance); ok {
			v.Hit = true
			return false
		}
	}
	return true
}
