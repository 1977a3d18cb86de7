package intersection

import (
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// IntersectorStatistics counts the queries of one intersector
type IntersectorStatistics struct {
	Rays      uint64
	Hits      uint64
	ProbeRays uint64
	ProbeHits uint64
	Instance  TraversalStatistics
	Triangle  TraversalStatistics
	Patch     TraversalStatistics
}

// Add accumulates other into s
func (s *IntersectorStatistics) Add(other IntersectorStatistics) {
	s.Rays += other.Rays
	s.Hits += other.Hits
	s.ProbeRays += other.ProbeRays
	s.ProbeHits += other.ProbeHits
	s.Instance.Add(other.Instance)
	s.Triangle.Add(other.Triangle)
	s.Patch.Add(other.Patch)
}

// Intersector answers ray queries against an instance tree. An intersector is not safe for
// concurrent use; each worker owns one while sharing the tree.
type Intersector struct {
	tree  *InstanceTree
	stats IntersectorStatistics
}

// NewIntersector creates an intersector over a built instance tree
func NewIntersector(tree *InstanceTree) *Intersector {
	return &Intersector{tree: tree}
}

// Statistics returns the counters accumulated by this intersector
func (it *Intersector) Statistics() IntersectorStatistics { return it.stats }

// Trace finds the closest hit along the ray in [ray.TMin, ray.TMax) and stores it in sp.
// When parent is a hit, its primitive is ignored so that rays leaving a surface do not hit it again.
func (it *Intersector) Trace(ray core.Ray, sp *ShadingPoint, parent *ShadingPoint) bool {
	it.stats.Rays++
	sp.Clear()
	sp.ray = ray

	visitor := &InstanceLeafVisitor{tree: it.tree, result: sp, parent: parent, stats: &it.stats}
	Traverse(&it.tree.tree, &ray, visitor, &it.stats.Instance)

	if sp.Hit() {
		it.stats.Hits++
		return true
	}
	return false
}

// TraceProbe reports whether anything blocks the ray in [ray.TMin, ray.TMax)
func (it *Intersector) TraceProbe(ray core.Ray, parent *ShadingPoint) bool {
	it.stats.ProbeRays++

	visitor := &InstanceLeafProbeVisitor{tree: it.tree, parent: parent, stats: &it.stats}
	Traverse(&it.tree.tree, &ray, visitor, &it.stats.Instance)

	if visitor.hit {
		it.stats.ProbeHits++
	}
	return visitor.hit
}

// MakeTriangleShadingPoint fills sp for a point on a mesh triangle, see the package function
func (it *Intersector) MakeTriangleShadingPoint(sp *ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
	objectInstanceIndex, triangleIndex int, point, direction core.Vec3, bary core.Vec2, time float64) {
	MakeTriangleShadingPoint(sp, instance, transform, objectInstanceIndex, triangleIndex, point, direction, bary, time)
}

// MakeProceduralSurfaceShadingPoint fills sp for a point on a procedural surface, see the package function
func (it *Intersector) MakeProceduralSurfaceShadingPoint(sp *ShadingPoint, instance *scene.FlatInstance, transform core.Transform,
	objectInstanceIndex int, point, direction core.Vec3, time float64) {
	MakeProceduralSurfaceShadingPoint(sp, instance, transform, objectInstanceIndex, point, direction, time)
}

// filtersFor returns the primitive filters excluding parent's primitive inside the item
func filtersFor(parent *ShadingPoint, item *Item) (triangles, patches primitiveFilter) {
	if parent == nil || !parent.Hit() || parent.InstanceID() != item.ID {
		return
	}
	f := primitiveFilter{
		enabled:        true,
		objectInstance: uint32(parent.objectInstanceIndex),
		primitive:      uint32(parent.primitiveIndex),
	}
	if parent.primitive == PrimitiveTriangle {
		return f, primitiveFilter{}
	}
	return primitiveFilter{}, f
}

// InstanceLeafVisitor descends into the child trees of the items of each reached leaf and keeps the closest hit
type InstanceLeafVisitor struct {
	tree   *InstanceTree
	result *ShadingPoint
	parent *ShadingPoint
	stats  *IntersectorStatistics
}

func (v *InstanceLeafVisitor) Visit(node *Node, ray *core.Ray, distance *float64) bool {
	end := node.ItemIndex() + node.ItemCount()
	for i := node.ItemIndex(); i < end; i++ {
		item := &v.tree.items[i]
		uid := item.Assembly.UID()
		xf := item.TransformAt(ray.Time)

		local := xf.ParentToLocalRay(*ray)
		local.TMax = *distance
		triangleFilter, patchFilter := filtersFor(v.parent, item)

		if tt := v.tree.triangleTree(uid); tt != nil {
			tv := &TriangleLeafVisitor{tree: tt, filter: triangleFilter}
			Traverse(&tt.tree, &local, tv, &v.stats.Triangle)
			if tv.Hit.Found {
				*distance = tv.Hit.Distance
				local.TMax = *distance
				v.result.setHit(*ray, tv.Hit.Distance, PrimitiveTriangle, tv.Hit.Bary, &item.FlatInstance, xf,
					int(tv.Hit.Key.ObjectInstanceIndex), int(tv.Hit.Key.TriangleIndex))
			}
		}

		if pt := v.tree.patchTree(uid); pt != nil {
			pv := &PatchLeafVisitor{tree: pt, filter: patchFilter}
			Traverse(&pt.tree, &local, pv, &v.stats.Patch)
			if pv.Hit.Found {
				*distance = pv.Hit.Distance
				v.result.setHit(*ray, pv.Hit.Distance, PrimitiveProceduralSurface, pv.Hit.Bary, &item.FlatInstance, xf,
					int(pv.Hit.Key.ObjectInstanceIndex), int(pv.Hit.Key.PatchIndex))
			}
		}
	}
	return true
}

// InstanceLeafProbeVisitor stops the outer traversal at the first occluder
type InstanceLeafProbeVisitor struct {
	tree   *InstanceTree
	parent *ShadingPoint
	stats  *IntersectorStatistics
	hit    bool
}

func (v *InstanceLeafProbeVisitor) Visit(node *Node, ray *core.Ray, distance *float64) bool {
	end := node.ItemIndex() + node.ItemCount()
	for i := node.ItemIndex(); i < end; i++ {
		item := &v.tree.items[i]
		uid := item.Assembly.UID()
		local := item.TransformAt(ray.Time).ParentToLocalRay(*ray)
		local.TMax = *distance
		triangleFilter, patchFilter := filtersFor(v.parent, item)

		if tt := v.tree.triangleTree(uid); tt != nil {
			tv := &TriangleLeafProbeVisitor{tree: tt, filter: triangleFilter}
			Traverse(&tt.tree, &local, tv, &v.stats.Triangle)
			if tv.Hit {
				v.hit = true
				return false
			}
		}

		if pt := v.tree.patchTree(uid); pt != nil {
			pv := &PatchLeafProbeVisitor{tree: pt, filter: patchFilter}
			Traverse(&pt.tree, &local, pv, &v.stats.Patch)
			if pv.Hit {
				v.hit = true
				return false
			}
		}
	}
	return true
}
