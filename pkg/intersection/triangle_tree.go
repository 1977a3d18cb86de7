package intersection

import (
	"sync/atomic"
	"time"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/log"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

var logger = log.New("intersection")

// Trees are numbered in build order for log messages
var treeCounter atomic.Uint64

// checkAlgorithm reports ErrNotImplemented for any algorithm other than "bvh".
// An empty name selects "bvh".
func checkAlgorithm(name string) error {
	switch name {
	case "", config.AlgorithmBVH:
		return nil
	case config.AlgorithmSBVH:
		return errors.Wrapf(ErrNotImplemented, "acceleration structure %q", name)
	default:
		return errors.Wrapf(ErrNotImplemented, "unknown acceleration structure %q", name)
	}
}

func algorithmName(name string) string {
	if name == "" {
		return config.AlgorithmBVH
	}
	return name
}

// triangle is stored in assembly space as a vertex and two edges
type triangle struct {
	v0, e1, e2 core.Vec3
}

// intersect is the Möller-Trumbore test; it returns the distance and the weights of v1 and v2
func (tri *triangle) intersect(ray *core.Ray, tMin, tMax float64) (float64, float64, float64, bool) {
	const epsilon = 1e-12

	h := ray.Direction.Cross(tri.e2)
	a := tri.e1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(tri.v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(tri.e1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t := f * tri.e2.Dot(q)
	if t < tMin || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// TriangleTree is the inner tree over every mesh triangle of one assembly, in assembly space
type TriangleTree struct {
	assemblyUID  scene.UniqueID
	assemblyName string
	tree         Tree
	keys         []TriangleKey
	triangles    []triangle
	stats        TreeStatistics
}

// NewTriangleTree collects the mesh triangles of the assembly and builds a tree over them.
// An assembly without triangles yields an empty tree.
func NewTriangleTree(assembly *scene.Assembly, params config.AccelerationConfig) (*TriangleTree, error) {
	if err := checkAlgorithm(params.Algorithm); err != nil {
		return nil, errors.Wrapf(err, "while building triangle tree for assembly %q", assembly.Name())
	}

	id := treeCounter.Add(1)
	logger.Infof("collecting geometry for triangle tree #%d from assembly %q...", id, assembly.Name())

	var keys []TriangleKey
	var triangles []triangle
	var boxes []core.AABB
	for oiIndex, oi := range assembly.ObjectInstances {
		mesh, ok := oi.Object.(*scene.MeshObject)
		if !ok {
			continue
		}
		for i, t := range mesh.Triangles {
			v0, v1, v2 := mesh.TriangleVertices(i)
			v0, v1, v2 = oi.Transform.Point(v0), oi.Transform.Point(v1), oi.Transform.Point(v2)

			// Degenerate triangles can never be hit
			e1, e2 := v1.Subtract(v0), v2.Subtract(v0)
			if e1.Cross(e2).LengthSquared() == 0 {
				continue
			}

			keys = append(keys, TriangleKey{
				ObjectInstanceIndex: uint32(oiIndex),
				TriangleIndex:       uint32(i),
				TrianglePA:          uint16(t.MaterialSlot),
			})
			triangles = append(triangles, triangle{v0: v0, e1: e1, e2: e2})
			boxes = append(boxes, core.NewAABBFromPoints(v0, v1, v2))
		}
	}

	logger.Infof("building triangle tree #%d (%s, %d %s)...",
		id, algorithmName(params.Algorithm), len(triangles), plural(len(triangles), "triangle"))

	start := time.Now()
	tree, ordering := BuildTree(boxes, BuildParamsFromConfig(params))

	t := &TriangleTree{
		assemblyUID:  assembly.UID(),
		assemblyName: assembly.Name(),
		tree:         tree,
		keys:         make([]TriangleKey, len(ordering)),
		triangles:    make([]triangle, len(ordering)),
	}
	for slot, item := range ordering {
		t.keys[slot] = keys[item]
		t.keys[slot].TriangleIndexTree = uint32(slot)
		t.triangles[slot] = triangles[item]
	}

	t.stats = ComputeTreeStatistics(&t.tree, params.InteriorNodeTraversalCost, params.ItemIntersectionCost)
	t.stats.BuildDuration = time.Since(start).String()
	logger.Debugf("triangle tree #%d statistics:\n%s", id, t.stats.Table("triangle tree #"+itoa(id)))

	return t, nil
}

// AssemblyUID returns the uid of the assembly the tree was built from
func (t *TriangleTree) AssemblyUID() scene.UniqueID { return t.assemblyUID }

// AssemblyName returns the name of the assembly the tree was built from
func (t *TriangleTree) AssemblyName() string { return t.assemblyName }

// Tree returns the node hierarchy
func (t *TriangleTree) Tree() *Tree { return &t.tree }

// Len returns the number of triangles stored in the tree
func (t *TriangleTree) Len() int { return len(t.triangles) }

// Keys returns the triangle keys in leaf order
func (t *TriangleTree) Keys() []TriangleKey { return t.keys }

// Statistics returns the statistics computed at build time
func (t *TriangleTree) Statistics() TreeStatistics { return t.stats }

// TriangleHit is the closest triangle found by a TriangleLeafVisitor
type TriangleHit struct {
	Found    bool
	Key      TriangleKey
	Distance float64
	Bary     core.Vec2 // weights of the second and third vertices
}

// primitiveFilter excludes one primitive from intersection, used to avoid self-intersection
type primitiveFilter struct {
	enabled        bool
	objectInstance uint32
	primitive      uint32
}

func (f primitiveFilter) excludes(objectInstance, primitive uint32) bool {
	return f.enabled && f.objectInstance == objectInstance && f.primitive == primitive
}

// TriangleLeafVisitor records the closest triangle hit
type TriangleLeafVisitor struct {
	tree   *TriangleTree
	filter primitiveFilter
	Hit    TriangleHit
}

// NewTriangleLeafVisitor creates a closest-hit visitor over tree
func NewTriangleLeafVisitor(tree *TriangleTree) *TriangleLeafVisitor {
	return &TriangleLeafVisitor{tree: tree}
}

// Visit tests every triangle of the leaf and shrinks distance on closer hits
func (v *TriangleLeafVisitor) Visit(node *Node, ray *core.Ray, distance *float64) bool {
	end := node.ItemIndex() + node.ItemCount()
	for i := node.ItemIndex(); i < end; i++ {
		key := &v.tree.keys[i]
		if v.filter.excludes(key.ObjectInstanceIndex, key.TriangleIndex) {
			continue
		}
		t, b1, b2, ok := v.tree.triangles[i].intersect(ray, ray.TMin, *distance)
		if !ok {
			continue
		}
		*distance = t
		v.Hit = TriangleHit{Found: true, Key: *key, Distance: t, Bary: core.NewVec2(b1, b2)}
	}
	return true
}

// TriangleLeafProbeVisitor stops at the first triangle hit
type TriangleLeafProbeVisitor struct {
	tree   *TriangleTree
	filter primitiveFilter
	Hit    bool
}

// NewTriangleLeafProbeVisitor creates an any-hit visitor over tree
func NewTriangleLeafProbeVisitor(tree *TriangleTree) *TriangleLeafProbeVisitor {
	return &TriangleLeafProbeVisitor{tree: tree}
}

// Visit returns false as soon as a triangle of the leaf is hit
func (v *TriangleLeafProbeVisitor) Visit(node *Node, ray *core.Ray, distance *float64) bool {
	end := node.ItemIndex() + node.ItemCount()
	for i := node.ItemIndex(); i < end; i++ {
		key := &v.tree.keys[i]
		if v.filter.excludes(key.ObjectInstanceIndex, key.TriangleIndex) {
			continue
		}
		if _, _, _, ok := v.tree.triangles[i].intersect(ray, ray.TMin, *distance); ok {
			v.Hit = true
			return false
		}
	}
	return true
}
