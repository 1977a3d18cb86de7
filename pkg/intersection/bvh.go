// Package intersection implements the two-level ray intersection kernel: an outer tree over
// flattened assembly instances whose leaves descend into per-assembly triangle and patch trees.
package intersection

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Number of centroid bins evaluated per axis by the SAH builder
const sahBins = 16

// BuildParams controls the SAH builder
type BuildParams struct {
	MaxLeafSize       int
	InteriorCost      float64
	ItemCost          float64
	ParallelThreshold int // nodes with at least this many items score their axes concurrently; 0 disables
}

// BuildParamsFromConfig extracts builder parameters from an acceleration structure section
func BuildParamsFromConfig(cfg config.AccelerationConfig) BuildParams {
	return BuildParams{
		MaxLeafSize:       max(1, cfg.MaxLeafSize),
		InteriorCost:      cfg.InteriorNodeTraversalCost,
		ItemCost:          cfg.ItemIntersectionCost,
		ParallelThreshold: cfg.ParallelBuildThreshold,
	}
}

// Node is an entry of the flat node arena. Interior nodes store the index of their left child;
// the right child immediately follows it. Leaves store a contiguous range of items.
type Node struct {
	BBox  core.AABB
	leaf  bool
	index int
	count int
}

// IsLeaf reports whether the node stores items
func (n *Node) IsLeaf() bool { return n.leaf }

// ItemIndex returns the first item of a leaf
func (n *Node) ItemIndex() int { return n.index }

// ItemCount returns the number of items of a leaf
func (n *Node) ItemCount() int { return n.count }

// LeftChild returns the arena index of the left child of an interior node
func (n *Node) LeftChild() int { return n.index }

// RightChild returns the arena index of the right child of an interior node
func (n *Node) RightChild() int { return n.index + 1 }

// Tree is a bounding volume hierarchy stored as a flat node arena; node 0 is the root
type Tree struct {
	Nodes []Node
}

// Empty reports whether the tree has no nodes
func (t *Tree) Empty() bool {
	return len(t.Nodes) == 0
}

// Bounds returns the root bounding box, or an empty box
func (t *Tree) Bounds() core.AABB {
	if t.Empty() {
		return core.EmptyAABB()
	}
	return t.Nodes[0].BBox
}

// BuildTree builds a tree over the item boxes. The returned ordering maps leaf slots to input
// indices: leaf item i refers to boxes[ordering[i]].
func BuildTree(boxes []core.AABB, params BuildParams) (Tree, []int) {
	if len(boxes) == 0 {
		return Tree{}, nil
	}
	if params.MaxLeafSize < 1 {
		params.MaxLeafSize = 1
	}
	if params.ItemCost <= 0 {
		params.ItemCost = 1
	}

	b := &builder{
		boxes:     boxes,
		centroids: make([]core.Vec3, len(boxes)),
		order:     make([]int, len(boxes)),
		params:    params,
		nodes:     make([]Node, 1, 2*len(boxes)/params.MaxLeafSize+1),
	}
	for i, box := range boxes {
		b.centroids[i] = box.Center()
		b.order[i] = i
	}

	b.build(0, 0, len(boxes))
	return Tree{Nodes: b.nodes}, b.order
}

type builder struct {
	boxes     []core.AABB
	centroids []core.Vec3
	order     []int
	nodes     []Node
	params    BuildParams
}

type splitCandidate struct {
	axis  int
	bin   int
	cost  float64
	valid bool
}

func (b *builder) build(nodeIndex, begin, end int) {
	bbox := core.EmptyAABB()
	centroidBox := core.EmptyAABB()
	for _, item := range b.order[begin:end] {
		bbox = bbox.Union(b.boxes[item])
		centroidBox = centroidBox.Insert(b.centroids[item])
	}

	count := end - begin
	b.nodes[nodeIndex].BBox = bbox
	if count <= 1 {
		b.makeLeaf(nodeIndex, begin, count)
		return
	}

	split := b.findSplit(begin, end, bbox, centroidBox)
	leafCost := b.params.ItemCost * float64(count)
	if count <= b.params.MaxLeafSize && (!split.valid || leafCost <= split.cost) {
		b.makeLeaf(nodeIndex, begin, count)
		return
	}

	mid := begin + count/2
	if split.valid {
		mid = b.partition(begin, end, split, centroidBox)
		if mid == begin || mid == end {
			mid = begin + count/2
		}
	}

	child := len(b.nodes)
	b.nodes = append(b.nodes, Node{}, Node{})
	b.nodes[nodeIndex].index = child

	b.build(child, begin, mid)
	b.build(child+1, mid, end)
}

func (b *builder) makeLeaf(nodeIndex, begin, count int) {
	node := &b.nodes[nodeIndex]
	node.leaf = true
	node.index = begin
	node.count = count
}

func (b *builder) findSplit(begin, end int, bbox, centroidBox core.AABB) splitCandidate {
	var results [3]splitCandidate

	if b.params.ParallelThreshold > 0 && end-begin >= b.params.ParallelThreshold {
		var g errgroup.Group
		for axis := 0; axis < 3; axis++ {
			g.Go(func() error {
				results[axis] = b.evaluateAxis(axis, begin, end, bbox, centroidBox)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for axis := 0; axis < 3; axis++ {
			results[axis] = b.evaluateAxis(axis, begin, end, bbox, centroidBox)
		}
	}

	best := splitCandidate{cost: math.Inf(1)}
	for _, candidate := range results {
		if candidate.valid && candidate.cost < best.cost {
			best = candidate
		}
	}
	return best
}

func binIndex(c, min, extent float64) int {
	i := int(sahBins * (c - min) / extent)
	if i >= sahBins {
		i = sahBins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (b *builder) evaluateAxis(axis, begin, end int, bbox, centroidBox core.AABB) splitCandidate {
	min := centroidBox.Min.Component(axis)
	extent := centroidBox.Max.Component(axis) - min
	if extent <= 0 {
		return splitCandidate{}
	}

	var counts [sahBins]int
	var boxes [sahBins]core.AABB
	for i := range boxes {
		boxes[i] = core.EmptyAABB()
	}
	for _, item := range b.order[begin:end] {
		i := binIndex(b.centroids[item].Component(axis), min, extent)
		counts[i]++
		boxes[i] = boxes[i].Union(b.boxes[item])
	}

	// Sweep from the right to accumulate the suffix areas
	var rightArea [sahBins]float64
	var rightCount [sahBins]int
	acc := core.EmptyAABB()
	n := 0
	for i := sahBins - 1; i > 0; i-- {
		acc = acc.Union(boxes[i])
		n += counts[i]
		rightArea[i] = acc.SurfaceArea()
		rightCount[i] = n
	}

	parentArea := bbox.SurfaceArea()
	best := splitCandidate{axis: axis, cost: math.Inf(1)}
	acc = core.EmptyAABB()
	n = 0
	for i := 0; i < sahBins-1; i++ {
		acc = acc.Union(boxes[i])
		n += counts[i]
		if n == 0 || rightCount[i+1] == 0 {
			continue
		}

		var cost float64
		if parentArea > 0 {
			cost = b.params.InteriorCost + b.params.ItemCost*
				(float64(n)*acc.SurfaceArea()+float64(rightCount[i+1])*rightArea[i+1])/parentArea
		} else {
			cost = b.params.InteriorCost + b.params.ItemCost*float64(max(n, rightCount[i+1]))
		}

		if cost < best.cost {
			best = splitCandidate{axis: axis, bin: i, cost: cost, valid: true}
		}
	}
	return best
}

func (b *builder) partition(begin, end int, split splitCandidate, centroidBox core.AABB) int {
	min := centroidBox.Min.Component(split.axis)
	extent := centroidBox.Max.Component(split.axis) - min

	i := begin
	for j := begin; j < end; j++ {
		item := b.order[j]
		if binIndex(b.centroids[item].Component(split.axis), min, extent) <= split.bin {
			b.order[i], b.order[j] = b.order[j], b.order[i]
			i++
		}
	}
	return i
}

// Visitor receives the leaves reached by a traversal. Visit may shrink distance when it
// records a closer hit and returns false to stop the traversal.
type Visitor interface {
	Visit(node *Node, ray *core.Ray, distance *float64) bool
}

// TraversalStatistics counts the work done by traversals
type TraversalStatistics struct {
	Traversals      uint64
	VisitedInterior uint64
	VisitedLeaves   uint64
}

// Add accumulates other into s
func (s *TraversalStatistics) Add(other TraversalStatistics) {
	s.Traversals += other.Traversals
	s.VisitedInterior += other.VisitedInterior
	s.VisitedLeaves += other.VisitedLeaves
}

type stackEntry struct {
	node  int
	tNear float64
}

// Traverse walks the tree front to back along the ray and hands every reached leaf to the visitor.
// The search interval is [ray.TMin, ray.TMax) narrowed by the visitor. stats may be nil.
func Traverse[V Visitor](tree *Tree, ray *core.Ray, visitor V, stats *TraversalStatistics) {
	if tree.Empty() {
		return
	}
	if stats != nil {
		stats.Traversals++
	}

	distance := ray.TMax
	tNear, _, ok := tree.Nodes[0].BBox.Intersect(*ray, ray.TMin, distance)
	if !ok {
		return
	}

	var storage [64]stackEntry
	stack := append(storage[:0], stackEntry{node: 0, tNear: tNear})

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if entry.tNear > distance {
			continue
		}

		node := &tree.Nodes[entry.node]
		if node.leaf {
			if stats != nil {
				stats.VisitedLeaves++
			}
			if !visitor.Visit(node, ray, &distance) {
				return
			}
			continue
		}

		if stats != nil {
			stats.VisitedInterior++
		}

		left := node.LeftChild()
		right := node.RightChild()
		tl, _, hitLeft := tree.Nodes[left].BBox.Intersect(*ray, ray.TMin, distance)
		tr, _, hitRight := tree.Nodes[right].BBox.Intersect(*ray, ray.TMin, distance)

		switch {
		case hitLeft && hitRight:
			// Push the far child first so the near child is visited next
			if tl <= tr {
				stack = append(stack, stackEntry{right, tr}, stackEntry{left, tl})
			} else {
				stack = append(stack, stackEntry{left, tl}, stackEntry{right, tr})
			}
		case hitLeft:
			stack = append(stack, stackEntry{left, tl})
		case hitRight:
			stack = append(stack, stackEntry{right, tr})
		}
	}
}
