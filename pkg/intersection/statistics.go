package intersection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// TreeStatistics summarises the shape of a tree
type TreeStatistics struct {
	Items         int
	Nodes         int
	Leaves        int
	MaxDepth      int
	AverageDepth  float64
	MinLeafSize   int
	MaxLeafSize   int
	AverageFill   float64
	SAHCost       float64
	RootSurface   float64
	BuildDuration string
}

// ComputeTreeStatistics walks the tree and measures it using the given SAH costs
func ComputeTreeStatistics(tree *Tree, interiorCost, itemCost float64) TreeStatistics {
	stats := TreeStatistics{Nodes: len(tree.Nodes)}
	if tree.Empty() {
		return stats
	}

	rootArea := tree.Nodes[0].BBox.SurfaceArea()
	stats.RootSurface = rootArea
	stats.MinLeafSize = int(^uint(0) >> 1)

	var depthSum int
	var walk func(index, depth int)
	walk = func(index, depth int) {
		node := &tree.Nodes[index]
		weight := 1.0
		if rootArea > 0 {
			weight = node.BBox.SurfaceArea() / rootArea
		}

		if node.IsLeaf() {
			stats.Leaves++
			stats.Items += node.ItemCount()
			stats.MinLeafSize = min(stats.MinLeafSize, node.ItemCount())
			stats.MaxLeafSize = max(stats.MaxLeafSize, node.ItemCount())
			stats.MaxDepth = max(stats.MaxDepth, depth)
			stats.SAHCost += weight * itemCost * float64(node.ItemCount())
			depthSum += depth
			return
		}

		stats.SAHCost += weight * interiorCost
		walk(node.LeftChild(), depth+1)
		walk(node.RightChild(), depth+1)
	}
	walk(0, 0)

	if stats.Leaves > 0 {
		stats.AverageDepth = float64(depthSum) / float64(stats.Leaves)
		stats.AverageFill = float64(stats.Items) / float64(stats.Leaves)
	}
	return stats
}

// Table renders the statistics as a two-column table
func (s TreeStatistics) Table(title string) string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{title, ""})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"items", strconv.Itoa(s.Items)})
	table.Append([]string{"nodes", strconv.Itoa(s.Nodes)})
	table.Append([]string{"leaves", strconv.Itoa(s.Leaves)})
	table.Append([]string{"max depth", strconv.Itoa(s.MaxDepth)})
	table.Append([]string{"avg depth", fmt.Sprintf("%.1f", s.AverageDepth)})
	if s.Leaves > 0 {
		table.Append([]string{"leaf size", fmt.Sprintf("%d..%d (avg %.1f)", s.MinLeafSize, s.MaxLeafSize, s.AverageFill)})
	}
	table.Append([]string{"sah cost", fmt.Sprintf("%.2f", s.SAHCost)})
	if s.BuildDuration != "" {
		table.Append([]string{"build time", s.BuildDuration})
	}
	table.Render()
	return sb.String()
}
