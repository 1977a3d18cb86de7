package main

import (
	"context"
	"fmt"
	"io"

	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Build the acceleration structures of a built-in scene and print their statistics.
func treeStats(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	s, err := loadScene(ctx)
	if err != nil {
		return err
	}

	tree := intersection.NewInstanceTree(s, cfg)
	if err := tree.Update(); err != nil {
		return err
	}
	if err := tree.BuildChildTrees(context.Background(), cfg.Render.Workers); err != nil {
		return errors.Wrapf(err, "while building acceleration structures for scene %q", s.Name)
	}
	displayTreeStats(ctx.App.Writer, tree)
	return nil
}

func displayTreeStats(w io.Writer, tree *intersection.InstanceTree) {
	fmt.Fprint(w, tree.Statistics().Table("instance tree"))
	for _, t := range tree.TriangleTrees() {
		fmt.Fprint(w, t.Statistics().Table(fmt.Sprintf("triangle tree %q (%d triangles)", t.AssemblyName(), t.Len())))
	}
	for _, t := range tree.PatchTrees() {
		fmt.Fprint(w, t.Statistics().Table(fmt.Sprintf("patch tree %q (%d patches)", t.AssemblyName(), t.Len())))
	}
	hits, misses := tree.CacheStatistics()
	fmt.Fprintf(w, "%d of %d child trees built, access cache %d hits / %d misses\n",
		tree.ChildTreeBuildCount(), tree.ChildTreeCount(), hits, misses)
}
