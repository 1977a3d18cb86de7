package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Render a built-in scene and write it as png.
func renderScene(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	applyRenderFlags(ctx, &cfg.Render)

	s, err := loadScene(ctx)
	if err != nil {
		return err
	}
	r, err := renderer.New(s, cfg)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	img, stats, err := r.Render(runCtx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := writePNG(cfg.Render.Output, img); err != nil {
		return err
	}
	logger.Noticef("wrote %s", cfg.Render.Output)

	displayRenderStats(ctx.App.Writer, stats, elapsed)
	return nil
}

func applyRenderFlags(ctx *cli.Context, render *config.RenderConfig) {
	if ctx.IsSet("out") {
		render.Output = ctx.String("out")
	}
	if ctx.IsSet("width") {
		render.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		render.Height = ctx.Int("height")
	}
	if ctx.IsSet("spp") {
		render.Samples = ctx.Int("spp")
	}
	if ctx.IsSet("workers") {
		render.Workers = ctx.Int("workers")
	}
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "unable to create output directory %q", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %q", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "unable to encode %q", path)
	}
	return f.Close()
}

func displayRenderStats(w io.Writer, stats renderer.RenderStats, elapsed time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Counter", "Value"})
	table.Append([]string{"pixels", fmt.Sprintf("%d", stats.TotalPixels)})
	table.Append([]string{"camera samples", fmt.Sprintf("%d", stats.TotalSamples)})
	table.Append([]string{"samples/pixel", fmt.Sprintf("%.1f", stats.AverageSamples)})
	table.Append([]string{"passes", fmt.Sprintf("%d", stats.Passes)})
	table.Append([]string{"light samples", fmt.Sprintf("%d", stats.LightSamples)})
	table.Append([]string{"rejected light samples", fmt.Sprintf("%d", stats.RejectedLights)})
	table.Append([]string{"shadow rays", fmt.Sprintf("%d", stats.ShadowRays)})
	table.Append([]string{"occluded shadow rays", fmt.Sprintf("%d", stats.Occluded)})
	table.Append([]string{"rays", fmt.Sprintf("%d", stats.Intersection.Rays)})
	table.Append([]string{"ray hits", fmt.Sprintf("%d", stats.Intersection.Hits)})
	table.SetFooter([]string{"render time", elapsed.Round(time.Millisecond).String()})
	table.Render()
	fmt.Fprint(w, buf.String())
}
