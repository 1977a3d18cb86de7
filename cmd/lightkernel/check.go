package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/intersection"
	"github.com/df07/go-light-kernel/pkg/lighting"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// lightCheck is the consistency report of one emitting shape
type lightCheck struct {
	Index     int
	Type      lighting.ShapeType
	Area      float64
	ShapeProb float64

	Accepted int
	Samples  int

	// MaxPDFError is the largest relative difference between the density reported by
	// SampleSolidAngle and the one returned by EvaluatePDFSolidAngle for the same point
	MaxPDFError float64

	// PDFIntegral estimates the area integral of the solid angle density, which is one when
	// the whole shape is visible from the reference point
	PDFIntegral float64
}

// Check the light sampler of a built-in scene.
func checkLights(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	s, err := loadScene(ctx)
	if err != nil {
		return err
	}

	checks, err := runLightChecks(s, cfg, ctx.Int("samples"), ctx.Int64("seed"))
	if err != nil {
		return err
	}
	displayLightChecks(ctx.App.Writer, checks)
	return nil
}

// runLightChecks measures every emitting shape from a point in front of it, at twice the square
// root of its area along the normal of its uniform sample (0.5, 0.5).
func runLightChecks(s *scene.Scene, cfg *config.Config, samples int, seed int64) ([]lightCheck, error) {
	tree := intersection.NewInstanceTree(s, cfg)
	if err := tree.Update(); err != nil {
		return nil, err
	}
	lights, err := lighting.NewBackwardLightSampler(s, cfg, intersection.NewIntersector(tree))
	if err != nil {
		return nil, err
	}

	sampler := core.NewSeededSampler(seed)
	checks := make([]lightCheck, 0, lights.EmittingShapeCount())
	for i, shape := range lights.EmittingShapes() {
		checks = append(checks, checkShape(i, shape, sampler, samples))
	}
	return checks, nil
}

func checkShape(index int, shape *lighting.EmittingShape, sampler core.Sampler, samples int) lightCheck {
	check := lightCheck{
		Index:     index,
		Type:      shape.Type(),
		Area:      shape.Area(),
		ShapeProb: shape.ShapeProb(),
		Samples:   samples,
	}

	var ls lighting.LightSample
	shape.SampleUniform(core.NewVec2(0.5, 0.5), 1, &ls)
	reference := ls.Point.Add(ls.GeometricNormal.Multiply(2 * math.Sqrt(shape.Area())))

	var integral float64
	for i := 0; i < samples; i++ {
		if shape.SampleSolidAngle(reference, sampler.Get2D(), shape.ShapeProb(), &ls) {
			check.Accepted++
			evaluated := shape.EvaluatePDFSolidAngle(reference, ls.Point)
			check.MaxPDFError = math.Max(check.MaxPDFError, relativeError(ls.Probability, evaluated))
		}

		shape.SampleUniform(sampler.Get2D(), 1, &ls)
		integral += shape.EvaluatePDFSolidAngle(reference, ls.Point) / shape.ShapeProb() * shape.Area()
	}
	if samples > 0 {
		check.PDFIntegral = integral / float64(samples)
	}
	return check
}

func relativeError(a, b float64) float64 {
	if a == b {
		return 0
	}
	return math.Abs(a-b) / math.Max(math.Abs(a), math.Abs(b))
}

func displayLightChecks(w io.Writer, checks []lightCheck) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Shape", "Type", "Area", "Probability", "Accepted", "Max pdf error", "Pdf integral"})

	worst := 0.0
	for _, c := range checks {
		worst = math.Max(worst, c.MaxPDFError)
		table.Append([]string{
			strconv.Itoa(c.Index),
			c.Type.String(),
			fmt.Sprintf("%.4f", c.Area),
			fmt.Sprintf("%.4f", c.ShapeProb),
			fmt.Sprintf("%d/%d", c.Accepted, c.Samples),
			fmt.Sprintf("%.2e", c.MaxPDFError),
			fmt.Sprintf("%.4f", c.PDFIntegral),
		})
	}
	table.SetFooter([]string{"", "", "", "", "WORST", fmt.Sprintf("%.2e", worst), ""})
	table.Render()
	fmt.Fprint(w, buf.String())
}
