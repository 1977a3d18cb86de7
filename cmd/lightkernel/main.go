// Command lightkernel renders the built-in scenes with next event estimation and inspects the
// light sampler and acceleration structures behind them.
package main

import (
	"fmt"
	"os"

	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/urfave/cli"
)

func sceneFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "scene, s",
			Value: "lights",
			Usage: fmt.Sprintf("built-in scene to load %v", scene.BuiltinNames()),
		},
		cli.StringFlag{
			Name:  "mesh, m",
			Usage: "ply mesh to add to the scene",
		},
		cli.Float64Flag{
			Name:  "mesh-emission",
			Usage: "white radiance emitted by the added mesh; 0 makes it diffuse",
		},
	}
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lightkernel"
	app.Usage = "direct lighting renderer and light sampling diagnostics"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "yaml configuration file",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a built-in scene to a png file",
			Description: `
Render a built-in scene with next event estimation and multiple importance sampling.
Command-line flags override the render section of the configuration file.`,
			Flags: append(sceneFlags(),
				cli.StringFlag{
					Name:  "out, o",
					Usage: "image filename for the rendered frame",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Usage: "samples per pixel",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of render goroutines (0 uses every cpu)",
				},
			),
			Action: renderScene,
		},
		{
			Name:  "check",
			Usage: "compare the sampled and evaluated light densities of a scene",
			Flags: append(sceneFlags(),
				cli.IntFlag{
					Name:  "samples, n",
					Value: 4096,
					Usage: "samples per emitting shape",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 7,
					Usage: "random seed",
				},
			),
			Action: checkLights,
		},
		{
			Name:   "stats",
			Usage:  "build the acceleration structures of a scene and print their statistics",
			Flags:  sceneFlags(),
			Action: treeStats,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lightkernel: %v\n", err)
		os.Exit(1)
	}
}
