package main

import (
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/loaders"
	"github.com/df07/go-light-kernel/pkg/log"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/urfave/cli"
)

var logger = log.New("lightkernel")

// setup loads the configuration and applies its log level. The -v and -vv flags take
// precedence over the configured level.
func setup(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	setupLogging(ctx)
	return cfg, nil
}

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	s, err := scene.Builtin(ctx.String("scene"))
	if err != nil {
		return nil, err
	}
	if path := ctx.String("mesh"); path != "" {
		if err := addMesh(s, path, ctx.Float64("mesh-emission")); err != nil {
			return nil, err
		}
	}
	logger.Infof("loaded scene %q", s.Name)
	return s, nil
}

// addMesh instances the mesh at path in a new top-level assembly
func addMesh(s *scene.Scene, path string, emission float64) error {
	mesh, err := loaders.LoadPLY(path, 0)
	if err != nil {
		return err
	}

	material := scene.NewDiffuseMaterial(mesh.Name()+"_diffuse", core.NewVec3(0.7, 0.7, 0.7))
	if emission > 0 {
		material = scene.NewEmissiveMaterial(mesh.Name()+"_emission", core.NewVec3(emission, emission, emission))
	}

	a := s.AddAssembly(scene.NewAssembly(mesh.Name()))
	a.AddObject(mesh)
	a.AddObjectInstance(scene.NewObjectInstance(mesh.Name()+"_inst", mesh, core.IdentityTransform(), material))
	s.AddAssemblyInstance(scene.NewAssemblyInstance(mesh.Name()+"_inst", a, nil))
	return nil
}
