package scene

import (
	"sort"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/pkg/errors"
)

var builtins = map[string]func() *Scene{
	"cornell":   NewCornellScene,
	"instanced": NewInstancedScene,
	"lights":    NewLightsScene,
}

// Builtin returns a freshly built copy of the named scene
func Builtin(name string) (*Scene, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownScene, "%q", name)
	}
	return build(), nil
}

// BuiltinNames returns the registered scene names in sorted order
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func translate(x, y, z float64) core.Transform {
	return core.NewTranslation(core.NewVec3(x, y, z))
}

// NewCornellScene creates a classic Cornell box with mesh walls, a rectangular ceiling light and a sphere
func NewCornellScene() *Scene {
	s := &Scene{
		Name: "cornell",
		Camera: CameraParams{
			Center: core.NewVec3(278, 278, -800), // Position camera outside the box looking in
			LookAt: core.NewVec3(278, 278, 0),
			Up:     core.NewVec3(0, 1, 0),
			VFov:   40.0,
		},
	}

	white := NewDiffuseMaterial("white", core.NewVec3(0.73, 0.73, 0.73))
	red := NewDiffuseMaterial("red", core.NewVec3(0.65, 0.05, 0.05))
	green := NewDiffuseMaterial("green", core.NewVec3(0.12, 0.45, 0.15))
	glossy := NewMaterial("glossy", nil, BSDFParams{
		Model:        ModelMicrofacet,
		Distribution: "ggx",
		Roughness:    0.3,
		Reflectance:  core.NewVec3(0.8, 0.8, 0.9),
	})
	light := NewEmissiveMaterial("light", core.NewVec3(15, 15, 15))

	// Cornell box dimensions (standard 555x555x555 units)
	boxSize := 555.0
	a := s.AddAssembly(NewAssembly("cornell"))

	walls := []struct {
		name     string
		corner   core.Vec3
		u, v     core.Vec3
		material *Material
	}{
		{"floor", core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), white},
		{"ceiling", core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white},
		{"back", core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), white},
		{"left", core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), red},
		{"right", core.NewVec3(0, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize), green},
	}
	for _, w := range walls {
		mesh := a.AddObject(NewQuadMesh(w.name, w.corner, w.u, w.v, 0))
		a.AddObjectInstance(NewObjectInstance(w.name+"_inst", mesh, core.IdentityTransform(), w.material))
	}

	box := a.AddObject(NewBoxMesh("tall_box", core.Vec3{}, core.NewVec3(165, 330, 165), 0))
	a.AddObjectInstance(NewObjectInstance("tall_box_inst", box, translate(368, 165, 351), white))

	sphere := a.AddObject(NewSphereObject("sphere", core.Vec3{}, 82.5, 0))
	a.AddObjectInstance(NewObjectInstance("sphere_inst", sphere, translate(185, 82.5, 169), glossy))

	// Ceiling light, slightly below the ceiling and facing down
	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	rect := a.AddObject(NewRectObject("light",
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize), 0))
	a.AddObjectInstance(NewObjectInstance("light_inst", rect, core.IdentityTransform(), light))

	s.AddAssemblyInstance(NewAssemblyInstance("cornell_inst", a, nil))
	return s
}

// NewInstancedScene creates nested assembly instances, one of them moving over the shutter interval
func NewInstancedScene() *Scene {
	s := &Scene{
		Name: "instanced",
		Camera: CameraParams{
			Center: core.NewVec3(0, 4, 12),
			LookAt: core.NewVec3(0, 1, 0),
			Up:     core.NewVec3(0, 1, 0),
			VFov:   45,
		},
	}

	grey := NewDiffuseMaterial("grey", core.NewVec3(0.6, 0.6, 0.6))
	orange := NewDiffuseMaterial("orange", core.NewVec3(0.8, 0.4, 0.1))
	glow := NewEmissiveMaterial("glow", core.NewVec3(4, 3, 2))
	checker := NewMaterial("checker_light", TexturedEDF{
		Texture:    CheckerTexture{Even: core.NewVec3(1, 1, 1), Odd: core.NewVec3(0.2, 0.2, 0.2), Checks: 4},
		Multiplier: 6,
	}, BSDFParams{Model: ModelLambertian})

	// A crate with a small glowing sphere on top
	crate := s.AddAssembly(NewAssembly("crate"))
	box := crate.AddObject(NewBoxMesh("crate_box", core.Vec3{}, core.NewVec3(1, 1, 1), 0))
	crate.AddObjectInstance(NewObjectInstance("crate_box_inst", box, translate(0, 0.5, 0), orange))
	bulb := crate.AddObject(NewSphereObject("bulb", core.Vec3{}, 0.2, 0))
	crate.AddObjectInstance(NewObjectInstance("bulb_inst", bulb, translate(0, 1.3, 0), glow))

	// A row of three crates
	row := s.AddAssembly(NewAssembly("row"))
	row.Assemblies = append(row.Assemblies, crate)
	for i, x := range []float64{-2, 0, 2} {
		seq := NewTransformSequenceAt(core.NewVec3(x, 0, 0))
		row.AddAssemblyInstance(NewAssemblyInstance(rowInstanceName(i), crate, seq))
	}

	// Ground with a checkered light panel and a point light
	ground := s.AddAssembly(NewAssembly("ground"))
	floor := ground.AddObject(NewQuadMesh("floor", core.NewVec3(-10, 0, -10), core.NewVec3(0, 0, 20), core.NewVec3(20, 0, 0), 0))
	ground.AddObjectInstance(NewObjectInstance("floor_inst", floor, core.IdentityTransform(), grey))
	panel := ground.AddObject(NewRectObject("panel", core.NewVec3(-3, 6, -3), core.NewVec3(6, 0, 0), core.NewVec3(0, 0, 6), 0))
	ground.AddObjectInstance(NewObjectInstance("panel_inst", panel, core.IdentityTransform(), checker))
	ground.AddLight(NewPointLight("key", core.NewVec3(4, 5, 4), core.NewVec3(20, 20, 20)))

	s.AddAssemblyInstance(NewAssemblyInstance("ground_inst", ground, nil))
	s.AddAssemblyInstance(NewAssemblyInstance("row_front", row, NewTransformSequenceAt(core.NewVec3(0, 0, 2))))

	moving := &core.TransformSequence{}
	moving.SetTransform(0, core.TRS{Translation: core.NewVec3(0, 0, -2), Rotation: core.QuatIdentity(), Scale: core.NewVec3(1, 1, 1)})
	moving.SetTransform(1, core.TRS{
		Translation: core.NewVec3(1, 0, -2),
		Rotation:    core.QuatFromAxisAngle(core.NewVec3(0, 1, 0), 0.3),
		Scale:       core.NewVec3(1, 1, 1),
	})
	s.AddAssemblyInstance(NewAssemblyInstance("row_back", row, moving))
	return s
}

func rowInstanceName(i int) string {
	return []string{"crate_left", "crate_middle", "crate_right"}[i]
}

// NewTransformSequenceAt creates a static translation sequence
func NewTransformSequenceAt(offset core.Vec3) *core.TransformSequence {
	return core.NewTransformSequence(core.TRS{Translation: offset, Rotation: core.QuatIdentity(), Scale: core.NewVec3(1, 1, 1)})
}

// NewLightsScene creates one emitter of every shape type plus spot and directional lights over a floor
func NewLightsScene() *Scene {
	s := &Scene{
		Name: "lights",
		Camera: CameraParams{
			Center: core.NewVec3(0, 3, 9),
			LookAt: core.NewVec3(0, 1, 0),
			Up:     core.NewVec3(0, 1, 0),
			VFov:   50,
		},
	}

	floorMat := NewDiffuseMaterial("floor", core.NewVec3(0.7, 0.7, 0.7))
	rough := NewMaterial("rough_metal", nil, BSDFParams{
		Model:        ModelMicrofacet,
		Distribution: "beckmann",
		Roughness:    0.4,
		Reflectance:  core.NewVec3(0.9, 0.8, 0.6),
	})
	warm := NewEmissiveMaterial("warm", core.NewVec3(8, 6, 4))
	cool := NewEmissiveMaterial("cool", core.NewVec3(3, 5, 9))
	white := NewEmissiveMaterial("white", core.NewVec3(6, 6, 6))

	a := s.AddAssembly(NewAssembly("stage"))
	floor := a.AddObject(NewQuadMesh("floor", core.NewVec3(-8, 0, -8), core.NewVec3(0, 0, 16), core.NewVec3(16, 0, 0), 0))
	a.AddObjectInstance(NewObjectInstance("floor_inst", floor, core.IdentityTransform(), floorMat))

	ball := a.AddObject(NewSphereObject("ball", core.Vec3{}, 0.8, 0))
	a.AddObjectInstance(NewObjectInstance("ball_inst", ball, translate(0, 0.8, 0), rough))

	rect := a.AddObject(NewRectObject("rect_light", core.NewVec3(-3, 3, -1), core.NewVec3(1.5, 0, 0), core.NewVec3(0, 0, 2), 0))
	a.AddObjectInstance(NewObjectInstance("rect_light_inst", rect, core.IdentityTransform(), warm))

	orb := a.AddObject(NewSphereObject("sphere_light", core.Vec3{}, 0.4, 0))
	a.AddObjectInstance(NewObjectInstance("sphere_light_inst", orb, translate(2.5, 2, 0), cool))

	disk := a.AddObject(NewDiskObject("disk_light", core.NewVec3(0, 4, 0), core.NewVec3(0, -1, 0), 0.7, 0))
	a.AddObjectInstance(NewObjectInstance("disk_light_inst", disk, core.IdentityTransform(), white))

	tri := a.AddObject(NewMeshObject("triangle_light", []core.Vec3{
		core.NewVec3(-1, 2.5, -3), core.NewVec3(1, 2.5, -3), core.NewVec3(0, 3.5, -3),
	}, []int{0, 1, 2}, 0))
	a.AddObjectInstance(NewObjectInstance("triangle_light_inst", tri, core.IdentityTransform(), warm))

	a.AddLight(NewSpotLight("spot", core.NewVec3(-4, 5, 4), core.NewVec3(1, -1.2, -1), core.NewVec3(40, 40, 40), 15, 25))
	a.AddLight(NewDirectionalLight("sun", core.NewVec3(-0.3, -1, -0.2), core.NewVec3(0.5, 0.5, 0.45)))

	s.AddAssemblyInstance(NewAssemblyInstance("stage_inst", a, nil))
	return s
}
