package scene

import (
	"github.com/df07/go-light-kernel/pkg/config"
	"github.com/df07/go-light-kernel/pkg/core"
)

// ObjectInstance places an object inside an assembly and binds its material slots
type ObjectInstance struct {
	Entity
	Object    Object
	Transform core.Transform
	Materials []*Material
}

// NewObjectInstance creates an instance of object with the given local-to-assembly transform
func NewObjectInstance(name string, object Object, transform core.Transform, materials ...*Material) *ObjectInstance {
	return &ObjectInstance{Entity: newEntity(name), Object: object, Transform: transform, Materials: materials}
}

// Material returns the material bound to slot, or nil
func (oi *ObjectInstance) Material(slot int) *Material {
	if slot < 0 || slot >= len(oi.Materials) {
		return nil
	}
	return oi.Materials[slot]
}

// ParentBBox returns the instance bounds in assembly space
func (oi *ObjectInstance) ParentBBox() core.AABB {
	return oi.Transform.LocalToParentBox(oi.Object.LocalBBox())
}

// AssemblyParams carries per-assembly overrides
type AssemblyParams struct {
	AccelerationStructure *config.AccelerationConfig
}

// Assembly is a reusable group of objects, object instances, child assemblies and lights
type Assembly struct {
	Entity
	Params            AssemblyParams
	Objects           []Object
	ObjectInstances   []*ObjectInstance
	Assemblies        []*Assembly
	AssemblyInstances []*AssemblyInstance
	Lights            []Light
}

// NewAssembly creates an empty assembly
func NewAssembly(name string) *Assembly {
	return &Assembly{Entity: newEntity(name)}
}

// AddObject registers an object and returns it.
// Every Add method bumps the assembly version so built child trees are invalidated.
func (a *Assembly) AddObject(object Object) Object {
	a.Objects = append(a.Objects, object)
	a.BumpVersion()
	return object
}

// AddObjectInstance registers an object instance and returns it
func (a *Assembly) AddObjectInstance(instance *ObjectInstance) *ObjectInstance {
	a.ObjectInstances = append(a.ObjectInstances, instance)
	a.BumpVersion()
	return instance
}

// AddAssemblyInstance registers a child assembly instance and returns it
func (a *Assembly) AddAssemblyInstance(instance *AssemblyInstance) *AssemblyInstance {
	a.AssemblyInstances = append(a.AssemblyInstances, instance)
	a.BumpVersion()
	return instance
}

// AddLight registers a non-physical light
func (a *Assembly) AddLight(light Light) {
	a.Lights = append(a.Lights, light)
	a.BumpVersion()
}

// ComputeNonHierarchicalLocalBBox bounds the object instances of this assembly only
func (a *Assembly) ComputeNonHierarchicalLocalBBox() core.AABB {
	box := core.EmptyAABB()
	for _, oi := range a.ObjectInstances {
		box = box.Union(oi.ParentBBox())
	}
	return box
}

// ComputeLocalBBox bounds the object instances and every child assembly instance over the shutter interval
func (a *Assembly) ComputeLocalBBox(motionSteps int) core.AABB {
	box := a.ComputeNonHierarchicalLocalBBox()
	for _, ai := range a.AssemblyInstances {
		box = box.Union(ai.ParentBBox(motionSteps))
	}
	return box
}

// AssemblyInstance places an assembly in its parent under a transform sequence
type AssemblyInstance struct {
	Entity
	Assembly          *Assembly
	TransformSequence *core.TransformSequence
}

// NewAssemblyInstance creates an instance of assembly; a nil sequence is the identity
func NewAssemblyInstance(name string, assembly *Assembly, seq *core.TransformSequence) *AssemblyInstance {
	if seq == nil {
		seq = &core.TransformSequence{}
	}
	seq.Prepare()
	return &AssemblyInstance{Entity: newEntity(name), Assembly: assembly, TransformSequence: seq}
}

// ParentBBox returns the motion bounds of the instanced assembly in parent space
func (ai *AssemblyInstance) ParentBBox(motionSteps int) core.AABB {
	return ai.TransformSequence.ToParent(ai.Assembly.ComputeLocalBBox(motionSteps), motionSteps)
}
