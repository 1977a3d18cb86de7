// Package scene is the narrow scene graph consumed by the intersection and lighting kernels.
package scene

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/df07/go-light-kernel/pkg/core"
)

// CameraParams describes a look-at pinhole camera
type CameraParams struct {
	Center core.Vec3
	LookAt core.Vec3
	Up     core.Vec3
	VFov   float64 // vertical field of view in degrees
}

// Scene holds the top-level assemblies and their instances
type Scene struct {
	Name              string
	Assemblies        []*Assembly
	AssemblyInstances []*AssemblyInstance
	Camera            CameraParams
}

// InstanceID identifies one path of nested assembly instances
type InstanceID uint64

// FlatInstance is an assembly reached through a chain of assembly instances
type FlatInstance struct {
	ID                InstanceID
	Path              []*AssemblyInstance // outermost first
	Instance          *AssemblyInstance   // innermost instance, last element of Path
	Assembly          *Assembly
	TransformSequence *core.TransformSequence // assembly to world
}

// AddAssembly registers a top-level assembly
func (s *Scene) AddAssembly(a *Assembly) *Assembly {
	s.Assemblies = append(s.Assemblies, a)
	return a
}

// AddAssemblyInstance registers a top-level assembly instance
func (s *Scene) AddAssemblyInstance(ai *AssemblyInstance) *AssemblyInstance {
	s.AssemblyInstances = append(s.AssemblyInstances, ai)
	return ai
}

// RemoveAssemblyInstance removes a top-level assembly instance and reports whether it was present
func (s *Scene) RemoveAssemblyInstance(ai *AssemblyInstance) bool {
	for i, candidate := range s.AssemblyInstances {
		if candidate == ai {
			s.AssemblyInstances = append(s.AssemblyInstances[:i], s.AssemblyInstances[i+1:]...)
			return true
		}
	}
	return false
}

// FlattenAssemblyInstances walks nested assembly instances depth first and returns one entry per path.
// Instances that would recurse into an assembly already on the path are skipped.
func (s *Scene) FlattenAssemblyInstances() []FlatInstance {
	var result []FlatInstance
	for _, ai := range s.AssemblyInstances {
		flatten(ai, nil, nil, &result)
	}
	return result
}

func flatten(ai *AssemblyInstance, parent *core.TransformSequence, path []*AssemblyInstance, result *[]FlatInstance) {
	if ai.Assembly == nil {
		return
	}
	for _, p := range path {
		if p.Assembly == ai.Assembly {
			return
		}
	}

	path = append(append([]*AssemblyInstance(nil), path...), ai)
	seq := ai.TransformSequence.Compose(parent)
	*result = append(*result, FlatInstance{
		ID:                pathID(path),
		Path:              path,
		Instance:          ai,
		Assembly:          ai.Assembly,
		TransformSequence: seq,
	})

	for _, child := range ai.Assembly.AssemblyInstances {
		flatten(child, seq, path, result)
	}
}

func pathID(path []*AssemblyInstance) InstanceID {
	h := fnv.New64a()
	var buf [8]byte
	for _, ai := range path {
		binary.LittleEndian.PutUint64(buf[:], uint64(ai.UID()))
		h.Write(buf[:])
	}
	return InstanceID(h.Sum64())
}

// FindAssembly returns the first top-level or nested assembly with the given name
func (s *Scene) FindAssembly(name string) *Assembly {
	var find func([]*Assembly) *Assembly
	find = func(list []*Assembly) *Assembly {
		for _, a := range list {
			if a.Name() == name {
				return a
			}
			if found := find(a.Assemblies); found != nil {
				return found
			}
		}
		return nil
	}
	return find(s.Assemblies)
}
