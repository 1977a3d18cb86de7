package intersection

import "github.com/df07/go-light-kernel/pkg/scene"

// PatchType tags the analytic surface referenced by a patch key
type PatchType uint16

const (
	PatchSphere PatchType = iota
	PatchRect
	PatchDisk
)

func (t PatchType) String() string {
	return scene.SurfaceKind(t).String()
}

func patchTypeOf(kind scene.SurfaceKind) PatchType {
	switch kind {
	case scene.SurfaceSphere:
		return PatchSphere
	case scene.SurfaceRect:
		return PatchRect
	default:
		return PatchDisk
	}
}

// TriangleKey locates a triangle of a triangle tree inside its assembly
type TriangleKey struct {
	ObjectInstanceIndex uint32 // index of the object instance in the assembly
	TriangleIndex       uint32 // index of the triangle in the mesh
	TriangleIndexTree   uint32 // index of the triangle in the tree, in leaf order
	TrianglePA          uint16 // material slot
	Type                uint16 // reserved for triangle variants
}

// PatchKey locates an analytic surface patch of a patch tree inside its assembly
type PatchKey struct {
	ObjectInstanceIndex uint32
	PatchIndex          uint32 // patch index within the object; a surface object holds a single patch
	PatchIndexTree      uint32
	PatchPA             uint16
	Type                PatchType
}
