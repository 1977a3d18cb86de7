package scene

import (
	"fmt"
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
)

// NoIndex marks an absent per-vertex attribute index
const NoIndex = -1

// Object is geometry expressed in its own local space
type Object interface {
	Name() string
	UID() UniqueID
	Version() VersionID
	LocalBBox() core.AABB
}

// Triangle indexes the vertex, normal and uv arrays of its mesh.
// Normal and UV indices may be NoIndex.
type Triangle struct {
	V0, V1, V2   int
	N0, N1, N2   int
	T0, T1, T2   int
	MaterialSlot int
}

// MeshObject is a triangle mesh
type MeshObject struct {
	Entity
	Vertices  []core.Vec3
	Normals   []core.Vec3
	UVs       []core.Vec2
	Triangles []Triangle
}

// NewMeshObject creates a mesh from vertices and face indices; each group of 3 indices forms a triangle
func NewMeshObject(name string, vertices []core.Vec3, faces []int, materialSlot int) *MeshObject {
	if len(faces)%3 != 0 {
		panic(fmt.Sprintf("face indices must be a multiple of 3, got %d", len(faces)))
	}

	mesh := &MeshObject{Entity: newEntity(name), Vertices: vertices}
	for i := 0; i < len(faces); i += 3 {
		mesh.Triangles = append(mesh.Triangles, Triangle{
			V0: faces[i], V1: faces[i+1], V2: faces[i+2],
			N0: NoIndex, N1: NoIndex, N2: NoIndex,
			T0: NoIndex, T1: NoIndex, T2: NoIndex,
			MaterialSlot: materialSlot,
		})
	}
	return mesh
}

// NewQuadMesh creates a two-triangle mesh for the parallelogram corner, corner+u, corner+u+v, corner+v
// with per-vertex UVs spanning [0, 1]².
func NewQuadMesh(name string, corner, u, v core.Vec3, materialSlot int) *MeshObject {
	mesh := NewMeshObject(name, []core.Vec3{
		corner,
		corner.Add(u),
		corner.Add(u).Add(v),
		corner.Add(v),
	}, []int{0, 1, 2, 0, 2, 3}, materialSlot)

	mesh.UVs = []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	for i := range mesh.Triangles {
		tri := &mesh.Triangles[i]
		tri.T0, tri.T1, tri.T2 = tri.V0, tri.V1, tri.V2
	}
	return mesh
}

// NewBoxMesh creates an axis-aligned box mesh centered at center with outward-facing triangles
func NewBoxMesh(name string, center, size core.Vec3, materialSlot int) *MeshObject {
	h := size.Multiply(0.5)
	min := center.Subtract(h)
	max := center.Add(h)
	vertices := []core.Vec3{
		{X: min.X, Y: min.Y, Z: min.Z}, {X: max.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: max.Y, Z: min.Z}, {X: min.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: min.Y, Z: max.Z}, {X: max.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: max.Y, Z: max.Z}, {X: min.X, Y: max.Y, Z: max.Z},
	}
	faces := []int{
		0, 2, 1, 0, 3, 2, // -z
		4, 5, 6, 4, 6, 7, // +z
		0, 1, 5, 0, 5, 4, // -y
		3, 7, 6, 3, 6, 2, // +y
		0, 4, 7, 0, 7, 3, // -x
		1, 2, 6, 1, 6, 5, // +x
	}
	return NewMeshObject(name, vertices, faces, materialSlot)
}

// LocalBBox bounds every referenced vertex
func (m *MeshObject) LocalBBox() core.AABB {
	return core.NewAABBFromPoints(m.Vertices...)
}

// TriangleVertices returns the three local-space vertices of triangle i
func (m *MeshObject) TriangleVertices(i int) (core.Vec3, core.Vec3, core.Vec3) {
	tri := m.Triangles[i]
	return m.Vertices[tri.V0], m.Vertices[tri.V1], m.Vertices[tri.V2]
}

// TriangleNormals returns the local shading normals of triangle i, or false when the mesh has none
func (m *MeshObject) TriangleNormals(i int) (core.Vec3, core.Vec3, core.Vec3, bool) {
	tri := m.Triangles[i]
	if tri.N0 == NoIndex || tri.N1 == NoIndex || tri.N2 == NoIndex {
		return core.Vec3{}, core.Vec3{}, core.Vec3{}, false
	}
	return m.Normals[tri.N0], m.Normals[tri.N1], m.Normals[tri.N2], true
}

// TriangleUVs returns the texture coordinates of triangle i, defaulting to the barycentric corners
func (m *MeshObject) TriangleUVs(i int) (core.Vec2, core.Vec2, core.Vec2) {
	tri := m.Triangles[i]
	if tri.T0 == NoIndex || tri.T1 == NoIndex || tri.T2 == NoIndex {
		return core.Vec2{}, core.Vec2{X: 1}, core.Vec2{Y: 1}
	}
	return m.UVs[tri.T0], m.UVs[tri.T1], m.UVs[tri.T2]
}

// SurfaceKind enumerates the procedural surfaces
type SurfaceKind int

const (
	SurfaceSphere SurfaceKind = iota
	SurfaceRect
	SurfaceDisk
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfaceSphere:
		return "sphere"
	case SurfaceRect:
		return "rect"
	case SurfaceDisk:
		return "disk"
	}
	return fmt.Sprintf("surface(%d)", int(k))
}

// SurfaceObject is an analytic surface built from a single patch
type SurfaceObject interface {
	Object
	Kind() SurfaceKind
	MaterialSlot() int
}

// SphereObject is a sphere in local space
type SphereObject struct {
	Entity
	Center core.Vec3
	Radius float64
	Slot   int
}

// NewSphereObject creates a procedural sphere
func NewSphereObject(name string, center core.Vec3, radius float64, materialSlot int) *SphereObject {
	return &SphereObject{Entity: newEntity(name), Center: center, Radius: radius, Slot: materialSlot}
}

func (s *SphereObject) Kind() SurfaceKind { return SurfaceSphere }
func (s *SphereObject) MaterialSlot() int { return s.Slot }

// LocalBBox bounds the sphere
func (s *SphereObject) LocalBBox() core.AABB {
	r := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(s.Center.Subtract(r), s.Center.Add(r))
}

// RectObject is the parallelogram Origin + u·X + v·Y for u, v in [0, 1].
// Its normal is normalize(X × Y).
type RectObject struct {
	Entity
	Origin core.Vec3
	X, Y   core.Vec3
	Slot   int
}

// NewRectObject creates a procedural rectangle
func NewRectObject(name string, origin, x, y core.Vec3, materialSlot int) *RectObject {
	return &RectObject{Entity: newEntity(name), Origin: origin, X: x, Y: y, Slot: materialSlot}
}

func (r *RectObject) Kind() SurfaceKind { return SurfaceRect }
func (r *RectObject) MaterialSlot() int { return r.Slot }

// Normal returns the unit normal of the rectangle
func (r *RectObject) Normal() core.Vec3 {
	return r.X.Cross(r.Y).Normalize()
}

// LocalBBox bounds the four corners
func (r *RectObject) LocalBBox() core.AABB {
	return core.NewAABBFromPoints(r.Origin, r.Origin.Add(r.X), r.Origin.Add(r.Y), r.Origin.Add(r.X).Add(r.Y))
}

// DiskObject is a flat disk facing Normal
type DiskObject struct {
	Entity
	Center core.Vec3
	Normal core.Vec3
	Radius float64
	Slot   int
}

// NewDiskObject creates a procedural disk
func NewDiskObject(name string, center, normal core.Vec3, radius float64, materialSlot int) *DiskObject {
	return &DiskObject{Entity: newEntity(name), Center: center, Normal: normal.Normalize(), Radius: radius, Slot: materialSlot}
}

func (d *DiskObject) Kind() SurfaceKind { return SurfaceDisk }
func (d *DiskObject) MaterialSlot() int { return d.Slot }

// LocalBBox bounds the disk using the per-axis extent of a tilted circle
func (d *DiskObject) LocalBBox() core.AABB {
	n := d.Normal
	e := core.NewVec3(
		d.Radius*math.Sqrt(math.Max(0, 1-n.X*n.X)),
		d.Radius*math.Sqrt(math.Max(0, 1-n.Y*n.Y)),
		d.Radius*math.Sqrt(math.Max(0, 1-n.Z*n.Z)),
	)
	return core.NewAABB(d.Center.Subtract(e), d.Center.Add(e))
}
