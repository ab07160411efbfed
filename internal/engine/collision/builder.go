package collision

import (
	"fmt"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// MeshBuilder accumulates world triangles and produces a TriangleMesh.
// Triangles are transformed by the current transform and tagged with the
// current material as they are added.
type MeshBuilder struct {
	tris      []triangle
	transform math.Mat4
	material  uint16
	noCollDet map[uint16]bool
	dropped   int
}

// NewMeshBuilder returns an empty builder with the identity transform.
func NewMeshBuilder() *MeshBuilder {
	return &MeshBuilder{
		transform: math.Identity(),
		noCollDet: make(map[uint16]bool),
	}
}

// SetTransform places subsequently added geometry.
func (b *MeshBuilder) SetTransform(m math.Mat4) *MeshBuilder {
	b.transform = m
	return b
}

// SetMaterial tags subsequently added triangles.
func (b *MeshBuilder) SetMaterial(id uint16) *MeshBuilder {
	b.material = id
	return b
}

// SetNoCollDet marks a material as visible-only (excluded from collision).
func (b *MeshBuilder) SetNoCollDet(id uint16, noCollDet bool) *MeshBuilder {
	if noCollDet {
		b.noCollDet[id] = true
	} else {
		delete(b.noCollDet, id)
	}
	return b
}

// AddTriangle adds one triangle. Degenerate triangles are counted and skipped.
func (b *MeshBuilder) AddTriangle(p0, p1, p2 math.Vec3) {
	tri, ok := makeTriangle(
		b.transform.TransformPoint(p0),
		b.transform.TransformPoint(p1),
		b.transform.TransformPoint(p2),
		b.material,
	)
	if !ok {
		b.dropped++
		return
	}
	b.tris = append(b.tris, tri)
}

// AddQuad adds the quad p0-p1-p2-p3 as two triangles.
func (b *MeshBuilder) AddQuad(p0, p1, p2, p3 math.Vec3) {
	b.AddTriangle(p0, p1, p2)
	b.AddTriangle(p0, p2, p3)
}

// AddFloor adds a horizontal rectangle at height y.
func (b *MeshBuilder) AddFloor(minX, minZ, maxX, maxZ, y float32) {
	b.AddQuad(
		math.Vec3{X: minX, Y: y, Z: minZ},
		math.Vec3{X: minX, Y: y, Z: maxZ},
		math.Vec3{X: maxX, Y: y, Z: maxZ},
		math.Vec3{X: maxX, Y: y, Z: minZ},
	)
}

// AddRamp adds a rectangle spanning [minX,maxX] x [minZ,maxZ] whose height
// goes linearly from yAtMinX to yAtMaxX.
func (b *MeshBuilder) AddRamp(minX, minZ, maxX, maxZ, yAtMinX, yAtMaxX float32) {
	b.AddQuad(
		math.Vec3{X: minX, Y: yAtMinX, Z: minZ},
		math.Vec3{X: minX, Y: yAtMinX, Z: maxZ},
		math.Vec3{X: maxX, Y: yAtMaxX, Z: maxZ},
		math.Vec3{X: maxX, Y: yAtMaxX, Z: minZ},
	)
}

// AddBox adds the six faces of an axis-aligned box (in local space).
func (b *MeshBuilder) AddBox(lo, hi math.Vec3) {
	v := func(x, y, z float32) math.Vec3 { return math.Vec3{X: x, Y: y, Z: z} }
	// Bottom, top
	b.AddQuad(v(lo.X, lo.Y, lo.Z), v(hi.X, lo.Y, lo.Z), v(hi.X, lo.Y, hi.Z), v(lo.X, lo.Y, hi.Z))
	b.AddQuad(v(lo.X, hi.Y, lo.Z), v(lo.X, hi.Y, hi.Z), v(hi.X, hi.Y, hi.Z), v(hi.X, hi.Y, lo.Z))
	// -X, +X
	b.AddQuad(v(lo.X, lo.Y, lo.Z), v(lo.X, lo.Y, hi.Z), v(lo.X, hi.Y, hi.Z), v(lo.X, hi.Y, lo.Z))
	b.AddQuad(v(hi.X, lo.Y, lo.Z), v(hi.X, hi.Y, lo.Z), v(hi.X, hi.Y, hi.Z), v(hi.X, lo.Y, hi.Z))
	// -Z, +Z
	b.AddQuad(v(lo.X, lo.Y, lo.Z), v(lo.X, hi.Y, lo.Z), v(hi.X, hi.Y, lo.Z), v(hi.X, lo.Y, lo.Z))
	b.AddQuad(v(lo.X, lo.Y, hi.Z), v(hi.X, lo.Y, hi.Z), v(hi.X, hi.Y, hi.Z), v(lo.X, hi.Y, hi.Z))
}

// AddMeshData appends indexed geometry. Per-triangle materials in data
// override the current material; data.NoCollDet is merged.
func (b *MeshBuilder) AddMeshData(data MeshData) error {
	if len(data.Positions)%3 != 0 || len(data.Indices)%3 != 0 {
		return fmt.Errorf("%w: positions=%d indices=%d", ErrInvalidMeshData, len(data.Positions), len(data.Indices))
	}
	triCount := data.TriangleCount()
	if len(data.Materials) != 0 && len(data.Materials) != triCount {
		return fmt.Errorf("%w: %d materials for %d triangles", ErrInvalidMeshData, len(data.Materials), triCount)
	}
	vertexCount := uint32(len(data.Positions) / 3)
	for _, idx := range data.Indices {
		if idx >= vertexCount {
			return fmt.Errorf("%w: index %d beyond %d vertices", ErrInvalidMeshData, idx, vertexCount)
		}
	}

	saved := b.material
	defer func() { b.material = saved }()

	vertex := func(i uint32) math.Vec3 {
		return math.Vec3{X: data.Positions[i*3], Y: data.Positions[i*3+1], Z: data.Positions[i*3+2]}
	}
	for i := 0; i < triCount; i++ {
		if len(data.Materials) != 0 {
			b.material = data.Materials[i]
		}
		b.AddTriangle(vertex(data.Indices[i*3]), vertex(data.Indices[i*3+1]), vertex(data.Indices[i*3+2]))
	}
	for _, id := range data.NoCollDet {
		b.noCollDet[id] = true
	}
	return nil
}

// Dropped returns how many degenerate triangles were skipped.
func (b *MeshBuilder) Dropped() int {
	return b.dropped
}

// Build indexes the accumulated triangles. The builder may keep being used;
// later additions do not affect meshes already built.
func (b *MeshBuilder) Build() *TriangleMesh {
	tris := make([]triangle, len(b.tris))
	copy(tris, b.tris)
	noColl := make(map[uint16]bool, len(b.noCollDet))
	for id := range b.noCollDet {
		noColl[id] = true
	}
	return newTriangleMesh(tris, noColl)
}
