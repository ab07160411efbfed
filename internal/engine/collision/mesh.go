package collision

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// Mesh data errors.
var (
	ErrInvalidMeshData = errors.New("invalid collision mesh data")
)

// QueryKind selects the shape of a mesh query.
type QueryKind uint8

const (
	QueryRay    QueryKind = iota // Every triangle hit along Origin + t*Direction, t in [0, MaxDistance]
	QuerySphere                  // Every triangle within Radius of Origin
)

// Query is a region handed to Mesh.QueryNearest.
type Query struct {
	Kind        QueryKind
	Origin      math.Vec3
	Direction   math.Vec3 // Unit direction, rays only
	MaxDistance float32   // Rays only
	Radius      float32   // Spheres only
}

// Contact is one triangle returned by a mesh query.
type Contact struct {
	TriangleID int
	Point      math.Vec3 // Ray hit point, or the triangle point closest to the sphere center
	Normal     math.Vec3 // Unit face normal as wound; not oriented toward the query
	Distance   float32   // Ray parameter, or distance from the sphere center
	Top        float32   // Highest vertex Y of the triangle
}

// Mesh is the world geometry the kernel collides against.
//
// QueryNearest appends every triangle touching the query region to out,
// ordered by ascending Distance, and returns the extended slice. It must be
// safe for concurrent use. IsCollidable reports whether a triangle takes
// part in collision (false for noCollDet materials and unknown ids).
type Mesh interface {
	QueryNearest(q Query, out []Contact) []Contact
	IsCollidable(triangleID int) bool
}

// MeshData is the flat, serialisable form of a triangle mesh.
type MeshData struct {
	Positions []float32 // x, y, z per vertex
	Indices   []uint32  // Three per triangle
	Materials []uint16  // One per triangle; empty means material 0
	NoCollDet []uint16  // Materials excluded from collision
}

// TriangleCount returns the number of indexed triangles.
func (d MeshData) TriangleCount() int {
	return len(d.Indices) / 3
}

type triangle struct {
	a, b, c  math.Vec3
	normal   math.Vec3
	material uint16
}

func (t *triangle) top() float32 {
	return max(t.a.Y, t.b.Y, t.c.Y)
}

func (t *triangle) bounds() aabb {
	return aabb{
		min: t.a.Min(t.b).Min(t.c),
		max: t.a.Max(t.b).Max(t.c),
	}
}

// TriangleMesh is a static triangle soup indexed by a BVH.
// It is immutable after construction.
type TriangleMesh struct {
	tris      []triangle
	order     []int32
	nodes     []bvhNode
	noCollDet map[uint16]bool
}

// NewTriangleMesh validates data and builds its BVH.
// Degenerate (zero-area) triangles are dropped.
func NewTriangleMesh(data MeshData) (*TriangleMesh, error) {
	if len(data.Positions)%3 != 0 {
		return nil, fmt.Errorf("%w: %d position floats is not a multiple of 3", ErrInvalidMeshData, len(data.Positions))
	}
	if len(data.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidMeshData, len(data.Indices))
	}
	triCount := len(data.Indices) / 3
	if len(data.Materials) != 0 && len(data.Materials) != triCount {
		return nil, fmt.Errorf("%w: %d materials for %d triangles", ErrInvalidMeshData, len(data.Materials), triCount)
	}

	vertexCount := uint32(len(data.Positions) / 3)
	vertex := func(i uint32) math.Vec3 {
		return math.Vec3{X: data.Positions[i*3], Y: data.Positions[i*3+1], Z: data.Positions[i*3+2]}
	}

	tris := make([]triangle, 0, triCount)
	for i := 0; i < triCount; i++ {
		ia, ib, ic := data.Indices[i*3], data.Indices[i*3+1], data.Indices[i*3+2]
		if ia >= vertexCount || ib >= vertexCount || ic >= vertexCount {
			return nil, fmt.Errorf("%w: triangle %d references vertex beyond %d", ErrInvalidMeshData, i, vertexCount)
		}
		var material uint16
		if len(data.Materials) != 0 {
			material = data.Materials[i]
		}
		tri, ok := makeTriangle(vertex(ia), vertex(ib), vertex(ic), material)
		if !ok {
			continue
		}
		tris = append(tris, tri)
	}

	noColl := make(map[uint16]bool, len(data.NoCollDet))
	for _, id := range data.NoCollDet {
		noColl[id] = true
	}
	return newTriangleMesh(tris, noColl), nil
}

func newTriangleMesh(tris []triangle, noColl map[uint16]bool) *TriangleMesh {
	order := make([]int32, len(tris))
	for i := range order {
		order[i] = int32(i)
	}
	m := &TriangleMesh{
		tris:      tris,
		order:     order,
		noCollDet: noColl,
	}
	m.nodes = buildBVH(tris, order)
	return m
}

// makeTriangle computes the face normal; it rejects non-finite or zero-area input.
func makeTriangle(a, b, c math.Vec3, material uint16) (triangle, bool) {
	if !a.IsFinite() || !b.IsFinite() || !c.IsFinite() {
		return triangle{}, false
	}
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LengthSq() < 1e-12 {
		return triangle{}, false
	}
	return triangle{a: a, b: b, c: c, normal: n.Normalize(), material: material}, true
}

// TriangleCount returns the number of triangles in the mesh.
func (m *TriangleMesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.tris)
}

// Triangle returns the vertices of triangle id.
func (m *TriangleMesh) Triangle(id int) (a, b, c math.Vec3, ok bool) {
	if m == nil || id < 0 || id >= len(m.tris) {
		return
	}
	t := &m.tris[id]
	return t.a, t.b, t.c, true
}

// Material returns the material id of triangle id.
func (m *TriangleMesh) Material(id int) uint16 {
	if m == nil || id < 0 || id >= len(m.tris) {
		return 0
	}
	return m.tris[id].material
}

// Bounds returns the mesh bounding box.
func (m *TriangleMesh) Bounds() (lo, hi math.Vec3) {
	if m == nil || len(m.nodes) == 0 {
		return
	}
	return m.nodes[0].bounds.min, m.nodes[0].bounds.max
}

// IsCollidable implements Mesh.
func (m *TriangleMesh) IsCollidable(triangleID int) bool {
	if m == nil || triangleID < 0 || triangleID >= len(m.tris) {
		return false
	}
	return !m.noCollDet[m.tris[triangleID].material]
}

// QueryNearest implements Mesh.
func (m *TriangleMesh) QueryNearest(q Query, out []Contact) []Contact {
	if m == nil || len(m.nodes) == 0 {
		return out
	}
	first := len(out)

	switch q.Kind {
	case QueryRay:
		if q.MaxDistance <= 0 || q.Direction.LengthSq() == 0 {
			return out
		}
		m.traverse(
			func(b aabb) bool { return b.intersectRay(q.Origin, q.Direction, q.MaxDistance) },
			func(id int32) {
				t := &m.tris[id]
				dist, ok := rayTriangle(q.Origin, q.Direction, t.a, t.b, t.c)
				if !ok || dist > q.MaxDistance {
					return
				}
				out = append(out, Contact{
					TriangleID: int(id),
					Point:      q.Origin.Add(q.Direction.Scale(dist)),
					Normal:     t.normal,
					Distance:   dist,
					Top:        t.top(),
				})
			})
	case QuerySphere:
		if q.Radius <= 0 {
			return out
		}
		r2 := q.Radius * q.Radius
		m.traverse(
			func(b aabb) bool { return b.distSqToPoint(q.Origin) <= r2 },
			func(id int32) {
				t := &m.tris[id]
				p := closestPointOnTriangle(q.Origin, t.a, t.b, t.c)
				d2 := p.Sub(q.Origin).LengthSq()
				if d2 > r2 {
					return
				}
				out = append(out, Contact{
					TriangleID: int(id),
					Point:      p,
					Normal:     t.normal,
					Distance:   sqrt32(d2),
					Top:        t.top(),
				})
			})
	}

	slices.SortFunc(out[first:], func(a, b Contact) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.TriangleID, b.TriangleID)
	})
	return out
}

// Data returns the mesh in flat form, one unshared vertex triple per triangle.
func (m *TriangleMesh) Data() MeshData {
	if m == nil {
		return MeshData{}
	}
	data := MeshData{
		Positions: make([]float32, 0, len(m.tris)*9),
		Indices:   make([]uint32, 0, len(m.tris)*3),
		Materials: make([]uint16, 0, len(m.tris)),
	}
	for i, t := range m.tris {
		for _, v := range [3]math.Vec3{t.a, t.b, t.c} {
			data.Positions = append(data.Positions, v.X, v.Y, v.Z)
		}
		base := uint32(i * 3)
		data.Indices = append(data.Indices, base, base+1, base+2)
		data.Materials = append(data.Materials, t.material)
	}
	for id, off := range m.noCollDet {
		if off {
			data.NoCollDet = append(data.NoCollDet, id)
		}
	}
	slices.Sort(data.NoCollDet)
	return data
}
