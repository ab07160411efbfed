package collision

import (
	"slices"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// maxTrianglesPerLeaf is the threshold for splitting BVH nodes.
const maxTrianglesPerLeaf = 4

// maxTraversalDepth bounds the explicit traversal stack. Median splits keep
// the tree depth near log2(n/4), far below this even for millions of triangles.
const maxTraversalDepth = 64

// bvhNode is one node of the flattened hierarchy. Internal nodes store their
// left child at index+1 and their right child at right; leaves store a range
// into TriangleMesh.order.
type bvhNode struct {
	bounds aabb
	right  int32
	start  int32
	count  int32 // > 0 for leaves
}

// buildBVH orders tri indices and returns the flattened node list.
func buildBVH(tris []triangle, order []int32) []bvhNode {
	if len(order) == 0 {
		return nil
	}
	nodes := make([]bvhNode, 0, 2*len(order)/maxTrianglesPerLeaf+1)
	centroids := make([]math.Vec3, len(tris))
	for i := range tris {
		centroids[i] = tris[i].a.Add(tris[i].b).Add(tris[i].c).Scale(1.0 / 3.0)
	}
	nodes = buildBVHNode(nodes, tris, centroids, order, 0)
	return nodes
}

func buildBVHNode(nodes []bvhNode, tris []triangle, centroids []math.Vec3, order []int32, offset int32) []bvhNode {
	bounds := emptyAABB()
	for _, id := range order {
		bounds = bounds.union(tris[id].bounds())
	}

	index := len(nodes)
	nodes = append(nodes, bvhNode{bounds: bounds})

	if len(order) <= maxTrianglesPerLeaf {
		nodes[index].start = offset
		nodes[index].count = int32(len(order))
		return nodes
	}

	// Split at the centroid median along the longest axis.
	centroidBounds := emptyAABB()
	for _, id := range order {
		centroidBounds = centroidBounds.extend(centroids[id])
	}
	axis := centroidBounds.longestAxis()
	slices.SortFunc(order, func(i, j int32) int {
		ci, cj := centroids[i].Axis(axis), centroids[j].Axis(axis)
		switch {
		case ci < cj:
			return -1
		case ci > cj:
			return 1
		default:
			return int(i - j)
		}
	})

	mid := len(order) / 2
	nodes = buildBVHNode(nodes, tris, centroids, order[:mid], offset)
	nodes[index].right = int32(len(nodes))
	nodes = buildBVHNode(nodes, tris, centroids, order[mid:], offset+int32(mid))
	return nodes
}

// traverse visits every leaf triangle whose ancestors all pass visitNode.
func (m *TriangleMesh) traverse(visitNode func(aabb) bool, visitTri func(id int32)) {
	if len(m.nodes) == 0 {
		return
	}
	var stack [maxTraversalDepth]int32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		node := &m.nodes[stack[sp]]
		idx := stack[sp]
		if !visitNode(node.bounds) {
			continue
		}
		if node.count > 0 {
			for _, id := range m.order[node.start : node.start+node.count] {
				visitTri(id)
			}
			continue
		}
		if sp+2 > len(stack) {
			// Unreachable with median splits; fall back to the leaf scan of this subtree.
			m.scanSubtree(idx, visitTri)
			continue
		}
		stack[sp] = node.right
		sp++
		stack[sp] = idx + 1
		sp++
	}
}

// scanSubtree visits every triangle under node idx without culling.
func (m *TriangleMesh) scanSubtree(idx int32, visitTri func(id int32)) {
	node := &m.nodes[idx]
	if node.count > 0 {
		for _, id := range m.order[node.start : node.start+node.count] {
			visitTri(id)
		}
		return
	}
	m.scanSubtree(idx+1, visitTri)
	m.scanSubtree(node.right, visitTri)
}
