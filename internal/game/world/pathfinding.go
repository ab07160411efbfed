package world

import (
	"container/heap"
	gomath "math"

	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

const (
	straightCost = float32(1.0)
	diagonalCost = float32(1.414)
)

// pathNode is a node in the A* open set.
type pathNode struct {
	x, y  int
	f     float32
	index int // Index in heap
}

// pathHeap implements a priority queue for A* pathfinding.
type pathHeap []*pathNode

func (h pathHeap) Len() int { return len(h) }

func (h pathHeap) Less(i, j int) bool { return h[i].f < h[j].f }

func (h pathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pathHeap) Push(x any) {
	node := x.(*pathNode)
	node.index = len(*h)
	*h = append(*h, node)
}

func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

// Directions for 8-way movement, in RO direction index order.
var pathDirections = [8][2]int{
	{0, 1},   // S
	{-1, 1},  // SW
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
}

// PathFinder plans routes over the GAT walkability grid. The collision
// kernel still decides the exact motion; a path only supplies waypoints.
type PathFinder struct {
	grid   terrain.Grid
	width  int
	height int
}

// NewPathFinder creates a pathfinder, or returns nil without GAT data.
func NewPathFinder(grid terrain.Grid) *PathFinder {
	if grid.GAT == nil {
		return nil
	}
	return &PathFinder{
		grid:   grid,
		width:  int(grid.GAT.Width),
		height: int(grid.GAT.Height),
	}
}

// FindPath finds a cell path from start to goal using A*, both ends included.
// Returns nil if no path exists.
func (pf *PathFinder) FindPath(startX, startY, goalX, goalY int) [][2]int {
	if pf == nil {
		return nil
	}
	if !pf.IsWalkable(startX, startY) || !pf.IsWalkable(goalX, goalY) {
		return nil
	}

	cells := pf.width * pf.height
	g := make([]float32, cells)
	parent := make([]int32, cells)
	closed := make([]bool, cells)
	open := make([]*pathNode, cells)
	for i := range parent {
		parent[i] = -1
	}

	openSet := &pathHeap{}
	start := &pathNode{x: startX, y: startY, f: pf.heuristic(startX, startY, goalX, goalY)}
	heap.Push(openSet, start)
	open[pf.key(startX, startY)] = start

	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*pathNode)
		ck := pf.key(current.x, current.y)
		if current.x == goalX && current.y == goalY {
			return pf.reconstructPath(parent, ck)
		}
		closed[ck] = true
		open[ck] = nil

		for i, dir := range pathDirections {
			nx, ny := current.x+dir[0], current.y+dir[1]
			if !pf.IsWalkable(nx, ny) {
				continue
			}
			nk := pf.key(nx, ny)
			if closed[nk] {
				continue
			}

			moveCost := straightCost
			if i%2 == 1 {
				// No corner cutting: both orthogonal neighbours must be open.
				if !pf.IsWalkable(current.x+dir[0], current.y) || !pf.IsWalkable(current.x, current.y+dir[1]) {
					continue
				}
				moveCost = diagonalCost
			}

			cost := g[ck] + moveCost
			if node := open[nk]; node != nil {
				if cost < g[nk] {
					g[nk] = cost
					parent[nk] = int32(ck)
					node.f = cost + pf.heuristic(nx, ny, goalX, goalY)
					heap.Fix(openSet, node.index)
				}
				continue
			}

			g[nk] = cost
			parent[nk] = int32(ck)
			node := &pathNode{x: nx, y: ny, f: cost + pf.heuristic(nx, ny, goalX, goalY)}
			open[nk] = node
			heap.Push(openSet, node)
		}
	}

	return nil
}

// FindWorldPath plans a route between two world positions and returns XZ
// waypoints, ending exactly at to. Straight stretches are collapsed so the
// NPC walks direct lines between turns.
func (pf *PathFinder) FindWorldPath(from, to math.Vec2) []math.Vec2 {
	if pf == nil {
		return nil
	}
	sx, sy := pf.WorldToCell(from)
	gx, gy := pf.WorldToCell(to)
	cells := pf.FindPath(sx, sy, gx, gy)
	if cells == nil {
		return nil
	}

	// Greedy line-of-sight smoothing over cell centres.
	points := make([]math.Vec2, len(cells))
	for i, c := range cells {
		points[i] = pf.CellToWorld(c[0], c[1])
	}
	points[len(points)-1] = to

	var waypoints []math.Vec2
	anchor := from
	for i := 1; i < len(points); i++ {
		if !pf.clearLine(anchor, points[i]) {
			waypoints = append(waypoints, points[i-1])
			anchor = points[i-1]
		}
	}
	return append(waypoints, to)
}

// IsWalkable checks if a cell is in bounds and walkable.
func (pf *PathFinder) IsWalkable(x, y int) bool {
	if pf == nil || x < 0 || x >= pf.width || y < 0 || y >= pf.height {
		return false
	}
	cell := pf.grid.GAT.GetCell(x, y)
	return cell != nil && cell.Type.IsWalkable()
}

// WorldToCell converts a world XZ position to cell coordinates.
func (pf *PathFinder) WorldToCell(p math.Vec2) (int, int) {
	cs := float64(pf.grid.CellSize)
	return int(gomath.Floor(float64(p.X) / cs)), int(gomath.Floor(float64(p.Y) / cs))
}

// CellToWorld returns the world XZ centre of a cell.
func (pf *PathFinder) CellToWorld(x, y int) math.Vec2 {
	cs := pf.grid.CellSize
	return math.Vec2{X: (float32(x) + 0.5) * cs, Y: (float32(y) + 0.5) * cs}
}

// clearLine reports whether every cell along a-b is walkable, sampling
// at a quarter cell.
func (pf *PathFinder) clearLine(a, b math.Vec2) bool {
	d := b.Sub(a)
	steps := int(d.Length()/(pf.grid.CellSize*0.25)) + 1
	for i := 0; i <= steps; i++ {
		p := a.Add(d.Scale(float32(i) / float32(steps)))
		if !pf.IsWalkable(pf.WorldToCell(p)) {
			return false
		}
	}
	return true
}

// heuristic is the octile distance.
func (pf *PathFinder) heuristic(x1, y1, x2, y2 int) float32 {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	if dx < dy {
		return float32(dx)*diagonalCost + float32(dy-dx)
	}
	return float32(dy)*diagonalCost + float32(dx-dy)
}

func (pf *PathFinder) key(x, y int) int {
	return y*pf.width + x
}

func (pf *PathFinder) reconstructPath(parent []int32, goal int) [][2]int {
	var path [][2]int
	for k := goal; k >= 0; k = int(parent[k]) {
		path = append(path, [2]int{k % pf.width, k / pf.width})
	}
	// Built from goal to start
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
