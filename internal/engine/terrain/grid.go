// Package terrain turns a GAT altitude table into collision geometry and
// answers height and walkability queries in world units.
package terrain

import (
	"github.com/Faultbox/midgard-npc/pkg/formats"
)

// DefaultCellSize is the world size of one GAT cell (half a GND tile).
const DefaultCellSize = float32(5)

// Grid maps world XZ coordinates onto a GAT. Cell (x, y) covers
// X in [x*CellSize, (x+1)*CellSize] and Z in [y*CellSize, (y+1)*CellSize].
type Grid struct {
	GAT      *formats.GAT
	CellSize float32
}

// NewGrid wraps gat; a non-positive cellSize selects DefaultCellSize.
func NewGrid(gat *formats.GAT, cellSize float32) Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return Grid{GAT: gat, CellSize: cellSize}
}

// Cell returns the cell containing (worldX, worldZ), or nil outside the map.
func (g Grid) Cell(worldX, worldZ float32) *formats.GATCell {
	if g.GAT == nil || worldX < 0 || worldZ < 0 {
		return nil
	}
	return g.GAT.GetCell(int(worldX/g.CellSize), int(worldZ/g.CellSize))
}

// Size returns the world extent of the map.
func (g Grid) Size() (width, depth float32) {
	if g.GAT == nil {
		return 0, 0
	}
	return float32(g.GAT.Width) * g.CellSize, float32(g.GAT.Height) * g.CellSize
}

// HeightAt returns the bilinearly interpolated terrain height (+Y up).
// Positions outside the map are clamped to the nearest edge cell.
func (g Grid) HeightAt(worldX, worldZ float32) float32 {
	if g.GAT == nil || len(g.GAT.Cells) == 0 {
		return 0
	}

	cellFX := worldX / g.CellSize
	cellFZ := worldZ / g.CellSize
	cellX := clampi(int(cellFX), 0, int(g.GAT.Width)-1)
	cellZ := clampi(int(cellFZ), 0, int(g.GAT.Height)-1)

	fracX := clampf(cellFX-float32(cellX), 0, 1)
	fracZ := clampf(cellFZ-float32(cellZ), 0, 1)

	h := g.GAT.GetCell(cellX, cellZ).UpHeights()
	// Corners: 0=SW, 1=SE, 2=NW, 3=NE
	south := h[0]*(1-fracX) + h[1]*fracX
	north := h[2]*(1-fracX) + h[3]*fracX
	return south*(1-fracZ) + north*fracZ
}

// Walkable reports whether the cell under (worldX, worldZ) allows walking.
// Without a GAT every position is walkable.
func (g Grid) Walkable(worldX, worldZ float32) bool {
	if g.GAT == nil {
		return true
	}
	cell := g.Cell(worldX, worldZ)
	return cell != nil && cell.Type.IsWalkable()
}

func clampf(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}

func clampi(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
