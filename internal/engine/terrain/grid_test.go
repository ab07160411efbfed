package terrain

import (
	"testing"

	"github.com/Faultbox/midgard-npc/pkg/formats"
)

// mockGAT creates a flat GAT with the given cells blocked.
func mockGAT(width, height int, blocked [][2]int) *formats.GAT {
	gat := formats.NewGAT(uint32(width), uint32(height))
	for _, b := range blocked {
		if cell := gat.GetCell(b[0], b[1]); cell != nil {
			cell.Type = formats.GATBlocked
		}
	}
	return gat
}

// slopedGAT rises 1 unit per world unit along +X (GAT stores negative heights).
func slopedGAT(width, height int) *formats.GAT {
	gat := formats.NewGAT(uint32(width), uint32(height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			x0, x1 := float32(x)*DefaultCellSize, float32(x+1)*DefaultCellSize
			gat.GetCell(x, y).Heights = [4]float32{-x0, -x1, -x0, -x1}
		}
	}
	return gat
}

func TestGrid_HeightAt(t *testing.T) {
	grid := NewGrid(slopedGAT(4, 4), 0)

	tests := []struct {
		x, z, want float32
	}{
		{0, 0, 0},
		{2.5, 2.5, 2.5},
		{7, 12, 7},
		{20, 10, 20}, // far edge
		{-5, 5, 0},   // clamped
		{99, 5, 20},  // clamped
	}
	for _, tt := range tests {
		if got := grid.HeightAt(tt.x, tt.z); got < tt.want-1e-4 || got > tt.want+1e-4 {
			t.Errorf("HeightAt(%f, %f) = %f, want %f", tt.x, tt.z, got, tt.want)
		}
	}
}

func TestGrid_Walkable(t *testing.T) {
	grid := NewGrid(mockGAT(3, 3, [][2]int{{1, 1}}), 0)

	if !grid.Walkable(2, 2) {
		t.Error("(2,2) should be walkable")
	}
	if grid.Walkable(7, 7) {
		t.Error("blocked cell should not be walkable")
	}
	if grid.Walkable(-1, 0) || grid.Walkable(0, 15) {
		t.Error("outside the map should not be walkable")
	}
	if !(Grid{}).Walkable(100, 100) {
		t.Error("no GAT allows movement")
	}
}

func TestGrid_Size(t *testing.T) {
	w, d := NewGrid(mockGAT(4, 2, nil), 10).Size()
	if w != 40 || d != 20 {
		t.Errorf("Size = %f x %f, want 40 x 20", w, d)
	}
}
