package world

import (
	"testing"

	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/pkg/formats"
	"github.com/Faultbox/midgard-npc/pkg/math"
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

func mockPathFinder(width, height int, blocked [][2]int) *PathFinder {
	return NewPathFinder(terrain.NewGrid(mockGAT(width, height, blocked), 10))
}

func TestNewPathFinder_NoGAT(t *testing.T) {
	if pf := NewPathFinder(terrain.Grid{}); pf != nil {
		t.Errorf("NewPathFinder(no GAT) = %v, want nil", pf)
	}
	var pf *PathFinder
	if pf.FindPath(0, 0, 1, 1) != nil {
		t.Error("nil PathFinder should find no path")
	}
}

func TestPathFinder_FindPath_Simple(t *testing.T) {
	pf := mockPathFinder(5, 5, nil)

	path := pf.FindPath(0, 0, 4, 4)
	if path == nil {
		t.Fatal("expected path, got nil")
	}

	if path[0] != [2]int{0, 0} {
		t.Errorf("path should start at (0,0), got %v", path[0])
	}
	if last := path[len(path)-1]; last != [2]int{4, 4} {
		t.Errorf("path should end at (4,4), got %v", last)
	}
	// Straight diagonal on an open grid
	if len(path) != 5 {
		t.Errorf("len(path) = %d, want 5", len(path))
	}
}

func TestPathFinder_FindPath_WithObstacle(t *testing.T) {
	// 5x5 grid with wall in the middle
	blocked := [][2]int{
		{2, 0}, {2, 1}, {2, 2}, {2, 3},
	}
	pf := mockPathFinder(5, 5, blocked)

	path := pf.FindPath(0, 2, 4, 2)
	if path == nil {
		t.Fatal("expected path around obstacle, got nil")
	}

	for _, p := range path {
		if p[0] == 2 && p[1] < 4 {
			t.Errorf("path went through blocked cell at (%d,%d)", p[0], p[1])
		}
	}
}

func TestPathFinder_FindPath_NoCornerCutting(t *testing.T) {
	// (1,0) and (0,1) blocked: the diagonal (0,0)->(1,1) squeezes between them.
	pf := mockPathFinder(3, 3, [][2]int{{1, 0}, {0, 1}})

	if path := pf.FindPath(0, 0, 2, 2); path != nil {
		t.Errorf("expected no path through a diagonal gap, got %v", path)
	}
}

func TestPathFinder_FindPath_NoPath(t *testing.T) {
	blocked := [][2]int{
		{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4},
	}
	pf := mockPathFinder(5, 5, blocked)

	if path := pf.FindPath(0, 2, 4, 2); path != nil {
		t.Errorf("expected no path, got %v", path)
	}
}

func TestPathFinder_FindPath_SameStartGoal(t *testing.T) {
	pf := mockPathFinder(5, 5, nil)

	path := pf.FindPath(2, 2, 2, 2)
	if len(path) != 1 {
		t.Errorf("expected path length 1, got %d", len(path))
	}
}

func TestPathFinder_FindPath_OutOfBounds(t *testing.T) {
	pf := mockPathFinder(5, 5, nil)

	if path := pf.FindPath(-1, 0, 4, 4); path != nil {
		t.Error("expected nil for out of bounds start")
	}
	if path := pf.FindPath(0, 0, 10, 10); path != nil {
		t.Error("expected nil for out of bounds goal")
	}
}

func TestPathFinder_FindPath_BlockedGoal(t *testing.T) {
	pf := mockPathFinder(5, 5, [][2]int{{4, 4}})

	if path := pf.FindPath(0, 0, 4, 4); path != nil {
		t.Error("expected nil for blocked goal")
	}
}

func TestPathFinder_IsWalkable(t *testing.T) {
	pf := mockPathFinder(5, 5, [][2]int{{2, 2}})

	if pf.IsWalkable(2, 2) {
		t.Error("expected (2,2) to be blocked")
	}
	if !pf.IsWalkable(0, 0) {
		t.Error("expected (0,0) to be walkable")
	}
	if pf.IsWalkable(-1, 0) {
		t.Error("expected out of bounds to be not walkable")
	}
}

func TestPathFinder_WorldToCell(t *testing.T) {
	pf := mockPathFinder(5, 5, nil)

	tests := []struct {
		p      math.Vec2
		wx, wy int
	}{
		{math.Vec2{X: 0, Y: 0}, 0, 0},
		{math.Vec2{X: 15, Y: 49.9}, 1, 4},
		{math.Vec2{X: -0.5, Y: 3}, -1, 0},
	}
	for _, tt := range tests {
		x, y := pf.WorldToCell(tt.p)
		if x != tt.wx || y != tt.wy {
			t.Errorf("WorldToCell(%v) = (%d,%d), want (%d,%d)", tt.p, x, y, tt.wx, tt.wy)
		}
	}

	if c := pf.CellToWorld(1, 2); c.X != 15 || c.Y != 25 {
		t.Errorf("CellToWorld(1,2) = %v, want (15,25)", c)
	}
}

func TestPathFinder_FindWorldPath(t *testing.T) {
	t.Run("open grid is one straight leg", func(t *testing.T) {
		pf := mockPathFinder(10, 10, nil)
		to := math.Vec2{X: 93, Y: 91}

		wps := pf.FindWorldPath(math.Vec2{X: 5, Y: 5}, to)
		if len(wps) != 1 || wps[0] != to {
			t.Errorf("FindWorldPath() = %v, want [%v]", wps, to)
		}
	})

	t.Run("detours around a wall", func(t *testing.T) {
		// Wall at x=5 from y=0..7; the gap is at y=8,9.
		var blocked [][2]int
		for y := 0; y < 8; y++ {
			blocked = append(blocked, [2]int{5, y})
		}
		pf := mockPathFinder(10, 10, blocked)
		from := math.Vec2{X: 15, Y: 15}
		to := math.Vec2{X: 85, Y: 15}

		wps := pf.FindWorldPath(from, to)
		if len(wps) < 2 {
			t.Fatalf("FindWorldPath() = %v, want a detour", wps)
		}
		if wps[len(wps)-1] != to {
			t.Errorf("last waypoint = %v, want %v", wps[len(wps)-1], to)
		}
		// Every leg must stay on walkable cells.
		prev := from
		for _, wp := range wps {
			if !pf.clearLine(prev, wp) {
				t.Errorf("leg %v -> %v crosses a blocked cell", prev, wp)
			}
			prev = wp
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		var blocked [][2]int
		for y := 0; y < 10; y++ {
			blocked = append(blocked, [2]int{5, y})
		}
		pf := mockPathFinder(10, 10, blocked)

		if wps := pf.FindWorldPath(math.Vec2{X: 15, Y: 15}, math.Vec2{X: 85, Y: 15}); wps != nil {
			t.Errorf("FindWorldPath() = %v, want nil", wps)
		}
	})
}
