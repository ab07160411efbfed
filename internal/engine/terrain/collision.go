package terrain

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/pkg/formats"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

// ErrNoGAT is returned when a collision mesh is requested without altitude data.
var ErrNoGAT = errors.New("terrain: no GAT data")

// MeshOptions controls how a GAT grid becomes collision geometry.
type MeshOptions struct {
	CellSize float32

	// NoCollDet lists cell types whose triangles are visible-only.
	NoCollDet []formats.GATCellType

	// BlockedWallHeight, when positive, extrudes blocked cells into solid
	// columns rising this far above the cell's highest corner.
	BlockedWallHeight float32
}

// DefaultMeshOptions keeps every cell collidable and blocked cells flat.
func DefaultMeshOptions() MeshOptions {
	return MeshOptions{CellSize: DefaultCellSize}
}

// BuildCollisionMesh emits two triangles per cell, tagged with the cell type
// as material id.
func BuildCollisionMesh(gat *formats.GAT, opts MeshOptions) (*collision.TriangleMesh, error) {
	if gat == nil {
		return nil, ErrNoGAT
	}
	if len(gat.Cells) != int(gat.Width)*int(gat.Height) {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", formats.ErrInvalidGATDimensions, len(gat.Cells), gat.Width, gat.Height)
	}
	grid := NewGrid(gat, opts.CellSize)
	cs := grid.CellSize

	b := collision.NewMeshBuilder()
	for _, t := range opts.NoCollDet {
		b.SetNoCollDet(uint16(t), true)
	}

	walls := 0
	for y := 0; y < int(gat.Height); y++ {
		for x := 0; x < int(gat.Width); x++ {
			cell := gat.GetCell(x, y)
			h := cell.UpHeights()
			x0, x1 := float32(x)*cs, float32(x+1)*cs
			z0, z1 := float32(y)*cs, float32(y+1)*cs

			b.SetMaterial(uint16(cell.Type))
			b.AddQuad(
				math.Vec3{X: x0, Y: h[0], Z: z0},
				math.Vec3{X: x0, Y: h[2], Z: z1},
				math.Vec3{X: x1, Y: h[3], Z: z1},
				math.Vec3{X: x1, Y: h[1], Z: z0},
			)

			if opts.BlockedWallHeight > 0 && cell.Type.IsBlocked() {
				lo := min(h[0], h[1], h[2], h[3])
				hi := max(h[0], h[1], h[2], h[3])
				b.AddBox(
					math.Vec3{X: x0, Y: lo, Z: z0},
					math.Vec3{X: x1, Y: hi + opts.BlockedWallHeight, Z: z1},
				)
				walls++
			}
		}
	}

	mesh := b.Build()
	logger.Debug("built terrain collision mesh",
		zap.Uint32("width", gat.Width),
		zap.Uint32("height", gat.Height),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("walls", walls),
		zap.Int("dropped", b.Dropped()))
	return mesh, nil
}
