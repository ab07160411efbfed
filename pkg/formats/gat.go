// Package formats reads and writes the Ragnarok Online ground altitude table
// (GAT), the per-cell height and walkability grid that terrain collision
// meshes are built from.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// GAT format errors.
var (
	ErrInvalidGATMagic       = errors.New("invalid GAT magic: expected 'GRAT'")
	ErrUnsupportedGATVersion = errors.New("unsupported GAT version")
	ErrTruncatedGATData      = errors.New("truncated GAT data")
	ErrInvalidGATDimensions  = errors.New("invalid GAT dimensions")
)

const (
	gatMagic      = "GRAT"
	gatHeaderSize = 14
	gatCellSize   = 20
	// MaxGATDimension bounds width and height when parsing.
	MaxGATDimension = 4096
)

// GATVersion represents the GAT file version.
type GATVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GATVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GATCellType represents the walkability type of a cell.
type GATCellType uint32

// Cell type constants.
const (
	GATWalkable      GATCellType = 0 // Normal walkable ground
	GATBlocked       GATCellType = 1 // Cannot walk through
	GATWater         GATCellType = 2 // Deep water
	GATWalkableWater GATCellType = 3 // Shore/shallow water
	GATSnipeable     GATCellType = 4 // Can attack over but not walk (cliffs)
	GATBlockedSnipe  GATCellType = 5 // Blocked but can shoot over
)

var gatCellTypeNames = [...]string{
	GATWalkable:      "Walkable",
	GATBlocked:       "Blocked",
	GATWater:         "Water",
	GATWalkableWater: "Walkable+Water",
	GATSnipeable:     "Snipeable",
	GATBlockedSnipe:  "Blocked+Snipe",
}

// String returns a human-readable cell type name.
func (t GATCellType) String() string {
	if int(t) < len(gatCellTypeNames) {
		return gatCellTypeNames[t]
	}
	return fmt.Sprintf("Unknown(%d)", uint32(t))
}

// IsWalkable returns true if the cell type allows walking.
func (t GATCellType) IsWalkable() bool {
	return t == GATWalkable || t == GATWalkableWater
}

// IsBlocked returns true if the cell blocks movement.
func (t GATCellType) IsBlocked() bool {
	return t == GATBlocked || t == GATBlockedSnipe
}

// IsWater returns true if the cell contains water.
func (t GATCellType) IsWater() bool {
	return t == GATWater || t == GATWalkableWater
}

// GATCell is one cell of the grid.
type GATCell struct {
	// Heights holds the corner altitudes as stored in the file (negative is up):
	// [0] = south-west, [1] = south-east, [2] = north-west, [3] = north-east
	Heights [4]float32
	Type    GATCellType
}

// AverageHeight returns the average altitude of all four corners.
func (c *GATCell) AverageHeight() float32 {
	return (c.Heights[0] + c.Heights[1] + c.Heights[2] + c.Heights[3]) / 4.0
}

// UpHeights returns the corner heights with +Y up.
func (c *GATCell) UpHeights() [4]float32 {
	return [4]float32{-c.Heights[0], -c.Heights[1], -c.Heights[2], -c.Heights[3]}
}

// GAT represents a parsed Ground Altitude Table file.
type GAT struct {
	Version GATVersion
	Width   uint32
	Height  uint32
	Cells   []GATCell
}

// NewGAT returns a flat, walkable grid of the given size at version 1.2.
func NewGAT(width, height uint32) *GAT {
	return &GAT{
		Version: GATVersion{Major: 1, Minor: 2},
		Width:   width,
		Height:  height,
		Cells:   make([]GATCell, int(width)*int(height)),
	}
}

// GetCell returns the cell at the given coordinates.
// Returns nil if coordinates are out of bounds.
func (g *GAT) GetCell(x, y int) *GATCell {
	if g == nil || x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Cells[y*int(g.Width)+x]
}

// IsWalkable checks if the cell at (x, y) is walkable.
func (g *GAT) IsWalkable(x, y int) bool {
	cell := g.GetCell(x, y)
	return cell != nil && cell.Type.IsWalkable()
}

// CountByType returns the count of cells for each type.
func (g *GAT) CountByType() map[GATCellType]int {
	counts := make(map[GATCellType]int)
	for _, cell := range g.Cells {
		counts[cell.Type]++
	}
	return counts
}

// AltitudeRange returns the lowest and highest corner heights with +Y up.
func (g *GAT) AltitudeRange() (lo, hi float32) {
	if len(g.Cells) == 0 {
		return 0, 0
	}
	lo, hi = -g.Cells[0].Heights[0], -g.Cells[0].Heights[0]
	for i := range g.Cells {
		for _, h := range g.Cells[i].UpHeights() {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

type gatHeader struct {
	Magic  [4]byte
	Minor  uint8
	Major  uint8
	Width  uint32
	Height uint32
}

// ParseGAT parses a GAT file from raw bytes.
func ParseGAT(data []byte) (*GAT, error) {
	if len(data) < gatHeaderSize {
		return nil, ErrTruncatedGATData
	}
	return ReadGAT(bytes.NewReader(data))
}

// ReadGAT decodes a GAT stream.
func ReadGAT(r io.Reader) (*GAT, error) {
	var hdr gatHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedGATData)
	}
	if string(hdr.Magic[:]) != gatMagic {
		return nil, ErrInvalidGATMagic
	}

	// Cell layout is identical across 1.x to 3.x.
	version := GATVersion{Major: hdr.Major, Minor: hdr.Minor}
	if version.Major < 1 || version.Major > 3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGATVersion, version)
	}
	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > MaxGATDimension || hdr.Height > MaxGATDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGATDimensions, hdr.Width, hdr.Height)
	}

	gat := &GAT{
		Version: version,
		Width:   hdr.Width,
		Height:  hdr.Height,
		Cells:   make([]GATCell, int(hdr.Width)*int(hdr.Height)),
	}
	if err := binary.Read(r, binary.LittleEndian, gat.Cells); err != nil {
		return nil, fmt.Errorf("%w: reading %d cells", ErrTruncatedGATData, len(gat.Cells))
	}
	return gat, nil
}

// ParseGATFile parses a GAT file from disk.
func ParseGATFile(path string) (*GAT, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening GAT file: %w", err)
	}
	defer f.Close()

	gat, err := ReadGAT(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return gat, nil
}

// WriteTo encodes the grid in GAT layout.
func (g *GAT) WriteTo(w io.Writer) (int64, error) {
	if len(g.Cells) != int(g.Width)*int(g.Height) {
		return 0, fmt.Errorf("%w: %d cells for %dx%d", ErrInvalidGATDimensions, len(g.Cells), g.Width, g.Height)
	}
	hdr := gatHeader{
		Minor:  g.Version.Minor,
		Major:  g.Version.Major,
		Width:  g.Width,
		Height: g.Height,
	}
	copy(hdr.Magic[:], gatMagic)

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.LittleEndian, g.Cells); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(gatHeaderSize + len(g.Cells)*gatCellSize), nil
}
