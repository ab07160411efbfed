// Package world holds loaded maps, their NPCs and the locomotion loop that
// moves NPCs through the collision kernel.
package world

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/assets"
	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/internal/game/entity"
	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

// ErrNoMap is returned by Manager operations that need a current map.
var ErrNoMap = errors.New("world: no map loaded")

// Map represents a loaded map: collision geometry plus its NPCs.
type Map struct {
	Name string

	// Mesh is shared read-only by every NPC on the map.
	Mesh *collision.TriangleMesh

	// Grid is set when the map came from a GAT; it enables pathfinding and
	// spawn height lookup.
	Grid *terrain.Grid

	NPCs *entity.Manager
}

// NewMap creates a map around an already built mesh.
func NewMap(name string, mesh *collision.TriangleMesh) *Map {
	return &Map{
		Name: name,
		Mesh: mesh,
		NPCs: entity.NewManager(),
	}
}

// collisionMesh returns the mesh as the kernel's interface, keeping a nil
// pointer from turning into a non-nil interface.
func (m *Map) collisionMesh() collision.Mesh {
	if m == nil || m.Mesh == nil {
		return nil
	}
	return m.Mesh
}

// IsWalkable checks if a world position is on walkable GAT ground.
// Maps without a grid report every position as walkable.
func (m *Map) IsWalkable(x, z float32) bool {
	if m.Grid == nil {
		return true
	}
	return m.Grid.Walkable(x, z)
}

// GroundHeight returns the feet height an NPC at (x, z) would stand at.
// ok is false over void.
func (m *Map) GroundHeight(x, z float32, cfg collision.Config) (float32, bool) {
	mesh := m.collisionMesh()
	if mesh == nil {
		if m.Grid != nil {
			return m.Grid.HeightAt(x, z), true
		}
		return 0, false
	}

	// Probe from above the highest geometry so spawns inside buildings land on the roof.
	top := float32(0)
	if _, hi := m.Mesh.Bounds(); hi.Y > top {
		top = hi.Y
	}
	ctx := collision.NewContext()
	g, ok := collision.SampleGround(ctx, math.Vec3{X: x, Y: top + 1, Z: z}, mesh, cfg)
	if !ok {
		return 0, false
	}
	return g.HeightAt(x, z) + g.Clearance, true
}

// Spawn adds an NPC at (x, z) standing on the ground. Over void the NPC is
// placed at y = 0 and will fall on its first tick.
func (m *Map) Spawn(name string, x, z float32, cfg collision.Config) *entity.NPC {
	y, _ := m.GroundHeight(x, z, cfg)
	n := entity.NewNPC(0, name, x, y, z)
	m.NPCs.Add(n)
	return n
}

// Manager manages the current map and map transitions.
type Manager struct {
	mu       sync.RWMutex
	current  *Map
	assets   *assets.Manager
	cacheDir string
	opts     terrain.MeshOptions
}

// NewManager creates a world manager loading GAT maps from mapDir and from
// archives added with AddArchive. An empty cacheDir disables the mesh cache.
func NewManager(mapDir, cacheDir string, opts terrain.MeshOptions) *Manager {
	return &Manager{
		assets:   assets.NewManager(mapDir),
		cacheDir: cacheDir,
		opts:     opts,
	}
}

// AddArchive makes the maps in a GRF archive loadable. Later archives take
// priority; loose files in the map directory win over all of them.
func (m *Manager) AddArchive(path string) error {
	return m.assets.AddArchive(path)
}

// Maps returns the names LoadMap accepts, sorted.
func (m *Manager) Maps() []string {
	files := m.assets.List(".gat")
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f[:len(f)-len(".gat")]
	}
	return names
}

// Close releases the manager's archives.
func (m *Manager) Close() {
	m.assets.Close()
}

// Current returns the current map.
func (m *Manager) Current() *Map {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetCurrent replaces the current map.
func (m *Manager) SetCurrent(mp *Map) {
	m.mu.Lock()
	m.current = mp
	m.mu.Unlock()
}

// LoadMap loads <name>.gat and makes it current.
func (m *Manager) LoadMap(name string) error {
	file := name + ".gat"
	data, info, err := m.assets.Open(file)
	if err != nil {
		return fmt.Errorf("loading map %s: %w", name, err)
	}
	mp, err := BuildGAT(name, data, CacheMeta(file, info, m.opts), m.opts, m.cacheDir)
	if err != nil {
		return fmt.Errorf("loading map %s: %w", name, err)
	}

	m.SetCurrent(mp)
	logger.Info("map loaded",
		zap.String("map", name),
		zap.Int("triangles", mp.Mesh.TriangleCount()))
	return nil
}

// LoadScene loads a scene file and makes it current.
func (m *Manager) LoadScene(path string, cfg collision.Config) error {
	mp, err := LoadScene(path, cfg)
	if err != nil {
		return err
	}

	m.SetCurrent(mp)
	logger.Info("scene loaded",
		zap.String("scene", mp.Name),
		zap.Int("triangles", mp.Mesh.TriangleCount()),
		zap.Int("npcs", mp.NPCs.Count()))
	return nil
}
