package world

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/pkg/formats"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

// Scene errors.
var (
	ErrInvalidScene     = errors.New("world: invalid scene")
	ErrUnknownPrimitive = errors.New("world: unknown scene primitive")
	ErrInvalidPrimitive = errors.New("world: invalid scene primitive")
)

//go:embed scene.schema.json
var sceneSchemaJSON string

var sceneSchema = jsonschema.MustCompileString("scene.schema.json", sceneSchemaJSON)

// Scene is the YAML description of a test world.
//
//	name: courtyard
//	gat: maps/prontera.gat     # optional terrain, relative to the scene file
//	no_coll_det: [20]          # materials that do not collide
//	primitives:
//	  - {type: floor, min: [-500, -500], max: [500, 500], y: 0}
//	  - {type: box, min: [0, 0, -50], max: [10, 200, 50], material: 21}
//	  - {type: ramp, min: [100, -50], max: [200, 50], y: 0, y1: 60}
//	  - {type: quad, points: [[0,0,0], [0,0,10], [10,0,10], [10,0,0]]}
//	npcs:
//	  - {name: guard, position: [-100, 0], destination: [100, 0], speed: 120}
//
// Terrain triangles use the GAT cell type (0-5) as material, so scene
// materials should stay clear of that range.
type Scene struct {
	Name       string      `yaml:"name"`
	GAT        string      `yaml:"gat"`
	CellSize   float32     `yaml:"cell_size"`
	NoCollDet  []uint16    `yaml:"no_coll_det"`
	Primitives []Primitive `yaml:"primitives"`
	NPCs       []NPCSpawn  `yaml:"npcs"`
}

// Primitive is one piece of scene geometry. Which fields apply depends on Type.
type Primitive struct {
	Type     string       `yaml:"type"` // floor, box, ramp, quad
	Min      []float32    `yaml:"min"`
	Max      []float32    `yaml:"max"`
	Y        float32      `yaml:"y"`
	Y1       float32      `yaml:"y1"` // Ramp height at max X
	Points   [][3]float32 `yaml:"points"`
	Material uint16       `yaml:"material"`

	// Placement, applied as Translate * RotateY
	Offset  [3]float32 `yaml:"offset"`
	RotateY float32    `yaml:"rotate_y"` // Degrees
}

// NPCSpawn places an NPC. Y is taken from the ground unless given.
type NPCSpawn struct {
	Name        string      `yaml:"name"`
	Position    [2]float32  `yaml:"position"` // x, z
	Y           *float32    `yaml:"y"`
	Destination *[2]float32 `yaml:"destination"`
	Speed       float32     `yaml:"speed"`
}

// ParseScene decodes a scene from YAML. Documents that do not match
// scene.schema.json fail with ErrInvalidScene.
func ParseScene(data []byte) (*Scene, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validateScene(doc); err != nil {
		return nil, err
	}

	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	return &s, nil
}

func validateScene(doc any) error {
	// The validator works on JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if err := sceneSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return nil
}

// ReadScene reads a scene file. The name defaults to the file name and a
// relative gat path is resolved against the scene's directory.
func ReadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if s.GAT != "" && !filepath.IsAbs(s.GAT) {
		s.GAT = filepath.Join(filepath.Dir(path), s.GAT)
	}
	return s, nil
}

// LoadScene reads a scene file and builds its map, spawning its NPCs.
func LoadScene(path string, cfg collision.Config) (*Map, error) {
	s, err := ReadScene(path)
	if err != nil {
		return nil, err
	}

	mp, err := s.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mp, nil
}

// Build constructs the scene's collision mesh and spawns its NPCs.
func (s *Scene) Build(cfg collision.Config) (*Map, error) {
	b := collision.NewMeshBuilder()
	for _, id := range s.NoCollDet {
		b.SetNoCollDet(id, true)
	}

	var grid *terrain.Grid
	if s.GAT != "" {
		gat, err := formats.ParseGATFile(s.GAT)
		if err != nil {
			return nil, err
		}
		opts := terrain.DefaultMeshOptions()
		if s.CellSize > 0 {
			opts.CellSize = s.CellSize
		}
		mesh, err := terrain.BuildCollisionMesh(gat, opts)
		if err != nil {
			return nil, err
		}
		if err := b.AddMeshData(mesh.Data()); err != nil {
			return nil, err
		}
		g := terrain.NewGrid(gat, opts.CellSize)
		grid = &g
	}

	for i, p := range s.Primitives {
		if err := p.add(b); err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
	}

	mp := NewMap(s.Name, b.Build())
	mp.Grid = grid

	for _, sp := range s.NPCs {
		n := mp.Spawn(sp.Name, sp.Position[0], sp.Position[1], cfg)
		if sp.Y != nil {
			n.SetPosition(sp.Position[0], *sp.Y, sp.Position[1])
		}
		if sp.Speed > 0 {
			n.MoveSpeed = sp.Speed
		}
		if sp.Destination != nil {
			n.SetDestination(sp.Destination[0], sp.Destination[1])
		}
	}
	return mp, nil
}

func (p Primitive) add(b *collision.MeshBuilder) error {
	rot := p.RotateY * gomath.Pi / 180
	b.SetTransform(math.Translate(p.Offset[0], p.Offset[1], p.Offset[2]).Mul(math.RotateY(rot)))
	b.SetMaterial(p.Material)
	defer b.SetTransform(math.Identity())

	switch p.Type {
	case "floor":
		if len(p.Min) != 2 || len(p.Max) != 2 {
			return fmt.Errorf("%w: floor needs min/max as [x, z]", ErrInvalidPrimitive)
		}
		b.AddFloor(p.Min[0], p.Min[1], p.Max[0], p.Max[1], p.Y)
	case "ramp":
		if len(p.Min) != 2 || len(p.Max) != 2 {
			return fmt.Errorf("%w: ramp needs min/max as [x, z]", ErrInvalidPrimitive)
		}
		b.AddRamp(p.Min[0], p.Min[1], p.Max[0], p.Max[1], p.Y, p.Y1)
	case "box":
		if len(p.Min) != 3 || len(p.Max) != 3 {
			return fmt.Errorf("%w: box needs min/max as [x, y, z]", ErrInvalidPrimitive)
		}
		b.AddBox(
			math.Vec3{X: p.Min[0], Y: p.Min[1], Z: p.Min[2]},
			math.Vec3{X: p.Max[0], Y: p.Max[1], Z: p.Max[2]},
		)
	case "quad":
		if len(p.Points) != 4 {
			return fmt.Errorf("%w: quad needs 4 points, got %d", ErrInvalidPrimitive, len(p.Points))
		}
		var v [4]math.Vec3
		for i, pt := range p.Points {
			v[i] = math.Vec3{X: pt[0], Y: pt[1], Z: pt[2]}
		}
		b.AddQuad(v[0], v[1], v[2], v[3])
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPrimitive, p.Type)
	}
	return nil
}
