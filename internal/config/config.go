// Package config handles simulator configuration loading and management.
package config

import (
	gomath "math"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/pkg/formats"
)

// Config holds all simulator settings.
type Config struct {
	Collision CollisionConfig `yaml:"collision"`
	Movement  MovementConfig  `yaml:"movement"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Data      DataConfig      `yaml:"data"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CollisionConfig is the NPC collision profile. Angles are in degrees.
type CollisionConfig struct {
	Radius      float32   `yaml:"radius"`
	ScanHeights []float32 `yaml:"scan_heights"`
	StepHeight  float32   `yaml:"step_height"`
	MaxStepDown float32   `yaml:"max_step_down"`
	ProbeDepth  float32   `yaml:"probe_depth"`

	MaxGroundAngle float32 `yaml:"max_ground_angle"`
	MaxSlideAngle  float32 `yaml:"max_slide_angle"`
	MinWallNormalY float32 `yaml:"min_wall_normal_y"`

	WallSlide             bool    `yaml:"wall_slide"`
	MaxDepenetrationSpeed float32 `yaml:"max_depenetration_speed"`

	SlideGravity  float32 `yaml:"slide_gravity"`
	SlideFriction float32 `yaml:"slide_friction"`
	MaxSlideSpeed float32 `yaml:"max_slide_speed"`

	GroundClearance float32 `yaml:"ground_clearance"`
}

// MovementConfig drives the NPC locomotion loop.
type MovementConfig struct {
	Speed           float32 `yaml:"speed"`             // World units per second
	ArriveDistance  float32 `yaml:"arrive_distance"`   // Distance at which a destination counts as reached
	TickRate        int     `yaml:"tick_rate"`         // Simulation ticks per second
	MaxBlockedTicks int     `yaml:"max_blocked_ticks"` // Consecutive fully blocked ticks before giving up
	Workers         int     `yaml:"workers"`           // Parallel NPC updates; 0 or 1 runs serially
	FallSpeed       float32 `yaml:"fall_speed"`        // Units per second while falling
	KillDepth       float32 `yaml:"kill_depth"`        // Depth below the map at which falling NPCs are put back
}

// TerrainConfig controls GAT to collision mesh conversion.
type TerrainConfig struct {
	CellSize          float32  `yaml:"cell_size"`
	BlockedWallHeight float32  `yaml:"blocked_wall_height"`
	NoCollDet         []string `yaml:"no_coll_det"` // Cell type names, e.g. "Water"
}

// DataConfig holds data file paths.
type DataConfig struct {
	MapDir   string   `yaml:"map_dir"`   // Directory searched for <map>.gat
	Archives []string `yaml:"archives"`  // GRF archives searched after MapDir, last first
	CacheDir string   `yaml:"cache_dir"` // Mesh cache directory; empty disables caching
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	c := collision.DefaultConfig()
	return &Config{
		Collision: CollisionConfig{
			Radius:                c.Radius,
			ScanHeights:           c.ScanHeights,
			StepHeight:            c.StepHeight,
			MaxStepDown:           c.MaxStepDown,
			ProbeDepth:            c.ProbeDepth,
			MaxGroundAngle:        45,
			MaxSlideAngle:         70,
			MinWallNormalY:        c.MinWallNormalY,
			WallSlide:             c.EnableWallSlide,
			MaxDepenetrationSpeed: c.MaxDepenetrationSpeed,
			SlideGravity:          c.SlideGravity,
			SlideFriction:         c.SlideFriction,
			MaxSlideSpeed:         c.MaxSlideSpeed,
		},
		Movement: MovementConfig{
			Speed:           150,
			ArriveDistance:  1,
			TickRate:        30,
			MaxBlockedTicks: 15,
			FallSpeed:       600,
			KillDepth:       1000,
		},
		Terrain: TerrainConfig{
			CellSize: terrain.DefaultCellSize,
		},
		Data: DataConfig{
			MapDir: "data",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ToCollision converts the profile to kernel units.
func (c CollisionConfig) ToCollision() collision.Config {
	return collision.Config{
		Radius:                c.Radius,
		ScanHeights:           append([]float32(nil), c.ScanHeights...),
		StepHeight:            c.StepHeight,
		MaxStepDown:           c.MaxStepDown,
		ProbeDepth:            c.ProbeDepth,
		MaxGroundAngleRad:     radians(c.MaxGroundAngle),
		MaxSlideAngleRad:      radians(c.MaxSlideAngle),
		MinWallNormalY:        c.MinWallNormalY,
		EnableWallSlide:       c.WallSlide,
		MaxDepenetrationSpeed: c.MaxDepenetrationSpeed,
		SlideGravity:          c.SlideGravity,
		SlideFriction:         c.SlideFriction,
		MaxSlideSpeed:         c.MaxSlideSpeed,
		GroundClearance:       c.GroundClearance,
	}
}

// TickSeconds returns the fixed timestep.
func (m MovementConfig) TickSeconds() float32 {
	if m.TickRate <= 0 {
		return 1.0 / 30
	}
	return 1 / float32(m.TickRate)
}

// MeshOptions converts the terrain section, resolving cell type names.
// Unknown names are returned in the second result.
func (t TerrainConfig) MeshOptions() (terrain.MeshOptions, []string) {
	opts := terrain.MeshOptions{
		CellSize:          t.CellSize,
		BlockedWallHeight: t.BlockedWallHeight,
	}
	var unknown []string
	for _, name := range t.NoCollDet {
		ct, ok := cellTypeByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		opts.NoCollDet = append(opts.NoCollDet, ct)
	}
	return opts, unknown
}

func cellTypeByName(name string) (formats.GATCellType, bool) {
	for t := formats.GATWalkable; t <= formats.GATBlockedSnipe; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func radians(deg float32) float32 {
	return deg * gomath.Pi / 180
}
