package main

import (
	"fmt"
	gomath "math"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/internal/game/world"
	"github.com/Faultbox/midgard-npc/internal/logger"
)

// meshOptions returns the terrain options from the config, warning about
// cell type names it does not know.
func meshOptions() terrain.MeshOptions {
	opts, unknown := cfg.Terrain.MeshOptions()
	for _, name := range unknown {
		logger.Warn("ignoring unknown cell type in no_coll_det", zap.String("type", name))
	}
	return opts
}

// loadWorld resolves target to a map: a scene file (.yaml, .yml), a GAT
// file, or the name of a map in the configured map directory or archives.
func loadWorld(target string) (*world.Map, error) {
	opts := meshOptions()

	switch strings.ToLower(filepath.Ext(target)) {
	case ".yaml", ".yml":
		s, err := world.ReadScene(target)
		if err != nil {
			return nil, err
		}
		if s.CellSize <= 0 {
			s.CellSize = opts.CellSize
		}
		for i := range s.NPCs {
			if s.NPCs[i].Speed <= 0 {
				s.NPCs[i].Speed = cfg.Movement.Speed
			}
		}
		mp, err := s.Build(cfg.Collision.ToCollision())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", target, err)
		}
		return mp, nil

	case ".gat":
		name := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
		return world.LoadGAT(name, target, opts, cfg.Data.CacheDir)

	default:
		wm, err := worldManager(opts)
		if err != nil {
			return nil, err
		}
		defer wm.Close()
		if err := wm.LoadMap(target); err != nil {
			return nil, err
		}
		return wm.Current(), nil
	}
}

// worldManager creates a world manager over the configured map directory
// and archives.
func worldManager(opts terrain.MeshOptions) (*world.Manager, error) {
	wm := world.NewManager(cfg.Data.MapDir, cfg.Data.CacheDir, opts)
	for _, path := range cfg.Data.Archives {
		if err := wm.AddArchive(path); err != nil {
			wm.Close()
			return nil, err
		}
	}
	return wm, nil
}

// parsePoint parses "x,z".
func parsePoint(s string) (x, z float32, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid point %q: want x,z", s)
	}
	var v [2]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid point %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v[0], v[1], nil
}

func degrees(rad float32) float32 {
	return rad * 180 / gomath.Pi
}
