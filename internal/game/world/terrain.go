package world

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/internal/meshcache"
	"github.com/Faultbox/midgard-npc/pkg/formats"
)

// CacheMeta describes the mesh built from the GAT at path with opts.
func CacheMeta(path string, info fs.FileInfo, opts terrain.MeshOptions) meshcache.Meta {
	meta := meshcache.Meta{
		Source:        filepath.Base(path),
		SourceSize:    info.Size(),
		SourceModUnix: info.ModTime().Unix(),
		CellSize:      opts.CellSize,
		WallHeight:    opts.BlockedWallHeight,
	}
	if meta.CellSize <= 0 {
		meta.CellSize = terrain.DefaultCellSize
	}
	for _, t := range opts.NoCollDet {
		meta.NoCollDet = append(meta.NoCollDet, uint16(t))
	}
	return meta
}

// LoadGAT reads a GAT file and builds its collision mesh. When cacheDir is
// set, a cached mesh built from the same file and options is reused, and a
// freshly built one is written back.
func LoadGAT(name, path string, opts terrain.MeshOptions, cacheDir string) (*Map, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mp, err := BuildGAT(name, data, CacheMeta(path, info, opts), opts, cacheDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mp, nil
}

// BuildGAT builds a map from raw GAT data. meta identifies the source for
// the mesh cache in cacheDir; an empty cacheDir skips the cache.
func BuildGAT(name string, data []byte, meta meshcache.Meta, opts terrain.MeshOptions, cacheDir string) (*Map, error) {
	gat, err := formats.ParseGAT(data)
	if err != nil {
		return nil, err
	}
	grid := terrain.NewGrid(gat, opts.CellSize)

	var cachePath string
	if cacheDir != "" {
		cachePath = meshcache.PathFor(cacheDir, name)
		if mesh, ok := loadCachedMesh(cachePath, meta); ok {
			mp := NewMap(name, mesh)
			mp.Grid = &grid
			return mp, nil
		}
	}

	mesh, err := terrain.BuildCollisionMesh(gat, opts)
	if err != nil {
		return nil, fmt.Errorf("building collision mesh: %w", err)
	}

	if cachePath != "" {
		if err := meshcache.Save(cachePath, meta, mesh.Data()); err != nil {
			// The map is usable without a cache.
			logger.Warn("failed to write mesh cache",
				zap.String("path", cachePath),
				zap.Error(err))
		}
	}

	mp := NewMap(name, mesh)
	mp.Grid = &grid
	return mp, nil
}

func loadCachedMesh(path string, want meshcache.Meta) (*collision.TriangleMesh, bool) {
	meta, data, err := meshcache.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("ignoring unreadable mesh cache",
				zap.String("path", path),
				zap.Error(err))
		}
		return nil, false
	}
	if !meta.Matches(want) {
		logger.Debug("mesh cache is stale", zap.String("path", path))
		return nil, false
	}

	mesh, err := collision.NewTriangleMesh(data)
	if err != nil {
		logger.Warn("ignoring invalid mesh cache",
			zap.String("path", path),
			zap.Error(err))
		return nil, false
	}
	logger.Debug("using mesh cache",
		zap.String("path", path),
		zap.Int("triangles", mesh.TriangleCount()))
	return mesh, true
}
