package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/assets"
	"github.com/Faultbox/midgard-npc/internal/engine/terrain"
	"github.com/Faultbox/midgard-npc/internal/game/world"
	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/internal/meshcache"
	"github.com/Faultbox/midgard-npc/pkg/formats"
)

func CacheCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cache <map.gat | map> [out]",
		Short: "Build a terrain collision mesh and write its cache file",
		Long: `Build a terrain collision mesh and write its cache file.

A bare map name is looked up in the map directory and then the archives.
Without an output path the file goes to the configured cache directory,
where map loading picks it up.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

			var out string
			switch {
			case len(args) == 2:
				out = args[1]
			case cfg.Data.CacheDir != "":
				out = meshcache.PathFor(cfg.Data.CacheDir, name)
			default:
				return errors.New("no output path and no cache directory configured")
			}

			data, info, err := readGAT(src)
			if err != nil {
				return err
			}
			gat, err := formats.ParseGAT(data)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			opts := meshOptions()
			mesh, err := terrain.BuildCollisionMesh(gat, opts)
			if err != nil {
				return fmt.Errorf("building collision mesh: %w", err)
			}
			if err := meshcache.Save(out, world.CacheMeta(info.Name(), info, opts), mesh.Data()); err != nil {
				return err
			}

			logger.Info("mesh cache written",
				zap.String("map", name),
				zap.String("path", out),
				zap.Int("triangles", mesh.TriangleCount()))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d cells, %d triangles -> %s\n",
				name, gat.Width, gat.Height, mesh.TriangleCount(), out)
			return nil
		},
	}
	return c
}

// readGAT reads a .gat path from disk, or a map name through the map
// directory and archives.
func readGAT(src string) ([]byte, fs.FileInfo, error) {
	if strings.EqualFold(filepath.Ext(src), ".gat") {
		info, err := os.Stat(src)
		if err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(src)
		return data, info, err
	}

	am := assets.NewManager(cfg.Data.MapDir)
	defer am.Close()
	for _, path := range cfg.Data.Archives {
		if err := am.AddArchive(path); err != nil {
			return nil, nil, err
		}
	}
	return am.Open(src + ".gat")
}
