package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-npc/internal/meshcache"
)

func MapsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "maps [pattern]",
		Short: "List the maps in the map directory and archives",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := worldManager(meshOptions())
			if err != nil {
				return err
			}
			defer wm.Close()

			out := cmd.OutOrStdout()
			count := 0
			for _, name := range wm.Maps() {
				if len(args) == 1 {
					matched, _ := filepath.Match(strings.ToLower(args[0]), strings.ToLower(name))
					if !matched && !strings.Contains(name, strings.ToLower(args[0])) {
						continue
					}
				}
				cached := ""
				if cfg.Data.CacheDir != "" {
					if _, err := os.Stat(meshcache.PathFor(cfg.Data.CacheDir, name)); err == nil {
						cached = "\tcached"
					}
				}
				fmt.Fprintf(out, "%s%s\n", name, cached)
				count++
			}
			fmt.Fprintf(out, "%d maps\n", count)
			return nil
		},
	}
	return c
}
