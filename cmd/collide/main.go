// Package main is the entry point for the collide tool: it runs NPC
// simulations against scenes and maps, probes the collision kernel and
// prebuilds terrain mesh caches.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/config"
	"github.com/Faultbox/midgard-npc/internal/logger"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

func main() {
	if err := Execute(RootCmd()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Execute runs the command tree and logs a failed command before returning
// its error.
func Execute(root *cobra.Command) error {
	cmd, err := root.ExecuteC()
	if err != nil {
		logger.Error("command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
	}
	logger.Sync()
	return err
}

// RootCmd builds the command tree.
func RootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "collide",
		Short:         "NPC world collision toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			logger.Debug("config loaded", zap.Any("config", cfg))
			return nil
		},
	}
	config.RegisterFlags(c.PersistentFlags())

	c.AddCommand(RunCmd(), ProbeCmd(), CacheCmd(), MapsCmd())
	return c
}
