package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/config"
	"github.com/Faultbox/midgard-npc/internal/game"
	"github.com/Faultbox/midgard-npc/internal/game/world"
	"github.com/Faultbox/midgard-npc/internal/logger"
)

func RunCmd() *cobra.Command {
	var (
		ticks    int
		realtime bool
		spawns   []string
	)
	c := &cobra.Command{
		Use:   "run <scene.yaml | map.gat | map>",
		Short: "Simulate NPCs walking a scene or map",
		Long: `Simulate NPCs walking a scene or map.

Scene NPCs start with their scripted destinations. Extra NPCs are added with
--npc name:x,z[:dx,dz]. With --ticks 0 the simulation runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mp, err := loadWorld(args[0])
			if err != nil {
				return err
			}
			coll := cfg.Collision.ToCollision()

			for _, s := range spawns {
				if err := spawn(mp, s); err != nil {
					return err
				}
			}

			sim, err := game.New(mp, game.Config{
				TickRate:  cfg.Movement.TickRate,
				Realtime:  realtime,
				Collision: coll,
				Movement:  movementOptions(cfg.Movement),
			})
			if err != nil {
				return err
			}

			// Route destinations through the controller so GAT maps get waypoints.
			mc := sim.Controller()
			for _, n := range mp.NPCs.All() {
				if !n.HasDestination {
					continue
				}
				if !mc.MoveTo(n, n.DestX, n.DestZ) {
					logger.Warn("no path to destination",
						zap.String("npc", n.Name),
						zap.Float32("x", n.DestX),
						zap.Float32("z", n.DestZ))
					mc.Stop(n)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("=== Midgard NPC simulation ===",
				zap.String("map", mp.Name),
				zap.Int("npcs", mp.NPCs.Count()),
				zap.Int("ticks", ticks))

			if err := sim.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			printResults(cmd.OutOrStdout(), mp, sim.Stats())
			return nil
		},
	}
	c.Flags().IntVarP(&ticks, "ticks", "n", 300, "Ticks to simulate; 0 runs until interrupted")
	c.Flags().BoolVar(&realtime, "realtime", false, "Pace ticks to the wall clock")
	c.Flags().StringArrayVar(&spawns, "npc", nil, "Spawn an NPC as name:x,z[:dx,dz]")
	return c
}

// movementOptions maps the movement config section to controller options.
func movementOptions(m config.MovementConfig) world.MovementOptions {
	return world.MovementOptions{
		ArriveDistance:  m.ArriveDistance,
		MaxBlockedTicks: m.MaxBlockedTicks,
		Workers:         m.Workers,
		FallSpeed:       m.FallSpeed,
		KillDepth:       m.KillDepth,
	}
}

// spawn adds the NPC described by name:x,z[:dx,dz].
func spawn(mp *world.Map, arg string) error {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return fmt.Errorf("invalid --npc %q: want name:x,z[:dx,dz]", arg)
	}
	x, z, err := parsePoint(parts[1])
	if err != nil {
		return fmt.Errorf("--npc %s: %w", parts[0], err)
	}

	n := mp.Spawn(parts[0], x, z, cfg.Collision.ToCollision())
	n.MoveSpeed = cfg.Movement.Speed
	if len(parts) == 3 {
		dx, dz, err := parsePoint(parts[2])
		if err != nil {
			return fmt.Errorf("--npc %s: %w", parts[0], err)
		}
		n.SetDestination(dx, dz)
	}
	return nil
}

func printResults(w io.Writer, mp *world.Map, stats game.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tX\tY\tZ\tACTION\tGROUND\tDESTINATION")
	for _, n := range mp.NPCs.All() {
		p := n.Position()
		ground := "none"
		if n.Collision.HasGround {
			ground = fmt.Sprintf("%.1f°", degrees(n.Collision.Ground.Angle()))
		}
		dest := "-"
		if n.HasDestination {
			dest = fmt.Sprintf("%.1f,%.1f", n.DestX, n.DestZ)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%s\t%s\t%s\n",
			n.ID, n.Name, p.X, p.Y, p.Z, n.Action, ground, dest)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d ticks in %v: %d moves, %d blocked, %d arrived, %d gave up, %d respawned\n",
		stats.Ticks, stats.Elapsed.Round(time.Microsecond), stats.Moves, stats.Blocked,
		stats.Arrivals, stats.GaveUp, stats.Respawns)
}
