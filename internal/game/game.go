// Package game implements the fixed-step simulation loop.
package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/game/world"
	"github.com/Faultbox/midgard-npc/internal/logger"
)

// ErrNoMap is returned by New without a map.
var ErrNoMap = errors.New("game: no map")

// Config holds simulation configuration.
type Config struct {
	TickRate  int  // Ticks per simulated second
	Realtime  bool // Pace ticks to the wall clock
	Collision collision.Config
	Movement  world.MovementOptions
}

// Stats accumulates what happened over a run.
type Stats struct {
	Ticks    uint64
	Moves    int // NPC ticks that changed a position
	Blocked  int // NPC ticks where the kernel refused part of a move
	Arrivals int
	GaveUp   int
	Respawns int
	Elapsed  time.Duration
}

// Simulation advances every NPC of one map in fixed steps.
type Simulation struct {
	world      *world.Map
	controller *world.MovementController
	dt         float32
	realtime   bool
	stats      Stats

	// OnTick, when set, is called after every tick with that tick's steps.
	OnTick func(tick uint64, steps []world.Step)
}

// New creates a simulation for m.
func New(m *world.Map, cfg Config) (*Simulation, error) {
	if m == nil {
		return nil, ErrNoMap
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 30
	}

	logger.Info("initializing simulation",
		zap.String("map", m.Name),
		zap.Int("npcs", m.NPCs.Count()),
		zap.Int("tickRate", cfg.TickRate),
		zap.Int("workers", cfg.Movement.Workers))

	return &Simulation{
		world:      m,
		controller: world.NewMovementController(m, cfg.Collision, cfg.Movement),
		dt:         1 / float32(cfg.TickRate),
		realtime:   cfg.Realtime,
	}, nil
}

// Controller returns the movement controller, for issuing MoveTo orders.
func (s *Simulation) Controller() *world.MovementController {
	return s.controller
}

// Stats returns the totals so far.
func (s *Simulation) Stats() Stats {
	return s.stats
}

// Step runs a single tick.
func (s *Simulation) Step() []world.Step {
	steps := s.controller.Tick(s.dt)
	s.stats.Ticks++
	for _, st := range steps {
		if st.Move.Moved {
			s.stats.Moves++
		}
		if st.Move.Blocked {
			s.stats.Blocked++
		}
		if st.Arrived {
			s.stats.Arrivals++
		}
		if st.GaveUp {
			s.stats.GaveUp++
		}
		if st.Respawned {
			s.stats.Respawns++
		}
	}
	if s.OnTick != nil {
		s.OnTick(s.stats.Ticks, steps)
	}
	return steps
}

// Run executes ticks steps, or runs until ctx is done when ticks <= 0.
// A cancelled context ends the run with ctx.Err().
func (s *Simulation) Run(ctx context.Context, ticks int) error {
	start := time.Now()
	defer func() { s.stats.Elapsed += time.Since(start) }()

	var pace <-chan time.Time
	if s.realtime {
		ticker := time.NewTicker(time.Duration(float64(time.Second) * float64(s.dt)))
		defer ticker.Stop()
		pace = ticker.C
	}

	logger.Debug("starting simulation loop", zap.Int("ticks", ticks), zap.Bool("realtime", s.realtime))

	reportTimer := time.Now()
	reported := s.stats.Ticks
	for i := 0; ticks <= 0 || i < ticks; i++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		s.Step()

		// Ticks per second counter
		if time.Since(reportTimer) >= time.Second {
			logger.Debug("tps",
				zap.Uint64("count", s.stats.Ticks-reported),
				zap.Int("npcs", s.world.NPCs.Count()))
			reported = s.stats.Ticks
			reportTimer = time.Now()
		}
	}

	logger.Debug("simulation finished",
		zap.Uint64("ticks", s.stats.Ticks),
		zap.Int("arrivals", s.stats.Arrivals),
		zap.Int("gaveUp", s.stats.GaveUp))
	return nil
}
