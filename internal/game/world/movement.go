package world

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/internal/game/entity"
	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

// MovementOptions tunes the locomotion loop around the collision kernel.
type MovementOptions struct {
	ArriveDistance  float32 // Distance at which a waypoint counts as reached
	MaxBlockedTicks int     // Consecutive fully blocked ticks before giving up; <= 0 never gives up
	Workers         int     // Goroutines per tick; <= 1 runs serially
	FallSpeed       float32 // Units per second while falling
	KillDepth       float32 // NPCs falling this far below the mesh return to their last safe spot
}

// DefaultMovementOptions returns the options used when a field is left at zero.
func DefaultMovementOptions() MovementOptions {
	return MovementOptions{
		ArriveDistance:  1,
		MaxBlockedTicks: 15,
		FallSpeed:       600,
		KillDepth:       1000,
	}
}

// Step reports what happened to one NPC during a tick.
type Step struct {
	NPC       *entity.NPC
	Move      collision.MoveResult
	Slide     collision.SlideResult
	Arrived   bool // Reached its final destination
	GaveUp    bool // Dropped its destination after being blocked too long
	Respawned bool // Fell below the kill depth and was put back
}

// npcState is controller bookkeeping for one NPC. During a tick only the
// worker updating that NPC touches it.
type npcState struct {
	waypoints []math.Vec2
	next      int
	safe      math.Vec3
	hasSafe   bool
}

// MovementController drives every NPC of a map through the collision
// kernel once per tick. Its methods must be called from one goroutine; Tick
// fans the NPCs out to its own workers.
type MovementController struct {
	world      *Map
	cfg        collision.Config
	opts       MovementOptions
	pathFinder *PathFinder

	states map[uint32]*npcState

	killY    float32
	hasKillY bool
}

// NewMovementController creates a controller for m. Zero options take their
// defaults.
func NewMovementController(m *Map, cfg collision.Config, opts MovementOptions) *MovementController {
	def := DefaultMovementOptions()
	if opts.ArriveDistance <= 0 {
		opts.ArriveDistance = def.ArriveDistance
	}
	if opts.FallSpeed <= 0 {
		opts.FallSpeed = def.FallSpeed
	}
	if opts.KillDepth <= 0 {
		opts.KillDepth = def.KillDepth
	}

	mc := &MovementController{
		world:  m,
		cfg:    cfg.Normalize(),
		opts:   opts,
		states: make(map[uint32]*npcState),
	}
	if m.Grid != nil {
		mc.pathFinder = NewPathFinder(*m.Grid)
	}
	if m.Mesh != nil && m.Mesh.TriangleCount() > 0 {
		lo, _ := m.Mesh.Bounds()
		mc.killY = lo.Y - opts.KillDepth
		mc.hasKillY = true
	}
	return mc
}

// Config returns the normalized collision profile used for every NPC.
func (mc *MovementController) Config() collision.Config {
	return mc.cfg
}

// MoveTo sends n toward (x, z). On maps with a GAT grid the route is planned
// over walkable cells and false is returned when none exists; elsewhere the
// NPC walks straight and the kernel handles obstacles.
func (mc *MovementController) MoveTo(n *entity.NPC, x, z float32) bool {
	st := mc.state(n)
	target := math.Vec2{X: x, Y: z}

	if mc.pathFinder != nil {
		path := mc.pathFinder.FindWorldPath(n.Position().XZ(), target)
		if path == nil {
			return false
		}
		st.waypoints = path
	} else {
		st.waypoints = []math.Vec2{target}
	}
	st.next = 0
	n.SetDestination(st.waypoints[0].X, st.waypoints[0].Y)
	return true
}

// Stop clears n's destination and route.
func (mc *MovementController) Stop(n *entity.NPC) {
	st := mc.state(n)
	st.waypoints = nil
	st.next = 0
	n.ClearDestination()
}

// Waypoints returns the remaining route of n, including its current destination.
func (mc *MovementController) Waypoints(n *entity.NPC) []math.Vec2 {
	st := mc.states[n.ID]
	if st == nil || !n.HasDestination {
		return nil
	}
	if st.next >= len(st.waypoints) {
		return []math.Vec2{{X: n.DestX, Y: n.DestZ}}
	}
	return st.waypoints[st.next:]
}

// Tick advances every NPC on the map by dt seconds. Results are in NPC id order.
func (mc *MovementController) Tick(dt float32) []Step {
	npcs := mc.world.NPCs.All()
	states := make([]*npcState, len(npcs))
	for i, n := range npcs {
		states[i] = mc.state(n)
	}
	mc.prune(npcs)

	steps := make([]Step, len(npcs))
	workers := min(mc.opts.Workers, len(npcs))
	if workers <= 1 {
		for i, n := range npcs {
			steps[i] = mc.update(n, states[i], dt)
		}
		return steps
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				steps[i] = mc.update(npcs[i], states[i], dt)
			}
		}()
	}
	for i := range npcs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return steps
}

func (mc *MovementController) state(n *entity.NPC) *npcState {
	st := mc.states[n.ID]
	if st == nil {
		st = &npcState{}
		mc.states[n.ID] = st
	}
	return st
}

func (mc *MovementController) prune(npcs []*entity.NPC) {
	if len(mc.states) <= len(npcs) {
		return
	}
	live := make(map[uint32]bool, len(npcs))
	for _, n := range npcs {
		live[n.ID] = true
	}
	for id := range mc.states {
		if !live[id] {
			delete(mc.states, id)
		}
	}
}

func (mc *MovementController) update(n *entity.NPC, st *npcState, dt float32) Step {
	step := Step{NPC: n}
	if dt <= 0 {
		return step
	}

	switch {
	case n.Collision.Falling:
		mc.fall(n, st, dt, &step)
	case n.HasDestination:
		mc.walk(n, st, dt, &step)
	default:
		mc.slide(n, dt, &step)
	}

	if n.Collision.HasGround && !n.Collision.Falling {
		st.safe = n.Position()
		st.hasSafe = true
	}
	return step
}

func (mc *MovementController) walk(n *entity.NPC, st *npcState, dt float32, step *Step) {
	if n.DistanceToDestination() <= mc.opts.ArriveDistance {
		mc.advance(n, st, step)
		if !n.HasDestination {
			return
		}
	}

	pos := n.Position()
	dx := n.DestX - pos.X
	dz := n.DestZ - pos.Z
	dist := n.DistanceToDestination()
	n.Face(dx, dz)

	move := min(n.MoveSpeed*dt, dist)
	tx := pos.X + dx/dist*move
	tz := pos.Z + dz/dist*move
	res := collision.ApplyNpcWorldCollisionXZ(n.Collision, &n.Actor, tx, tz, mc.world.collisionMesh(), dt, mc.cfg)
	step.Move = res

	if res.Blocked && !res.Moved {
		n.BlockedTicks++
		if mc.opts.MaxBlockedTicks > 0 && n.BlockedTicks >= mc.opts.MaxBlockedTicks {
			logger.Debug("npc gave up on destination",
				zap.Uint32("id", n.ID),
				zap.String("name", n.Name),
				zap.Float32("x", pos.X),
				zap.Float32("z", pos.Z))
			st.waypoints = nil
			n.ClearDestination()
			n.Action = entity.ActionIdle
			step.GaveUp = true
			return
		}
	} else {
		n.BlockedTicks = 0
	}

	n.Action = entity.ActionWalk
	if n.Collision.Falling {
		n.Action = entity.ActionFall
	}
	if n.DistanceToDestination() <= mc.opts.ArriveDistance {
		mc.advance(n, st, step)
	}
}

// advance moves n on to its next waypoint, or finishes the route.
func (mc *MovementController) advance(n *entity.NPC, st *npcState, step *Step) {
	st.next++
	if st.next < len(st.waypoints) {
		wp := st.waypoints[st.next]
		n.SetDestination(wp.X, wp.Y)
		return
	}

	st.waypoints = nil
	st.next = 0
	n.ClearDestination()
	if !n.Collision.Falling {
		n.Action = entity.ActionIdle
	}
	step.Arrived = true
}

func (mc *MovementController) slide(n *entity.NPC, dt float32, step *Step) {
	res := collision.UpdateNpcSlopeSlideXZ(n.Collision, &n.Actor, mc.world.collisionMesh(), dt, mc.cfg)
	step.Slide = res
	step.Move.Moved = res.Moved

	switch {
	case n.Collision.Falling:
		n.Action = entity.ActionFall
	case res.Active && res.Mode == collision.SlideModeSlideBack:
		n.Action = entity.ActionSlideBack
	case res.Active:
		n.Action = entity.ActionSlide
	default:
		n.Action = entity.ActionIdle
	}
}

// fall drops n straight down until it lands on ground within reach of this
// tick's fall distance.
func (mc *MovementController) fall(n *entity.NPC, st *npcState, dt float32, step *Step) {
	ctx := n.Collision
	pos := n.Position()
	drop := mc.opts.FallSpeed * dt

	mesh := mc.world.collisionMesh()
	if mesh != nil {
		if g, ok := collision.SampleGround(ctx, pos, mesh, mc.cfg); ok {
			target := g.HeightAt(pos.X, pos.Z) + g.Clearance
			if pos.Y-drop <= target {
				n.Actor.Position.Y = target
				ctx.GroundYTarget = target
				ctx.Falling = false
				n.Action = entity.ActionIdle
				if n.HasDestination {
					n.Action = entity.ActionWalk
				}
				step.Move.Moved = target != pos.Y
				return
			}
		}
	}

	n.Actor.Position.Y -= drop
	n.Action = entity.ActionFall
	step.Move.Moved = true

	if mc.hasKillY && n.Actor.Position.Y < mc.killY {
		logger.Debug("npc fell out of the world",
			zap.Uint32("id", n.ID),
			zap.String("name", n.Name),
			zap.Bool("hasSafe", st.hasSafe))
		// SetPosition clears Falling; landing happens on the next slide or walk tick.
		if st.hasSafe {
			n.SetPosition(st.safe.X, st.safe.Y, st.safe.Z)
		} else {
			n.SetPosition(pos.X, mc.killY+mc.opts.KillDepth, pos.Z)
		}
		st.waypoints = nil
		n.ClearDestination()
		n.Action = entity.ActionIdle
		step.Respawned = true
	}
}
