package collision

import (
	gomath "math"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

const (
	maxSweepSteps       = 4096
	bisectIterations    = 10
	maxDepenetrateIters = 3
	depenetrationSkin   = 1e-3
)

// ApplyNpcWorldCollisionXZ moves actor toward (desiredX, desiredZ) against mesh
// and writes the corrected position back into actor.Position.
//
// Order of checks:
//  1. Rise predicted from the last known ground plane: a rise above
//     StepHeight, or any rise onto non-walkable ground, rejects the move.
//  2. A substepped capsule sweep stops at the first approaching contact;
//     a start inside geometry is pushed out first.
//  3. With EnableWallSlide, the rest of the move is projected onto the wall
//     and swept again, up to a fixed number of times.
//  4. The ground is re-sampled at the end point. Y snaps to it when the drop
//     is within MaxStepDown; a larger drop leaves Y alone and marks the
//     context as falling.
//
// A nil mesh applies the XZ move unchanged. NaN input and zero moves are no-ops.
func ApplyNpcWorldCollisionXZ(ctx *Context, actor *Actor, desiredX, desiredZ float32, mesh Mesh, dt float32, cfg Config) MoveResult {
	if actor == nil {
		return MoveResult{}
	}
	if !actor.Position.IsFinite() || !math.IsFinite(desiredX) || !math.IsFinite(desiredZ) {
		if logger.Enabled(zapcore.DebugLevel) {
			logger.Named("collision").Debug("ignoring non-finite move",
				zap.Float32("x", actor.Position.X),
				zap.Float32("y", actor.Position.Y),
				zap.Float32("z", actor.Position.Z),
				zap.Float32("desiredX", desiredX),
				zap.Float32("desiredZ", desiredZ))
		}
		return MoveResult{}
	}
	start := actor.Position
	d := math.Vec3{X: desiredX - start.X, Z: desiredZ - start.Z}
	if d.LengthSq() < minMoveSq {
		return MoveResult{}
	}
	if mesh == nil {
		if logger.Enabled(zapcore.DebugLevel) {
			logger.Named("collision").Debug("no collision mesh, moving unconstrained")
		}
		actor.Position.X, actor.Position.Z = desiredX, desiredZ
		return MoveResult{Moved: true}
	}
	if ctx == nil {
		ctx = &Context{}
	}
	if !math.IsFinite(dt) || dt < 0 {
		dt = 0
	}
	cfg = ctx.normalize(cfg)

	if !ctx.HasGround {
		if g, ok := ctx.sampleGround(start, mesh, cfg); ok {
			ctx.setGround(g)
		}
	}
	if ctx.HasGround && ctx.riseRejected(start, desiredX, desiredZ, cfg) {
		return MoveResult{Blocked: true}
	}

	pos, blocked := ctx.resolveXZ(mesh, start, d, dt, cfg)

	end, ok := ctx.settle(mesh, start, pos, cfg)
	if !ok {
		return MoveResult{Blocked: true}
	}
	actor.Position = end

	moved := end.Sub(start).LengthSq() > movedEpsilonSq
	return MoveResult{Blocked: blocked, Moved: moved}
}

// riseRejected extrapolates the last ground plane to the destination.
// The plane is the previous frame's, so strongly curved terrain can be
// misjudged for one frame; the destination re-sample in settle catches it.
func (ctx *Context) riseRejected(start math.Vec3, x, z float32, cfg Config) bool {
	g := ctx.Ground
	rise := g.HeightAt(x, z) - g.HeightAt(start.X, start.Z)
	if rise > cfg.StepHeight+heightEpsilon {
		return true
	}
	return rise > heightEpsilon && !g.Walkable(cfg.MaxGroundAngleRad)
}

// resolveXZ sweeps d from start, pushing out of starting overlaps and sliding
// along walls. It returns the reached feet position and whether any part of
// d was refused. Moves longer than maxSweepSteps substeps are cut short.
func (ctx *Context) resolveXZ(mesh Mesh, start, d math.Vec3, dt float32, cfg Config) (math.Vec3, bool) {
	pos := start
	remaining := d
	blocked := false

	if limit := sweepStride(cfg) * maxSweepSteps; remaining.Length() > limit {
		if logger.Enabled(zapcore.DebugLevel) {
			logger.Named("collision").Debug("truncating long move",
				zap.Float32("length", remaining.Length()),
				zap.Float32("limit", limit))
		}
		remaining = remaining.Normalize().Scale(limit)
		blocked = true
	}

	var prev math.Vec3
	hasPrev := false
	for attempt := 0; attempt < maxSlideAttempts && remaining.LengthSq() >= minMoveSq; attempt++ {
		reached, t, contact, hit := ctx.sweep(mesh, pos, remaining, cfg)
		if !hit {
			pos = reached
			break
		}
		blocked = true
		if t == 0 && attempt == 0 {
			if out, ok := ctx.depenetrate(mesh, reached, dt, cfg); ok {
				reached = out
			}
		}
		pos = reached
		if !cfg.EnableWallSlide {
			break
		}
		remaining = slideRemainder(remaining.Scale(1-t), contact.Push, prev, hasPrev)
		prev, hasPrev = contact.Push, true
	}
	return pos, blocked
}

// sweepStride is the longest substep; no wall fits between two samples.
func sweepStride(cfg Config) float32 {
	return cfg.Radius * 0.5
}

// sweep advances feet along d in substeps no longer than sweepStride and
// refines the first blocking substep by bisection. It returns the last
// non-blocking position, the fraction of d it represents, and the contact
// that stopped it. d must be at most maxSweepSteps strides long.
func (ctx *Context) sweep(mesh Mesh, feet, d math.Vec3, cfg Config) (math.Vec3, float32, CapsuleContact, bool) {
	dir := d.Normalize()
	steps := int(gomath.Ceil(float64(d.Length() / sweepStride(cfg))))
	steps = max(1, min(steps, maxSweepSteps))

	var lo float32
	for i := 1; i <= steps; i++ {
		t := float32(i) / float32(steps)
		contact, hit := ctx.blockingAt(mesh, feet.Add(d.Scale(t)), dir, cfg)
		if !hit {
			lo = t
			continue
		}
		hi := t
		for range bisectIterations {
			mid := (lo + hi) * 0.5
			if c, ok := ctx.blockingAt(mesh, feet.Add(d.Scale(mid)), dir, cfg); ok {
				hi, contact = mid, c
			} else {
				lo = mid
			}
		}
		return feet.Add(d.Scale(lo)), lo, contact, true
	}
	return feet.Add(d), 1, CapsuleContact{}, false
}

// blockingAt returns the deepest contact at feet that refuses motion along dir.
// A contact blocks when it penetrates the sample disk, its triangle rises
// above the climbable band, it is a wall or touches the head sample, and the
// motion closes on it. Moving away from or along an overlap is always allowed.
func (ctx *Context) blockingAt(mesh Mesh, feet, dir math.Vec3, cfg Config) (CapsuleContact, bool) {
	ctx.capsule = ctx.queryCapsule(mesh, feet, cfg.ScanHeights, cfg.Radius, cfg.MinWallNormalY, ctx.capsule[:0])

	var best CapsuleContact
	found := false
	for _, c := range ctx.capsule {
		if !cfg.obstructs(c, feet) {
			continue
		}
		if dir.Dot(c.Push) >= -approachEps {
			continue
		}
		if !found || c.Distance < best.Distance {
			best, found = c, true
		}
	}
	return best, found
}

// obstructs reports whether c can stop an actor standing at feet. Triangles
// whose top is within StepHeight are steps; settle decides whether they can
// be climbed.
func (c Config) obstructs(cc CapsuleContact, feet math.Vec3) bool {
	if cc.Distance >= c.Radius {
		return false
	}
	if cc.Top <= feet.Y+c.StepHeight+heightEpsilon {
		return false
	}
	return cc.Kind == ContactWall || cc.Height >= c.TopHeight()
}

// depenetrate pushes feet out of overlapping geometry along the deepest
// contact's push direction. With MaxDepenetrationSpeed set, the total push
// per call is limited to MaxDepenetrationSpeed*dt.
func (ctx *Context) depenetrate(mesh Mesh, feet math.Vec3, dt float32, cfg Config) (math.Vec3, bool) {
	budget := float32(gomath.MaxFloat32)
	if cfg.MaxDepenetrationSpeed > 0 {
		budget = cfg.MaxDepenetrationSpeed * dt
	}

	start := feet
	for range maxDepenetrateIters {
		if budget <= 0 {
			break
		}
		ctx.capsule = ctx.queryCapsule(mesh, feet, cfg.ScanHeights, cfg.Radius, cfg.MinWallNormalY, ctx.capsule[:0])

		var deepest CapsuleContact
		found := false
		for _, c := range ctx.capsule {
			if c.Push.LengthSq() == 0 || !cfg.obstructs(c, feet) {
				continue
			}
			if !found || c.Distance < deepest.Distance {
				deepest, found = c, true
			}
		}
		if !found {
			break
		}

		// Distance the disk center must move horizontally so the contact
		// point sits exactly on its rim.
		dy := deepest.Point.Y - (feet.Y + deepest.Height)
		reach2 := cfg.Radius*cfg.Radius - dy*dy
		if reach2 <= 0 {
			break
		}
		horiz := feet.Add(math.Vec3{Y: deepest.Height}).Sub(deepest.Point).Horizontal().Length()
		amount := min(sqrt32(reach2)-horiz+depenetrationSkin, budget)
		if amount <= 0 {
			break
		}
		feet = feet.Add(deepest.Push.Scale(amount))
		budget -= amount
	}
	return feet, feet.Sub(start).LengthSq() > movedEpsilonSq
}

// settle re-samples the ground at pos and applies step-up, step-down and
// fall handling. It returns false when the destination is too high to climb
// or is a non-walkable rise.
func (ctx *Context) settle(mesh Mesh, start, pos math.Vec3, cfg Config) (math.Vec3, bool) {
	g, ok := ctx.sampleGround(pos, mesh, cfg)
	if !ok {
		ctx.Falling = true
		return pos, true
	}

	base := start.Y - cfg.GroundClearance
	groundY := g.HeightAt(pos.X, pos.Z)
	rise := groundY - base
	if rise > cfg.StepHeight+heightEpsilon {
		return start, false
	}
	if rise > heightEpsilon && !g.Walkable(cfg.MaxGroundAngleRad) {
		return start, false
	}

	ctx.setGround(g)
	ctx.GroundYTarget = groundY + g.Clearance
	if -rise <= cfg.MaxStepDown+heightEpsilon {
		pos.Y = ctx.GroundYTarget
		ctx.Falling = false
	} else {
		ctx.Falling = true
	}
	return pos, true
}
