package collision

import (
	gomath "math"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// UpdateNpcSlopeSlideXZ slides the actor downhill while it stands on ground
// steeper than MaxGroundAngleRad but not steeper than MaxSlideAngleRad.
//
// Slide speed lives in ctx and is integrated from gravity along the slope,
// damped by friction and clamped to MaxSlideSpeed. The displacement goes
// through ApplyNpcWorldCollisionXZ, so walls and steps still apply. Outside
// the slide band, while falling, or without slide tuning the result is
// inactive and the accumulated speed resets.
func UpdateNpcSlopeSlideXZ(ctx *Context, actor *Actor, mesh Mesh, dt float32, cfg Config) SlideResult {
	if ctx == nil || actor == nil || mesh == nil || !actor.Position.IsFinite() {
		return SlideResult{Mode: SlideModeSlide}
	}
	if !math.IsFinite(dt) || dt <= 0 {
		return SlideResult{Mode: ctx.lastMode()}
	}
	cfg = ctx.normalize(cfg)

	if !ctx.HasGround {
		if g, ok := ctx.sampleGround(actor.Position, mesh, cfg); ok {
			ctx.setGround(g)
		}
	}
	if !ctx.HasGround || ctx.Falling || !cfg.slideEnabled() {
		ctx.SlideSpeed = 0
		return SlideResult{Mode: ctx.lastMode()}
	}

	g := ctx.Ground
	angle := g.Angle()
	downhill := g.Downhill()
	if angle <= cfg.MaxGroundAngleRad+angleEpsilon || angle > cfg.MaxSlideAngleRad+angleEpsilon || downhill.LengthSq() == 0 {
		ctx.SlideSpeed = 0
		return SlideResult{Mode: ctx.lastMode()}
	}

	v := ctx.SlideSpeed + cfg.SlideGravity*float32(gomath.Sin(float64(angle)))*dt
	v *= max(0, 1-cfg.SlideFriction*dt)
	v = min(v, cfg.MaxSlideSpeed)

	mode := SlideModeSlide
	if f := actor.Forward.Horizontal(); f.LengthSq() > 0 && f.Dot(downhill) < 0 {
		mode = SlideModeSlideBack
	}
	ctx.LastSlideMode = mode

	target := actor.Position.Add(downhill.Scale(v * dt))
	res := ApplyNpcWorldCollisionXZ(ctx, actor, target.X, target.Z, mesh, dt, cfg)
	if res.Blocked && !res.Moved {
		ctx.SlideSpeed = 0
	} else {
		ctx.SlideSpeed = v
	}

	return SlideResult{Active: true, Moved: res.Moved, Mode: mode}
}

func (ctx *Context) lastMode() SlideMode {
	if ctx.LastSlideMode == "" {
		return SlideModeSlide
	}
	return ctx.LastSlideMode
}
