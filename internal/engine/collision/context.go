package collision

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

// Context is the per-actor collision state. Create one per NPC at spawn and
// discard it at despawn; it must never be shared between actors.
type Context struct {
	// Ground is the last sampled supporting surface. It persists across frames
	// in which no ground is found.
	Ground    GroundPlane
	HasGround bool

	GroundYTarget float32 // Feet height the ground wants the actor at
	Falling       bool    // The last move left the actor above MaxStepDown or over void

	SlideSpeed    float32
	LastSlideMode SlideMode

	// Scratch buffers reused across calls.
	hits    []Contact
	capsule []CapsuleContact
	heights []float32
	samples [4]math.Vec3

	lastFix Fix
}

// NewContext returns a context with preallocated query buffers.
func NewContext() *Context {
	return &Context{
		hits:          make([]Contact, 0, 32),
		capsule:       make([]CapsuleContact, 0, 32),
		heights:       make([]float32, 0, 4),
		LastSlideMode: SlideModeSlide,
	}
}

// Reset forgets ground and slide state, keeping the buffers.
func (c *Context) Reset() {
	c.Ground = GroundPlane{}
	c.HasGround = false
	c.GroundYTarget = 0
	c.Falling = false
	c.SlideSpeed = 0
	c.LastSlideMode = SlideModeSlide
	c.lastFix = 0
}

func (c *Context) setGround(g GroundPlane) {
	c.Ground = g
	c.HasGround = true
}

// normalize repairs cfg into the context's buffers and reports new repairs once.
func (c *Context) normalize(cfg Config) Config {
	n, fix := cfg.normalize(c.heights)
	c.heights = n.ScanHeights
	if fix != 0 && fix != c.lastFix && logger.Enabled(zapcore.DebugLevel) {
		logger.Named("collision").Debug("repaired collision config",
			zap.Uint16("fix", uint16(fix)),
			zap.Float32("radius", n.Radius),
			zap.Float32s("scanHeights", n.ScanHeights))
	}
	c.lastFix = fix
	return n
}
