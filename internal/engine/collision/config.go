package collision

import (
	gomath "math"
	"slices"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// Config tunes collision for one actor archetype. It is read-only per call.
// Zero values are replaced by defaults in Normalize; slide tuning left at zero
// disables slope sliding.
type Config struct {
	Radius      float32   // Capsule radius
	ScanHeight  float32   // Single probe height above the feet, used when ScanHeights is empty
	ScanHeights []float32 // Probe heights above the feet, ascending; the last one is head height

	StepHeight  float32 // Maximum climbable rise
	MaxStepDown float32 // Maximum descent that still snaps to the ground
	ProbeDepth  float32 // How far below the feet a ground probe searches

	MaxGroundAngleRad float32 // Walkable without sliding
	MaxSlideAngleRad  float32 // Above this, terrain is wall-like and never slides
	MinWallNormalY    float32 // |normal.Y| below this makes a contact a wall

	EnableWallSlide       bool
	MaxDepenetrationSpeed float32 // Units per second; 0 resolves overlaps immediately

	SlideGravity  float32
	SlideFriction float32 // Fraction of slide speed lost per second
	MaxSlideSpeed float32

	GroundClearance float32 // Copied into GroundPlane.Clearance
}

// Defaults applied by Normalize.
const (
	MinRadius             = float32(0.5)
	DefaultMaxGroundAngle = float32(gomath.Pi / 4)
	DefaultMinWallNormalY = float32(0.3)
	DefaultProbeDepth     = float32(1000)
)

// DefaultConfig returns a profile sized for human NPCs in world units.
func DefaultConfig() Config {
	return Config{
		Radius:                20,
		ScanHeights:           []float32{70, 120, 170},
		StepHeight:            60,
		MaxStepDown:           80,
		ProbeDepth:            DefaultProbeDepth,
		MaxGroundAngleRad:     DefaultMaxGroundAngle,
		MaxSlideAngleRad:      70 * gomath.Pi / 180,
		MinWallNormalY:        DefaultMinWallNormalY,
		EnableWallSlide:       true,
		MaxDepenetrationSpeed: 0,
		SlideGravity:          981,
		SlideFriction:         2,
		MaxSlideSpeed:         400,
	}
}

// Fix flags record which fields Normalize had to repair.
type Fix uint16

const (
	FixRadius Fix = 1 << iota
	FixScanHeights
	FixSortedHeights
	FixStep
	FixAngles
	FixWallNormal
	FixSlide
)

// Normalize returns a copy with defaults applied and degenerate values clamped.
// ScanHeights in the result is always non-empty and ascending.
func (c Config) Normalize() Config {
	n, _ := c.normalize(nil)
	return n
}

// TopHeight returns the head sample height of a normalized config.
func (c Config) TopHeight() float32 {
	if len(c.ScanHeights) == 0 {
		return c.ScanHeight
	}
	return c.ScanHeights[len(c.ScanHeights)-1]
}

// normalize writes the repaired scan heights into buf to avoid allocating per call.
func (c Config) normalize(buf []float32) (Config, Fix) {
	var fix Fix

	if !finitePositive(c.Radius) {
		c.Radius = MinRadius
		fix |= FixRadius
	} else if c.Radius < MinRadius {
		c.Radius = MinRadius
		fix |= FixRadius
	}

	if !finiteNonNegative(c.StepHeight) {
		c.StepHeight = 0
		fix |= FixStep
	}
	if !finiteNonNegative(c.MaxStepDown) {
		c.MaxStepDown = 0
		fix |= FixStep
	}
	if !finitePositive(c.ProbeDepth) {
		c.ProbeDepth = max(DefaultProbeDepth, c.MaxStepDown)
	}
	if !math.IsFinite(c.GroundClearance) {
		c.GroundClearance = 0
	}

	heights := buf[:0]
	for _, h := range c.ScanHeights {
		if finiteNonNegative(h) {
			heights = append(heights, h)
		} else {
			fix |= FixScanHeights
		}
	}
	if len(heights) == 0 {
		switch {
		case finitePositive(c.ScanHeight):
			heights = append(heights, c.ScanHeight)
		default:
			heights = append(heights, c.StepHeight+c.Radius)
			if len(c.ScanHeights) > 0 {
				fix |= FixScanHeights
			}
		}
	}
	if !slices.IsSorted(heights) {
		slices.Sort(heights)
		fix |= FixSortedHeights
	}
	c.ScanHeights = heights
	c.ScanHeight = heights[0]

	if !finitePositive(c.MaxGroundAngleRad) {
		c.MaxGroundAngleRad = DefaultMaxGroundAngle
	}
	if c.MaxGroundAngleRad > gomath.Pi/2 {
		c.MaxGroundAngleRad = gomath.Pi / 2
		fix |= FixAngles
	}
	if !math.IsFinite(c.MaxSlideAngleRad) || c.MaxSlideAngleRad < c.MaxGroundAngleRad {
		if c.MaxSlideAngleRad != 0 {
			fix |= FixAngles
		}
		c.MaxSlideAngleRad = c.MaxGroundAngleRad
	}
	if c.MaxSlideAngleRad > gomath.Pi/2 {
		c.MaxSlideAngleRad = gomath.Pi / 2
		fix |= FixAngles
	}

	if !finitePositive(c.MinWallNormalY) {
		c.MinWallNormalY = DefaultMinWallNormalY
	} else if c.MinWallNormalY > 1 {
		c.MinWallNormalY = 1
		fix |= FixWallNormal
	}

	if !finiteNonNegative(c.MaxDepenetrationSpeed) {
		c.MaxDepenetrationSpeed = 0
	}
	for _, p := range []*float32{&c.SlideGravity, &c.SlideFriction, &c.MaxSlideSpeed} {
		if !finiteNonNegative(*p) {
			*p = 0
			fix |= FixSlide
		}
	}

	return c, fix
}

// slideEnabled reports whether slope sliding has usable tuning.
func (c Config) slideEnabled() bool {
	return c.SlideGravity > 0 && c.MaxSlideSpeed > 0 && c.MaxSlideAngleRad > c.MaxGroundAngleRad
}

func finitePositive(f float32) bool {
	return math.IsFinite(f) && f > 0
}

func finiteNonNegative(f float32) bool {
	return math.IsFinite(f) && f >= 0
}
