// Package collision implements NPC world collision against a static,
// BVH-indexed triangle mesh: ground sampling, capsule contact queries,
// step and depenetration resolution, wall sliding and slope sliding.
//
// Every exported operation is synchronous and touches only its explicit
// arguments plus the caller-owned Context. A Mesh is only ever read, so many
// actors may query one mesh concurrently as long as each has its own Context.
package collision

import (
	gomath "math"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// Actor is the transform the kernel reads and corrects.
// Position is at the feet; the collision capsule is always vertical.
type Actor struct {
	Position math.Vec3
	Forward  math.Vec3 // Facing direction; only the horizontal part is used
}

// GroundPlane is the supporting surface last sampled beneath an actor.
// It is a pure geometric fact: walkability is derived from Normal by each consumer.
type GroundPlane struct {
	Normal     math.Vec3 // Unit normal, oriented upward (Normal.Y >= 0)
	Point      math.Vec3 // Point on the surface under the actor
	Clearance  float32   // Vertical offset between the surface and the actor's feet
	TriangleID int
}

// HeightAt returns the plane's height at (x, z).
// Near-vertical planes return the stored point height.
func (g GroundPlane) HeightAt(x, z float32) float32 {
	if g.Normal.Y < 1e-4 {
		return g.Point.Y
	}
	return g.Point.Y - (g.Normal.X*(x-g.Point.X)+g.Normal.Z*(z-g.Point.Z))/g.Normal.Y
}

// Angle returns the angle between the normal and +Y, in radians.
func (g GroundPlane) Angle() float32 {
	return float32(gomath.Acos(float64(math.Clamp(g.Normal.Y, -1, 1))))
}

// Walkable reports whether the surface can be stood on without sliding.
func (g GroundPlane) Walkable(maxAngleRad float32) bool {
	return g.Angle() <= maxAngleRad+angleEpsilon
}

// Downhill returns the horizontal unit direction of steepest descent,
// or the zero vector on flat ground.
func (g GroundPlane) Downhill() math.Vec3 {
	h := g.Normal.Horizontal()
	if h.LengthSq() < 1e-10 {
		return math.Vec3{}
	}
	return h.Normalize()
}

// MoveResult reports the outcome of ApplyNpcWorldCollisionXZ.
// Blocked and Moved may both be true when the move was shortened or redirected.
type MoveResult struct {
	Blocked bool // The full desired displacement was not applied
	Moved   bool // The actor's position changed at all
}

// SlideMode selects the slope-slide animation.
type SlideMode string

const (
	SlideModeSlide     SlideMode = "slide"     // Facing downhill
	SlideModeSlideBack SlideMode = "slideBack" // Slipping backwards
)

// SlideResult reports the outcome of UpdateNpcSlopeSlideXZ.
type SlideResult struct {
	Active bool // Standing on slide-eligible terrain
	Moved  bool
	Mode   SlideMode
}

// ContactKind classifies a capsule contact by its face normal.
type ContactKind uint8

const (
	ContactGround ContactKind = iota // Floor or ceiling: |normal.Y| >= MinWallNormalY
	ContactWall
)

// String returns a human-readable kind name.
func (k ContactKind) String() string {
	if k == ContactWall {
		return "wall"
	}
	return "ground"
}

// CapsuleContact is one triangle touching one capsule sample disk.
type CapsuleContact struct {
	Point      math.Vec3 // Closest point on the triangle
	Normal     math.Vec3 // Face normal, oriented toward the sample center
	Push       math.Vec3 // Horizontal unit direction from Point toward the sample center
	Height     float32   // Sample height above the feet
	Distance   float32   // Distance from the sample center to Point
	Top        float32   // Highest point of the triangle, never below Point.Y
	Kind       ContactKind
	TriangleID int
}

// Tolerances shared by the kernel.
const (
	angleEpsilon   = 1e-4
	heightEpsilon  = 1e-3
	contactSkin    = 0.05  // Extra query radius so contacts at exactly Radius are seen
	approachEps    = 1e-4  // Minimum closing speed (dot product) that counts as approaching
	minMoveSq      = 1e-8  // Displacements below this are no-ops
	movedEpsilonSq = 1e-10 // Position changes below this do not count as moved
)
