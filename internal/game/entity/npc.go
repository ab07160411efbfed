// Package entity provides the simulated NPCs and their registry.
package entity

import (
	gomath "math"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
	"github.com/Faultbox/midgard-npc/pkg/math"
)

// Direction constants for 8-way facing (RO standard order).
const (
	DirS  = 0 // South (+Z)
	DirSW = 1 // Southwest
	DirW  = 2 // West
	DirNW = 3 // Northwest
	DirN  = 4 // North (-Z)
	DirNE = 5 // Northeast
	DirE  = 6 // East
	DirSE = 7 // Southeast
)

// Action is the locomotion state an NPC's animation follows.
type Action uint8

const (
	ActionIdle Action = iota
	ActionWalk
	ActionSlide     // Sliding downhill, facing the slope
	ActionSlideBack // Sliding downhill backwards
	ActionFall
)

var actionNames = [...]string{
	ActionIdle:      "idle",
	ActionWalk:      "walk",
	ActionSlide:     "slide",
	ActionSlideBack: "slideBack",
	ActionFall:      "fall",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// NPC is a simulated character. It owns its collision context; nothing else
// should mutate it.
type NPC struct {
	ID   uint32
	Name string

	Actor     collision.Actor
	Collision *collision.Context

	MoveSpeed float32 // Units per second
	Direction int     // 0-7: S, SW, W, NW, N, NE, E, SE
	Action    Action

	// Destination
	DestX          float32
	DestZ          float32
	HasDestination bool

	BlockedTicks int // Consecutive ticks the kernel refused to move the NPC
}

// NewNPC creates an NPC standing at the given position, facing south.
func NewNPC(id uint32, name string, x, y, z float32) *NPC {
	return &NPC{
		ID:   id,
		Name: name,
		Actor: collision.Actor{
			Position: math.Vec3{X: x, Y: y, Z: z},
			Forward:  math.Vec3{Z: 1},
		},
		Collision: collision.NewContext(),
		MoveSpeed: 150.0,
		Direction: DirS,
	}
}

// Position returns the NPC's world position.
func (n *NPC) Position() math.Vec3 {
	return n.Actor.Position
}

// SetPosition teleports the NPC and forgets its ground memory.
func (n *NPC) SetPosition(x, y, z float32) {
	n.Actor.Position = math.Vec3{X: x, Y: y, Z: z}
	n.Collision.Reset()
}

// SetDestination sets a move-to target on the XZ plane.
func (n *NPC) SetDestination(x, z float32) {
	n.DestX = x
	n.DestZ = z
	n.HasDestination = true
	n.BlockedTicks = 0
}

// ClearDestination stops walking.
func (n *NPC) ClearDestination() {
	n.HasDestination = false
	n.BlockedTicks = 0
	if n.Action == ActionWalk {
		n.Action = ActionIdle
	}
}

// DistanceToDestination returns the horizontal distance left, or 0 without a destination.
func (n *NPC) DistanceToDestination() float32 {
	if !n.HasDestination {
		return 0
	}
	dx := n.DestX - n.Actor.Position.X
	dz := n.DestZ - n.Actor.Position.Z
	return sqrtf32(dx*dx + dz*dz)
}

// Face turns the NPC toward a horizontal direction. Zero vectors are ignored.
func (n *NPC) Face(dx, dz float32) {
	l := sqrtf32(dx*dx + dz*dz)
	if l < 1e-6 {
		return
	}
	n.Actor.Forward = math.Vec3{X: dx / l, Z: dz / l}
	n.Direction = CalculateDirection(dx, dz)
}

// CalculateDirection converts a movement delta to an RO direction index.
func CalculateDirection(dx, dz float32) int {
	// angle=0 is +Z
	angle := gomath.Atan2(float64(dx), float64(dz))
	if angle < 0 {
		angle += 2 * gomath.Pi
	}

	// Eight 45 degree sectors, centred on each direction
	sector := int((angle + gomath.Pi/8) / (gomath.Pi / 4))
	if sector >= 8 {
		sector = 0
	}

	// Clockwise from +Z seen from above: S(0), SE(7), E(6), NE(5), N(4), NW(3), W(2), SW(1)
	directionMap := [8]int{DirS, DirSE, DirE, DirNE, DirN, DirNW, DirW, DirSW}
	return directionMap[sector]
}

func sqrtf32(x float32) float32 {
	return float32(gomath.Sqrt(float64(x)))
}
