package collision

import "github.com/Faultbox/midgard-npc/pkg/math"

// maxSlideAttempts bounds the sweep/project iterations per move.
const maxSlideAttempts = 4

// ProjectOnWall removes the component of d along the wall normal n,
// leaving the part of the displacement tangent to the wall.
// A zero normal returns d unchanged.
func ProjectOnWall(d, n math.Vec3) math.Vec3 {
	n = n.Normalize()
	if n.LengthSq() == 0 {
		return d
	}
	return d.Sub(n.Scale(d.Dot(n)))
}

// slideRemainder projects what is left of a blocked move onto the wall.
// In a corner, where the new tangent would drive back into the previous
// wall, the remainder collapses to zero.
func slideRemainder(remaining, n, prev math.Vec3, hasPrev bool) math.Vec3 {
	r := ProjectOnWall(remaining, n)
	if hasPrev && r.Dot(prev) < -approachEps {
		return math.Vec3{}
	}
	if r.LengthSq() < minMoveSq {
		return math.Vec3{}
	}
	return r
}
