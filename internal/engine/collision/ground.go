package collision

import (
	"github.com/Faultbox/midgard-npc/pkg/math"
)

var down = math.Vec3{Y: -1}

// SampleGround probes downward beneath position for the walkable surface.
//
// Probes start at each scan height above the feet, lowest first, and the
// first height that finds collidable geometry wins. Triangles with a
// non-collidable material are skipped and the probe continues to the next
// hit below them. On success the plane is stored in ctx and returned; on
// failure ctx keeps its last known ground and ok is false.
func SampleGround(ctx *Context, position math.Vec3, mesh Mesh, cfg Config) (GroundPlane, bool) {
	if ctx == nil || mesh == nil || !position.IsFinite() {
		return GroundPlane{}, false
	}
	cfg = ctx.normalize(cfg)
	g, ok := ctx.sampleGround(position, mesh, cfg)
	if ok {
		ctx.setGround(g)
	}
	return g, ok
}

// sampleGround is SampleGround without touching ctx ground state.
// cfg must already be normalized.
func (ctx *Context) sampleGround(position math.Vec3, mesh Mesh, cfg Config) (GroundPlane, bool) {
	for _, h := range cfg.ScanHeights {
		maxDist := h + cfg.ProbeDepth

		origin := position.Add(math.Vec3{Y: h})
		if hit, ok := ctx.probe(origin, maxDist, mesh); ok {
			return groundFromHit(hit, cfg), true
		}

		// The center can fall through a crack narrower than the actor; probe a
		// ring at half the radius and stand on the highest surface found.
		ring := cfg.Radius * 0.5
		ctx.samples = [4]math.Vec3{
			origin.Add(math.Vec3{X: ring}),
			origin.Add(math.Vec3{X: -ring}),
			origin.Add(math.Vec3{Z: ring}),
			origin.Add(math.Vec3{Z: -ring}),
		}
		var best Contact
		found := false
		for _, sample := range ctx.samples {
			hit, ok := ctx.probe(sample, maxDist, mesh)
			if ok && (!found || hit.Point.Y > best.Point.Y) {
				best = hit
				found = true
			}
		}
		if found {
			// Report the plane under the center, not under the ring sample.
			g := groundFromHit(best, cfg)
			g.Point.Y = g.HeightAt(position.X, position.Z)
			g.Point.X, g.Point.Z = position.X, position.Z
			return g, true
		}
	}
	return GroundPlane{}, false
}

// probe casts one downward ray and returns the closest collidable hit.
func (ctx *Context) probe(origin math.Vec3, maxDist float32, mesh Mesh) (Contact, bool) {
	q := Query{
		Kind:        QueryRay,
		Origin:      origin,
		Direction:   down,
		MaxDistance: maxDist,
	}
	ctx.hits = mesh.QueryNearest(q, ctx.hits[:0])
	for _, hit := range ctx.hits {
		if mesh.IsCollidable(hit.TriangleID) {
			return hit, true
		}
	}
	return Contact{}, false
}

func groundFromHit(hit Contact, cfg Config) GroundPlane {
	n := hit.Normal
	if n.Y < 0 {
		n = n.Neg()
	}
	if n.LengthSq() == 0 {
		n = math.Up
	}
	n.Y = math.Clamp(n.Y, -1, 1)
	return GroundPlane{
		Normal:     n,
		Point:      hit.Point,
		Clearance:  cfg.GroundClearance,
		TriangleID: hit.TriangleID,
	}
}
