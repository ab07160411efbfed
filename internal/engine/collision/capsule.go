package collision

import (
	gomath "math"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// QueryCapsule returns every collidable triangle within radius of the
// actor's sample disks. feet is the actor position; heights are offsets above
// it; when empty, the config's scan heights are used. Contacts are appended to
// out in height order, nearest first per height.
func QueryCapsule(mesh Mesh, feet math.Vec3, heights []float32, radius float32, cfg Config, out []CapsuleContact) []CapsuleContact {
	if mesh == nil || !feet.IsFinite() {
		return out
	}
	ctx := Context{}
	cfg = cfg.Normalize()
	if !finitePositive(radius) {
		radius = cfg.Radius
	}
	if len(heights) == 0 {
		heights = cfg.ScanHeights
	}
	return ctx.queryCapsule(mesh, feet, heights, radius, cfg.MinWallNormalY, out)
}

func (ctx *Context) queryCapsule(mesh Mesh, feet math.Vec3, heights []float32, radius, minWallNormalY float32, out []CapsuleContact) []CapsuleContact {
	for _, h := range heights {
		center := feet.Add(math.Vec3{Y: h})
		q := Query{
			Kind:   QuerySphere,
			Origin: center,
			Radius: radius + contactSkin,
		}
		ctx.hits = mesh.QueryNearest(q, ctx.hits[:0])
		for _, hit := range ctx.hits {
			if !mesh.IsCollidable(hit.TriangleID) {
				continue
			}
			out = append(out, makeCapsuleContact(hit, center, h, minWallNormalY))
		}
	}
	return out
}

func makeCapsuleContact(hit Contact, center math.Vec3, height, minWallNormalY float32) CapsuleContact {
	toCenter := center.Sub(hit.Point)

	n := hit.Normal
	if n.Dot(toCenter) < 0 {
		n = n.Neg()
	}

	push := toCenter.Horizontal()
	if push.LengthSq() < 1e-8 {
		// Contact straight above or below the center: fall back to the face slope.
		push = n.Horizontal()
	}
	push = push.Normalize()

	kind := ContactGround
	if float32(gomath.Abs(float64(hit.Normal.Y))) < minWallNormalY {
		kind = ContactWall
	}

	return CapsuleContact{
		Point:      hit.Point,
		Normal:     n,
		Push:       push,
		Height:     height,
		Distance:   hit.Distance,
		Top:        max(hit.Top, hit.Point.Y),
		Kind:       kind,
		TriangleID: hit.TriangleID,
	}
}
