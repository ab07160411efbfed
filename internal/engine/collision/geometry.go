package collision

import (
	gomath "math"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

// aabb is an axis-aligned bounding box.
type aabb struct {
	min, max math.Vec3
}

func emptyAABB() aabb {
	inf := float32(gomath.Inf(1))
	return aabb{
		min: math.Vec3{X: inf, Y: inf, Z: inf},
		max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

func (b aabb) extend(p math.Vec3) aabb {
	return aabb{min: b.min.Min(p), max: b.max.Max(p)}
}

func (b aabb) union(o aabb) aabb {
	return aabb{min: b.min.Min(o.min), max: b.max.Max(o.max)}
}

// longestAxis returns 0, 1 or 2 for X, Y or Z.
func (b aabb) longestAxis() int {
	e := b.max.Sub(b.min)
	if e.Y > e.X && e.Y > e.Z {
		return 1
	}
	if e.Z > e.X && e.Z > e.Y {
		return 2
	}
	return 0
}

// distSqToPoint returns the squared distance from p to the box (0 inside).
func (b aabb) distSqToPoint(p math.Vec3) float32 {
	var d float32
	for axis := 0; axis < 3; axis++ {
		v := p.Axis(axis)
		lo, hi := b.min.Axis(axis), b.max.Axis(axis)
		if v < lo {
			d += (lo - v) * (lo - v)
		} else if v > hi {
			d += (v - hi) * (v - hi)
		}
	}
	return d
}

// intersectRay reports whether the ray segment [0, maxDist] touches the box.
func (b aabb) intersectRay(origin, dir math.Vec3, maxDist float32) bool {
	tmin := float32(0)
	tmax := maxDist

	for axis := 0; axis < 3; axis++ {
		o := origin.Axis(axis)
		d := dir.Axis(axis)
		lo, hi := b.min.Axis(axis), b.max.Axis(axis)
		if d == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmax < tmin {
			return false
		}
	}
	return true
}

// rayTriangle is the double-sided Moller-Trumbore test.
func rayTriangle(origin, dir, a, b, c math.Vec3) (float32, bool) {
	const eps = 1e-7

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -eps && det < eps {
		return 0, false
	}
	inv := 1 / det

	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

// closestPointOnTriangle returns the point of triangle abc closest to p
// (Ericson, Real-Time Collision Detection, 5.1.5).
func closestPointOnTriangle(p, a, b, c math.Vec3) math.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Scale(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Scale(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Scale(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}

func sqrt32(f float32) float32 {
	return float32(gomath.Sqrt(float64(f)))
}
