package collision

import (
	"testing"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

func TestRayTriangle(t *testing.T) {
	a, b, c := vec(0, 0, 0), vec(0, 0, 10), vec(10, 0, 0)

	tests := []struct {
		name   string
		origin math.Vec3
		dir    math.Vec3
		hit    bool
		dist   float32
	}{
		{"down through interior", vec(2, 5, 2), vec(0, -1, 0), true, 5},
		{"up through back face", vec(2, -3, 2), vec(0, 1, 0), true, 3},
		{"outside hypotenuse", vec(8, 5, 8), vec(0, -1, 0), false, 0},
		{"pointing away", vec(2, 5, 2), vec(0, 1, 0), false, 0},
		{"parallel", vec(2, 0, 2), vec(1, 0, 0), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ok := rayTriangle(tt.origin, tt.dir, a, b, c)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && !near(dist, tt.dist, 1e-4) {
				t.Errorf("dist = %f, want %f", dist, tt.dist)
			}
		})
	}
}

func TestClosestPointOnTriangle(t *testing.T) {
	a, b, c := vec(0, 0, 0), vec(10, 0, 0), vec(0, 0, 10)

	tests := []struct {
		name string
		p    math.Vec3
		want math.Vec3
	}{
		{"face", vec(2, 5, 2), vec(2, 0, 2)},
		{"vertex a", vec(-3, 1, -3), a},
		{"vertex b", vec(15, 0, -1), b},
		{"vertex c", vec(-1, 0, 15), c},
		{"edge ab", vec(5, 2, -4), vec(5, 0, 0)},
		{"edge ac", vec(-4, 0, 5), vec(0, 0, 5)},
		{"edge bc", vec(8, 0, 8), vec(5, 0, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := closestPointOnTriangle(tt.p, a, b, c)
			if got.Distance(tt.want) > 1e-4 {
				t.Errorf("closest = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAABB_IntersectRay(t *testing.T) {
	box := emptyAABB().extend(vec(-1, -1, -1)).extend(vec(1, 1, 1))

	if !box.intersectRay(vec(0, 10, 0), vec(0, -1, 0), 20) {
		t.Error("vertical ray through box should hit")
	}
	if box.intersectRay(vec(0, 10, 0), vec(0, -1, 0), 5) {
		t.Error("ray stopping short of the box should miss")
	}
	if box.intersectRay(vec(3, 10, 0), vec(0, -1, 0), 20) {
		t.Error("ray beside the box should miss")
	}
	if !box.intersectRay(vec(0, 0, 0), vec(1, 0, 0), 0.5) {
		t.Error("ray starting inside should hit")
	}
	if box.intersectRay(vec(0, 5, 0), vec(0, 1, 0), 20) {
		t.Error("ray pointing away should miss")
	}
}

func TestAABB_DistSqToPoint(t *testing.T) {
	box := emptyAABB().extend(vec(0, 0, 0)).extend(vec(2, 2, 2))

	if d := box.distSqToPoint(vec(1, 1, 1)); d != 0 {
		t.Errorf("inside distSq = %f, want 0", d)
	}
	if d := box.distSqToPoint(vec(5, 1, 1)); !near(d, 9, 1e-5) {
		t.Errorf("distSq = %f, want 9", d)
	}
	if d := box.distSqToPoint(vec(-1, -1, 1)); !near(d, 2, 1e-5) {
		t.Errorf("corner distSq = %f, want 2", d)
	}
}
