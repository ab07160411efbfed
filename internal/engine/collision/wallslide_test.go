package collision

import (
	"testing"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

func TestProjectOnWall(t *testing.T) {
	tests := []struct {
		name string
		d, n math.Vec3
		want math.Vec3
	}{
		{"head on", vec(5, 0, 0), vec(-1, 0, 0), vec(0, 0, 0)},
		{"diagonal", vec(3, 0, 4), vec(-1, 0, 0), vec(0, 0, 4)},
		{"unnormalized normal", vec(3, 0, 4), vec(-2, 0, 0), vec(0, 0, 4)},
		{"parallel", vec(0, 0, 4), vec(1, 0, 0), vec(0, 0, 4)},
		{"zero normal", vec(1, 0, 1), vec(0, 0, 0), vec(1, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectOnWall(tt.d, tt.n)
			if got.Distance(tt.want) > 1e-5 {
				t.Errorf("ProjectOnWall = %+v, want %+v", got, tt.want)
			}
			if n := tt.n.Normalize(); n.LengthSq() > 0 && !near(got.Dot(n), 0, 1e-5) {
				t.Errorf("result %+v still has a normal component", got)
			}
		})
	}
}

func TestSlideRemainder_Corner(t *testing.T) {
	// Second wall's tangent points back into the first wall.
	first := vec(-1, 0, 0)
	second := math.Vec3{X: 1, Z: -1}.Normalize()
	remaining := vec(0, 0, 5)

	if r := slideRemainder(remaining, second, first, true); r.LengthSq() != 0 {
		t.Errorf("corner remainder = %+v, want zero", r)
	}
	if r := slideRemainder(vec(3, 0, 4), first, math.Vec3{}, false); r.Distance(vec(0, 0, 4)) > 1e-5 {
		t.Errorf("remainder = %+v, want (0, 0, 4)", r)
	}
}
