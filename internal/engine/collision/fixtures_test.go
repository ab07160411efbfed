package collision

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-npc/pkg/math"
)

const (
	matFloor uint16 = 0
	matWall  uint16 = 1
)

func vec(x, y, z float32) math.Vec3 {
	return math.Vec3{X: x, Y: y, Z: z}
}

func near(a, b, eps float32) bool {
	return float32(gomath.Abs(float64(a-b))) <= eps
}

// wallConfig is a thin actor used against the x=0 wall scene.
func wallConfig() Config {
	return Config{
		Radius:          2,
		ScanHeights:     []float32{30, 100},
		StepHeight:      20,
		MaxStepDown:     80,
		EnableWallSlide: true,
	}
}

// wallScene is a flat floor crossed by a vertical wall at x=0.
func wallScene(t *testing.T, noCollDet bool) *TriangleMesh {
	t.Helper()
	b := NewMeshBuilder()
	b.AddFloor(-50, -50, 50, 50, 0)
	b.SetMaterial(matWall).SetNoCollDet(matWall, noCollDet)
	b.AddQuad(vec(0, -10, -50), vec(0, 200, -50), vec(0, 200, 50), vec(0, -10, 50))
	return b.Build()
}

// flatScene is a single large floor at y.
func flatScene(y float32) *TriangleMesh {
	b := NewMeshBuilder()
	b.AddFloor(-500, -500, 500, 500, y)
	return b.Build()
}

// slopeScene is a plane rising in +X at the given angle, passing through the origin.
func slopeScene(deg float64) *TriangleMesh {
	k := float32(gomath.Tan(deg * gomath.Pi / 180))
	b := NewMeshBuilder()
	b.AddRamp(-100, -100, 200, 100, -100*k, 200*k)
	return b.Build()
}

func slopeHeight(deg float64, x float32) float32 {
	return x * float32(gomath.Tan(deg*gomath.Pi/180))
}

func degrees(d float64) float32 {
	return float32(d * gomath.Pi / 180)
}
