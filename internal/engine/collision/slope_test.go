package collision

import "testing"

func slideConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxGroundAngleRad = degrees(45)
	cfg.MaxSlideAngleRad = degrees(70)
	cfg.SlideGravity = 980
	cfg.SlideFriction = 0
	return cfg
}

func TestUpdateNpcSlopeSlideXZ_SlidesDownhill(t *testing.T) {
	mesh := slopeScene(60)
	actor := &Actor{Position: vec(50, slopeHeight(60, 50), 0), Forward: vec(-1, 0, 0)}
	ctx := NewContext()

	res := UpdateNpcSlopeSlideXZ(ctx, actor, mesh, 0.05, slideConfig())
	if !res.Active || !res.Moved {
		t.Fatalf("result = %+v, want active and moved", res)
	}
	if actor.Position.X >= 50 {
		t.Errorf("x = %f, want < 50", actor.Position.X)
	}
	if res.Mode != SlideModeSlide {
		t.Errorf("mode = %s, want slide", res.Mode)
	}
	if want := slopeHeight(60, actor.Position.X); !near(actor.Position.Y, want, 0.05) {
		t.Errorf("y = %f, want %f on the slope", actor.Position.Y, want)
	}
}

func TestUpdateNpcSlopeSlideXZ_FacingUphill(t *testing.T) {
	mesh := slopeScene(60)
	actor := &Actor{Position: vec(50, slopeHeight(60, 50), 0), Forward: vec(1, 0, 0)}
	ctx := NewContext()

	res := UpdateNpcSlopeSlideXZ(ctx, actor, mesh, 0.05, slideConfig())
	if res.Mode != SlideModeSlideBack {
		t.Errorf("mode = %s, want slideBack", res.Mode)
	}
	if ctx.LastSlideMode != SlideModeSlideBack {
		t.Errorf("ctx mode = %s, want slideBack", ctx.LastSlideMode)
	}
}

func TestUpdateNpcSlopeSlideXZ_Accelerates(t *testing.T) {
	mesh := slopeScene(60)
	actor := &Actor{Position: vec(100, slopeHeight(60, 100), 0)}
	ctx := NewContext()
	cfg := slideConfig()

	UpdateNpcSlopeSlideXZ(ctx, actor, mesh, 0.02, cfg)
	first := ctx.SlideSpeed
	UpdateNpcSlopeSlideXZ(ctx, actor, mesh, 0.02, cfg)
	if ctx.SlideSpeed <= first {
		t.Errorf("speed %f after %f, want increasing", ctx.SlideSpeed, first)
	}

	cfg.MaxSlideSpeed = 5
	for i := 0; i < 5; i++ {
		UpdateNpcSlopeSlideXZ(ctx, actor, mesh, 0.02, cfg)
	}
	if ctx.SlideSpeed > 5 {
		t.Errorf("speed %f, want clamped to 5", ctx.SlideSpeed)
	}
}

func TestUpdateNpcSlopeSlideXZ_Inactive(t *testing.T) {
	tests := []struct {
		name string
		mesh *TriangleMesh
		deg  float64
		cfg  Config
	}{
		{"flat", flatScene(0), 0, slideConfig()},
		{"walkable slope", slopeScene(30), 30, slideConfig()},
		{"wall-like slope", slopeScene(80), 80, slideConfig()},
		{"no slide tuning", slopeScene(60), 60, Config{Radius: 20, ScanHeights: []float32{70, 120, 170}, StepHeight: 60, MaxStepDown: 80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := &Actor{Position: vec(20, slopeHeight(tt.deg, 20), 0)}
			ctx := NewContext()
			ctx.SlideSpeed = 10
			start := actor.Position

			res := UpdateNpcSlopeSlideXZ(ctx, actor, tt.mesh, 0.05, tt.cfg)
			if res.Active || res.Moved {
				t.Errorf("result = %+v, want inactive", res)
			}
			if actor.Position != start {
				t.Errorf("position = %+v, want unchanged", actor.Position)
			}
			if ctx.SlideSpeed != 0 {
				t.Errorf("SlideSpeed = %f, want reset", ctx.SlideSpeed)
			}
		})
	}
}

func TestUpdateNpcSlopeSlideXZ_StopsAtWall(t *testing.T) {
	b := NewMeshBuilder()
	b.AddRamp(-100, -100, 200, 100, -100*1.7320508, 200*1.7320508)
	b.AddQuad(vec(40, -500, -100), vec(40, 500, -100), vec(40, 500, 100), vec(40, -500, 100))
	actor := &Actor{Position: vec(60.5, slopeHeight(60, 60.5), 0)}
	ctx := NewContext()
	cfg := slideConfig()

	for i := 0; i < 20; i++ {
		UpdateNpcSlopeSlideXZ(ctx, actor, b.Build(), 0.05, cfg)
	}
	if actor.Position.X < 59.9 {
		t.Errorf("x = %f, want held a radius away from the wall at 40", actor.Position.X)
	}
	if ctx.SlideSpeed != 0 {
		t.Errorf("SlideSpeed = %f, want reset while pinned", ctx.SlideSpeed)
	}
}

func TestUpdateNpcSlopeSlideXZ_NilInputs(t *testing.T) {
	actor := &Actor{Position: vec(0, 0, 0)}
	if res := UpdateNpcSlopeSlideXZ(nil, actor, flatScene(0), 0.05, slideConfig()); res.Active {
		t.Error("nil context should be inactive")
	}
	if res := UpdateNpcSlopeSlideXZ(NewContext(), actor, nil, 0.05, slideConfig()); res.Active {
		t.Error("nil mesh should be inactive")
	}
	if res := UpdateNpcSlopeSlideXZ(NewContext(), actor, slopeScene(60), 0, slideConfig()); res.Active {
		t.Error("zero dt should be inactive")
	}
}
