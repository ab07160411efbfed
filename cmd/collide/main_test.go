package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-npc/internal/meshcache"
	"github.com/Faultbox/midgard-npc/pkg/formats"
	"github.com/Faultbox/midgard-npc/pkg/grf"
)

const testScene = `
name: yard
primitives:
  - {type: floor, min: [-500, -500], max: [500, 500], y: 0}
  - {type: box, min: [30, 0, 200], max: [60, 200, 300]}
npcs:
  - {name: walker, position: [-100, 0], destination: [100, 0]}
`

// execute runs the CLI with an empty config file and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := Execute(root)
	return out.String(), err
}

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yard.yaml")
	if err := os.WriteFile(path, []byte(testScene), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCmd(t *testing.T) {
	out, err := execute(t, "run", writeScene(t), "--ticks", "60", "--npc", "extra:0,-200:0,-100")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}
	for _, want := range []string{"walker", "extra", "60 ticks", "2 arrived"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no target", []string{"run"}},
		{"missing scene", []string{"run", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"bad npc", []string{"run", writeScene(t), "--npc", "nameonly"}},
		{"bad point", []string{"run", writeScene(t), "--npc", "a:1;2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExecute_LogsFailure(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "collide.log")

	if _, err := execute(t, "--log-file", logPath, "run", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	for _, want := range []string{`"level":"ERROR"`, `"msg":"command failed"`, `"command":"collide run"`, "missing.yaml"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %s:\n%s", want, data)
		}
	}
}

func TestProbeCmd(t *testing.T) {
	scene := writeScene(t)

	out, err := execute(t, "probe", scene, "-x", "45", "-z", "190")
	if err != nil {
		t.Fatalf("probe error = %v\n%s", err, out)
	}
	for _, want := range []string{"ground: y 0.00", "surface: walkable", "wall"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "probe", scene, "-x", "900", "-z", "900")
	if err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if !strings.Contains(out, "ground: none") {
		t.Errorf("probe over void:\n%s", out)
	}
}

func TestCacheCmd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "field.gat")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := formats.NewGAT(4, 4).WriteTo(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dst := filepath.Join(dir, "out", "field.npcm")
	out, err := execute(t, "cache", src, dst)
	if err != nil {
		t.Fatalf("cache error = %v\n%s", err, out)
	}

	meta, data, err := meshcache.Load(dst)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if meta.Source != "field.gat" {
		t.Errorf("Source = %q, want field.gat", meta.Source)
	}
	if got := data.TriangleCount(); got != 32 {
		t.Errorf("TriangleCount() = %d, want 32", got)
	}

	// Map loading through the cache directory
	out, err = execute(t, "--cache-dir", filepath.Join(dir, "cache"), "cache", src)
	if err != nil {
		t.Fatalf("cache error = %v\n%s", err, out)
	}
	if _, err := os.Stat(meshcache.PathFor(filepath.Join(dir, "cache"), "field")); err != nil {
		t.Errorf("cache file not written to cache dir: %v", err)
	}

	if _, err := execute(t, "cache", src); err == nil {
		t.Error("expected error without an output path or cache dir")
	}
}

func TestArchiveMaps(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if _, err := formats.NewGAT(20, 20).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	w := grf.NewWriter()
	w.Add("data/izlude.gat", buf.Bytes())
	archive := filepath.Join(dir, "data.grf")
	if err := w.WriteFile(archive); err != nil {
		t.Fatal(err)
	}
	cacheDir := filepath.Join(dir, "cache")

	out, err := execute(t, "--grf", archive, "--cache-dir", cacheDir, "--map-dir", filepath.Join(dir, "maps"), "cache", "izlude")
	if err != nil {
		t.Fatalf("cache error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "800 triangles") {
		t.Errorf("cache output = %q, want 800 triangles", out)
	}

	// 20x20 cells of 5 units: walk across the middle.
	out, err = execute(t, "--grf", archive, "--cache-dir", cacheDir, "run", "izlude",
		"--ticks", "30", "--npc", "novice:10,50:90,50")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "novice") || !strings.Contains(out, "1 arrived") {
		t.Errorf("run output:\n%s", out)
	}
}

func TestMapsCmd(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"prontera", "prt_fild01", "geffen"} {
		f, err := os.Create(filepath.Join(dir, name+".gat"))
		if err != nil {
			t.Fatal(err)
		}
		formats.NewGAT(2, 2).WriteTo(f)
		f.Close()
	}
	cacheDir := filepath.Join(dir, "cache")

	if _, err := execute(t, "--map-dir", dir, "--cache-dir", cacheDir, "cache", "geffen"); err != nil {
		t.Fatalf("cache error = %v", err)
	}

	out, err := execute(t, "--map-dir", dir, "--cache-dir", cacheDir, "maps")
	if err != nil {
		t.Fatalf("maps error = %v", err)
	}
	want := "geffen\tcached\nprontera\nprt_fild01\n3 maps\n"
	if out != want {
		t.Errorf("maps output = %q, want %q", out, want)
	}

	out, err = execute(t, "--map-dir", dir, "maps", "prt*")
	if err != nil {
		t.Fatalf("maps error = %v", err)
	}
	if out != "prt_fild01\n1 maps\n" {
		t.Errorf("maps prt* output = %q", out)
	}
}
