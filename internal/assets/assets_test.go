package assets

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Faultbox/midgard-npc/pkg/grf"
)

func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	w := grf.NewWriter()
	for name, data := range files {
		w.Add(name, []byte(data))
	}
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
}

func TestManager_Open(t *testing.T) {
	dir := t.TempDir()
	loose := filepath.Join(dir, "loose")
	if err := os.MkdirAll(loose, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(loose, "prontera.gat"), []byte("from disk"), 0o644); err != nil {
		t.Fatal(err)
	}

	base := filepath.Join(dir, "data.grf")
	patch := filepath.Join(dir, "patch.grf")
	writeArchive(t, base, map[string]string{
		"data/prontera.gat": "base prontera",
		"data/geffen.gat":   "base geffen",
		"data/payon.gat":    "base payon",
	})
	writeArchive(t, patch, map[string]string{
		"data/geffen.gat": "patched geffen",
	})

	m := NewManager(loose)
	defer m.Close()
	for _, p := range []string{base, patch} {
		if err := m.AddArchive(p); err != nil {
			t.Fatalf("AddArchive(%s) error = %v", p, err)
		}
	}

	tests := []struct {
		name string
		want string
	}{
		{"prontera.gat", "from disk"},
		{"geffen.gat", "patched geffen"},
		{"payon.gat", "base payon"},
		{"PAYON.GAT", "base payon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, info, err := m.Open(tt.name)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Open() = %q, want %q", data, tt.want)
			}
			if info.Size() != int64(len(tt.want)) {
				t.Errorf("Size() = %d, want %d", info.Size(), len(tt.want))
			}
		})
	}

	_, info, _ := m.Open("payon.gat")
	if info.Name() != "payon.gat" || info.ModTime().IsZero() || info.IsDir() {
		t.Errorf("archive info = %s %v %v", info.Name(), info.ModTime(), info.IsDir())
	}
}

func TestManager_OpenNotFound(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, _, err := m.Open("missing.gat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrNotFound", err)
	}

	if err := m.AddArchive(filepath.Join(t.TempDir(), "missing.grf")); err == nil {
		t.Error("AddArchive(missing) should fail")
	}
}

func TestManager_ArchiveCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.grf")
	writeArchive(t, path, map[string]string{"data/izlude.gat": "izlude"})

	m := NewManager("")
	defer m.Close()
	if err := m.AddArchive(path); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := m.Open("izlude.gat"); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	if hits, misses := m.CacheStats(); hits != 2 || misses != 1 {
		t.Errorf("CacheStats() = %d hits, %d misses, want 2, 1", hits, misses)
	}

	m.Close()
	if _, _, err := m.Open("izlude.gat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after Close error = %v, want ErrNotFound", err)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	c.Set("a", []byte("1"))

	if data, ok := c.Get("a"); !ok || string(data) != "1" {
		t.Errorf("Get(a) = %q, %v", data, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) should miss")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d, %d, want 1, 1", hits, misses)
	}

	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) after Clear should miss")
	}
}

func TestManager_List(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"prontera.gat", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	archive := filepath.Join(t.TempDir(), "data.grf")
	writeArchive(t, archive, map[string]string{
		"data/prontera.gat":      "",
		"data/Geffen.GAT":        "",
		"data/geffen.rsw":        "",
		"data/texture/inner.gat": "",
	})

	m := NewManager(dir)
	defer m.Close()
	if err := m.AddArchive(archive); err != nil {
		t.Fatal(err)
	}

	want := []string{"geffen.gat", "prontera.gat"}
	if got := m.List(".gat"); !slices.Equal(got, want) {
		t.Errorf("List(.gat) = %v, want %v", got, want)
	}
}
