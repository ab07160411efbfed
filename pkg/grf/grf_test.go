package grf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// testArchive writes a small archive to a temp dir and opens it.
func testArchive(t *testing.T) *Archive {
	t.Helper()
	w := NewWriter()
	w.Add("data/test.txt", []byte("Hello, GRF!"))
	w.Add("data/prontera.gat", bytes.Repeat([]byte{0x47, 0x52}, 300))
	w.Add("data/subfolder/nested/file.txt", []byte("Nested file content"))
	w.Add("data/프론테라.txt", []byte("korean name"))

	path := filepath.Join(t.TempDir(), "test.grf")
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpen(t *testing.T) {
	a := testArchive(t)

	if a.header.Version != version200 {
		t.Errorf("Version = 0x%x, want 0x200", a.header.Version)
	}
	if len(a.entries) != 4 {
		t.Errorf("entries = %d, want 4", len(a.entries))
	}
	if a.ModTime().IsZero() {
		t.Error("ModTime() is zero")
	}
}

func TestList(t *testing.T) {
	a := testArchive(t)

	want := []string{
		"data/prontera.gat",
		"data/subfolder/nested/file.txt",
		"data/test.txt",
		"data/프론테라.txt",
	}
	if got := a.List(); !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestContains(t *testing.T) {
	a := testArchive(t)

	tests := []struct {
		path string
		want bool
	}{
		{"data/test.txt", true},
		{"DATA/TEST.TXT", true},
		{"data\\subfolder\\nested\\file.txt", true},
		{"data/프론테라.txt", true},
		{"data/missing.txt", false},
	}

	for _, tt := range tests {
		if got := a.Contains(tt.path); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRead(t *testing.T) {
	a := testArchive(t)

	data, err := a.Read("data/test.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "Hello, GRF!" {
		t.Errorf("Read() = %q, want %q", data, "Hello, GRF!")
	}

	data, err = a.Read("Data\\Prontera.gat")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(data) != 600 || data[0] != 0x47 || data[599] != 0x52 {
		t.Errorf("Read() returned %d bytes, want 600 of the original pattern", len(data))
	}

	e, err := a.Stat("data/prontera.gat")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if e.CompressedSize >= e.UncompressedSize || e.AlignedSize%8 != 0 {
		t.Errorf("Stat() = %+v, want a compressed, 8-byte aligned entry", e)
	}
}

func TestRead_Errors(t *testing.T) {
	a := testArchive(t)

	if _, err := a.Read("data/missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
	}

	a.entries["data/secret.txt"] = &Entry{Name: "data/secret.txt", Flags: flagFile | 0x02}
	if _, err := a.Read("data/secret.txt"); !errors.Is(err, ErrEncrypted) {
		t.Errorf("Read(encrypted) error = %v, want ErrEncrypted", err)
	}

	a.Close()
	if _, err := a.Read("data/test.txt"); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Read after Close error = %v, want os.ErrClosed", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open(filepath.Join(dir, "missing.grf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want ErrNotExist", err)
	}

	var buf bytes.Buffer
	NewWriter().WriteTo(&buf)
	valid := buf.Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrInvalidMagic},
		{"bad version", func(b []byte) []byte { b[42] = 0x03; return b }, ErrUnsupportedVersion},
		{"bad file count", func(b []byte) []byte { b[38] = 0; return b }, ErrCorrupt},
		{"short table", func(b []byte) []byte { b[50] = 10; return b }, ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(slices.Clone(valid))
			path := filepath.Join(dir, tt.name+".grf")
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Open(path); !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}
