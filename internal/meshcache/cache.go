// Package meshcache stores prebuilt collision meshes on disk so large maps do
// not have to be re-triangulated on every start.
//
// File layout: 4-byte magic "NPCM", little-endian uint32 version, then a zstd
// stream holding one msgpack-encoded record.
package meshcache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Faultbox/midgard-npc/internal/engine/collision"
)

// Version is the current file format version.
const Version uint32 = 1

// Ext is the file extension used by PathFor.
const Ext = ".npcm"

var magic = [4]byte{'N', 'P', 'C', 'M'}

// Cache errors.
var (
	ErrInvalidMagic       = errors.New("meshcache: invalid magic")
	ErrUnsupportedVersion = errors.New("meshcache: unsupported version")
)

// Meta describes what a cached mesh was built from.
type Meta struct {
	Source        string   `msgpack:"source"`
	SourceSize    int64    `msgpack:"source_size"`
	SourceModUnix int64    `msgpack:"source_mod"`
	CellSize      float32  `msgpack:"cell_size"`
	WallHeight    float32  `msgpack:"wall_height"`
	NoCollDet     []uint16 `msgpack:"no_coll_det_types,omitempty"`
}

type record struct {
	Meta      Meta      `msgpack:"meta"`
	Positions []float32 `msgpack:"positions"`
	Indices   []uint32  `msgpack:"indices"`
	Materials []uint16  `msgpack:"materials,omitempty"`
	NoCollDet []uint16  `msgpack:"no_coll_det,omitempty"`
}

// PathFor returns the cache file path for a map name inside dir.
func PathFor(dir, mapName string) string {
	return filepath.Join(dir, mapName+Ext)
}

// Write encodes meta and data to w.
func Write(w io.Writer, meta Meta, data collision.MeshData) error {
	var hdr [8]byte
	copy(hdr[:4], magic[:])
	binary.LittleEndian.PutUint32(hdr[4:], Version)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	rec := record{
		Meta:      meta,
		Positions: data.Positions,
		Indices:   data.Indices,
		Materials: data.Materials,
		NoCollDet: data.NoCollDet,
	}
	if err := msgpack.NewEncoder(bw).Encode(&rec); err != nil {
		enc.Close()
		return fmt.Errorf("msgpack encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Read decodes a cache stream.
func Read(r io.Reader) (Meta, collision.MeshData, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Meta{}, collision.MeshData{}, fmt.Errorf("%w: reading header: %v", ErrInvalidMagic, err)
	}
	if [4]byte(hdr[:4]) != magic {
		return Meta{}, collision.MeshData{}, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(hdr[4:]); v != Version {
		return Meta{}, collision.MeshData{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return Meta{}, collision.MeshData{}, err
	}
	defer dec.Close()

	var rec record
	if err := msgpack.NewDecoder(bufio.NewReaderSize(dec, 256*1024)).Decode(&rec); err != nil {
		return Meta{}, collision.MeshData{}, fmt.Errorf("msgpack decode: %w", err)
	}
	return rec.Meta, collision.MeshData{
		Positions: rec.Positions,
		Indices:   rec.Indices,
		Materials: rec.Materials,
		NoCollDet: rec.NoCollDet,
	}, nil
}

// Save writes the cache file atomically, creating parent directories.
func Save(path string, meta Meta, data collision.MeshData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, meta, data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a cache file.
func Load(path string) (Meta, collision.MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, collision.MeshData{}, err
	}
	defer f.Close()

	meta, data, err := Read(bufio.NewReader(f))
	if err != nil {
		return Meta{}, collision.MeshData{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return meta, data, nil
}

// Matches reports whether a cached mesh was built from the same source and
// options as want.
func (m Meta) Matches(want Meta) bool {
	if m.Source != want.Source || m.SourceSize != want.SourceSize || m.SourceModUnix != want.SourceModUnix {
		return false
	}
	if m.CellSize != want.CellSize || m.WallHeight != want.WallHeight {
		return false
	}
	return slices.Equal(m.NoCollDet, want.NoCollDet)
}
