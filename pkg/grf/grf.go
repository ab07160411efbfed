// Package grf reads and writes Ragnarok Online GRF archives (version 0x200),
// the container the game ships its map altitude files in.
package grf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/Faultbox/midgard-npc/pkg/encoding"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200

	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04 // Mixed or header-only DES
)

// Archive errors.
var (
	ErrInvalidMagic       = errors.New("grf: invalid magic")
	ErrUnsupportedVersion = errors.New("grf: unsupported version")
	ErrNotFound           = errors.New("grf: file not found")
	ErrEncrypted          = errors.New("grf: encrypted entry")
	ErrCorrupt            = errors.New("grf: corrupt archive")
)

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32 // Relative to the end of the header
	Seed          uint32
	FileCount     uint32 // Entries + Seed + 7
	Version       uint32
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name             string // UTF-8, slash separated, as stored (case kept)
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32 // Relative to the end of the header
}

// Archive represents an opened GRF archive. Reads are safe for concurrent use.
type Archive struct {
	mu      sync.Mutex
	file    *os.File
	header  Header
	modTime time.Time
	entries map[string]*Entry // Keyed by normalized path
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	a := &Archive{
		file:    file,
		modTime: info.ModTime(),
		entries: make(map[string]*Entry),
	}
	if err := a.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := a.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// ModTime returns the archive file's modification time.
func (a *Archive) ModTime() time.Time {
	return a.modTime
}

func (a *Archive) readHeader() error {
	if err := binary.Read(a.file, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: file count %d below seed", ErrCorrupt, a.header.FileCount)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	if _, err := a.file.Seek(int64(a.header.TableOffset)+headerSize, io.SeekStart); err != nil {
		return err
	}

	var sizes [2]uint32 // compressed, uncompressed
	if err := binary.Read(a.file, binary.LittleEndian, &sizes); err != nil {
		return fmt.Errorf("reading file table: %w", err)
	}
	compressed := make([]byte, sizes[0])
	if _, err := io.ReadFull(a.file, compressed); err != nil {
		return fmt.Errorf("reading file table: %w", err)
	}
	table, err := inflate(compressed, sizes[1])
	if err != nil {
		return fmt.Errorf("file table: %w", err)
	}

	count := a.header.FileCount - a.header.Seed - 7
	offset := 0
	for i := uint32(0); i < count; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 || offset+nameEnd+1+17 > len(table) {
			return fmt.Errorf("%w: file table truncated at entry %d", ErrCorrupt, i)
		}
		name := encoding.EUCKRToUTF8(table[offset : offset+nameEnd])
		offset += nameEnd + 1

		e := &Entry{
			Name:             strings.ReplaceAll(name, "\\", "/"),
			CompressedSize:   binary.LittleEndian.Uint32(table[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[offset+8:]),
			Flags:            table[offset+12],
			Offset:           binary.LittleEndian.Uint32(table[offset+13:]),
		}
		offset += 17

		// Directory entries carry no data.
		if e.Flags&flagFile != 0 {
			a.entries[encoding.NormalizeGRFPath(e.Name)] = e
		}
	}
	return nil
}

// List returns every file path in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		result = append(result, e.Name)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists. Lookups ignore case and accept either
// slash direction.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[encoding.NormalizeGRFPath(path)]
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (*Entry, error) {
	e, ok := a.entries[encoding.NormalizeGRFPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return e, nil
}

// Read reads a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	e, err := a.Stat(path)
	if err != nil {
		return nil, err
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, e.Name)
	}
	if e.CompressedSize > e.AlignedSize {
		return nil, fmt.Errorf("%w: %s sizes", ErrCorrupt, e.Name)
	}

	raw := make([]byte, e.AlignedSize)
	a.mu.Lock()
	if a.file == nil {
		a.mu.Unlock()
		return nil, os.ErrClosed
	}
	_, err = a.file.ReadAt(raw, int64(e.Offset)+headerSize)
	a.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Name, err)
	}

	if e.CompressedSize == e.UncompressedSize {
		return raw[:e.UncompressedSize], nil
	}
	data, err := inflate(raw[:e.CompressedSize], e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return data, nil
}

func inflate(data []byte, size uint32) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}
