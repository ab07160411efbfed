// Package assets locates game data files on disk and inside GRF archives.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-npc/internal/logger"
	"github.com/Faultbox/midgard-npc/pkg/encoding"
	"github.com/Faultbox/midgard-npc/pkg/grf"
)

// ErrNotFound is returned when no source holds a file.
var ErrNotFound = errors.New("assets: file not found")

// archivePrefix is where the game keeps data inside an archive.
const archivePrefix = "data/"

// Manager reads files from a loose directory and from GRF archives.
type Manager struct {
	dir      string
	archives []*grf.Archive
	cache    *Cache
	mu       sync.RWMutex
}

// NewManager creates a manager over dir. An empty dir searches archives only.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:   dir,
		cache: NewCache(),
	}
}

// AddArchive adds a GRF archive to the manager.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()

	logger.Debug("archive added", zap.String("path", path), zap.Int("files", len(archive.List())))
	return nil
}

// Open reads name, a slash separated path such as "prontera.gat". Loose files
// under the directory win over archives, where name is looked up under data/.
func (m *Manager) Open(name string) ([]byte, fs.FileInfo, error) {
	if m.dir != "" {
		p := filepath.Join(m.dir, filepath.FromSlash(name))
		info, err := os.Stat(p)
		if err == nil {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, nil, err
			}
			return data, info, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
	}

	key := encoding.NormalizeGRFPath(archivePrefix + name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		a := m.archives[i]
		e, err := a.Stat(key)
		if err != nil {
			continue
		}
		info := entryInfo{entry: e, modTime: a.ModTime()}
		if data, ok := m.cache.Get(key); ok {
			return data, info, nil
		}
		data, err := a.Read(key)
		if err != nil {
			return nil, nil, err
		}
		m.cache.Set(key, data)
		return data, info, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns the names with extension ext (such as ".gat") that Open can
// read: top-level files of the directory and files directly under data/ in
// the archives. Names are lower case for archive entries, sorted and unique.
func (m *Manager) List(ext string) []string {
	seen := make(map[string]bool)

	if m.dir != "" {
		entries, err := os.ReadDir(m.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("listing map directory", zap.String("dir", m.dir), zap.Error(err))
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
				seen[e.Name()] = true
			}
		}
	}

	m.mu.RLock()
	for _, a := range m.archives {
		for _, name := range a.List() {
			key := encoding.NormalizeGRFPath(name)
			rest, ok := strings.CutPrefix(key, archivePrefix)
			if !ok || strings.Contains(rest, "/") || path.Ext(rest) != strings.ToLower(ext) {
				continue
			}
			seen[rest] = true
		}
	}
	m.mu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CacheStats returns archive read cache statistics.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}

// Close closes all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.cache.Clear()
}

// entryInfo describes an archive entry as a file. Its time is the archive's.
type entryInfo struct {
	entry   *grf.Entry
	modTime time.Time
}

func (i entryInfo) Name() string       { return path.Base(i.entry.Name) }
func (i entryInfo) Size() int64        { return int64(i.entry.UncompressedSize) }
func (i entryInfo) Mode() fs.FileMode  { return 0o444 }
func (i entryInfo) ModTime() time.Time { return i.modTime }
func (i entryInfo) IsDir() bool        { return false }
func (i entryInfo) Sys() any           { return i.entry }

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
