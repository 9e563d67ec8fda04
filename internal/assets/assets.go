// Package assets reads model files from search roots and decodes them.
package assets

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/lolanim/internal/logger"
	"github.com/Faultbox/lolanim/pkg/formats"
)

// ErrNotFound is returned when no search root holds a requested file.
var ErrNotFound = errors.New("asset not found")

type root struct {
	name string
	fsys fs.FS
}

// Manager loads files from a stack of search roots.
// Roots are searched in reverse order (last added = highest priority).
type Manager struct {
	roots []root
	cache *Cache
	log   *zap.Logger
	mu    sync.RWMutex

	// WeightTolerance bounds how far a vertex weight sum may stray from 1
	// before LoadModel warns about it.
	WeightTolerance float32
}

// NewManager creates an asset manager logging to log, or to the global
// logger when log is nil.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = logger.Named("assets")
	}
	return &Manager{
		cache:           NewCache(),
		log:             log,
		WeightTolerance: 0.01,
	}
}

// AddRoot adds a directory search root.
func (m *Manager) AddRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "adding root %s", dir)
	}
	if !info.IsDir() {
		return errors.Errorf("adding root %s: not a directory", dir)
	}
	m.AddFS(dir, os.DirFS(dir))
	return nil
}

// AddFS adds an arbitrary file system as a search root.
func (m *Manager) AddFS(name string, fsys fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, root{name: name, fsys: fsys})
	m.mu.Unlock()
	m.log.Debug("added search root", zap.String("root", name))
}

// Roots returns the root names in search order.
func (m *Manager) Roots() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.roots))
	for i := len(m.roots) - 1; i >= 0; i-- {
		names = append(names, m.roots[i].name)
	}
	return names
}

// cleanPath converts an OS or slash path into an fs.FS path.
func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "./")
}

// Load returns the contents of a file. Absolute paths are read directly;
// relative paths are looked up in the roots.
func (m *Manager) Load(name string) ([]byte, error) {
	key := cleanPath(name)
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	if filepath.IsAbs(name) {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		m.cache.Set(key, data)
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.roots[i].fsys, key)
		if err == nil {
			m.cache.Set(key, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "reading %s from %s", key, m.roots[i].name)
		}
	}
	return nil, errors.Wrap(ErrNotFound, key)
}

// Glob returns the relative paths matching pattern inside dir across all
// roots, sorted and without duplicates.
func (m *Manager) Glob(dir, pattern string) ([]string, error) {
	if filepath.IsAbs(dir) {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s", dir)
		}
		sort.Strings(matches)
		return matches, nil
	}

	full := path.Join(cleanPath(dir), pattern)

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, r := range m.roots {
		matches, err := fs.Glob(r.fsys, full)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s in %s", dir, r.name)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				out = append(out, match)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadSkeleton loads and decodes a skeleton file.
func (m *Manager) LoadSkeleton(name string) (*formats.Skeleton, error) {
	data, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	skl, err := formats.DecodeSkeleton(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding skeleton %s", name)
	}
	m.log.Debug("loaded skeleton",
		zap.String("path", name),
		zap.Stringer("type", skl.Type),
		zap.Int("joints", len(skl.Joints)))
	return skl, nil
}

// LoadSkin loads and decodes a skin file.
func (m *Manager) LoadSkin(name string) (*formats.Skin, error) {
	data, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	skn, err := formats.DecodeSkin(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding skin %s", name)
	}
	m.log.Debug("loaded skin",
		zap.String("path", name),
		zap.Stringer("version", skn.Version),
		zap.Int("vertices", skn.VertexCount()),
		zap.Int("submeshes", len(skn.Submeshes)))
	return skn, nil
}

// LoadAnimation loads and decodes an animation file.
func (m *Manager) LoadAnimation(name string) (*formats.Animation, error) {
	data, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	anm, err := formats.DecodeAnimation(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding animation %s", name)
	}
	m.log.Debug("loaded animation",
		zap.String("path", name),
		zap.Stringer("format", anm.Format),
		zap.Float32("duration", anm.Duration),
		zap.Int("tracks", len(anm.Tracks)))
	return anm, nil
}

// CacheStats returns file cache hits and misses.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}

// Close drops all roots and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots = nil
	m.cache.Clear()
}

// Cache is an in-memory cache of file contents.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get retrieves an item and records a hit or miss.
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

// Set stores an item.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear empties the cache and resets its statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
