// Package assets loads model files from a stack of file systems.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
)

// Provider returns the bytes stored at a slash-separated path.
type Provider interface {
	Load(name string) ([]byte, error)
}

// Purger is a Provider that can drop what it has cached, so the next
// Load reads from its source again.
type Purger interface {
	Purge()
}

// Manager searches its roots in reverse order (last added = highest
// priority) and optionally caches what it reads.
type Manager struct {
	roots []fs.FS
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a manager. A nil cache disables caching.
func NewManager(cache *Cache) *Manager {
	return &Manager{cache: cache}
}

// AddRoot adds a file system to search.
func (m *Manager) AddRoot(root fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, root)
	m.mu.Unlock()
}

// AddDir adds a directory on disk as a root.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("asset root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset root %s: not a directory", dir)
	}
	m.AddRoot(os.DirFS(dir))
	return nil
}

// Purge empties the cache. It is a no-op without one.
func (m *Manager) Purge() {
	if m.cache != nil {
		m.cache.Clear()
	}
}

// Load reads name from the first root that has it. The error wraps
// fs.ErrNotExist when no root does.
func (m *Manager) Load(name string) ([]byte, error) {
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("asset %q: %w", name, fs.ErrInvalid)
	}

	if m.cache != nil {
		if data, ok := m.cache.Get(name); ok {
			return data, nil
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.roots[i], name)
		if err == nil {
			if m.cache != nil {
				m.cache.Set(name, data)
			}
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading asset %s: %w", name, err)
		}
	}

	return nil, fmt.Errorf("asset %s: %w", name, fs.ErrNotExist)
}

// Cache is an in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
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

// Clear drops every entry and resets the stats.
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
