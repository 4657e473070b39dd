// Package source provides a bounded cache of repository file contents so the
// index pass, resolution pass, complexity calculator and aggregator read each
// file from disk at most once while it stays warm.
package source

import (
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of file bodies kept in memory.
const DefaultSize = 4096

// Cache reads repo-relative files through an LRU.
type Cache struct {
	root string
	lru  *lru.Cache[string, []byte]
}

// NewCache creates a cache rooted at the workspace directory.
func NewCache(root string, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Cache{root: root, lru: l}, nil
}

// Root returns the workspace directory the cache reads from.
func (c *Cache) Root() string {
	return c.root
}

// Load returns the contents of the repo-relative path.
func (c *Cache) Load(rel string) ([]byte, error) {
	if data, ok := c.lru.Get(rel); ok {
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	c.lru.Add(rel, data)
	return data, nil
}
