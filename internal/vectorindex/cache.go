package vectorindex

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of loaded indexes kept in memory
const DefaultCacheSize = 16

type cacheEntry struct {
	version time.Time
	index   *Index
}

// Cache keeps recently loaded indexes keyed by document ID.
// An entry is only returned for the version it was stored with, so a
// rebuilt index is never served from a stale entry.
type Cache struct {
	lru *lru.Cache
}

// NewCache creates a cache holding up to size indexes.
// A size of zero or less disables caching.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return &Cache{}, nil
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached index for the document if it matches version
func (c *Cache) Get(documentID string, version time.Time) (*Index, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	v, ok := c.lru.Get(documentID)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	if !entry.version.Equal(version) {
		c.lru.Remove(documentID)
		return nil, false
	}
	return entry.index, true
}

// Add stores the index under the document and version
func (c *Cache) Add(documentID string, version time.Time, idx *Index) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(documentID, cacheEntry{version: version, index: idx})
}

// Invalidate drops the document's entry
func (c *Cache) Invalidate(documentID string) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Remove(documentID)
}

// Len returns the number of cached indexes
func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
