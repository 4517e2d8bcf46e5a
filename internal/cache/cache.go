package cache

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Item represents a cached value with metadata for invalidation
type Item[T any] struct {
	Value   T
	ModTime time.Time
	Size    int64
}

// Cache is a read-mostly cache with optional file-based invalidation.
// Values are computed outside the lock; concurrent first accesses may compute
// the same value more than once and the first stored value wins.
type Cache[K comparable, V any] struct {
	items  map[K]*Item[V]
	mutex  sync.RWMutex
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new generic cache
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]*Item[V]),
	}
}

// Get retrieves an item from the cache
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if item, exists := c.items[key]; exists {
		c.hits.Add(1)
		return item.Value, true
	}

	c.misses.Add(1)
	var zero V
	return zero, false
}

// GetWithFileValidation retrieves an item from the cache with file-based validation.
// If the file has been modified since caching, the item is removed and false is returned.
func (c *Cache[K, V]) GetWithFileValidation(key K, filePath string) (V, bool) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	if !exists {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	if stat, err := os.Stat(filePath); err == nil {
		if stat.ModTime().Equal(item.ModTime) && stat.Size() == item.Size {
			c.hits.Add(1)
			return item.Value, true
		}
	}

	c.mutex.Lock()
	delete(c.items, key)
	c.mutex.Unlock()

	c.misses.Add(1)
	var zero V
	return zero, false
}

// SetWithFileInfo stores an item in the cache with file metadata for validation
func (c *Cache[K, V]) SetWithFileInfo(key K, value V, filePath string) error {
	stat, err := os.Stat(filePath)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &Item[V]{
		Value:   value,
		ModTime: stat.ModTime(),
		Size:    stat.Size(),
	}

	return nil
}

// LoadOrStore stores value unless key is already present, and returns the
// value held by the cache afterwards
func (c *Cache[K, V]) LoadOrStore(key K, value V) V {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if item, exists := c.items[key]; exists {
		return item.Value
	}
	c.items[key] = &Item[V]{Value: value}
	return value
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. compute runs without holding the lock. Errors are not cached.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	return c.LoadOrStore(key, value), nil
}

// Size returns the number of items in the cache
func (c *Cache[K, V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// ForEach iterates over all items in the cache
func (c *Cache[K, V]) ForEach(fn func(key K, value V)) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for key, item := range c.items {
		fn(key, item.Value)
	}
}

// Stats returns cache statistics
func (c *Cache[K, V]) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Stats{
		Size:   len(c.items),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Stats provides cache statistics
type Stats struct {
	Size   int
	Hits   int64
	Misses int64
}
