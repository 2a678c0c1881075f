package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

type slot struct {
	value  []byte
	loaded bool
	dirty  bool
}

// Cache indexes every key of a Store and holds the values that have been
// loaded or written. Reads never perform I/O; Bootstrap, Resolve and Flush
// do. Safe for concurrent use.
type Cache struct {
	store   Store
	slots   map[string]*slot
	removed map[string]bool
	mu      sync.RWMutex
}

// NewCache creates a Cache over store.
func NewCache(store Store) *Cache {
	return &Cache{
		store:   store,
		slots:   make(map[string]*slot),
		removed: make(map[string]bool),
	}
}

// Bootstrap rebuilds the key index and loads every key under the given
// prefixes. Keys no longer in the Store are dropped; unflushed local
// writes are kept.
func (c *Cache) Bootstrap(ctx context.Context, prefixes ...string) error {
	keys, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap index: %w", err)
	}

	listed := make(map[string]bool, len(keys))
	for _, key := range keys {
		listed[key] = true
	}

	var toLoad []string
	c.mu.Lock()
	for key, s := range c.slots {
		if !s.dirty && !listed[key] {
			delete(c.slots, key)
		}
	}
	for _, key := range keys {
		if c.removed[key] {
			continue
		}
		s, ok := c.slots[key]
		if !ok {
			s = &slot{}
			c.slots[key] = s
		}
		if !s.dirty && hasAnyPrefix(key, prefixes) {
			toLoad = append(toLoad, key)
		}
	}
	c.mu.Unlock()

	if len(toLoad) == 0 {
		return nil
	}
	return c.load(ctx, toLoad)
}

// Resolve loads the given keys that are not cached yet.
func (c *Cache) Resolve(ctx context.Context, keys ...string) error {
	c.mu.RLock()
	var toLoad []string
	for _, key := range keys {
		if s, ok := c.slots[key]; !ok || !s.loaded {
			toLoad = append(toLoad, key)
		}
	}
	c.mu.RUnlock()

	if len(toLoad) == 0 {
		return nil
	}
	return c.load(ctx, toLoad)
}

func (c *Cache) load(ctx context.Context, keys []string) error {
	entries, err := c.store.Load(ctx, keys...)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		s, ok := c.slots[e.Key]
		if !ok {
			s = &slot{}
			c.slots[e.Key] = s
		}
		if !s.dirty {
			s.value = e.Value
			s.loaded = true
		}
	}
	return nil
}

// Flush writes pending sets and deletes to the Store.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.RLock()
	var toSave []Entry
	for key, s := range c.slots {
		if s.dirty {
			toSave = append(toSave, Entry{Key: key, Value: slices.Clone(s.value)})
		}
	}
	toDelete := make([]string, 0, len(c.removed))
	for key := range c.removed {
		toDelete = append(toDelete, key)
	}
	c.mu.RUnlock()

	if len(toSave) > 0 {
		if err := c.store.Save(ctx, toSave...); err != nil {
			return fmt.Errorf("flush save: %w", err)
		}
	}
	if len(toDelete) > 0 {
		if err := c.store.Delete(ctx, toDelete...); err != nil {
			return fmt.Errorf("flush delete: %w", err)
		}
	}

	c.mu.Lock()
	for _, e := range toSave {
		if s, ok := c.slots[e.Key]; ok {
			s.dirty = false
		}
	}
	for _, key := range toDelete {
		delete(c.removed, key)
	}
	c.mu.Unlock()

	return nil
}

// Get returns a copy of a loaded value.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[key]
	if !ok || !s.loaded {
		return nil, false
	}
	return slices.Clone(s.value), true
}

// Set stages a write until the next Flush.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slots[key] = &slot{value: slices.Clone(value), loaded: true, dirty: true}
	delete(c.removed, key)
}

// Delete stages a removal until the next Flush.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.slots, key)
	c.removed[key] = true
}

// Has reports whether key is indexed, loaded or not.
func (c *Cache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.slots[key]
	return ok
}

// Keys returns every indexed key, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.slots))
	for key := range c.slots {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns the loaded entries under prefix, sorted by key.
func (c *Cache) Entries(prefix string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entries []Entry
	for key, s := range c.slots {
		if s.loaded && strings.HasPrefix(key, prefix) {
			entries = append(entries, Entry{Key: key, Value: slices.Clone(s.value)})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
