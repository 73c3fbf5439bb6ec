package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a size- and TTL-bounded cache whose keys are partitioned by
// owner, so one user's entries can be dropped without touching anyone else's.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[entryKey]*list.Element
	owners  map[string]map[entryKey]struct{}
	gens    map[string]uint64
	lru     *list.List
}

type entryKey struct {
	owner string
	key   string
}

type cacheItem[T any] struct {
	id        entryKey
	data      T
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[entryKey]*list.Element),
		owners:  make(map[string]map[entryKey]struct{}),
		gens:    make(map[string]uint64),
		lru:     list.New(),
	}
}

// Get returns owner's value for key unless it is missing or expired.
func (c *LRUCache[T]) Get(owner, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[entryKey{owner, key}]
	if !ok {
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *LRUCache[T]) Set(owner, key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(owner, key, data)
}

// Generation returns owner's invalidation counter. Pair it with
// SetIfGeneration to store a value computed from reads taken after the call.
func (c *LRUCache[T]) Generation(owner string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[owner]
}

// SetIfGeneration stores data only if owner has not been invalidated since gen
// was read. It reports whether the value was stored.
func (c *LRUCache[T]) SetIfGeneration(owner, key string, data T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[owner] != gen {
		return false
	}
	c.set(owner, key, data)
	return true
}

func (c *LRUCache[T]) set(owner, key string, data T) {
	id := entryKey{owner, key}
	item := &cacheItem[T]{id: id, data: data, expiresAt: c.now().Add(c.ttl)}

	if elem, ok := c.items[id]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[id] = c.lru.PushFront(item)
	if c.owners[owner] == nil {
		c.owners[owner] = make(map[entryKey]struct{})
	}
	c.owners[owner][id] = struct{}{}

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// InvalidateOwner drops every entry of owner, bumps its generation and
// returns how many entries were removed.
func (c *LRUCache[T]) InvalidateOwner(owner string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[owner]++
	ids := c.owners[owner]
	n := len(ids)
	for id := range ids {
		if elem, ok := c.items[id]; ok {
			c.removeElement(elem)
		}
	}
	return n
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.id)
	if ids := c.owners[item.id.owner]; ids != nil {
		delete(ids, item.id)
		if len(ids) == 0 {
			delete(c.owners, item.id.owner)
		}
	}
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.removeElement(elem)
	}
	return len(expired)
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
