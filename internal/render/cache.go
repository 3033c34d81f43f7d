package render

import (
	"sync"

	"github.com/couchcryptid/windshadow-calendar/internal/observability"
)

// FrameCache keeps recently rendered PNG frames in an in-memory LRU.
type FrameCache struct {
	cache   *lruCache
	metrics *observability.Metrics
}

// NewFrameCache creates a cache holding up to maxEntries frames.
func NewFrameCache(maxEntries int, metrics *observability.Metrics) *FrameCache {
	return &FrameCache{cache: newLRUCache(maxEntries), metrics: metrics}
}

// FrameKey identifies a job's frame at a timestamp.
func FrameKey(jobID, timestamp string) string {
	return jobID + "|" + timestamp
}

// GetOrRender returns the cached frame for key, or renders and caches it.
// Render errors are not cached.
func (c *FrameCache) GetOrRender(key string, render func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.cache.get(key); ok {
		c.metrics.FrameCache.WithLabelValues("hit").Inc()
		return b, nil
	}
	c.metrics.FrameCache.WithLabelValues("miss").Inc()
	b, err := render()
	if err != nil {
		return nil, err
	}
	c.cache.put(key, b)
	return b, nil
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	return c.cache.len()
}

// lruCache is a simple thread-safe LRU cache of encoded frames.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
