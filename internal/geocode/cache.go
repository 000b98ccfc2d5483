package geocode

import (
	"sync"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

// Cache memoizes resolutions by exact postal code string, including
// unresolved ones. It is a bounded LRU safe for concurrent use.
type Cache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Resolution
	prev  *entry
	next  *entry
}

// NewCache creates a cache holding at most maxEntries codes. A non-positive
// maxEntries means unbounded.
func NewCache(maxEntries int) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached resolution for code, if any.
func (c *Cache) Get(code string) (domain.Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[code]
	if !ok {
		return domain.Resolution{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put stores the resolution for code, replacing any previous entry.
func (c *Cache) Put(code string, value domain.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[code]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: code, value: value}
	c.entries[code] = e
	c.addToFront(e)

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of cached codes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
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

func (c *Cache) remove(e *entry) {
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

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
