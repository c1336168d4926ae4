package embedding

import (
	"container/list"
	"sync"
)

// Cache keeps recently embedded texts so re-classifying a document does not
// hit the embedding service again. Eviction is least-recently-used.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	// order front is the most recently used entry.
	order *list.List
}

type cacheEntry struct {
	text   string
	vector []float32
}

// NewCache creates a cache holding up to capacity vectors.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached vector for text. A hit refreshes the entry's
// recency, so lookups take the write lock.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).vector, true
}

// Set stores the vector for text, evicting the least recently used entry
// once the cache is full.
func (c *Cache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).vector = vector
		return
	}
	c.entries[text] = c.order.PushFront(&cacheEntry{text: text, vector: vector})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).text)
	}
}
