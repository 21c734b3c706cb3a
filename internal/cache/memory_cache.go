package cache

import (
	"container/list"
	"sync"

	"pokesprite/internal/imaging"
)

type entry struct {
	reference string
	sprite    *imaging.Sprite
}

// MemoryCache is the in-memory tier. With maxSize <= 0 it never evicts and
// grows until Clear; otherwise the least recently used sprite is dropped
// once maxSize is reached.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lruList *list.List
}

func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lruList: list.New(),
	}
}

func (c *MemoryCache) Has(reference string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[reference]
	return ok
}

func (c *MemoryCache) Get(reference string) (*imaging.Sprite, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[reference]
	if !ok {
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	return elem.Value.(*entry).sprite, true
}

func (c *MemoryCache) Set(reference string, sprite *imaging.Sprite) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[reference]; ok {
		elem.Value.(*entry).sprite = sprite
		c.lruList.MoveToFront(elem)
		return
	}

	if c.maxSize > 0 && c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(*entry).reference)
			c.lruList.Remove(oldest)
		}
	}

	elem := c.lruList.PushFront(&entry{reference: reference, sprite: sprite})
	c.items[reference] = elem
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lruList.Len()
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lruList = list.New()
}
