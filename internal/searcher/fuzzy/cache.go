package fuzzy

import (
	"container/list"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
)

type cacheKey struct {
	term        string
	maxDistance int
}

type cacheEntry struct {
	key    cacheKey
	result index.DocSet
}

// lru is a fixed-capacity least-recently-used map. It is not safe for
// concurrent use; Engine guards it.
type lru struct {
	capacity int
	order    *list.List
	items    map[cacheKey]*list.Element
}

func newLRU(capacity int) *lru {
	return &lru{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element),
	}
}

func (c *lru) get(key cacheKey) (index.DocSet, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).result, true
}

func (c *lru) put(key cacheKey, result index.DocSet) {
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).result = result
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, result: result})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lru) len() int {
	return c.order.Len()
}

func (c *lru) clear() {
	c.order.Init()
	c.items = make(map[cacheKey]*list.Element)
}
