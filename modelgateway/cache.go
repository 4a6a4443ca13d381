package modelgateway

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// embeddingCache is the in-process embedding cache: capacity 1,000 entries
// (configurable), keyed by a hash of the text, FIFO eviction.
//
// This is NOT backed by github.com/dgraph-io/ristretto (used elsewhere in
// this repo for the Store Gateway's hot-row cache — see storegw/hotcache.go).
// Ristretto is an approximate, sampled-LFU cache: it admits and evicts
// probabilistically and offers no strict capacity-at-N, insertion-order
// eviction guarantee. Embed must stay deterministic per text within a
// process lifetime, which needs exact FIFO at a fixed capacity, so this one
// piece is built on container/list + a map.
type embeddingCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = oldest
	index    map[uint64]*list.Element
}

type cacheEntry struct {
	key   uint64
	value []float32
}

func newEmbeddingCache(capacity int) *embeddingCache {
	return &embeddingCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[uint64]*list.Element, capacity),
	}
}

func hashText(text string) uint64 {
	return xxhash.Sum64String(text)
}

func (c *embeddingCache) get(text string) ([]float32, bool) {
	key := hashText(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).value, true
}

func (c *embeddingCache) put(text string, value []float32) {
	key := hashText(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*cacheEntry).value = value
		return
	}

	el := c.order.PushBack(&cacheEntry{key: key, value: value})
	c.index[key] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheEntry).key)
	}
}

func (c *embeddingCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
