package storegw

import (
	"github.com/dgraph-io/ristretto"
)

// hotRowCache is an optional read-through cache for hot session and
// long-term-memory row lookups, independent of the Model Gateway's
// embedding cache: that one needs deterministic FIFO-at-N semantics (see
// modelgateway's embeddingCache doc comment), while this one is a pure
// latency optimization over rows the Gateway's maps already hold
// authoritatively, so ristretto's approximate admission/eviction is fine
// here.
type hotRowCache struct {
	cache *ristretto.Cache
}

func newHotRowCache(capacity int64) *hotRowCache {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		// Falls back to caching nothing rather than failing Gateway
		// construction; the maps remain the source of truth either way.
		return &hotRowCache{cache: nil}
	}
	return &hotRowCache{cache: c}
}

func (h *hotRowCache) get(key string) (any, bool) {
	if h == nil || h.cache == nil {
		return nil, false
	}
	return h.cache.Get(key)
}

func (h *hotRowCache) set(key string, value any) {
	if h == nil || h.cache == nil {
		return
	}
	h.cache.Set(key, value, 1)
}

func (h *hotRowCache) del(key string) {
	if h == nil || h.cache == nil {
		return
	}
	h.cache.Del(key)
}
