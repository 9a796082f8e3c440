package mapbox

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

// CachedLocator wraps a RegionLocator with an in-memory LRU cache.
type CachedLocator struct {
	inner   domain.RegionLocator
	cache   *lruCache[string]
	metrics *observability.Metrics
}

// NewCachedLocator creates a cache decorator around a region locator.
func NewCachedLocator(inner domain.RegionLocator, maxEntries int, metrics *observability.Metrics) *CachedLocator {
	return &CachedLocator{
		inner:   inner,
		cache:   newLRUCache[string](maxEntries),
		metrics: metrics,
	}
}

// LocateRegion serves repeated coordinates from the cache. Coordinates are
// rounded to two decimals (about a kilometre), well inside any state.
func (c *CachedLocator) LocateRegion(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("rev:%.2f,%.2f", lat, lon)
	return c.lookup(key, func() (string, error) {
		return c.inner.LocateRegion(ctx, lat, lon)
	})
}

func (c *CachedLocator) ResolvePlace(ctx context.Context, place string) (string, error) {
	key := "fwd:" + strings.ToLower(strings.TrimSpace(place))
	return c.lookup(key, func() (string, error) {
		return c.inner.ResolvePlace(ctx, place)
	})
}

func (c *CachedLocator) lookup(key string, fetch func() (string, error)) (string, error) {
	if code, ok := c.cache.get(key); ok {
		c.metrics.RegionCache.WithLabelValues("hit").Inc()
		return code, nil
	}
	c.metrics.RegionCache.WithLabelValues("miss").Inc()

	code, err := fetch()
	if err != nil {
		return code, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if code != "" {
		c.cache.put(key, code)
	}
	return code, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
