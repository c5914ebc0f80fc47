package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
	"github.com/couchcryptid/air-quality-engine/internal/observability"
)

// DefaultCacheTTL bounds how stale cached weather may get.
const DefaultCacheTTL = 15 * time.Minute

// CachedProvider wraps a WeatherProvider with an in-memory LRU cache keyed by
// coordinates rounded to two decimals (roughly 1 km).
type CachedProvider struct {
	inner   domain.WeatherProvider
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// CacheOption customizes a CachedProvider.
type CacheOption func(*CachedProvider)

// WithTTL overrides DefaultCacheTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedProvider) { c.ttl = ttl }
}

// WithClock sets the clock used for expiry.
func WithClock(clock clockwork.Clock) CacheOption {
	return func(c *CachedProvider) { c.clock = clock }
}

// NewCachedProvider creates a cache decorator around a weather provider.
func NewCachedProvider(inner domain.WeatherProvider, maxEntries int, metrics *observability.Metrics, opts ...CacheOption) *CachedProvider {
	c := &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     DefaultCacheTTL,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedProvider) CurrentWeather(ctx context.Context, lat, lon float64) (domain.WeatherInput, error) {
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	now := c.clock.Now()
	if w, ok := c.cache.get(key, now); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return w, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	w, err := c.inner.CurrentWeather(ctx, lat, lon)
	if err != nil {
		return w, err
	}
	c.cache.put(key, w, now.Add(c.ttl))
	return w, nil
}

// lruCache is a thread-safe LRU cache of weather snapshots with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     domain.WeatherInput
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(1, maxEntries),
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) (domain.WeatherInput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.WeatherInput{}, false
	}
	if !now.Before(e.expiresAt) {
		c.remove(e)
		delete(c.entries, key)
		return domain.WeatherInput{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.WeatherInput, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
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
