package thumbcache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"spc-catalog/internal/logging"
	"spc-catalog/internal/metrics"
)

const (
	// DefaultCapacity is the entry limit used when Options.Capacity is unset.
	DefaultCapacity = 500
	// DefaultMaxAge is the expiry used when Options.MaxAge is unset.
	DefaultMaxAge = 30 * time.Minute
)

// Options configures a Cache.
type Options struct {
	// Capacity is the maximum number of entries.
	Capacity int
	// MaxAge is how long an entry stays readable after it was set.
	MaxAge time.Duration
	// MaxBytes is a soft budget on summed size hints; 0 disables it.
	MaxBytes int64
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type entry[V any] struct {
	value  V
	stored time.Time
	size   int64
	source string
}

// Cache is a bounded, expiring key/value store. Eviction order is insertion
// order: Get never refreshes an entry, only Set does.
type Cache[V any] struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, entry[V]]
	maxAge   time.Duration
	maxBytes int64
	now      func() time.Time

	bytes       int64
	evictReason string
}

// New creates a cache. Zero-valued options take their defaults.
func New[V any](opts Options) *Cache[V] {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Cache[V]{
		maxAge:      opts.MaxAge,
		maxBytes:    opts.MaxBytes,
		now:         opts.Now,
		evictReason: "capacity",
	}

	// NewLRU only fails for a non-positive size, which is excluded above.
	c.lru, _ = simplelru.NewLRU[string, entry[V]](opts.Capacity, c.onEvict)

	logging.Debug("Thumbnail cache: capacity=%d maxAge=%v maxBytes=%s",
		opts.Capacity, opts.MaxAge, budgetString(opts.MaxBytes))

	return c
}

func budgetString(n int64) string {
	if n <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(n))
}

// onEvict runs under c.mu from inside simplelru. An empty evictReason marks
// a replacement.
func (c *Cache[V]) onEvict(_ string, e entry[V]) {
	c.bytes -= e.size
	if c.evictReason != "" {
		metrics.ThumbnailCacheEvictions.WithLabelValues(c.evictReason).Inc()
	}
}

func (c *Cache[V]) updateGauges() {
	metrics.ThumbnailCacheEntries.Set(float64(c.lru.Len()))
	metrics.ThumbnailCacheBytes.Set(float64(c.bytes))
}

// Key builds the cache key for a derived thumbnail.
func Key(source string, size, quality int, format string) string {
	return fmt.Sprintf("%s|%d|%d|%s", source, size, quality, format)
}

func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.stored) > c.maxAge
}

// Get returns the value for key. Expired entries read as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok || c.expired(e, c.now()) {
		metrics.ThumbnailCacheMisses.Inc()
		var zero V
		return zero, false
	}

	metrics.ThumbnailCacheHits.Inc()
	return e.value, true
}

// Set stores value under key. sizeHint is the value's approximate size in
// bytes and feeds the byte budget. Expired entries are purged first, then the
// oldest entries are dropped until both limits hold. The entry just stored is
// never dropped for the byte budget.
func (c *Cache[V]) Set(key string, value V, sizeHint int64) {
	c.SetFrom(key, sourceOf(key), value, sizeHint)
}

// SetFrom is Set with an explicit source for InvalidateSource.
func (c *Cache[V]) SetFrom(key, source string, value V, sizeHint int64) {
	if sizeHint < 0 {
		sizeHint = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.purgeExpired(now)

	// A replaced key moves to the newest position and is not an eviction
	if c.lru.Contains(key) {
		c.evictReason = ""
		c.lru.Remove(key)
	}

	c.evictReason = "capacity"
	c.lru.Add(key, entry[V]{value: value, stored: now, size: sizeHint, source: source})
	c.bytes += sizeHint

	c.enforceBudget(key)
	c.updateGauges()
}

func (c *Cache[V]) purgeExpired(now time.Time) {
	c.evictReason = "expired"
	for {
		_, e, ok := c.lru.GetOldest()
		if !ok || !c.expired(e, now) {
			return
		}
		c.lru.RemoveOldest()
	}
}

func (c *Cache[V]) enforceBudget(keep string) {
	if c.maxBytes <= 0 {
		return
	}

	c.evictReason = "bytes"
	for c.bytes > c.maxBytes {
		k, _, ok := c.lru.GetOldest()
		if !ok || k == keep {
			return
		}
		c.lru.RemoveOldest()
	}
}

// InvalidateSource removes every entry derived from source and returns how
// many were removed.
func (c *Cache[V]) InvalidateSource(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictReason = "invalidated"
	removed := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && e.source == source {
			c.lru.Remove(k)
			removed++
		}
	}

	if removed > 0 {
		logging.Debug("Thumbnail cache: invalidated %d entries for %s", removed, source)
	}
	c.updateGauges()
	return removed
}

// Purge removes all entries.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictReason = "invalidated"
	c.lru.Purge()
	c.bytes = 0
	c.updateGauges()
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Bytes returns the summed size hints of stored entries.
func (c *Cache[V]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Keys returns stored keys from oldest to newest.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// sourceOf recovers the source from a key built by Key. Keys that did not
// come from Key are their own source.
func sourceOf(key string) string {
	parts := strings.Split(key, "|")
	if len(parts) < 4 {
		return key
	}
	return strings.Join(parts[:len(parts)-3], "|")
}
