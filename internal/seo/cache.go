package seo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/studio-site/pkg/logging"
)

// DefaultCacheTTL matches how long a rendered page keeps its metadata.
const DefaultCacheTTL = 5 * time.Minute

// negativeEntry marks a route known to have no record.
const negativeEntry = "null"

// CacheObserver counts cache lookups by result: hit, miss or error.
type CacheObserver interface {
	ObserveCache(result string)
}

// cacheStore holds encoded records by key with a TTL.
type cacheStore interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource caches another source's answers, including "no record", and
// lets concurrent misses for one route share a single upstream lookup.
type CachedSource struct {
	next     RecordSource
	store    cacheStore
	ttl      time.Duration
	prefix   string
	group    singleflight.Group
	logger   *logging.Logger
	observer CacheObserver
}

// NewRedisCachedSource caches in Redis so all instances share entries.
func NewRedisCachedSource(next RecordSource, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedSource {
	return newCachedSource(next, &redisStore{client: client}, ttl, logger)
}

// NewMemoryCachedSource caches in process memory.
func NewMemoryCachedSource(next RecordSource, ttl time.Duration, logger *logging.Logger) *CachedSource {
	return newCachedSource(next, newMemoryStore(), ttl, logger)
}

func newCachedSource(next RecordSource, store cacheStore, ttl time.Duration, logger *logging.Logger) *CachedSource {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		next:   next,
		store:  store,
		ttl:    ttl,
		prefix: "seo:page:",
		logger: logger.WithComponent("seo_cache"),
	}
}

// WithObserver attaches a cache observer (metrics).
func (c *CachedSource) WithObserver(observer CacheObserver) *CachedSource {
	c.observer = observer
	return c
}

// FindByRoute serves from cache when possible. Cache failures fall through
// to the wrapped source; upstream errors are not cached.
func (c *CachedSource) FindByRoute(ctx context.Context, route string) (*PageRecord, error) {
	route = NormalizeRoute(route)
	key := c.prefix + route

	data, ok, err := c.store.get(ctx, key)
	switch {
	case err != nil:
		c.observe("error")
		c.logger.Warn("seo cache read failed", "key", key, "error", err)
	case ok:
		rec, decodeErr := decodeEntry(data)
		if decodeErr == nil {
			c.observe("hit")
			return rec, nil
		}
		c.logger.Warn("discarding undecodable seo cache entry", "key", key, "error", decodeErr)
	default:
		c.observe("miss")
	}

	fillCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		rec, err := c.next.FindByRoute(fillCtx, route)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(rec)
		if err == nil {
			if setErr := c.store.set(fillCtx, key, encoded, c.ttl); setErr != nil {
				c.logger.Warn("seo cache write failed", "key", key, "error", setErr)
			}
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PageRecord), nil
}

func (c *CachedSource) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveCache(result)
	}
}

func decodeEntry(data []byte) (*PageRecord, error) {
	if string(data) == negativeEntry {
		return nil, nil
	}
	var rec PageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type redisStore struct {
	client *redis.Client
}

func (s *redisStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *memoryStore) get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *memoryStore) set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

var _ RecordSource = (*CachedSource)(nil)
