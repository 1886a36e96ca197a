package chains

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

// ChainCache memoizes chain construction keyed by the ordered device tuple.
// Implementations are safe for concurrent use; a second request for an
// in-flight key may recompute harmlessly but never observes a torn value.
type ChainCache interface {
	Get(ctx context.Context, key string) (*types.Synergy, bool)
	Set(ctx context.Context, key string, s *types.Synergy)
}

// ChainKey builds the cache key for an ordered device tuple.
func ChainKey(devices []string) string {
	return strings.Join(devices, "|")
}

// MemoryCache is the default in-process cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]types.Synergy
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]types.Synergy)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*types.Synergy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	// Copy out so callers can't mutate the cached value.
	out := entry
	out.Devices = append([]string(nil), entry.Devices...)
	return &out, true
}

func (c *MemoryCache) Set(_ context.Context, key string, s *types.Synergy) {
	if s == nil {
		return
	}
	entry := *s
	entry.Devices = append([]string(nil), s.Devices...)
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares chain results across engine workers. Redis being down
// degrades to recomputation: Get errors read as a miss, Set errors are
// logged and dropped.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisCache(addr string, baseLog *logger.Logger) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisCache{
		rdb:    rdb,
		prefix: "synergy:chain:",
		ttl:    24 * time.Hour,
		log:    baseLog.With("component", "RedisChainCache"),
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*types.Synergy, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Chain cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var s types.Synergy
	if err := json.Unmarshal(raw, &s); err != nil {
		c.log.Warn("Chain cache entry corrupt, dropping", "key", key, "error", err)
		return nil, false
	}
	return &s, true
}

func (c *RedisCache) Set(ctx context.Context, key string, s *types.Synergy) {
	if s == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		c.log.Warn("Chain cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Chain cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Close() error { return c.rdb.Close() }
