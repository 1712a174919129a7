package nlp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OFFIS-RIT/paperkg/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// SpanCache stores provider output keyed by provider and sentence text.
type SpanCache interface {
	Get(ctx context.Context, key string) ([]Span, bool, error)
	Set(ctx context.Context, key string, spans []Span) error
}

// CachedProvider serves spans from a cache and falls through to the wrapped
// provider on a miss. Cache errors never fail an extraction.
type CachedProvider struct {
	inner   Provider
	cache   SpanCache
	version string
}

// NewCachedProvider wraps p. version is mixed into every key so a rule or
// model change invalidates old entries.
func NewCachedProvider(p Provider, cache SpanCache, version string) *CachedProvider {
	return &CachedProvider{inner: p, cache: cache, version: version}
}

func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

func (c *CachedProvider) Extract(ctx context.Context, text string) ([]Span, error) {
	key := CacheKey(c.inner.Name(), c.version, text)
	spans, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("[NLP] Span cache read failed", "provider", c.inner.Name(), "err", err)
	}
	if ok {
		return spans, nil
	}

	spans, err = c.inner.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, spans); err != nil {
		logger.Warn("[NLP] Span cache write failed", "provider", c.inner.Name(), "err", err)
	}
	return spans, nil
}

// CacheKey derives the cache key of a provider result.
func CacheKey(provider, version, text string) string {
	sum := sha256.Sum256([]byte(text))
	return provider + ":" + version + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache is an unbounded in-process SpanCache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]Span
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]Span)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]Span, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spans, ok := m.items[key]
	return spans, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, spans []Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = spans
	return nil
}

// FileCache keeps one JSON file per key below a directory.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (f *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

func (f *FileCache) Get(_ context.Context, key string) ([]Span, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var spans []Span
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, false, err
	}
	return spans, true, nil
}

func (f *FileCache) Set(_ context.Context, key string, spans []Span) error {
	if spans == nil {
		spans = []Span{}
	}
	data, err := json.Marshal(spans)
	if err != nil {
		return err
	}
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

// RedisCacheParams configures a RedisCache.
type RedisCacheParams struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache shares provider output between workers.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, params RedisCacheParams) (*RedisCache, error) {
	if params.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        params.Addr,
		Password:    params.Password,
		DB:          params.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := params.Prefix
	if prefix == "" {
		prefix = "paperkg:spans:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: params.TTL}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]Span, bool, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var spans []Span
	if err := json.Unmarshal(raw, &spans); err != nil {
		return nil, false, err
	}
	return spans, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, spans []Span) error {
	if spans == nil {
		spans = []Span{}
	}
	raw, err := json.Marshal(spans)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.prefix+key, raw, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
