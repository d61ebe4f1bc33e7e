package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw catalog text by source. Get reports a miss with ok=false
// and a nil error; expired entries are misses.
type Cache interface {
	Get(ctx context.Context, src string) (data []byte, ok bool, err error)
	Put(ctx context.Context, src string, data []byte) error
}

func cacheKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:12])
}

// DiskCache keeps one file per source under dir.
type DiskCache struct {
	dir    string
	maxAge time.Duration
}

// NewDiskCache returns a cache whose entries expire after maxAge.
func NewDiskCache(dir string, maxAge time.Duration) *DiskCache {
	return &DiskCache{dir: dir, maxAge: maxAge}
}

func (c *DiskCache) path(src string) string {
	return filepath.Join(c.dir, "tle-"+cacheKey(src)+".txt")
}

// Get returns the cached text for src if it is younger than maxAge.
func (c *DiskCache) Get(_ context.Context, src string) ([]byte, bool, error) {
	p := c.path(src)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) >= c.maxAge {
		return nil, false, nil
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, err
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	return b, true, nil
}

// Put writes via a temp file and rename so readers never see a partial file.
func (c *DiskCache) Put(_ context.Context, src string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "tle-*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), c.path(src))
}

// KeyPrefixCatalog namespaces catalog entries in redis.
const KeyPrefixCatalog = "skywindow:catalog:"

// RedisCache keeps catalog text in redis with a TTL of maxAge.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, maxAge time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: maxAge}
}

// RedisKey is the key a source is stored under.
func RedisKey(src string) string {
	return KeyPrefixCatalog + cacheKey(src)
}

func (c *RedisCache) Get(ctx context.Context, src string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, RedisKey(src)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached catalog: %w", err)
	}
	return b, true, nil
}

func (c *RedisCache) Put(ctx context.Context, src string, data []byte) error {
	if err := c.client.Set(ctx, RedisKey(src), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}
