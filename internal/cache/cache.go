/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is not cached.
var ErrCacheMiss = errors.New("cache: key is missing")

// Cache interface provides the basic operations for a cache system.
// Only immutable records (log entries, closed loans) are cached, so entries
// never need invalidating on write.
type Cache interface {
	// Set stores a value in the cache with a specified time-to-live (TTL).
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Get retrieves a value into data. Returns ErrCacheMiss if the key is absent.
	Get(ctx context.Context, key string, data interface{}) error

	// Delete removes a value from the cache based on the provided key.
	Delete(ctx context.Context, key string) error
}

// RedisCache implements the Cache interface, using Redis as the underlying cache store.
// It leverages both Redis and local in-memory caching for efficient lookups.
type RedisCache struct {
	cache *cache.Cache
}

// cacheSize defines the size of the local cache (in number of entries) used alongside Redis.
const cacheSize = 128000

// NewCache sets up a Redis-backed cache with local caching (TinyLFU).
func NewCache(client redis.UniversalClient) *RedisCache {
	c := cache.New(&cache.Options{
		Redis:      client,
		LocalCache: cache.NewTinyLFU(cacheSize, 1*time.Minute),
	})
	return &RedisCache{cache: c}
}

// NewLocalCache builds a process-local cache with no redis behind it.
func NewLocalCache() *RedisCache {
	return &RedisCache{cache: cache.New(&cache.Options{
		LocalCache: cache.NewTinyLFU(cacheSize, 1*time.Minute),
	})}
}

func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	return r.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: data,
		TTL:   ttl,
	})
}

func (r *RedisCache) Get(ctx context.Context, key string, data interface{}) error {
	err := r.cache.Get(ctx, key, data)
	if errors.Is(err, cache.ErrCacheMiss) {
		return ErrCacheMiss
	}
	return err
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	err := r.cache.Delete(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
