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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRecord struct {
	ID     string
	Amount string
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client), mr
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	record := cachedRecord{ID: "txn_1", Amount: "10.00"}
	require.NoError(t, c.Set(ctx, "txn_1", record, 10*time.Minute))
	assert.True(t, mr.Exists("txn_1"))

	var got cachedRecord
	require.NoError(t, c.Get(ctx, "txn_1", &got))
	assert.Equal(t, record, got)
}

func TestGetNonExistentKey(t *testing.T) {
	c, _ := newTestCache(t)

	var got cachedRecord
	err := c.Get(context.Background(), "missing", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Empty(t, got)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "key", cachedRecord{ID: "1"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))
	assert.False(t, mr.Exists("key"))

	var got cachedRecord
	assert.ErrorIs(t, c.Get(ctx, "key", &got), ErrCacheMiss)

	// Deleting twice is not an error.
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache()

	require.NoError(t, c.Set(ctx, "key", cachedRecord{ID: "1"}, time.Minute))
	var got cachedRecord
	require.NoError(t, c.Get(ctx, "key", &got))
	assert.Equal(t, "1", got.ID)
}
