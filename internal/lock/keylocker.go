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

package redlock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// KeyLocker grants exclusive access to a set of keys. Keys are always taken in
// sorted order so two callers locking overlapping sets cannot deadlock. The
// returned release function frees every key and is safe to call once.
type KeyLocker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// SortedKeys returns keys sorted with duplicates and empty keys removed.
func SortedKeys(keys ...string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// RedisKeyLocker holds one redis lock per key, for deployments running
// several engine processes against the same store.
type RedisKeyLocker struct {
	client      redis.UniversalClient
	prefix      string
	lockTimeout time.Duration
	waitTimeout time.Duration
	newValue    func() string
}

func NewRedisKeyLocker(client redis.UniversalClient, lockTimeout, waitTimeout time.Duration) *RedisKeyLocker {
	return &RedisKeyLocker{
		client:      client,
		prefix:      "payments:lock:",
		lockTimeout: lockTimeout,
		waitTimeout: waitTimeout,
		newValue:    func() string { return uuid.NewString() },
	}
}

func (r *RedisKeyLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	value := r.newValue()
	held := make([]*Locker, 0, len(keys))

	release := func() {
		// A cancelled request context must not leave keys locked until expiry.
		unlockCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(unlockCtx); err != nil {
				logrus.WithField("key", held[i].key).Warnf("failed to release lock: %v", err)
			}
		}
	}

	for _, key := range SortedKeys(keys...) {
		locker := NewLocker(r.client, r.prefix+key, value)
		if err := locker.WaitLock(ctx, r.lockTimeout, r.waitTimeout); err != nil {
			release()
			return nil, err
		}
		held = append(held, locker)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// LocalKeyLocker is an in-process KeyLocker. Entries are reference counted
// and dropped once no caller holds or waits on them.
type LocalKeyLocker struct {
	mu          sync.Mutex
	locks       map[string]*localLock
	waitTimeout time.Duration
}

func NewLocalKeyLocker(waitTimeout time.Duration) *LocalKeyLocker {
	return &LocalKeyLocker{
		locks:       make(map[string]*localLock),
		waitTimeout: waitTimeout,
	}
}

func (l *LocalKeyLocker) ref(key string) *localLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (l *LocalKeyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalKeyLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	sorted := SortedKeys(keys...)
	held := make([]string, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.mu.Lock()
			entry := l.locks[held[i]]
			l.mu.Unlock()
			<-entry.ch
			l.unref(held[i])
		}
		held = held[:0]
	}

	for _, key := range sorted {
		entry := l.ref(key)
		select {
		case entry.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// Held reports the number of keys currently tracked, held or waited on.
func (l *LocalKeyLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
