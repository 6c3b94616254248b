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

package payments

import (
	"context"
	"embed"
	"time"

	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/database"
	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/internal/cache"
	redlock "github.com/maxilambruschini/payments/internal/lock"
	"github.com/maxilambruschini/payments/internal/metrics"
	"github.com/maxilambruschini/payments/internal/notification"
	redis_db "github.com/maxilambruschini/payments/internal/redis-db"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("payments")

const (
	accountLockPrefix = "account:"
	loanLockPrefix    = "loan:"

	transactionCachePrefix = "transactions:"
	loanCachePrefix        = "loans:"
)

// Payments is the ledger engine. It moves money between accounts, keeps the
// transaction log, and settles loans on top of an IDataSource.
type Payments struct {
	datasource database.IDataSource
	locker     redlock.KeyLocker
	cache      cache.Cache
	cacheTTL   time.Duration
	queue      *Queue
	now        func() time.Time
}

type Option func(*Payments)

// WithLocker replaces the in-process account/loan locker, typically with a
// redis-backed one shared by several engine processes.
func WithLocker(locker redlock.KeyLocker) Option {
	return func(p *Payments) { p.locker = locker }
}

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Payments) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithQueue enables webhook events.
func WithQueue(q *Queue) Option {
	return func(p *Payments) { p.queue = q }
}

func WithClock(now func() time.Time) Option {
	return func(p *Payments) { p.now = now }
}

// NewPayments builds an engine over db. Without options it uses a local
// locker, a local cache and no webhook queue.
func NewPayments(db database.IDataSource, opts ...Option) *Payments {
	p := &Payments{
		datasource: db,
		locker:     redlock.NewLocalKeyLocker(config.DEFAULT_LOCK_WAIT * time.Second),
		cache:      cache.NewLocalCache(),
		cacheTTL:   config.DEFAULT_CACHE_TTL * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig builds an engine wired the way the configuration asks: with
// redis configured, locks and cache live in redis and webhook events are
// queued through asynq.
func NewFromConfig(db database.IDataSource, conf *config.Configuration) (*Payments, error) {
	opts := []Option{}
	if conf.Redis.Dns != "" {
		redisClient, err := redis_db.NewRedisClient([]string{conf.Redis.Dns}, conf.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			WithLocker(redlock.NewRedisKeyLocker(redisClient.Client(), conf.Lock.Timeout(), conf.Lock.WaitTimeout())),
			WithCache(cache.NewCache(redisClient.Client()), conf.Cache.TTL()),
		)

		if conf.Notification.Webhook.Url != "" {
			queue, err := NewQueue(conf)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithQueue(queue))
		}
	} else {
		opts = append(opts,
			WithLocker(redlock.NewLocalKeyLocker(conf.Lock.WaitTimeout())),
			WithCache(cache.NewLocalCache(), conf.Cache.TTL()),
		)
	}

	p := NewPayments(db, opts...)
	if p.queue != nil {
		notification.RegisterWebhookSender(func(event string, payload interface{}) error {
			return p.SendWebhook(NewWebhook{Event: event, Payload: payload})
		})
	}
	return p, nil
}

// Close releases the queue connection. The datasource is owned by the caller.
func (p *Payments) Close() error {
	if p.queue != nil {
		return p.queue.Close()
	}
	return nil
}

func accountKeys(accountIDs ...string) []string {
	keys := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if id != "" {
			keys = append(keys, accountLockPrefix+id)
		}
	}
	return keys
}

func (p *Payments) acquire(ctx context.Context, keys ...string) (func(), error) {
	release, err := p.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to acquire lock", err)
	}
	return release, nil
}

// rollback is deferred by every write path. It is a no-op after Commit.
func rollback(tx database.Tx, operation string) {
	if err := tx.Rollback(); err != nil {
		logrus.WithField("operation", operation).Errorf("rollback failed: %v", err)
	}
}

// finish records the outcome of an engine operation on its span and in the
// operation metrics.
func finish(span trace.Span, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if code, ok := apierror.CodeOf(err); ok {
			outcome = string(code)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordOperation(operation, outcome, time.Since(start))
	span.End()
}
