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
	"errors"

	"github.com/maxilambruschini/payments/internal/cache"
	"github.com/maxilambruschini/payments/model"
	"github.com/sirupsen/logrus"
)

// GetTransaction returns a log record. Records never change once written, so
// they are cached on first read.
func (p *Payments) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "GetTransaction")
	defer span.End()

	key := transactionCachePrefix + id
	cached := &model.Transaction{}
	err := p.cache.Get(ctx, key, cached)
	if err == nil {
		span.AddEvent("Transaction served from cache")
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logrus.WithField("transaction_id", id).Warnf("transaction cache read failed: %v", err)
	}

	txn, err := p.datasource.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, txn, p.cacheTTL); err != nil {
		logrus.WithField("transaction_id", id).Warnf("failed to cache transaction: %v", err)
	}
	return txn, nil
}

// ListTransactions returns log records in the order they were committed.
func (p *Payments) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "ListTransactions")
	defer span.End()
	return p.datasource.ListTransactions(ctx, filter)
}
