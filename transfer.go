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
	"time"

	"github.com/maxilambruschini/payments/database"
	"github.com/maxilambruschini/payments/internal/metrics"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ExecuteTransfer moves amount from source to destination and records it in
// the log. An empty source creates funds and an empty destination destroys
// them. Either every effect commits or none does.
func (p *Payments) ExecuteTransfer(ctx context.Context, source, destination string, amount decimal.Decimal) (txn *model.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "ExecuteTransfer")
	defer func(start time.Time) { finish(span, "transfer", start, err) }(time.Now())

	txn, err = model.NewTransaction(source, destination, amount)
	if err != nil {
		return nil, err
	}

	release, err := p.acquire(ctx, accountKeys(source, destination)...)
	if err != nil {
		return nil, err
	}
	defer release()
	span.AddEvent("Account locks acquired")

	tx, err := p.datasource.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(tx, "transfer")

	txn.Stamp(p.now())
	if err := p.applyTransfer(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	span.AddEvent("Transfer committed")

	p.transactionCommitted(txn)
	return txn, nil
}

// CreateFunds credits destination with newly created money.
func (p *Payments) CreateFunds(ctx context.Context, destination string, amount decimal.Decimal) (*model.Transaction, error) {
	return p.ExecuteTransfer(ctx, "", destination, amount)
}

// DestroyFunds debits source, removing the money from the ledger.
func (p *Payments) DestroyFunds(ctx context.Context, source string, amount decimal.Decimal) (*model.Transaction, error) {
	return p.ExecuteTransfer(ctx, source, "", amount)
}

func (p *Payments) Transfer(ctx context.Context, source, destination string, amount decimal.Decimal) (*model.Transaction, error) {
	return p.ExecuteTransfer(ctx, source, destination, amount)
}

// applyTransfer runs the debit, the credit and the log append of txn inside
// tx. On error nothing has been committed and the caller rolls tx back.
func (p *Payments) applyTransfer(ctx context.Context, tx database.Tx, txn *model.Transaction) error {
	fields := logrus.Fields{
		"transaction_id": txn.TransactionID,
		"source":         txn.Source,
		"destination":    txn.Destination,
		"amount":         txn.Amount.StringFixed(model.AmountScale),
	}

	if err := tx.LockAccounts(ctx, txn.Source, txn.Destination); err != nil {
		return err
	}
	if txn.Source != "" {
		if err := tx.Debit(ctx, txn.Source, txn.Amount); err != nil {
			return err
		}
	}
	if txn.Destination != "" {
		if err := tx.Credit(ctx, txn.Destination, txn.Amount); err != nil {
			logrus.WithFields(fields).Warnf("credit failed, rolling back debit: %v", err)
			return err
		}
	}
	if err := tx.AppendTransaction(ctx, txn); err != nil {
		logrus.WithFields(fields).Errorf("log append failed, rolling back transfer: %v", err)
		return err
	}
	return nil
}

func (p *Payments) transactionCommitted(txn *model.Transaction) {
	kind := "transfer"
	switch {
	case txn.IsCreation():
		kind = "create"
	case txn.IsDestruction():
		kind = "destroy"
	}
	metrics.RecordMovedAmount(kind, txn.Amount.InexactFloat64())
	p.publish(transactionEvent(txn))
}
