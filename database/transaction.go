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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
)

const transactionColumns = "transaction_id, source, destination, amount, created_at, hash"

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var source, destination sql.NullString
	if err := row.Scan(&txn.TransactionID, &source, &destination, &txn.Amount, &txn.CreatedAt, &txn.Hash); err != nil {
		return nil, err
	}
	txn.Source = source.String
	txn.Destination = destination.String
	return txn, nil
}

// GetTransaction retrieves a log record by its ID.
func (d *Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM payments.transactions WHERE transaction_id = $1
	`, transactionColumns), id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("transaction with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to retrieve transaction", err)
	}
	return txn, nil
}

// ListTransactions returns log records in insertion order. The serial id
// column gives the insertion order, so records sharing a timestamp keep it.
func (d *Datasource) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	var query strings.Builder
	args := []interface{}{}

	query.WriteString(fmt.Sprintf("SELECT %s FROM payments.transactions", transactionColumns))
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		query.WriteString(fmt.Sprintf(" WHERE (source = $%d OR destination = $%d)", len(args), len(args)))
	}
	query.WriteString(" ORDER BY id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := d.Conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to list transactions", err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan transaction", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to iterate transactions", err)
	}
	return txns, nil
}
