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

	"github.com/lib/pq"
	"github.com/maxilambruschini/payments/internal/apierror"
	lock "github.com/maxilambruschini/payments/internal/lock"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
)

type pgTx struct {
	tx *sql.Tx
}

// BeginTx opens a Postgres transaction. Row locks taken through it are held
// until Commit or Rollback.
func (d *Datasource) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to begin transaction", err)
	}
	return &pgTx{tx: tx}, nil
}

func (p *pgTx) LockAccounts(ctx context.Context, accountIDs ...string) error {
	ids := lock.SortedKeys(accountIDs...)
	if len(ids) == 0 {
		return nil
	}

	rows, err := p.tx.QueryContext(ctx, `
		SELECT account_id FROM payments.accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to lock accounts", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan locked account", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to lock accounts", err)
	}

	for _, id := range ids {
		if !found[id] {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", id), nil)
		}
	}
	return nil
}

// accountExists distinguishes a missing account from a rejected conditional
// update.
func (p *pgTx) accountExists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := p.tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM payments.accounts WHERE account_id = $1)
	`, accountID).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to check account", err)
	}
	return exists, nil
}

func (p *pgTx) Debit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if err := model.ValidateAmount(amount); err != nil {
		return err
	}

	result, err := p.tx.ExecContext(ctx, `
		UPDATE payments.accounts SET balance = balance - $2
		WHERE account_id = $1 AND balance >= $2
	`, accountID, amount)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to debit account %s", accountID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to get rows affected", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	exists, err := p.accountExists(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", accountID), nil)
	}
	return apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("insufficient funds in account %s", accountID), nil)
}

func (p *pgTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if err := model.ValidateAmount(amount); err != nil {
		return err
	}

	result, err := p.tx.ExecContext(ctx, `
		UPDATE payments.accounts SET balance = balance + $2
		WHERE account_id = $1 AND balance + $2 <= $3
	`, accountID, amount, model.MaxBalance)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to credit account %s", accountID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to get rows affected", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	exists, err := p.accountExists(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", accountID), nil)
	}
	return apierror.NewAPIError(apierror.ErrInvalidAmount,
		fmt.Sprintf("crediting %s would exceed the maximum balance of %s", amount.StringFixed(model.AmountScale), model.MaxBalance.StringFixed(model.AmountScale)), nil)
}

func (p *pgTx) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}

	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO payments.transactions (transaction_id, source, destination, amount, hash, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)
	`, txn.TransactionID, txn.Source, txn.Destination, txn.Amount, txn.Hash, txn.CreatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to record transaction %s", txn.TransactionID))
	}
	return nil
}

func (p *pgTx) CreateLoan(ctx context.Context, loan *model.Loan) error {
	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO payments.loans (loan_id, loaner, receiver, principal, interest_rate, due_date, loan_days, return_date, returned_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, loan.LoanID, loan.Loaner, loan.Receiver, loan.Principal, loan.InterestRate, loan.DueDate, loan.LoanDays, loan.ReturnDate, loan.ReturnedAmount, loan.CreatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to create loan %s", loan.LoanID))
	}
	return nil
}

func (p *pgTx) GetLoanForUpdate(ctx context.Context, id string) (*model.Loan, error) {
	row := p.tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM payments.loans WHERE loan_id = $1 FOR UPDATE
	`, loanColumns), id)

	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loanNotFound(id, err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to lock loan", err)
	}
	return loan, nil
}

func (p *pgTx) UpdateLoan(ctx context.Context, loan *model.Loan) error {
	result, err := p.tx.ExecContext(ctx, `
		UPDATE payments.loans SET returned_amount = $2, return_date = $3
		WHERE loan_id = $1
	`, loan.LoanID, loan.ReturnedAmount, loan.ReturnDate)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("failed to update loan %s", loan.LoanID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return loanNotFound(loan.LoanID, nil)
	}
	return nil
}

func (p *pgTx) Commit() error {
	if err := p.tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to commit transaction", err)
	}
	return nil
}

func (p *pgTx) Rollback() error {
	err := p.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to roll back transaction", err)
	}
	return nil
}
