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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lockQuery   = regexp.QuoteMeta("SELECT account_id FROM payments.accounts")
	debitQuery  = regexp.QuoteMeta("UPDATE payments.accounts SET balance = balance - $2")
	creditQuery = regexp.QuoteMeta("UPDATE payments.accounts SET balance = balance + $2")
	existsQuery = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM payments.accounts WHERE account_id = $1)")
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func beginMockTx(t *testing.T) (Tx, sqlmock.Sqlmock) {
	ds, mock := newMockDatasource(t)
	mock.ExpectBegin()
	tx, err := ds.BeginTx(context.Background())
	require.NoError(t, err)
	return tx, mock
}

func TestTransfer_CommitsAllLegs(t *testing.T) {
	tx, mock := beginMockTx(t)
	ctx := context.Background()

	txn, err := model.NewTransaction("acc_a", "acc_b", amount("10.00"))
	require.NoError(t, err)

	mock.ExpectQuery(lockQuery).
		WithArgs(pq.Array([]string{"acc_a", "acc_b"})).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("acc_a").AddRow("acc_b"))
	mock.ExpectExec(debitQuery).WithArgs("acc_a", amount("10.00")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(creditQuery).WithArgs("acc_b", amount("10.00"), model.MaxBalance).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payments.transactions").
		WithArgs(txn.TransactionID, "acc_a", "acc_b", txn.Amount, txn.Hash, txn.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, tx.LockAccounts(ctx, "acc_b", "acc_a"))
	require.NoError(t, tx.Debit(ctx, "acc_a", amount("10.00")))
	require.NoError(t, tx.Credit(ctx, "acc_b", amount("10.00")))
	require.NoError(t, tx.AppendTransaction(ctx, txn))
	require.NoError(t, tx.Commit())
	// Rollback after commit is a no-op.
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAccounts_Missing(t *testing.T) {
	tx, mock := beginMockTx(t)

	mock.ExpectQuery(lockQuery).
		WithArgs(pq.Array([]string{"acc_a", "acc_b"})).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("acc_a"))
	mock.ExpectRollback()

	err := tx.LockAccounts(context.Background(), "acc_a", "acc_b")
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_InsufficientFunds(t *testing.T) {
	tx, mock := beginMockTx(t)

	mock.ExpectExec(debitQuery).WithArgs("acc_a", amount("60.00")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs("acc_a").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := tx.Debit(context.Background(), "acc_a", amount("60.00"))
	assert.True(t, apierror.HasCode(err, apierror.ErrInsufficientFunds))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_NotFound(t *testing.T) {
	tx, mock := beginMockTx(t)

	mock.ExpectExec(debitQuery).WithArgs("acc_x", amount("1.00")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs("acc_x").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := tx.Debit(context.Background(), "acc_x", amount("1.00"))
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitCredit_InvalidAmount(t *testing.T) {
	tx, mock := beginMockTx(t)
	ctx := context.Background()

	assert.True(t, apierror.HasCode(tx.Debit(ctx, "acc_a", amount("0")), apierror.ErrInvalidAmount))
	assert.True(t, apierror.HasCode(tx.Credit(ctx, "acc_a", amount("-5")), apierror.ErrInvalidAmount))
	assert.True(t, apierror.HasCode(tx.Credit(ctx, "acc_a", amount("0.001")), apierror.ErrInvalidAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredit_ExceedsMaximum(t *testing.T) {
	tx, mock := beginMockTx(t)

	mock.ExpectExec(creditQuery).WithArgs("acc_a", amount("1.00"), model.MaxBalance).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs("acc_a").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := tx.Credit(context.Background(), "acc_a", amount("1.00"))
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTransaction_CreationRecord(t *testing.T) {
	tx, mock := beginMockTx(t)

	txn, err := model.NewTransaction("", "acc_b", amount("50.00"))
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)")).
		WithArgs(txn.TransactionID, "", "acc_b", txn.Amount, txn.Hash, txn.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, tx.AppendTransaction(context.Background(), txn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTransaction_InvalidRecord(t *testing.T) {
	tx, mock := beginMockTx(t)

	err := tx.AppendTransaction(context.Background(), &model.Transaction{TransactionID: "txn_1", Amount: amount("1")})
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidRecord))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanLifecycleQueries(t *testing.T) {
	tx, mock := beginMockTx(t)
	ctx := context.Background()
	now := time.Now()

	loan, err := model.NewLoan(model.LoanTerms{
		Loaner: "acc_a", Receiver: "acc_b", Principal: amount("10"), InterestRate: 10, DueDate: now.Add(72 * time.Hour),
	}, now)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO payments.loans").
		WithArgs(loan.LoanID, "acc_a", "acc_b", loan.Principal, 10, loan.DueDate, loan.LoanDays, nil, loan.ReturnedAmount, loan.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments.loans WHERE loan_id = $1 FOR UPDATE")).
		WithArgs(loan.LoanID).
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "loaner", "receiver", "principal", "interest_rate", "due_date", "loan_days", "return_date", "returned_amount", "created_at"}).
			AddRow(loan.LoanID, "acc_a", "acc_b", "10.00", 10, loan.DueDate, loan.LoanDays, nil, "0.00", loan.CreatedAt))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments.loans SET returned_amount = $2, return_date = $3")).
		WithArgs(loan.LoanID, amount("11"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, tx.CreateLoan(ctx, loan))

	locked, err := tx.GetLoanForUpdate(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Nil(t, locked.ReturnDate)
	require.NoError(t, locked.ApplyRepayment(amount("11"), now))

	require.NoError(t, tx.UpdateLoan(ctx, locked))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLoanForUpdate_NotFound(t *testing.T) {
	tx, mock := beginMockTx(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments.loans WHERE loan_id = $1 FOR UPDATE")).
		WithArgs("loan_x").
		WillReturnError(sql.ErrNoRows)

	_, err := tx.GetLoanForUpdate(context.Background(), "loan_x")
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
