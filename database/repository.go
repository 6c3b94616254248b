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

	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	account        // Interface for account-related operations
	transactionLog // Interface for reading the transaction log
	loan           // Interface for loan reads
	txBeginner     // Interface for opening a storage transaction
	Close() error
}

// account defines methods for handling accounts.
type account interface {
	CreateAccount(ctx context.Context, account *model.Account) error                // Inserts a zero-balance account, CONFLICT on a duplicate owner
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)          // Retrieves an account by ID
	GetAccountByOwner(ctx context.Context, ownerID string) (*model.Account, error)  // Retrieves the account of an owner
	GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) // Retrieves accounts in creation order
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)      // Reads the current balance
	DeleteAccount(ctx context.Context, id string) error                             // Deletes an account no record references
}

// transactionLog defines read access to the append-only log. Records are
// written through Tx.AppendTransaction only.
type transactionLog interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                         // Retrieves a record by ID
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) // Lists records in insertion order
}

// loan defines read access to loans. Loans are written through Tx.
type loan interface {
	GetLoan(ctx context.Context, id string) (*model.Loan, error)                 // Retrieves a loan by ID
	GetLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) // Lists loans in creation order
}

type txBeginner interface {
	BeginTx(ctx context.Context) (Tx, error) // Opens a storage transaction
}

// Tx is a unit of work whose writes become visible together on Commit or
// not at all. Rollback after Commit is a no-op, so callers may defer it.
//
// Account rows must be locked with a single LockAccounts call before they are
// debited or credited, and a loan must be locked before its accounts.
type Tx interface {
	LockAccounts(ctx context.Context, accountIDs ...string) error               // Locks account rows in sorted order, NOT_FOUND if any is missing
	Debit(ctx context.Context, accountID string, amount decimal.Decimal) error  // Subtracts amount, INSUFFICIENT_FUNDS if the balance would go negative
	Credit(ctx context.Context, accountID string, amount decimal.Decimal) error // Adds amount, INVALID_AMOUNT past the storable maximum
	AppendTransaction(ctx context.Context, txn *model.Transaction) error        // Appends a log record
	CreateLoan(ctx context.Context, loan *model.Loan) error                     // Inserts a new loan
	GetLoanForUpdate(ctx context.Context, id string) (*model.Loan, error)       // Reads and locks a loan
	UpdateLoan(ctx context.Context, loan *model.Loan) error                     // Stores the repayment progress of a loan
	Commit() error
	Rollback() error
}
