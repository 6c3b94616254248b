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

package mocks

import (
	"context"

	"github.com/maxilambruschini/payments/database"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByOwner(ctx context.Context, ownerID string) (*model.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockDataSource) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDataSource) DeleteAccount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Transaction log methods

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Transaction), args.Error(1)
}

// Loan methods

func (m *MockDataSource) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockDataSource) GetLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Loan), args.Error(1)
}

func (m *MockDataSource) BeginTx(ctx context.Context) (database.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(database.Tx), args.Error(1)
}

func (m *MockDataSource) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTx is a mock implementation of database.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) LockAccounts(ctx context.Context, accountIDs ...string) error {
	args := m.Called(ctx, accountIDs)
	return args.Error(0)
}

func (m *MockTx) Debit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockTx) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTx) CreateLoan(ctx context.Context, loan *model.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockTx) GetLoanForUpdate(ctx context.Context, id string) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockTx) UpdateLoan(ctx context.Context, loan *model.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
