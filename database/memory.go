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
	"fmt"
	"sync"

	"github.com/maxilambruschini/payments/internal/apierror"
	lock "github.com/maxilambruschini/payments/internal/lock"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
)

const (
	accountLockPrefix = "account:"
	loanLockPrefix    = "loan:"
)

// MemoryStore is an in-process IDataSource. Rows are locked with per-key
// locks held for the life of a Tx, and a Tx applies its staged writes under
// the store mutex at commit, so readers never observe half of a transfer.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*model.Account
	accountOrder []string
	owners       map[string]string
	txns         []model.Transaction
	txnIndex     map[string]int
	loans        map[string]*model.Loan
	loanOrder    []string

	rows *lock.LocalKeyLocker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
		owners:   make(map[string]string),
		txnIndex: make(map[string]int),
		loans:    make(map[string]*model.Loan),
		rows:     lock.NewLocalKeyLocker(0),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func accountNotFound(id string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", id), nil)
}

func copyAccount(account *model.Account) *model.Account {
	c := *account
	if account.MetaData != nil {
		c.MetaData = make(map[string]interface{}, len(account.MetaData))
		for k, v := range account.MetaData {
			c.MetaData[k] = v
		}
	}
	return &c
}

func copyLoan(loan *model.Loan) *model.Loan {
	c := *loan
	if loan.ReturnDate != nil {
		returned := *loan.ReturnDate
		c.ReturnDate = &returned
	}
	return &c
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[account.OwnerID]; ok {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("owner %s already has an account", account.OwnerID), nil)
	}
	if _, ok := s.accounts[account.AccountID]; ok {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account %s already exists", account.AccountID), nil)
	}
	if account.Balance.IsNegative() || account.Balance.GreaterThan(model.MaxBalance) {
		return apierror.NewAPIError(apierror.ErrInvalidAmount, "initial balance out of range", nil)
	}

	s.accounts[account.AccountID] = copyAccount(account)
	s.accountOrder = append(s.accountOrder, account.AccountID)
	s.owners[account.OwnerID] = account.AccountID
	return nil
}

func (s *MemoryStore) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, accountNotFound(id)
	}
	return copyAccount(account), nil
}

func (s *MemoryStore) GetAccountByOwner(_ context.Context, ownerID string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.owners[ownerID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with owner_id '%s' not found", ownerID), nil)
	}
	return copyAccount(s.accounts[id]), nil
}

func (s *MemoryStore) GetAllAccounts(_ context.Context, limit, offset int) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.accountOrder
	if offset > 0 {
		if offset >= len(ids) {
			return []model.Account{}, nil
		}
		ids = ids[offset:]
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	accounts := make([]model.Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, *copyAccount(s.accounts[id]))
	}
	return accounts, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, accountNotFound(accountID)
	}
	return account.Balance, nil
}

// DeleteAccount takes the account's row lock so it cannot race a transfer
// that has already locked the account.
func (s *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	release, err := s.rows.Acquire(ctx, accountLockPrefix+id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to lock account", err)
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return accountNotFound(id)
	}
	for _, txn := range s.txns {
		if txn.Touches(id) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account %s is referenced by transaction %s", id, txn.TransactionID), nil)
		}
	}
	for _, loan := range s.loans {
		if loan.Loaner == id || loan.Receiver == id {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account %s is referenced by loan %s", id, loan.LoanID), nil)
		}
	}

	delete(s.accounts, id)
	delete(s.owners, account.OwnerID)
	for i, accountID := range s.accountOrder {
		if accountID == id {
			s.accountOrder = append(s.accountOrder[:i:i], s.accountOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.txnIndex[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("transaction with ID '%s' not found", id), nil)
	}
	txn := s.txns[i]
	return &txn, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := make([]model.Transaction, 0, len(s.txns))
	for _, txn := range s.txns {
		if filter.AccountID != "" && !txn.Touches(filter.AccountID) {
			continue
		}
		txns = append(txns, txn)
	}
	return filter.Paginate(txns), nil
}

func (s *MemoryStore) GetLoan(_ context.Context, id string) (*model.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, loanNotFound(id, nil)
	}
	return copyLoan(loan), nil
}

func (s *MemoryStore) GetLoans(_ context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := []model.Loan{}
	for _, id := range s.loanOrder {
		loan := s.loans[id]
		if filter.Matches(loan) {
			loans = append(loans, *copyLoan(loan))
		}
	}
	return loans, nil
}

func (s *MemoryStore) BeginTx(_ context.Context) (Tx, error) {
	return &memTx{
		store:   s,
		locked:  make(map[string]bool),
		deltas:  make(map[string]decimal.Decimal),
		updates: make(map[string]*model.Loan),
	}, nil
}

// memTx stages writes until Commit.
type memTx struct {
	store    *MemoryStore
	releases []func()
	locked   map[string]bool
	deltas   map[string]decimal.Decimal
	txns     []model.Transaction
	newLoans []*model.Loan
	updates  map[string]*model.Loan
	done     bool
}

var errTxDone = apierror.NewAPIError(apierror.ErrInternalServer, "transaction has already been committed or rolled back", nil)

func (t *memTx) lock(ctx context.Context, keys ...string) error {
	pending := make([]string, 0, len(keys))
	for _, key := range keys {
		if !t.locked[key] {
			pending = append(pending, key)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	release, err := t.store.rows.Acquire(ctx, pending...)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to lock rows", err)
	}
	t.releases = append(t.releases, release)
	for _, key := range pending {
		t.locked[key] = true
	}
	return nil
}

func (t *memTx) LockAccounts(ctx context.Context, accountIDs ...string) error {
	if t.done {
		return errTxDone
	}
	ids := lock.SortedKeys(accountIDs...)

	t.store.mu.RLock()
	for _, id := range ids {
		if _, ok := t.store.accounts[id]; !ok {
			t.store.mu.RUnlock()
			return accountNotFound(id)
		}
	}
	t.store.mu.RUnlock()

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, accountLockPrefix+id)
	}
	return t.lock(ctx, keys...)
}

// pendingBalance is the committed balance plus what this Tx has staged.
func (t *memTx) pendingBalance(accountID string) (decimal.Decimal, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	account, ok := t.store.accounts[accountID]
	if !ok {
		return decimal.Zero, accountNotFound(accountID)
	}
	return account.Balance.Add(t.deltas[accountID]), nil
}

func (t *memTx) Debit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if t.done {
		return errTxDone
	}
	if err := model.ValidateAmount(amount); err != nil {
		return err
	}
	if err := t.LockAccounts(ctx, accountID); err != nil {
		return err
	}

	balance, err := t.pendingBalance(accountID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("insufficient funds in account %s", accountID), nil)
	}
	t.deltas[accountID] = t.deltas[accountID].Sub(amount)
	return nil
}

func (t *memTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if t.done {
		return errTxDone
	}
	if err := model.ValidateAmount(amount); err != nil {
		return err
	}
	if err := t.LockAccounts(ctx, accountID); err != nil {
		return err
	}

	balance, err := t.pendingBalance(accountID)
	if err != nil {
		return err
	}
	if balance.Add(amount).GreaterThan(model.MaxBalance) {
		return apierror.NewAPIError(apierror.ErrInvalidAmount,
			fmt.Sprintf("crediting %s would exceed the maximum balance of %s", amount.StringFixed(model.AmountScale), model.MaxBalance.StringFixed(model.AmountScale)), nil)
	}
	t.deltas[accountID] = t.deltas[accountID].Add(amount)
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, txn *model.Transaction) error {
	if t.done {
		return errTxDone
	}
	if err := txn.Validate(); err != nil {
		return err
	}

	t.store.mu.RLock()
	_, duplicate := t.store.txnIndex[txn.TransactionID]
	var missing string
	for _, id := range []string{txn.Source, txn.Destination} {
		if _, ok := t.store.accounts[id]; id != "" && !ok {
			missing = id
		}
	}
	t.store.mu.RUnlock()

	if duplicate {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("transaction %s already recorded", txn.TransactionID), nil)
	}
	if missing != "" {
		return accountNotFound(missing)
	}
	t.txns = append(t.txns, *txn)
	return nil
}

func (t *memTx) CreateLoan(_ context.Context, loan *model.Loan) error {
	if t.done {
		return errTxDone
	}

	t.store.mu.RLock()
	_, duplicate := t.store.loans[loan.LoanID]
	_, loanerOK := t.store.accounts[loan.Loaner]
	_, receiverOK := t.store.accounts[loan.Receiver]
	t.store.mu.RUnlock()

	if duplicate {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("loan %s already exists", loan.LoanID), nil)
	}
	if !loanerOK {
		return accountNotFound(loan.Loaner)
	}
	if !receiverOK {
		return accountNotFound(loan.Receiver)
	}
	t.newLoans = append(t.newLoans, copyLoan(loan))
	return nil
}

func (t *memTx) GetLoanForUpdate(ctx context.Context, id string) (*model.Loan, error) {
	if t.done {
		return nil, errTxDone
	}
	if updated, ok := t.updates[id]; ok {
		return copyLoan(updated), nil
	}

	t.store.mu.RLock()
	_, ok := t.store.loans[id]
	t.store.mu.RUnlock()
	if !ok {
		return nil, loanNotFound(id, nil)
	}

	if err := t.lock(ctx, loanLockPrefix+id); err != nil {
		return nil, err
	}

	// Re-read under the row lock; a concurrent Tx may have committed since.
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return copyLoan(t.store.loans[id]), nil
}

func (t *memTx) UpdateLoan(_ context.Context, loan *model.Loan) error {
	if t.done {
		return errTxDone
	}

	t.store.mu.RLock()
	_, ok := t.store.loans[loan.LoanID]
	t.store.mu.RUnlock()
	if !ok {
		return loanNotFound(loan.LoanID, nil)
	}
	t.updates[loan.LoanID] = copyLoan(loan)
	return nil
}

func (t *memTx) release() {
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.releases[i]()
	}
	t.releases = nil
	t.done = true
}

func (t *memTx) Commit() error {
	if t.done {
		return errTxDone
	}
	defer t.release()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, delta := range t.deltas {
		account, ok := s.accounts[id]
		if !ok {
			return accountNotFound(id)
		}
		next := account.Balance.Add(delta)
		if next.IsNegative() {
			return apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("insufficient funds in account %s", id), nil)
		}
		if next.GreaterThan(model.MaxBalance) {
			return apierror.NewAPIError(apierror.ErrInvalidAmount, fmt.Sprintf("balance of account %s would exceed the maximum", id), nil)
		}
	}
	for _, loan := range t.newLoans {
		if _, ok := s.loans[loan.LoanID]; ok {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("loan %s already exists", loan.LoanID), nil)
		}
	}
	for _, txn := range t.txns {
		if _, ok := s.txnIndex[txn.TransactionID]; ok {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("transaction %s already recorded", txn.TransactionID), nil)
		}
	}

	for id, delta := range t.deltas {
		s.accounts[id].Balance = s.accounts[id].Balance.Add(delta)
	}
	for _, txn := range t.txns {
		s.txnIndex[txn.TransactionID] = len(s.txns)
		s.txns = append(s.txns, txn)
	}
	for _, loan := range t.newLoans {
		s.loans[loan.LoanID] = loan
		s.loanOrder = append(s.loanOrder, loan.LoanID)
	}
	for id, loan := range t.updates {
		if _, ok := s.loans[id]; ok {
			s.loans[id] = loan
		}
	}
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}
