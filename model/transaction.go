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

package model

import (
	"time"

	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable log record of one balance-changing event.
// An empty Source means funds were created, an empty Destination means
// funds were destroyed.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	Source        string          `json:"source,omitempty"`
	Destination   string          `json:"destination,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
	Hash          string          `json:"hash"`
}

// TransactionFilter narrows ListTransactions. Zero values mean no restriction.
type TransactionFilter struct {
	AccountID string
	Limit     int
	Offset    int
}

// NewTransaction builds a validated log record stamped with the current time.
func NewTransaction(source, destination string, amount decimal.Decimal) (*Transaction, error) {
	txn := &Transaction{
		TransactionID: GenerateUUIDWithSuffix(TransactionPrefix),
		Source:        source,
		Destination:   destination,
		Amount:        amount,
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	txn.Stamp(time.Now())
	return txn, nil
}

// Stamp sets the creation time and recomputes the record hash. The time is
// truncated to microseconds, the precision of a TIMESTAMPTZ column, so the
// hash still matches once the record is read back.
func (transaction *Transaction) Stamp(at time.Time) {
	transaction.CreatedAt = at.UTC().Truncate(time.Microsecond)
	transaction.Hash = transaction.HashTxn()
}

func (transaction *Transaction) Validate() error {
	if err := ValidateAmount(transaction.Amount); err != nil {
		return err
	}
	if transaction.Source == "" && transaction.Destination == "" {
		return apierror.NewAPIError(apierror.ErrInvalidRecord, "a transaction needs a source or a destination", nil)
	}
	if transaction.Source == transaction.Destination {
		return apierror.NewAPIError(apierror.ErrInvalidRecord, "source and destination must be different accounts", nil)
	}
	return nil
}

func (transaction *Transaction) IsCreation() bool {
	return transaction.Source == ""
}

func (transaction *Transaction) IsDestruction() bool {
	return transaction.Destination == ""
}

// Touches reports whether accountID is either side of the transaction.
func (transaction *Transaction) Touches(accountID string) bool {
	return accountID != "" && (transaction.Source == accountID || transaction.Destination == accountID)
}

// Paginate applies the filter's offset and limit to an ordered slice.
func (f TransactionFilter) Paginate(txns []Transaction) []Transaction {
	if f.Offset > 0 {
		if f.Offset >= len(txns) {
			return []Transaction{}
		}
		txns = txns[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(txns) {
		txns = txns[:f.Limit]
	}
	return txns
}

// ReplayBalances folds the log, starting every account at zero, into the
// balances it implies.
func ReplayBalances(txns []Transaction) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		if txn.Source != "" {
			balances[txn.Source] = balances[txn.Source].Sub(txn.Amount)
		}
		if txn.Destination != "" {
			balances[txn.Destination] = balances[txn.Destination].Add(txn.Amount)
		}
	}
	return balances
}
