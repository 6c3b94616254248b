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
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceDiscrepancy is an account whose stored balance differs from the
// balance implied by the transaction log.
type BalanceDiscrepancy struct {
	AccountID string          `json:"account_id"`
	Stored    decimal.Decimal `json:"stored"`
	Replayed  decimal.Decimal `json:"replayed"`
}

// LedgerReport is the outcome of replaying the whole log against the stored
// balances. TotalBalances always equals TotalCreated - TotalDestroyed on a
// consistent ledger.
type LedgerReport struct {
	Balanced         bool                 `json:"balanced"`
	TransactionCount int                  `json:"transaction_count"`
	AccountCount     int                  `json:"account_count"`
	TotalCreated     decimal.Decimal      `json:"total_created"`
	TotalDestroyed   decimal.Decimal      `json:"total_destroyed"`
	TotalBalances    decimal.Decimal      `json:"total_balances"`
	Discrepancies    []BalanceDiscrepancy `json:"discrepancies"`
	// TamperedTransactions lists records whose stored hash no longer matches
	// their fields.
	TamperedTransactions []string  `json:"tampered_transactions"`
	CheckedAt            time.Time `json:"checked_at"`
}

// BuildLedgerReport compares accounts with a replay of txns and checks the
// hash of every record.
func BuildLedgerReport(accounts []Account, txns []Transaction, at time.Time) *LedgerReport {
	report := &LedgerReport{
		TransactionCount: len(txns),
		AccountCount:     len(accounts),
		TotalCreated:     decimal.Zero,
		TotalDestroyed:   decimal.Zero,
		TotalBalances:    decimal.Zero,
		Discrepancies:    []BalanceDiscrepancy{},
		CheckedAt:        at.UTC(),

		TamperedTransactions: []string{},
	}

	for _, txn := range txns {
		if txn.Hash != txn.HashTxn() {
			report.TamperedTransactions = append(report.TamperedTransactions, txn.TransactionID)
		}
		if txn.IsCreation() {
			report.TotalCreated = report.TotalCreated.Add(txn.Amount)
		}
		if txn.IsDestruction() {
			report.TotalDestroyed = report.TotalDestroyed.Add(txn.Amount)
		}
	}

	replayed := ReplayBalances(txns)
	seen := make(map[string]bool, len(accounts))
	for _, account := range accounts {
		seen[account.AccountID] = true
		report.TotalBalances = report.TotalBalances.Add(account.Balance)
		expected := replayed[account.AccountID]
		if !account.Balance.Equal(expected) {
			report.Discrepancies = append(report.Discrepancies, BalanceDiscrepancy{
				AccountID: account.AccountID,
				Stored:    account.Balance,
				Replayed:  expected,
			})
		}
	}

	// The log references an account that no longer exists.
	for accountID, expected := range replayed {
		if !seen[accountID] && !expected.IsZero() {
			report.Discrepancies = append(report.Discrepancies, BalanceDiscrepancy{
				AccountID: accountID,
				Stored:    decimal.Zero,
				Replayed:  expected,
			})
		}
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		return report.Discrepancies[i].AccountID < report.Discrepancies[j].AccountID
	})

	report.Balanced = len(report.Discrepancies) == 0 && len(report.TamperedTransactions) == 0 &&
		report.TotalBalances.Equal(report.TotalCreated.Sub(report.TotalDestroyed))
	return report
}
