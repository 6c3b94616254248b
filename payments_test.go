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
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/maxilambruschini/payments/database"
	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestPayments(t *testing.T, opts ...Option) (*Payments, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	return NewPayments(store, opts...), store
}

// fundedAccount provisions an account and creates balance into it.
func fundedAccount(t *testing.T, p *Payments, balance string) *model.Account {
	t.Helper()
	ctx := context.Background()
	account, err := p.CreateAccount(ctx, gofakeit.UUID(), nil)
	require.NoError(t, err)
	if amount := d(balance); amount.IsPositive() {
		_, err := p.CreateFunds(ctx, account.AccountID, amount)
		require.NoError(t, err)
	}
	return account
}

func balanceOf(t *testing.T, p *Payments, accountID string) string {
	t.Helper()
	balance, err := p.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return balance.StringFixed(model.AmountScale)
}

func TestNewPayments_Options(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p, _ := newTestPayments(t, WithClock(func() time.Time { return fixed }))

	account, err := p.CreateAccount(context.Background(), "owner", nil)
	require.NoError(t, err)
	assert.Equal(t, fixed, account.CreatedAt)

	txn, err := p.CreateFunds(context.Background(), account.AccountID, d("1"))
	require.NoError(t, err)
	assert.Equal(t, fixed, txn.CreatedAt)
	assert.Equal(t, txn.HashTxn(), txn.Hash)
	assert.NoError(t, p.Close())
}

// Accounts of 50 and 100, a loan of 10 at 10% repaid in two parts, then an
// overpayment attempt on the closed loan.
func TestLoanSettlementScenario(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "50")
	b := fundedAccount(t, p, "100")

	loan, err := p.IssueLoan(ctx, model.LoanTerms{
		Loaner: a.AccountID, Receiver: b.AccountID, Principal: d("10"), InterestRate: 10,
		DueDate: time.Now().Add(10*24*time.Hour + time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, loan.LoanDays)
	assert.Equal(t, "11.00", loan.TotalDue().StringFixed(2))
	assert.Equal(t, "40.00", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "110.00", balanceOf(t, p, b.AccountID))

	loan, err = p.RepayLoan(ctx, loan.LoanID, b.AccountID, d("5"))
	require.NoError(t, err)
	assert.Equal(t, model.LoanStatusOpen, loan.Status())
	assert.Equal(t, "6.00", loan.Remaining().StringFixed(2))

	loan, err = p.RepayLoan(ctx, loan.LoanID, b.AccountID, d("6"))
	require.NoError(t, err)
	assert.Equal(t, model.LoanStatusClosed, loan.Status())
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, "51.00", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "99.00", balanceOf(t, p, b.AccountID))

	_, err = p.RepayLoan(ctx, loan.LoanID, b.AccountID, d("1"))
	assert.True(t, apierror.HasCode(err, apierror.ErrLoanAlreadyClosed))
	assert.Equal(t, "99.00", balanceOf(t, p, b.AccountID))

	status, err := p.GetLoanStatus(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanStatusClosed, status.Status())
	assert.True(t, status.ReturnedAmount.Equal(d("11")))

	txns, err := p.ListTransactions(ctx, model.TransactionFilter{AccountID: a.AccountID})
	require.NoError(t, err)
	// funding, principal, two repayments
	assert.Len(t, txns, 4)

	report, err := p.VerifyLedger(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, "150.00", report.TotalBalances.StringFixed(2))
}

func TestCreateThenTransferScenario(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "0")
	b := fundedAccount(t, p, "0")

	_, err := p.CreateFunds(ctx, a.AccountID, d("100"))
	require.NoError(t, err)
	_, err = p.Transfer(ctx, a.AccountID, b.AccountID, d("20"))
	require.NoError(t, err)

	assert.Equal(t, "80.00", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "20.00", balanceOf(t, p, b.AccountID))

	txns, err := p.ListTransactions(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].IsCreation())
	assert.Equal(t, a.AccountID, txns[1].Source)
	assert.Equal(t, b.AccountID, txns[1].Destination)
}

func TestCreateSplitAndDestroyScenario(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "0")
	b := fundedAccount(t, p, "0")
	c := fundedAccount(t, p, "0")

	_, err := p.CreateFunds(ctx, a.AccountID, d("50"))
	require.NoError(t, err)
	_, err = p.Transfer(ctx, a.AccountID, b.AccountID, d("25"))
	require.NoError(t, err)
	_, err = p.Transfer(ctx, a.AccountID, c.AccountID, d("25"))
	require.NoError(t, err)
	_, err = p.Transfer(ctx, b.AccountID, c.AccountID, d("10"))
	require.NoError(t, err)
	_, err = p.DestroyFunds(ctx, b.AccountID, d("10"))
	require.NoError(t, err)

	assert.Equal(t, "0.00", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "5.00", balanceOf(t, p, b.AccountID))
	assert.Equal(t, "35.00", balanceOf(t, p, c.AccountID))

	txns, err := p.ListTransactions(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 5)

	report, err := p.VerifyLedger(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, "40.00", report.TotalBalances.StringFixed(2))
}
