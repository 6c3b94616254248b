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
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/maxilambruschini/payments/database/mocks"
	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransfer_MovesFundsAndLogs(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "50")
	b := fundedAccount(t, p, "100")

	txn, err := p.Transfer(ctx, a.AccountID, b.AccountID, d("20.25"))
	require.NoError(t, err)
	assert.Equal(t, "29.75", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "120.25", balanceOf(t, p, b.AccountID))

	stored, err := p.GetTransaction(ctx, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, a.AccountID, stored.Source)
	assert.Equal(t, b.AccountID, stored.Destination)
	assert.True(t, stored.Amount.Equal(d("20.25")))
}

func TestTransfer_Validation(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "50")
	b := fundedAccount(t, p, "0")

	tests := []struct {
		name        string
		source      string
		destination string
		amount      decimal.Decimal
		code        apierror.ErrorCode
	}{
		{"zero amount", a.AccountID, b.AccountID, d("0"), apierror.ErrInvalidAmount},
		{"negative amount", a.AccountID, b.AccountID, d("-1"), apierror.ErrInvalidAmount},
		{"three decimals", a.AccountID, b.AccountID, d("1.005"), apierror.ErrInvalidAmount},
		{"no sides", "", "", d("1"), apierror.ErrInvalidRecord},
		{"same account", a.AccountID, a.AccountID, d("1"), apierror.ErrInvalidRecord},
		{"insufficient funds", a.AccountID, b.AccountID, d("50.01"), apierror.ErrInsufficientFunds},
		{"unknown source", "acc_missing", b.AccountID, d("1"), apierror.ErrNotFound},
		{"unknown destination", a.AccountID, "acc_missing", d("1"), apierror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ExecuteTransfer(ctx, tt.source, tt.destination, tt.amount)
			assert.True(t, apierror.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.Equal(t, "50.00", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "0.00", balanceOf(t, p, b.AccountID))
	txns, err := p.ListTransactions(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestCreateAndDestroyFunds(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "0")

	created, err := p.CreateFunds(ctx, a.AccountID, d("70"))
	require.NoError(t, err)
	assert.True(t, created.IsCreation())

	destroyed, err := p.DestroyFunds(ctx, a.AccountID, d("30"))
	require.NoError(t, err)
	assert.True(t, destroyed.IsDestruction())
	assert.Equal(t, "40.00", balanceOf(t, p, a.AccountID))

	_, err = p.DestroyFunds(ctx, a.AccountID, d("40.01"))
	assert.True(t, apierror.HasCode(err, apierror.ErrInsufficientFunds))
}

func TestTransfer_CreditFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "50")
	full := fundedAccount(t, p, "99999999.99")

	_, err := p.Transfer(ctx, a.AccountID, full.AccountID, d("1"))
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidAmount))

	assert.Equal(t, "50.00", balanceOf(t, p, a.AccountID))
	assert.Equal(t, "99999999.99", balanceOf(t, p, full.AccountID))
	txns, err := p.ListTransactions(ctx, model.TransactionFilter{AccountID: a.AccountID})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestTransfer_RollsBackOnCreditError(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tx := new(mocks.MockTx)
	p := NewPayments(ds)

	creditErr := apierror.NewAPIError(apierror.ErrNotFound, "account with ID 'acc_b' not found", nil)
	ds.On("BeginTx", mock.Anything).Return(tx, nil)
	tx.On("LockAccounts", mock.Anything, mock.Anything).Return(nil)
	tx.On("Debit", mock.Anything, "acc_a", d("10")).Return(nil)
	tx.On("Credit", mock.Anything, "acc_b", d("10")).Return(creditErr)
	tx.On("Rollback").Return(nil)

	_, err := p.Transfer(context.Background(), "acc_a", "acc_b", d("10"))
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))

	tx.AssertCalled(t, "Rollback")
	tx.AssertNotCalled(t, "AppendTransaction", mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "Commit")
	ds.AssertExpectations(t)
}

func TestTransfer_RollsBackOnAppendError(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tx := new(mocks.MockTx)
	p := NewPayments(ds)

	ds.On("BeginTx", mock.Anything).Return(tx, nil)
	tx.On("LockAccounts", mock.Anything, mock.Anything).Return(nil)
	tx.On("Debit", mock.Anything, "acc_a", d("10")).Return(nil)
	tx.On("Credit", mock.Anything, "acc_b", d("10")).Return(nil)
	tx.On("AppendTransaction", mock.Anything, mock.Anything).
		Return(apierror.NewAPIError(apierror.ErrInternalServer, "failed to record transaction", errors.New("disk full")))
	tx.On("Rollback").Return(nil)

	_, err := p.Transfer(context.Background(), "acc_a", "acc_b", d("10"))
	assert.True(t, apierror.HasCode(err, apierror.ErrInternalServer))
	tx.AssertCalled(t, "Rollback")
	tx.AssertNotCalled(t, "Commit")
}

func TestTransfer_BeginFailure(t *testing.T) {
	ds := new(mocks.MockDataSource)
	p := NewPayments(ds)

	ds.On("BeginTx", mock.Anything).Return(nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to begin transaction", errors.New("connection refused")))

	_, err := p.Transfer(context.Background(), "acc_a", "acc_b", d("10"))
	assert.True(t, apierror.HasCode(err, apierror.ErrInternalServer))
}

func TestTransfer_ConcurrentConservation(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)

	accounts := make([]string, 5)
	for i := range accounts {
		accounts[i] = fundedAccount(t, p, "100").AccountID
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				src := accounts[r.Intn(len(accounts))]
				dst := accounts[r.Intn(len(accounts))]
				amount := decimal.New(int64(r.Intn(4000)+1), -2)
				// Rejections (same account, insufficient funds) are expected.
				_, _ = p.Transfer(ctx, src, dst, amount)
			}
		}(int64(worker))
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range accounts {
		balance, err := p.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.False(t, balance.IsNegative())
		total = total.Add(balance)
	}
	assert.Equal(t, "500.00", total.StringFixed(2))

	report, err := p.VerifyLedger(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Empty(t, report.Discrepancies)
}
