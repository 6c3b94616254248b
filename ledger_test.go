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

	"github.com/maxilambruschini/payments/database/mocks"
	"github.com/maxilambruschini/payments/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerifyLedger_Balanced(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPayments(t)
	a := fundedAccount(t, p, "80")
	b := fundedAccount(t, p, "20")
	_, err := p.Transfer(ctx, a.AccountID, b.AccountID, d("30"))
	require.NoError(t, err)
	_, err = p.DestroyFunds(ctx, b.AccountID, d("5"))
	require.NoError(t, err)

	report, err := p.VerifyLedger(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, 4, report.TransactionCount)
	assert.Equal(t, 2, report.AccountCount)
	assert.Equal(t, "100.00", report.TotalCreated.StringFixed(2))
	assert.Equal(t, "5.00", report.TotalDestroyed.StringFixed(2))
	assert.Equal(t, "95.00", report.TotalBalances.StringFixed(2))
}

func TestVerifyLedger_ReportsDiscrepancy(t *testing.T) {
	ds := new(mocks.MockDataSource)
	p := NewPayments(ds)

	credit := model.Transaction{TransactionID: "txn_1", Destination: "acc_a", Amount: d("10")}
	credit.Stamp(time.Now())
	ds.On("GetAllAccounts", mock.Anything, 0, 0).Return([]model.Account{
		{AccountID: "acc_a", Balance: d("12")},
	}, nil)
	ds.On("ListTransactions", mock.Anything, model.TransactionFilter{}).Return([]model.Transaction{credit}, nil)

	report, err := p.VerifyLedger(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Balanced)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, "acc_a", report.Discrepancies[0].AccountID)
	assert.True(t, report.Discrepancies[0].Replayed.Equal(d("10")))
	ds.AssertExpectations(t)
}

func TestVerifyLedger_ReportsTamperedRecord(t *testing.T) {
	ds := new(mocks.MockDataSource)
	p := NewPayments(ds)

	credit := model.Transaction{TransactionID: "txn_1", Destination: "acc_a", Amount: d("10")}
	credit.Stamp(time.Now())
	credit.Amount = d("12")
	ds.On("GetAllAccounts", mock.Anything, 0, 0).Return([]model.Account{
		{AccountID: "acc_a", Balance: d("12")},
	}, nil)
	ds.On("ListTransactions", mock.Anything, model.TransactionFilter{}).Return([]model.Transaction{credit}, nil)

	report, err := p.VerifyLedger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Discrepancies)
	assert.False(t, report.Balanced)
	assert.Equal(t, []string{"txn_1"}, report.TamperedTransactions)
	ds.AssertExpectations(t)
}
