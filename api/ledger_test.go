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

package api

import (
	"net/http"
	"testing"

	"github.com/maxilambruschini/payments/model"
	"github.com/stretchr/testify/assert"
)

func TestVerifyLedger(t *testing.T) {
	router, p := setupRouter(t)
	a := newFundedAccount(t, p, "50.00")
	newFundedAccount(t, p, "100.00")

	resp := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/ledger/verify", Header: asCaller(a.AccountID)})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	var report model.LedgerReport
	resp = SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/ledger/verify", Header: asAdmin(""), Response: &report})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, report.Balanced)
	assert.Equal(t, 2, report.AccountCount)
	assert.Equal(t, 2, report.TransactionCount)
	assert.Equal(t, "150.00", report.TotalBalances.StringFixed(2))
	assert.Empty(t, report.Discrepancies)
}
