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

	"github.com/gin-gonic/gin"
	"github.com/maxilambruschini/payments/api/model"
	"github.com/shopspring/decimal"
)

// bindFunds reads and validates a Funds body. It writes the error response
// itself and reports false when the request must stop.
func bindFunds(c *gin.Context) (decimal.Decimal, bool) {
	var funds model.Funds
	if err := c.ShouldBindJSON(&funds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return decimal.Zero, false
	}
	if err := funds.ValidateFunds(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return decimal.Zero, false
	}
	amount, err := funds.ToAmount()
	if err != nil {
		respondError(c, err)
		return decimal.Zero, false
	}
	return amount, true
}

// CreateFunds mints money into the caller's account.
//
// Responses:
// - 201 Created: the creation record.
// - 400 Bad Request: malformed or out of range amount.
// - 401 Unauthorized: no caller account.
// - 404 Not Found: the caller's account does not exist.
func (a Api) CreateFunds(c *gin.Context) {
	destination := callerAccount(c)
	if destination == "" {
		return
	}
	amount, ok := bindFunds(c)
	if !ok {
		return
	}

	txn, err := a.payments.CreateFunds(c.Request.Context(), destination, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// DestroyFunds removes money from the account in the path.
func (a Api) DestroyFunds(c *gin.Context) {
	amount, ok := bindFunds(c)
	if !ok {
		return
	}

	txn, err := a.payments.DestroyFunds(c.Request.Context(), c.Param("account_id"), amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// TransferFunds moves money from the caller to the destination in the path.
func (a Api) TransferFunds(c *gin.Context) {
	source := callerAccount(c)
	if source == "" {
		return
	}
	amount, ok := bindFunds(c)
	if !ok {
		return
	}

	txn, err := a.payments.Transfer(c.Request.Context(), source, c.Param("destination_id"), amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}
