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
	"strings"

	"github.com/gin-gonic/gin"
	model2 "github.com/maxilambruschini/payments/api/model"
	"github.com/maxilambruschini/payments/model"
)

// CreateLoan issues a loan from the caller to the receiver in the body.
//
// Responses:
// - 201 Created: the loan, with its total due.
// - 400 Bad Request: invalid terms, or the caller cannot fund the principal.
// - 401 Unauthorized: no caller account.
func (a Api) CreateLoan(c *gin.Context) {
	loaner := callerAccount(c)
	if loaner == "" {
		return
	}

	var newLoan model2.CreateLoan
	if err := c.ShouldBindJSON(&newLoan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newLoan.ValidateCreateLoan(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	terms, err := newLoan.ToLoanTerms(loaner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := a.payments.IssueLoan(c.Request.Context(), terms)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// PayLoan repays part or all of a loan on behalf of the caller, who must be
// its receiver.
func (a Api) PayLoan(c *gin.Context) {
	payer := callerAccount(c)
	if payer == "" {
		return
	}

	var payment model2.PayLoan
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := payment.ValidatePayLoan(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	amount, err := payment.ToAmount()
	if err != nil {
		respondError(c, err)
		return
	}

	loan, err := a.payments.RepayLoan(c.Request.Context(), payment.LoanID, payer, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (a Api) GetLoanStatus(c *gin.Context) {
	loan, err := a.payments.GetLoanStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GetLoans lists loans, optionally filtered by account_id (either party) and
// status (OPEN or CLOSED).
func (a Api) GetLoans(c *gin.Context) {
	filter := model.LoanFilter{AccountID: c.Query("account_id")}
	if status := c.Query("status"); status != "" {
		filter.Status = model.LoanStatus(strings.ToUpper(status))
		if filter.Status != model.LoanStatusOpen && filter.Status != model.LoanStatusClosed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be OPEN or CLOSED"})
			return
		}
	}

	loans, err := a.payments.GetLoans(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}
