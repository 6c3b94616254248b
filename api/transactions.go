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
	"github.com/maxilambruschini/payments/model"
)

// GetTransaction retrieves a single log record by ID.
//
// Responses:
// - 200 OK: the record.
// - 404 Not Found: no record has this ID.
func (a Api) GetTransaction(c *gin.Context) {
	txn, err := a.payments.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// GetTransactions lists the log in insertion order. The account_id query
// parameter restricts it to records touching that account.
func (a Api) GetTransactions(c *gin.Context) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txns, err := a.payments.ListTransactions(c.Request.Context(), model.TransactionFilter{
		AccountID: c.Query("account_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}
