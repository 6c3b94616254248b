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
)

func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := newAccount.ValidateCreateAccount(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.payments.CreateAccount(c.Request.Context(), newAccount.OwnerID, newAccount.MetaData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetAccount returns an account by ID. "me" resolves to the caller's account.
func (a Api) GetAccount(c *gin.Context) {
	id := c.Param("id")
	if id == "me" {
		if id = callerAccount(c); id == "" {
			return
		}
	}

	account, err := a.payments.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// GetAllAccounts lists accounts, or returns the account of one owner when
// owner_id is given.
func (a Api) GetAllAccounts(c *gin.Context) {
	if owner := c.Query("owner_id"); owner != "" {
		account, err := a.payments.GetAccountByOwner(c.Request.Context(), owner)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
		return
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accounts, err := a.payments.GetAllAccounts(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (a Api) DeleteAccount(c *gin.Context) {
	if err := a.payments.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
