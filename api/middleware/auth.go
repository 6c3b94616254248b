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

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxilambruschini/payments/config"
)

const (
	// KeyHeader carries the secret key that grants admin capabilities.
	KeyHeader = "X-Payments-Key"
	// AccountHeader carries the account of the authenticated caller, set by
	// the identity provider in front of the ledger.
	AccountHeader = "X-Account-ID"

	isAdminKey   = "isAdmin"
	accountIDKey = "accountID"
)

// Authenticate resolves the caller of every request. Admin routes require
// the secret key. In secure mode every other route requires either the key
// or a caller account.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/" || path == "/metrics" {
			c.Next()
			return
		}

		conf, err := config.Fetch()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "configuration is not loaded"})
			return
		}

		key := c.GetHeader(KeyHeader)
		isAdmin := key != "" && conf.Server.SecretKey != "" && secureCompare(conf.Server.SecretKey, key)
		if key != "" && !isAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret key"})
			return
		}

		account := c.GetHeader(AccountHeader)
		if RequiresAdmin(path, c.Request.Method) && !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "This operation requires the " + KeyHeader + " header"})
			return
		}
		if conf.Server.Secure && !isAdmin && account == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required. Use the " + AccountHeader + " or " + KeyHeader + " header"})
			return
		}

		c.Set(isAdminKey, isAdmin)
		c.Set(accountIDKey, account)
		c.Next()
	}
}

// IsAdmin reports whether the request carried a valid secret key.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(isAdminKey)
}

// CallerAccount returns the account the request acts for, or "".
func CallerAccount(c *gin.Context) string {
	return c.GetString(accountIDKey)
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
