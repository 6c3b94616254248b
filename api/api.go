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
	"github.com/maxilambruschini/payments"
	"github.com/maxilambruschini/payments/api/middleware"
	"github.com/maxilambruschini/payments/config"
	"github.com/maxilambruschini/payments/internal/apierror"
	"github.com/maxilambruschini/payments/internal/metrics"
)

type Api struct {
	payments *payments.Payments
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts/:id", a.GetAccount)
	router.GET("/accounts", a.GetAllAccounts)
	router.DELETE("/accounts/:id", a.DeleteAccount)

	router.POST("/funds/create", a.CreateFunds)
	router.POST("/funds/destroy/:account_id", a.DestroyFunds)
	router.POST("/transfers/:destination_id", a.TransferFunds)

	router.GET("/transactions", a.GetTransactions)
	router.GET("/transactions/:id", a.GetTransaction)

	router.POST("/loans", a.CreateLoan)
	router.PUT("/loans/pay", a.PayLoan)
	router.GET("/loans/:id", a.GetLoanStatus)
	router.GET("/loans", a.GetLoans)

	router.GET("/ledger/verify", a.VerifyLedger)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	return a.router
}

func NewAPI(p *payments.Payments) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(middleware.RateLimitMiddleware(conf))
	r.Use(middleware.Authenticate())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{payments: p, router: r}
}

// respondError writes err with the status its code maps to.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	body := gin.H{"error": err.Error()}
	if code, ok := apierror.CodeOf(err); ok {
		body["code"] = code
	}
	c.JSON(status, body)
}

// callerAccount returns the calling account or writes a 401 and returns "".
func callerAccount(c *gin.Context) string {
	account := middleware.CallerAccount(c)
	if account == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "this operation needs the " + middleware.AccountHeader + " header"})
	}
	return account
}
