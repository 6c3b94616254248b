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
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
	"github.com/maxilambruschini/payments/config"
)

// rateLimitKey buckets requests by calling account when one is given, and by
// client IP otherwise.
func rateLimitKey(c *gin.Context) string {
	if account := c.GetHeader(AccountHeader); account != "" {
		return "account:" + account
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware limits each caller to the configured requests per second.
// It is a no-op when rate limiting is not configured.
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	if conf.RateLimit.RequestsPerSecond == nil || conf.RateLimit.Burst == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	cleanup := config.DEFAULT_CLEANUP_INTERVAL
	if conf.RateLimit.CleanupIntervalSec != nil {
		cleanup = *conf.RateLimit.CleanupIntervalSec
	}

	lmt := tollbooth.NewLimiter(*conf.RateLimit.RequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Duration(cleanup) * time.Second,
	})
	lmt.SetBurst(*conf.RateLimit.Burst)
	lmt.SetMessage("Too many requests, slow down")

	return func(c *gin.Context) {
		if limitErr := tollbooth.LimitByKeys(lmt, []string{rateLimitKey(c)}); limitErr != nil {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(limitErr.StatusCode, gin.H{"error": limitErr.Message})
			return
		}
		c.Next()
	}
}
