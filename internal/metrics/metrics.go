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

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the ledger's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "payments",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payments",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payments",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations, lock wait included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	movedAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "engine",
			Name:      "moved_amount_total",
			Help:      "Sum of committed transaction amounts by kind.",
		},
		[]string{"kind"},
	)

	ledgerDiscrepancies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "payments",
			Subsystem: "ledger",
			Name:      "discrepancies",
			Help:      "Accounts whose stored balance disagreed with the log at the last verification.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		operations,
		operationDuration,
		movedAmount,
		ledgerDiscrepancies,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordOperation records the outcome and duration of an engine operation.
// outcome is "ok" or an error code.
func RecordOperation(operation, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	if duration <= 0 {
		duration = time.Microsecond
	}
	operations.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMovedAmount adds a committed amount under kind (create, destroy, transfer).
func RecordMovedAmount(kind string, amount float64) {
	movedAmount.WithLabelValues(kind).Add(amount)
}

// SetLedgerDiscrepancies publishes the result of the latest ledger verification.
func SetLedgerDiscrepancies(n int) {
	ledgerDiscrepancies.Set(float64(n))
}
