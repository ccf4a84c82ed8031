// Package metrics keeps the Prometheus collectors of the service on a private
// registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "silvess"

var (
	Registry = prometheus.NewRegistry()

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	StockMovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Stock movements committed to the ledger",
		},
		[]string{"kind", "source"},
	)

	SalesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Sales recorded",
		},
	)

	SalesRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_revenue_total",
			Help:      "Revenue of recorded sales",
		},
	)

	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StockMovementsTotal,
		SalesTotal,
		SalesRevenueTotal,
		LoginAttemptsTotal,
	)
}

// Middleware records the count and latency of every request. The route
// pattern is used as the path label to keep cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		path := c.Route().Path
		code := strconv.Itoa(status)
		HTTPRequestsTotal.WithLabelValues(c.Method(), path, code).Inc()
		HTTPRequestDuration.WithLabelValues(c.Method(), path, code).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler exposes the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

func RecordMovement(kind, source string) {
	StockMovementsTotal.WithLabelValues(kind, source).Inc()
}

func RecordSale(total decimal.Decimal) {
	SalesTotal.Inc()
	SalesRevenueTotal.Add(total.InexactFloat64())
}

func RecordLogin(outcome string) {
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}
