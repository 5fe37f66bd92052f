// Package metrics exposes Prometheus collectors for HTTP traffic and the
// order workflow. Collectors live on a private registry so tests can build
// as many instances as they need.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	ordersCreated   prometheus.Counter
	orderRevenue    prometheus.Counter
	checkoutFailed  *prometheus.CounterVec
	ordersCancelled prometheus.Counter
	productCache    *prometheus.CounterVec
}

var (
	_ shared.OrderMetrics    = (*Metrics)(nil)
	_ queries.CacheObserver = (*Metrics)(nil)
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders placed through checkout",
		}),
		orderRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_revenue_minor_units_total",
			Help: "Sum of order totals in minor currency units",
		}),
		checkoutFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_failures_total",
				Help: "Checkouts rolled back, by reason",
			},
			[]string{"reason"},
		),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Orders cancelled by their owner or an administrator",
		}),
		productCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "product_cache_requests_total",
				Help: "Product cache lookups by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ordersCreated,
		m.orderRevenue,
		m.checkoutFailed,
		m.ordersCancelled,
		m.productCache,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware labels requests by route template so ids do not explode the
// label space.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OrderCreated(totalMinor int64) {
	m.ordersCreated.Inc()
	m.orderRevenue.Add(float64(totalMinor))
}

func (m *Metrics) CheckoutFailed(reason string) {
	m.checkoutFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) OrderCancelled() {
	m.ordersCancelled.Inc()
}

func (m *Metrics) CacheHit() {
	m.productCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	m.productCache.WithLabelValues("miss").Inc()
}
