//go:build unit

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_OrderWorkflow(t *testing.T) {
	m := metrics.New()

	m.OrderCreated(2500)
	m.OrderCreated(1000)
	m.CheckoutFailed("insufficient_stock")
	m.CheckoutFailed("insufficient_stock")
	m.CheckoutFailed("empty_cart")
	m.OrderCancelled()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	expected := `
# HELP checkout_failures_total Checkouts rolled back, by reason
# TYPE checkout_failures_total counter
checkout_failures_total{reason="empty_cart"} 1
checkout_failures_total{reason="insufficient_stock"} 2
# HELP order_revenue_minor_units_total Sum of order totals in minor currency units
# TYPE order_revenue_minor_units_total counter
order_revenue_minor_units_total 3500
# HELP orders_cancelled_total Orders cancelled by their owner or an administrator
# TYPE orders_cancelled_total counter
orders_cancelled_total 1
# HELP orders_created_total Orders placed through checkout
# TYPE orders_created_total counter
orders_created_total 2
# HELP product_cache_requests_total Product cache lookups by result
# TYPE product_cache_requests_total counter
product_cache_requests_total{result="hit"} 1
product_cache_requests_total{result="miss"} 2
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"checkout_failures_total",
		"order_revenue_minor_units_total",
		"orders_cancelled_total",
		"orders_created_total",
		"product_cache_requests_total",
	)
	require.NoError(t, err)
}

func TestMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{endpoint="/orders/:id",method="GET",status="404"} 2`)
	assert.Contains(t, body, `http_request_duration_seconds_count{endpoint="/orders/:id",method="GET"} 2`)
}
