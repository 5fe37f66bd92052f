//go:build e2e

package order_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"storefront/internal/domain/user"
	"storefront/internal/handler/dto/request"
	"storefront/internal/handler/dto/response"
	"storefront/tests/common/builder"
	"storefront/tests/common/dbtest"
	"storefront/tests/common/httptest"
	"storefront/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	ordersURL      = "/orders"
	orderURL       = "/orders/%s"
	orderStatusURL = "/orders/%s/status"
	orderCancelURL = "/orders/%s/cancel"
	variantURL     = "/products/%s/variants/%s"
)

type OrderSuite struct {
	e2e.SharedSuite
}

func TestOrderSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(OrderSuite))
}

func createOrderBody() request.CreateOrderRequest {
	return request.CreateOrderRequest{ShippingAddress: builder.DefaultAddressDTO()}
}

// seedTee inserts the default single-variant product with the given stock.
func (s *OrderSuite) seedTee(stock int) uuid.UUID {
	p := builder.NewProductBuilder().WithStock(stock).MustBuildDomain()
	dbtest.InsertProduct(s.T(), s.DB, p)
	return p.ID()
}

func (s *OrderSuite) checkout(token string) *response.OrderResponse {
	t := s.T()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), token)
	var created response.OrderResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)
	return &created
}

func (s *OrderSuite) TestCreateOrder() {
	s.Run("Normal case: cart becomes a pending order and stock is taken", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 2})

		created := s.checkout(token)

		img := "https://cdn.example.com/tee-red.png"
		expected := &response.OrderResponse{
			UserID: userID,
			Items: []response.OrderItemResponse{{
				ProductID:  productID,
				VariantSKU: "TEE-M-RED",
				Quantity:   2,
				Snapshot: response.SnapshotResponse{
					Title:      "Classic Tee",
					Price:      1999,
					Image:      &img,
					Attributes: map[string]string{"size": "M", "color": "red"},
				},
			}},
			Total:  3998,
			Status: "PENDING",
			ShippingAddress: response.ShippingAddressResponse{
				Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701", Country: "US",
			},
		}
		opts := cmpopts.IgnoreFields(response.OrderResponse{}, "ID", "OrderNumber", "CreatedAt", "UpdatedAt")
		if diff := cmp.Diff(expected, created, opts); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		assert.Regexp(t, `^ORD-\d{14}-[0-9A-F]{8}$`, created.OrderNumber)

		assert.Equal(t, 8, dbtest.Stock(t, s.DB, "TEE-M-RED"))
		assert.Zero(t, dbtest.CartItemCount(t, s.DB, userID))
		assert.Equal(t, []string{"order.created"}, dbtest.PendingEventKinds(t, s.DB, created.ID))
	})

	s.Run("Error case: empty cart", func() {
		t := s.T()
		_, token := s.JWT.Customer(t)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), token)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Cart is empty")
		assert.Zero(t, dbtest.OrderCount(t, s.DB))
	})

	s.Run("Error case: insufficient stock leaves stock and cart untouched", func() {
		t := s.T()
		productID := s.seedTee(1)
		userID, token := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 2})

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), token)
		env := httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Insufficient stock")

		var detail map[string]any
		require.NoError(t, json.Unmarshal(env.Detail, &detail))
		assert.EqualValues(t, 1, detail["available"])
		assert.EqualValues(t, 2, detail["requested"])

		assert.Equal(t, 1, dbtest.Stock(t, s.DB, "TEE-M-RED"))
		assert.Equal(t, 1, dbtest.CartItemCount(t, s.DB, userID))
		assert.Zero(t, dbtest.OrderCount(t, s.DB))
	})

	s.Run("Error case: a failing later line rolls back earlier decrements", func() {
		t := s.T()
		p := builder.NewProductBuilder().WithVariants(
			builder.VariantSpec{SKU: "TEE-S-RED", Attributes: map[string]string{"size": "S", "color": "red"}, Stock: 5, Price: 1999},
			builder.VariantSpec{SKU: "TEE-L-BLUE", Attributes: map[string]string{"size": "L", "color": "blue"}, Stock: 1, Price: 2199},
		).MustBuildDomain()
		dbtest.InsertProduct(t, s.DB, p)

		userID, token := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, userID,
			dbtest.CartLine{ProductID: p.ID(), SKU: "TEE-S-RED", Quantity: 3},
			dbtest.CartLine{ProductID: p.ID(), SKU: "TEE-L-BLUE", Quantity: 2},
		)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), token)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Insufficient stock")

		assert.Equal(t, 5, dbtest.Stock(t, s.DB, "TEE-S-RED"))
		assert.Equal(t, 1, dbtest.Stock(t, s.DB, "TEE-L-BLUE"))
		assert.Equal(t, 2, dbtest.CartItemCount(t, s.DB, userID))
	})

	s.Run("Error case: product deleted after it was added to the cart", func() {
		t := s.T()
		userID, token := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: uuid.New(), SKU: "GONE-1", Quantity: 1})

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), token)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "no longer exists")
	})

	s.Run("Error case: incomplete shipping address", func() {
		t := s.T()
		_, token := s.JWT.Customer(t)
		body := createOrderBody()
		body.ShippingAddress.City = ""

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, body, token)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Invalid request")
	})

	s.Run("Auth: missing token", func() {
		t := s.T()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), "")
		httptest.AssertErrorResponse(t, w, http.StatusUnauthorized, "")
	})

	s.Run("Concurrency: stock is never oversold", func() {
		t := s.T()
		const stock, buyers = 5, 12
		productID := s.seedTee(stock)

		tokens := make([]string, buyers)
		for i := range tokens {
			userID, token := s.JWT.Customer(t)
			dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
			tokens[i] = token
		}

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			codes = map[int]int{}
		)
		for _, token := range tokens {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()
				w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, createOrderBody(), token)
				mu.Lock()
				codes[w.Code]++
				mu.Unlock()
			}(token)
		}
		wg.Wait()

		assert.Equal(t, stock, codes[http.StatusCreated])
		assert.Equal(t, buyers-stock, codes[http.StatusBadRequest]+codes[http.StatusConflict])
		assert.Zero(t, dbtest.Stock(t, s.DB, "TEE-M-RED"))
		assert.Equal(t, stock, dbtest.OrderCount(t, s.DB))
	})
}

func (s *OrderSuite) TestOrderSnapshot() {
	s.Run("Snapshot keeps the checkout price after a catalog change", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		_, adminToken := s.JWT.Admin(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
		created := s.checkout(token)

		newPrice := int64(2999)
		w := httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(variantURL, productID, "TEE-M-RED"),
			request.UpdateVariantRequest{Price: &newPrice}, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(orderURL, created.ID), nil, token)
		var got response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &got)
		assert.EqualValues(t, 1999, got.Items[0].Snapshot.Price)
		assert.EqualValues(t, 1999, got.Total)
	})
}

func (s *OrderSuite) TestGetAndListOrders() {
	s.Run("List returns the caller's orders newest first", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)

		var ids []uuid.UUID
		for range 3 {
			dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
			ids = append(ids, s.checkout(token).ID)
		}
		otherID, otherToken := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, otherID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
		s.checkout(otherToken)

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, ordersURL, nil, token)
		var list response.OrderListResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &list)
		require.Len(t, list.Orders, 3)
		assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]},
			[]uuid.UUID{list.Orders[0].ID, list.Orders[1].ID, list.Orders[2].ID})
		assert.Empty(t, list.NextCursor)
	})

	s.Run("List pages with the after cursor", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		for range 3 {
			dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
			s.checkout(token)
		}

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, ordersURL+"?limit=2", nil, token)
		var first response.OrderListResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &first)
		require.Len(t, first.Orders, 2)
		require.NotEmpty(t, first.NextCursor)

		w = httptest.PerformRequest(t, s.Router, http.MethodGet, ordersURL+"?limit=2&after="+first.NextCursor, nil, token)
		var second response.OrderListResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &second)
		require.Len(t, second.Orders, 1)
		assert.Empty(t, second.NextCursor)
	})

	s.Run("Another customer's order is not found", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
		created := s.checkout(token)

		_, otherToken := s.JWT.Customer(t)
		w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(orderURL, created.ID), nil, otherToken)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Order not found")

		w = httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(orderURL, uuid.New()), nil, token)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Order not found")
	})
}

func (s *OrderSuite) TestCancelOrder() {
	s.Run("Cancel restores stock and a second cancel is refused", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 3})
		created := s.checkout(token)
		require.Equal(t, 7, dbtest.Stock(t, s.DB, "TEE-M-RED"))

		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(orderCancelURL, created.ID), nil, token)
		var cancelled response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &cancelled)
		assert.Equal(t, "CANCELLED", cancelled.Status)
		assert.Equal(t, 10, dbtest.Stock(t, s.DB, "TEE-M-RED"))
		assert.Equal(t, []string{"order.created", "order.cancelled"}, dbtest.PendingEventKinds(t, s.DB, created.ID))

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(orderCancelURL, created.ID), nil, token)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Only pending orders can be cancelled (current status: CANCELLED)")
		assert.Equal(t, 10, dbtest.Stock(t, s.DB, "TEE-M-RED"))
	})

	s.Run("Cancel succeeds when the product was deleted", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		_, adminToken := s.JWT.Admin(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
		created := s.checkout(token)

		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, "/products/"+productID.String(), nil, adminToken)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(orderCancelURL, created.ID), nil, token)
		var cancelled response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &cancelled)
		assert.Equal(t, "CANCELLED", cancelled.Status)
		assert.Equal(t, "Classic Tee", cancelled.Items[0].Snapshot.Title)
	})

	s.Run("Shipped orders cannot be cancelled", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		_, adminToken := s.JWT.Admin(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 1})
		created := s.checkout(token)

		w := httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, created.ID),
			request.UpdateOrderStatusRequest{Status: "SHIPPED"}, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(orderCancelURL, created.ID), nil, token)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Only pending orders can be cancelled (current status: SHIPPED)")
		assert.Equal(t, 9, dbtest.Stock(t, s.DB, "TEE-M-RED"))
	})

	s.Run("Missing order", func() {
		t := s.T()
		_, token := s.JWT.Customer(t)
		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(orderCancelURL, uuid.New()), nil, token)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Order not found")
	})
}

func (s *OrderSuite) TestUpdateOrderStatus() {
	s.Run("Admin sets any status without touching stock", func() {
		t := s.T()
		productID := s.seedTee(10)
		userID, token := s.JWT.Customer(t)
		_, adminToken := s.JWT.Admin(t)
		dbtest.InsertCart(t, s.DB, userID, dbtest.CartLine{ProductID: productID, SKU: "TEE-M-RED", Quantity: 2})
		created := s.checkout(token)

		w := httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, created.ID),
			request.UpdateOrderStatusRequest{Status: "CANCELLED"}, adminToken)
		var updated response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &updated)
		assert.Equal(t, "CANCELLED", updated.Status)
		assert.Equal(t, 8, dbtest.Stock(t, s.DB, "TEE-M-RED"))

		w = httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, created.ID),
			request.UpdateOrderStatusRequest{Status: "PENDING"}, adminToken)
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &updated)
		assert.Equal(t, "PENDING", updated.Status)
	})

	s.Run("Customers are forbidden", func() {
		t := s.T()
		_, token := s.JWT.Customer(t)
		w := httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, uuid.New()),
			request.UpdateOrderStatusRequest{Status: "PAID"}, token)
		httptest.AssertErrorResponse(t, w, http.StatusForbidden, "Insufficient permissions")
	})

	s.Run("Invalid status and missing order", func() {
		t := s.T()
		_, adminToken := s.JWT.Admin(t)

		w := httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, uuid.New()),
			request.UpdateOrderStatusRequest{Status: "LOST"}, adminToken)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Invalid order status")

		w = httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, uuid.New()),
			request.UpdateOrderStatusRequest{Status: "PAID"}, adminToken)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Order not found")
	})

	s.Run("Expired token is rejected", func() {
		t := s.T()
		token := s.JWT.CreateExpiredToken(t, uuid.New(), user.RoleAdmin)
		w := httptest.PerformRequest(t, s.Router, http.MethodPatch, fmt.Sprintf(orderStatusURL, uuid.New()),
			request.UpdateOrderStatusRequest{Status: "PAID"}, token)
		httptest.AssertErrorResponse(t, w, http.StatusUnauthorized, "Invalid or expired token")
	})
}
