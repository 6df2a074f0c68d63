package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketflow/internal/cart"
	"marketflow/internal/fixtures"
	"marketflow/internal/models"
	"marketflow/internal/service"
	"marketflow/internal/storage"
	"marketflow/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seed, err := fixtures.Load("")
	require.NoError(t, err)

	s := store.New(seed)
	cartStore := cart.New(context.Background(), storage.NewMemorySlot(), nil)
	orders := service.NewOrderService(s, nil, service.NoLatency)

	h := NewHandler(Services{
		Products:   service.NewProductService(s, service.NoLatency),
		Categories: service.NewCategoryService(s, service.NoLatency),
		Orders:     orders,
		Reviews:    service.NewReviewService(s, nil, service.NoLatency),
		Checkout:   service.NewCheckoutService(cartStore, orders, service.DefaultPricing, nil, 0),
		Cart:       cartStore,
	})

	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductRoutes(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/v1/products/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var product models.Product
	decode(t, w, &product)
	assert.Equal(t, int64(1), product.ID)

	w = do(t, router, http.MethodGet, "/api/v1/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Product with ID 999 not found"}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/products", map[string]interface{}{"title": "No images"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"title": "Desk Lamp", "description": "Warm light", "price": 30, "category": "Home Decor",
		"stock": 4, "images": []string{"lamp.jpg"}, "sellerId": "seller-2",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/products/search?q=KEYBOARD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found []models.Product
	decode(t, w, &found)
	assert.NotEmpty(t, found)
}

func TestCategoryRoutes(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodDelete, "/api/v1/categories/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"conflict: Cannot delete category that has subcategories"}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/categories/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tree []map[string]interface{}
	decode(t, w, &tree)
	assert.Len(t, tree, 3)

	w = do(t, router, http.MethodGet, "/api/v1/categories/4/children", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var children []models.Category
	decode(t, w, &children)
	assert.Len(t, children, 2)
}

func TestOrderStatusRoute(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPut, "/api/v1/orders/2/status", map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	var order models.Order
	decode(t, w, &order)
	assert.True(t, order.Reviewable)

	w = do(t, router, http.MethodPut, "/api/v1/orders/2/status", map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewRoutes(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPost, "/api/v1/reviews", map[string]interface{}{
		"productId": 1, "buyerId": 1, "rating": 2, "comment": "Second thoughts on these",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/reviews/can-review?productId=1&buyerId=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"canReview":false}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/reviews/can-review?productId=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/reviews/product/1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.ProductStats
	decode(t, w, &stats)
	assert.Equal(t, 2, stats.TotalReviews)
	assert.Equal(t, 4.5, stats.AverageRating)

	w = do(t, router, http.MethodPost, "/api/v1/reviews/1/helpful", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var review models.Review
	decode(t, w, &review)
	assert.Equal(t, 5, review.Helpful)
}

func TestCartAndCheckout(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"productId": 3, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	var resp cartResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 84.0, resp.Subtotal)

	w = do(t, router, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"productId": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/cart/toggle", nil)
	decode(t, w, &resp)
	assert.True(t, resp.IsOpen)

	w = do(t, router, http.MethodGet, "/api/v1/checkout/quote", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quote map[string]float64
	decode(t, w, &quote)
	assert.Equal(t, map[string]float64{"subtotal": 84, "shipping": 9.99, "tax": 6.72, "total": 100.71}, quote)

	w = do(t, router, http.MethodPost, "/api/v1/checkout", map[string]interface{}{
		"buyerId": 4,
		"shippingAddress": map[string]string{
			"name": "Alan Turing", "email": "alan@example.com", "address": "2 Bletchley Rd",
			"city": "Milton Keynes", "state": "BKM", "zipCode": "MK3",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.InDelta(t, 100.71, order.Total, 0.001)

	w = do(t, router, http.MethodGet, "/api/v1/cart", nil)
	decode(t, w, &resp)
	assert.Empty(t, resp.Items)

	w = do(t, router, http.MethodPost, "/api/v1/checkout", map[string]interface{}{"buyerId": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartQuantityRoutes(t *testing.T) {
	router := setupRouter(t)

	do(t, router, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"productId": 1})
	do(t, router, http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"productId": 2})

	w := do(t, router, http.MethodPut, "/api/v1/cart/items/1", map[string]int{"quantity": 4})
	var resp cartResponse
	decode(t, w, &resp)
	assert.Equal(t, 5, resp.Count)

	w = do(t, router, http.MethodDelete, "/api/v1/cart/items/2", nil)
	decode(t, w, &resp)
	require.Len(t, resp.Items, 1)

	w = do(t, router, http.MethodPut, "/api/v1/cart/items/1", map[string]int{"quantity": 0})
	decode(t, w, &resp)
	assert.Empty(t, resp.Items)
}
