package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketflow/internal/cart"
	"marketflow/internal/service"
	"marketflow/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services bundles what the HTTP layer serves
type Services struct {
	Products   *service.ProductService
	Categories *service.CategoryService
	Orders     *service.OrderService
	Reviews    *service.ReviewService
	Checkout   *service.CheckoutService
	Cart       *cart.Store
}

// Handler contains HTTP handlers
type Handler struct {
	products   *service.ProductService
	categories *service.CategoryService
	orders     *service.OrderService
	reviews    *service.ReviewService
	checkout   *service.CheckoutService
	cart       *cart.Store
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	return &Handler{
		products:   s.Products,
		categories: s.Categories,
		orders:     s.Orders,
		reviews:    s.Reviews,
		checkout:   s.Checkout,
		cart:       s.Cart,
		logger:     util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.GET("/products/search", h.searchProducts)
		v1.GET("/products/category/:category", h.productsByCategory)
		v1.GET("/products/seller/:sellerId", h.productsBySeller)
		v1.GET("/products/:id", h.getProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)

		v1.GET("/categories", h.listCategories)
		v1.POST("/categories", h.createCategory)
		v1.GET("/categories/tree", h.categoryTree)
		v1.GET("/categories/roots", h.rootCategories)
		v1.GET("/categories/:id", h.getCategory)
		v1.PATCH("/categories/:id", h.updateCategory)
		v1.DELETE("/categories/:id", h.deleteCategory)
		v1.GET("/categories/:id/children", h.subcategories)

		v1.GET("/orders", h.listOrders)
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/buyer/:buyerId", h.ordersByBuyer)
		v1.GET("/orders/status/:status", h.ordersByStatus)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id", h.updateOrder)
		v1.DELETE("/orders/:id", h.deleteOrder)
		v1.PUT("/orders/:id/status", h.updateOrderStatus)

		v1.GET("/reviews", h.listReviews)
		v1.POST("/reviews", h.createReview)
		v1.GET("/reviews/can-review", h.canReview)
		v1.GET("/reviews/product/:productId", h.reviewsByProduct)
		v1.GET("/reviews/product/:productId/stats", h.productStats)
		v1.GET("/reviews/product/:productId/rating", h.productRating)
		v1.GET("/reviews/buyer/:buyerId", h.reviewsByBuyer)
		v1.GET("/reviews/:id", h.getReview)
		v1.PATCH("/reviews/:id", h.updateReview)
		v1.DELETE("/reviews/:id", h.deleteReview)
		v1.POST("/reviews/:id/helpful", h.markHelpful)

		v1.GET("/cart", h.getCart)
		v1.DELETE("/cart", h.clearCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:productId", h.updateCartItem)
		v1.DELETE("/cart/items/:productId", h.removeCartItem)
		v1.POST("/cart/toggle", h.toggleCart)
		v1.POST("/cart/open", h.openCart)
		v1.POST("/cart/close", h.closeCart)

		v1.GET("/checkout/quote", h.checkoutQuote)
		v1.POST("/checkout", h.placeOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps a service error onto its HTTP status
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// idParam parses the int64 path parameter name
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger writes one zap line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
