package api

import (
	"math"
	"net/http"

	"marketflow/internal/cart"

	"github.com/gin-gonic/gin"
)

type cartResponse struct {
	cart.State
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

// cartJSON renders state with totals computed from the same snapshot
func (h *Handler) cartJSON(c *gin.Context, state cart.State) {
	resp := cartResponse{State: state}
	for _, item := range state.Items {
		resp.Count += item.Quantity
		resp.Subtotal += item.Price * float64(item.Quantity)
	}
	resp.Subtotal = math.Round(resp.Subtotal*100) / 100
	c.JSON(http.StatusOK, resp)
}

type addItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(c *gin.Context) {
	h.cartJSON(c, h.cart.State())
}

// addCartItem snapshots the current product record into the cart
func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.cartJSON(c, h.cart.AddToCart(c.Request.Context(), product, req.Quantity))
}

func (h *Handler) updateCartItem(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	h.cartJSON(c, h.cart.UpdateQuantity(c.Request.Context(), productID, req.Quantity))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	h.cartJSON(c, h.cart.RemoveFromCart(c.Request.Context(), productID))
}

func (h *Handler) clearCart(c *gin.Context) {
	h.cartJSON(c, h.cart.ClearCart(c.Request.Context()))
}

func (h *Handler) toggleCart(c *gin.Context) {
	h.cartJSON(c, h.cart.ToggleCart())
}

func (h *Handler) openCart(c *gin.Context) {
	h.cartJSON(c, h.cart.OpenCart())
}

func (h *Handler) closeCart(c *gin.Context) {
	h.cartJSON(c, h.cart.CloseCart())
}
