package api

import (
	"net/http"
	"strconv"

	"marketflow/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listReviews(c *gin.Context) {
	reviews, err := h.reviews.GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) getReview(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	review, err := h.reviews.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) createReview(c *gin.Context) {
	var req service.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) updateReview(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req service.ReviewUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) deleteReview(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	review, err := h.reviews.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) markHelpful(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	review, err := h.reviews.MarkHelpful(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) reviewsByProduct(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	reviews, err := h.reviews.GetByProductID(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) reviewsByBuyer(c *gin.Context) {
	buyerID, ok := idParam(c, "buyerId")
	if !ok {
		return
	}

	reviews, err := h.reviews.GetByBuyerID(c.Request.Context(), buyerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) productStats(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	stats, err := h.reviews.GetProductStats(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) productRating(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	rating, err := h.reviews.GetProductRating(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// canReview answers GET /reviews/can-review?productId=&buyerId=
func (h *Handler) canReview(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Query("productId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid productId", nil)
		return
	}
	buyerID, err := strconv.ParseInt(c.Query("buyerId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid buyerId", nil)
		return
	}

	ok, err := h.reviews.CanReview(c.Request.Context(), productID, buyerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canReview": ok})
}
