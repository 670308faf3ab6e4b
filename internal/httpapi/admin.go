package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
)

// bindAndValidate binds a JSON body and runs the validator, writing a 400
// when either step fails.
func (h *Handler) bindAndValidate(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return false
	}

	if err := h.validate.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": validation.Messages(err)})
		return false
	}
	return true
}

func (h *Handler) createCategory(c *gin.Context) {
	var req validation.CategoryRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	category, err := h.store.CreateCategory(c.Request.Context(), strings.TrimSpace(req.Label))
	if err != nil {
		if errors.Is(err, database.ErrCategoryExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, "failed to create category", err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

func productInput(req validation.ProductRequest) store.ProductInput {
	return store.ProductInput{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		QuantityLabel: req.QuantityLabel,
		ImageURL:      req.ImageURL,
		CategoryID:    req.CategoryID,
	}
}

func (h *Handler) createProduct(c *gin.Context) {
	var req validation.ProductRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	product, err := h.store.CreateProduct(c.Request.Context(), productInput(req))
	if err != nil {
		if errors.Is(err, database.ErrCategoryNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, "failed to create product", err)
		return
	}

	c.Header("Location", "/product/"+strconv.FormatInt(product.ID, 10)+"/")
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req validation.ProductRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	product, err := h.store.UpdateProduct(c.Request.Context(), id, productInput(req), req.Version)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrProductNotFound):
			respondError(c, http.StatusNotFound, "Product not found")
		case errors.Is(err, database.ErrOptimisticLockFailed):
			c.JSON(http.StatusConflict, gin.H{"error": "product was modified concurrently, reload and retry"})
		case errors.Is(err, database.ErrCategoryNotFound):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.serverError(c, "failed to update product", err)
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, database.ErrProductNotFound):
			respondError(c, http.StatusNotFound, "Product not found")
		case errors.Is(err, database.ErrProductInUse):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.serverError(c, "failed to delete product", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// updateOrderStatus moves an order along pending → processing → shipped →
// delivered, or to cancelled.
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusNotFound, "Invalid order ID")
		return
	}

	var req validation.OrderStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	order, err := h.store.UpdateOrderStatus(c.Request.Context(), id, req.Status, req.Version)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrOrderNotFound):
			respondError(c, http.StatusNotFound, "Order not found")
		case errors.Is(err, database.ErrInvalidStatusTransition), errors.Is(err, database.ErrOptimisticLockFailed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.serverError(c, "failed to update order status", err)
		}
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, err := h.store.ListUsers(c.Request.Context(), queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		h.serverError(c, "failed to list users", err)
		return
	}

	c.JSON(http.StatusOK, page)
}
