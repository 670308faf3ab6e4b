package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (h *Handler) addToCart(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	items, err := h.carts.Add(c.Request.Context(), session.ID(c), product.ID, 1)
	if err != nil {
		h.serverError(c, "failed to add to cart", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"cart_total_items": items.TotalItems(),
		"message":          product.Name + " added to cart!",
		"redirect_url":     "/cart",
	})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if _, err := h.carts.Remove(c.Request.Context(), session.ID(c), id); err != nil {
		h.serverError(c, "failed to remove from cart", err)
		return
	}

	c.Redirect(http.StatusFound, "/cart")
}

// viewCart re-prices the cart and drops entries whose product is gone.
func (h *Handler) viewCart(c *gin.Context) {
	ctx := c.Request.Context()
	sid := session.ID(c)

	items, err := h.carts.Load(ctx, sid)
	if err != nil {
		h.serverError(c, "failed to load cart", err)
		return
	}

	res, err := cart.Resolve(ctx, h.store, items)
	if err != nil {
		h.serverError(c, "failed to resolve cart", err)
		return
	}

	if len(res.Missing) > 0 {
		if err := h.carts.Prune(ctx, sid, res.Missing...); err != nil {
			h.logger.Warn("failed to prune cart", zap.Int64s("product_ids", res.Missing), zap.Error(err))
		}
	}

	h.page(c, http.StatusOK, gin.H{
		"cart_items":    res.Lines,
		"total":         res.Total,
		"minimum_total": h.checkout.MinimumTotal(),
	})
}

func (h *Handler) increaseQuantity(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	items, err := h.carts.Add(c.Request.Context(), session.ID(c), product.ID, 1)
	if err != nil {
		h.serverError(c, "failed to increase quantity", err)
		return
	}

	quantity := items.Quantity(product.ID)
	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"quantity":         quantity,
		"item_total":       product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		"cart_total_items": items.TotalItems(),
	})
}

func (h *Handler) decreaseQuantity(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sid := session.ID(c)

	items, err := h.carts.Decrease(ctx, sid, id)
	if err != nil {
		if errors.Is(err, cart.ErrNotInCart) {
			c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Product not in cart"})
			return
		}
		h.serverError(c, "failed to decrease quantity", err)
		return
	}

	quantity := items.Quantity(id)
	itemTotal := decimal.Zero
	if quantity > 0 {
		products, err := h.store.GetProductsByIDs(ctx, []int64{id})
		if err != nil {
			h.serverError(c, "failed to get product", err)
			return
		}
		if len(products) == 0 {
			if err := h.carts.Prune(ctx, sid, id); err != nil {
				h.logger.Warn("failed to prune cart", zap.Int64("product_id", id), zap.Error(err))
			}
			items.Remove(id)
			quantity = 0
		} else {
			itemTotal = products[0].Price.Mul(decimal.NewFromInt(int64(quantity)))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"quantity":         quantity,
		"item_total":       itemTotal,
		"cart_total_items": items.TotalItems(),
	})
}

// cartCount is the number of distinct products, used for the header badge.
func (h *Handler) cartCount(c *gin.Context) {
	items, err := h.carts.Load(c.Request.Context(), session.ID(c))
	if err != nil {
		h.serverError(c, "failed to load cart", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart_count": items.Count()})
}
