package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/session"
	"go.uber.org/zap"
)

func (h *Handler) createCheckoutSession(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		h.flashRedirect(c, session.LevelError, "You need to login first to proceed to checkout.", "/login/")
		return
	}
	ctx := c.Request.Context()

	items, err := h.carts.Load(ctx, session.ID(c))
	if err != nil {
		h.serverError(c, "failed to load cart", err)
		return
	}

	result, err := h.checkout.Begin(ctx, userID, items)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrBelowMinimum), errors.Is(err, checkout.ErrEmptyCart):
			h.flashRedirect(c, session.LevelError,
				"Minimum order value must be at least ₹"+h.checkout.MinimumTotal().String()+".", "/cart")
		default:
			h.logger.Error("failed to create checkout session", zap.Int64("user_id", userID), zap.Error(err))
			h.flashRedirect(c, session.LevelError, "Payment error: "+err.Error(), "/cart")
		}
		return
	}

	c.Redirect(http.StatusSeeOther, result.RedirectURL)
}

// paymentSuccess is the provider's return URL. It finalizes the order once
// and empties the cart when the order was created by this request.
func (h *Handler) paymentSuccess(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		h.flashRedirect(c, session.LevelError, "You need to login first to proceed to checkout.", "/login/")
		return
	}

	paymentID := c.Query("session_id")
	if paymentID == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	ctx := c.Request.Context()

	result, err := h.checkout.Complete(ctx, userID, paymentID)
	if err != nil {
		h.logger.Error("failed to finalize order",
			zap.Int64("user_id", userID),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		h.flashRedirect(c, session.LevelError, "There was a problem finalizing your order.", "/cart")
		return
	}

	// A revisit of the success URL must not wipe a cart started since.
	if result.Created {
		if err := h.carts.Clear(ctx, session.ID(c)); err != nil {
			h.logger.Warn("failed to clear cart", zap.Int64("order_id", result.Order.ID), zap.Error(err))
		}
		h.flash(c, session.LevelSuccess, "Your order has been placed successfully!")
	}

	h.page(c, http.StatusOK, gin.H{"order": result.Order})
}

func (h *Handler) paymentCancel(c *gin.Context) {
	h.page(c, http.StatusOK, gin.H{"status": "cancelled"})
}
