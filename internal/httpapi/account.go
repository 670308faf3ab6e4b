package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/session"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
	"go.uber.org/zap"
)

func (h *Handler) loginPage(c *gin.Context) {
	h.page(c, http.StatusOK, gin.H{"next": safeNext(c.Query("next"))})
}

func (h *Handler) login(c *gin.Context) {
	var req validation.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Debug("malformed login form", zap.Error(err), zap.String("request_id", requestIDFrom(c)))
	}

	_, token, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.Error(err))
		}
		h.flashRedirect(c, session.LevelError, "invalid username or password", "/login/")
		return
	}

	auth.SetCookie(c, h.opts.AuthCookieName, token, h.tokens, h.opts.SecureCookies)
	c.Redirect(http.StatusFound, safeNext(c.PostForm("next")))
}

// safeNext only allows local paths as a post-login destination.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *Handler) registerPage(c *gin.Context) {
	h.page(c, http.StatusOK, nil)
}

func (h *Handler) register(c *gin.Context) {
	var req validation.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Debug("malformed register form", zap.Error(err), zap.String("request_id", requestIDFrom(c)))
	}

	_, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		var ve validatorv10.ValidationErrors
		switch {
		case errors.As(err, &ve):
			h.flashRedirect(c, session.LevelError, validation.FirstMessage(err), "/register/")
		case errors.Is(err, database.ErrUsernameTaken):
			h.flashRedirect(c, session.LevelError, "Username already taken", "/register/")
		default:
			h.serverError(c, "failed to register user", err)
		}
		return
	}

	h.flashRedirect(c, session.LevelSuccess, "Registration successful. Please log in.", "/login/")
}

// logout drops the auth cookie and the session's cart.
func (h *Handler) logout(c *gin.Context) {
	auth.ClearCookie(c, h.opts.AuthCookieName, h.opts.SecureCookies)

	if err := h.carts.Clear(c.Request.Context(), session.ID(c)); err != nil {
		h.logger.Warn("failed to clear cart on logout", zap.Error(err))
	}

	h.flashRedirect(c, session.LevelSuccess, "You have been logged out successfully.", "/")
}

func (h *Handler) savedItems(c *gin.Context) {
	userID, _ := auth.UserID(c)

	products, err := h.store.ListSavedProducts(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, "failed to list saved products", err)
		return
	}

	h.page(c, http.StatusOK, gin.H{"saved_products": products})
}

// saveProduct toggles the product on the user's saved list.
func (h *Handler) saveProduct(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "You must be logged in to save items.")
		return
	}

	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	added, err := h.store.ToggleSaved(c.Request.Context(), userID, product.ID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		h.serverError(c, "failed to toggle saved item", err)
		return
	}

	if added {
		c.JSON(http.StatusOK, gin.H{"status": "added", "message": product.Name + " added to saved items."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed", "message": product.Name + " removed from saved items."})
}

func (h *Handler) removeSaved(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "You must be logged in to save items.")
		return
	}

	id, ok := productID(c)
	if !ok {
		return
	}

	if err := h.store.RemoveSaved(c.Request.Context(), userID, id); err != nil {
		h.serverError(c, "failed to remove saved item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed", "message": "removed from saved items."})
}

func (h *Handler) orderHistory(c *gin.Context) {
	userID, _ := auth.UserID(c)

	page, err := h.store.ListOrdersCursor(c.Request.Context(), userID, c.Query("cursor"), queryInt(c, "limit"))
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			respondError(c, http.StatusBadRequest, "Invalid cursor")
			return
		}
		h.serverError(c, "failed to list orders", err)
		return
	}

	h.page(c, http.StatusOK, gin.H{
		"orders":      page.Items,
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}

func (h *Handler) orderDetail(c *gin.Context) {
	userID, _ := auth.UserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusNotFound, "Invalid order ID")
		return
	}

	order, err := h.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "Order not found")
			return
		}
		h.serverError(c, "failed to get order", err)
		return
	}

	if order.UserID != userID {
		respondError(c, http.StatusNotFound, "Order not found")
		return
	}

	h.page(c, http.StatusOK, gin.H{"order": order})
}
