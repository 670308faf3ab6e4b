// Package httpapi exposes the storefront over HTTP. Pages are JSON documents
// carrying the page context plus any pending flash messages.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/session"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the persistence the handlers use. *store.Repository satisfies it.
type Store interface {
	cart.Catalog

	ListCategories(ctx context.Context) ([]models.Category, error)
	ListCategoriesWithTopProducts(ctx context.Context, perCategory int) ([]models.CategoryProducts, error)
	CreateCategory(ctx context.Context, label string) (*models.Category, error)

	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SearchProducts(ctx context.Context, filter store.ProductFilter) (*store.OffsetPage, error)
	CreateProduct(ctx context.Context, input store.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, input store.ProductInput, version int) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string, version int) (*models.Order, error)

	UpsertReview(ctx context.Context, productID, userID int64, rating int, comment string) (*models.Review, error)
	ListReviews(ctx context.Context, productID int64) ([]models.Review, error)
	GetRatingSummary(ctx context.Context, productID int64) (models.RatingSummary, error)

	ToggleSaved(ctx context.Context, userID, productID int64) (bool, error)
	RemoveSaved(ctx context.Context, userID, productID int64) error
	ListSavedProducts(ctx context.Context, userID int64) ([]models.Product, error)
	SavedProductIDs(ctx context.Context, userID int64) ([]int64, error)

	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
}

// Carts is the session cart storage. *cart.RedisStore satisfies it.
type Carts interface {
	Load(ctx context.Context, sessionID string) (cart.Cart, error)
	Add(ctx context.Context, sessionID string, productID int64, delta int) (cart.Cart, error)
	Decrease(ctx context.Context, sessionID string, productID int64) (cart.Cart, error)
	Remove(ctx context.Context, sessionID string, productID int64) (cart.Cart, error)
	Prune(ctx context.Context, sessionID string, productIDs ...int64) error
	Clear(ctx context.Context, sessionID string) error
}

type Flashes interface {
	Add(ctx context.Context, sessionID, level, text string) error
	Pop(ctx context.Context, sessionID string) ([]session.Message, error)
}

type Checkout interface {
	Begin(ctx context.Context, userID int64, c cart.Cart) (*checkout.BeginResult, error)
	Complete(ctx context.Context, userID int64, paymentID string) (*checkout.CompleteResult, error)
	MinimumTotal() decimal.Decimal
}

type Accounts interface {
	Register(ctx context.Context, req validation.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req validation.LoginRequest) (*models.User, string, error)
}

type Options struct {
	AuthCookieName string
	SecureCookies  bool
	SessionTTL     time.Duration
	AdminAPIKey    string
	AllowedOrigins []string
	// TopProducts is how many products the index shows per category.
	TopProducts int
}

type Handler struct {
	store    Store
	carts    Carts
	flashes  Flashes
	checkout Checkout
	accounts Accounts
	tokens   *auth.Tokens
	validate *validatorv10.Validate
	logger   *zap.Logger
	opts     Options
}

type Deps struct {
	Store    Store
	Carts    Carts
	Flashes  Flashes
	Checkout Checkout
	Accounts Accounts
	Tokens   *auth.Tokens
	Validate *validatorv10.Validate
	Logger   *zap.Logger
}

func NewHandler(deps Deps, opts Options) *Handler {
	if opts.TopProducts < 1 {
		opts.TopProducts = 15
	}
	if opts.AuthCookieName == "" {
		opts.AuthCookieName = "auth_token"
	}
	return &Handler{
		store:    deps.Store,
		carts:    deps.Carts,
		flashes:  deps.Flashes,
		checkout: deps.Checkout,
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		validate: deps.Validate,
		logger:   deps.Logger,
		opts:     opts,
	}
}

// page writes a page document with the pending flash messages drained into it.
func (h *Handler) page(c *gin.Context, status int, data gin.H) {
	messages, err := h.flashes.Pop(c.Request.Context(), session.ID(c))
	if err != nil {
		h.logger.Warn("failed to pop flash messages", zap.Error(err))
	}
	if messages == nil {
		messages = []session.Message{}
	}

	if data == nil {
		data = gin.H{}
	}
	data["messages"] = messages
	if _, ok := auth.UserID(c); ok {
		data["user"] = gin.H{"username": auth.Username(c)}
	}

	c.JSON(status, data)
}

func (h *Handler) flash(c *gin.Context, level, text string) {
	if err := h.flashes.Add(c.Request.Context(), session.ID(c), level, text); err != nil {
		h.logger.Warn("failed to add flash message", zap.Error(err))
	}
}

func (h *Handler) flashRedirect(c *gin.Context, level, text, location string) {
	h.flash(c, level, text)
	c.Redirect(http.StatusFound, location)
}

// serverError logs err and writes a generic 500.
func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestIDFrom(c)),
	)
	respondError(c, http.StatusInternalServerError, "Internal server error")
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "error": message, "message": message})
}

// productID parses the :id parameter, writing a 404 on failure.
func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		respondError(c, http.StatusNotFound, "Invalid product ID")
		return 0, false
	}
	return id, true
}

// loadProduct fetches the :id product, writing a 404 when it does not exist.
func (h *Handler) loadProduct(c *gin.Context) (*models.Product, bool) {
	id, ok := productID(c)
	if !ok {
		return nil, false
	}

	product, err := h.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found")
			return nil, false
		}
		h.serverError(c, "failed to get product", err)
		return nil, false
	}
	return product, true
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
