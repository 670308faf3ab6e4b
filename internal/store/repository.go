package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-storefront/internal/models"
)

// Repository exposes the store functions as methods so callers can depend on
// narrow interfaces instead of *sql.DB.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	return CreateUser(ctx, r.db, username, passwordHash)
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return GetUser(ctx, r.db, id)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return GetUserByUsername(ctx, r.db, username)
}

func (r *Repository) ListUsers(ctx context.Context, page, pageSize int) (*OffsetPage, error) {
	return ListUsers(ctx, r.db, page, pageSize)
}

func (r *Repository) CreateCategory(ctx context.Context, label string) (*models.Category, error) {
	return CreateCategory(ctx, r.db, label)
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	return ListCategories(ctx, r.db)
}

func (r *Repository) ListCategoriesWithTopProducts(ctx context.Context, perCategory int) ([]models.CategoryProducts, error) {
	return ListCategoriesWithTopProducts(ctx, r.db, perCategory)
}

func (r *Repository) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	return CreateProduct(ctx, r.db, input)
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return GetProduct(ctx, r.db, id)
}

func (r *Repository) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	return GetProductsByIDs(ctx, r.db, ids)
}

func (r *Repository) UpdateProduct(ctx context.Context, id int64, input ProductInput, version int) (*models.Product, error) {
	return UpdateProduct(ctx, r.db, id, input, version)
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	return DeleteProduct(ctx, r.db, id)
}

func (r *Repository) SearchProducts(ctx context.Context, filter ProductFilter) (*OffsetPage, error) {
	return SearchProducts(ctx, r.db, filter)
}

func (r *Repository) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	return CreateOrder(ctx, r.db, req)
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return GetOrder(ctx, r.db, id)
}

func (r *Repository) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return GetOrderByPaymentID(ctx, r.db, paymentID)
}

func (r *Repository) ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*CursorPage, error) {
	return ListOrdersCursor(ctx, r.db, userID, cursor, limit)
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id int64, status string, version int) (*models.Order, error) {
	return UpdateOrderStatus(ctx, r.db, id, status, version)
}

func (r *Repository) UpsertReview(ctx context.Context, productID, userID int64, rating int, comment string) (*models.Review, error) {
	return UpsertReview(ctx, r.db, productID, userID, rating, comment)
}

func (r *Repository) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	return ListReviews(ctx, r.db, productID)
}

func (r *Repository) GetRatingSummary(ctx context.Context, productID int64) (models.RatingSummary, error) {
	return GetRatingSummary(ctx, r.db, productID)
}

func (r *Repository) ToggleSaved(ctx context.Context, userID, productID int64) (bool, error) {
	return ToggleSaved(ctx, r.db, userID, productID)
}

func (r *Repository) RemoveSaved(ctx context.Context, userID, productID int64) error {
	return RemoveSaved(ctx, r.db, userID, productID)
}

func (r *Repository) ListSavedProducts(ctx context.Context, userID int64) ([]models.Product, error) {
	return ListSavedProducts(ctx, r.db, userID)
}

func (r *Repository) SavedProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	return SavedProductIDs(ctx, r.db, userID)
}
