package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// UpsertReview stores the user's review of a product. A user has at most one
// review per product; resubmitting replaces rating and comment.
func UpsertReview(ctx context.Context, db *sql.DB, productID, userID int64, rating int, comment string) (*models.Review, error) {
	review := &models.Review{}

	query := `
		INSERT INTO reviews (product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT ON CONSTRAINT reviews_product_user_key
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
		RETURNING id, product_id, user_id, rating, comment, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, productID, userID, rating, comment).Scan(
		&review.ID,
		&review.ProductID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("upsert review: %w", err)
	}

	return review, nil
}

func ListReviews(ctx context.Context, db *sql.DB, productID int64) ([]models.Review, error) {
	query := `
		SELECT r.id, r.product_id, r.user_id, u.username, r.rating, r.comment, r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var review models.Review
		err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserID,
			&review.Username,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
			&review.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

func GetRatingSummary(ctx context.Context, db *sql.DB, productID int64) (models.RatingSummary, error) {
	var count int
	var avg decimal.Decimal

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1`,
		productID).Scan(&count, &avg)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}

	return models.NewRatingSummary(count, avg), nil
}
