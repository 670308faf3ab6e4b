package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func CreateCategory(ctx context.Context, db *sql.DB, label string) (*models.Category, error) {
	category := &models.Category{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO categories (label) VALUES ($1) RETURNING id, label`,
		label).Scan(&category.ID, &category.Label)
	if err != nil {
		if database.IsUniqueViolation(err, "categories_label_key") {
			return nil, database.ErrCategoryExists
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func ListCategories(ctx context.Context, db *sql.DB) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, label FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Label); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

// ListCategoriesWithTopProducts returns every category with up to perCategory
// of its newest products. Categories without products are included.
func ListCategoriesWithTopProducts(ctx context.Context, db *sql.DB, perCategory int) ([]models.CategoryProducts, error) {
	categories, err := ListCategories(ctx, db)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + productColumns + `
		FROM categories c
		JOIN LATERAL (
			SELECT *
			FROM products
			WHERE category_id = c.id
			ORDER BY id DESC
			LIMIT $1
		) p ON TRUE
		ORDER BY c.id, p.id DESC`

	rows, err := db.QueryContext(ctx, query, perCategory)
	if err != nil {
		return nil, fmt.Errorf("list top products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int64][]models.Product, len(categories))
	for _, product := range products {
		byCategory[product.CategoryID] = append(byCategory[product.CategoryID], product)
	}

	result := make([]models.CategoryProducts, 0, len(categories))
	for _, category := range categories {
		top := byCategory[category.ID]
		if top == nil {
			top = []models.Product{}
		}
		result = append(result, models.CategoryProducts{Category: category, TopProducts: top})
	}

	return result, nil
}
