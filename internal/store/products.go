package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `p.id, p.name, p.description, p.price, p.quantity_label, p.image_url,
	p.category_id, c.label, p.created_at, p.updated_at, p.version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.QuantityLabel,
		&product.ImageURL,
		&product.CategoryID,
		&product.CategoryLabel,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	QuantityLabel string
	ImageURL      string
	CategoryID    int64
}

// Sort keys accepted by SearchProducts.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNewest    = "newest"
)

var productOrderBy = map[string]string{
	SortPriceAsc:  "p.price ASC, p.id ASC",
	SortPriceDesc: "p.price DESC, p.id ASC",
	SortNameAsc:   "p.name ASC, p.id ASC",
	SortNewest:    "p.id DESC",
}

type ProductFilter struct {
	// Category matches a category label exactly, ignoring case.
	Category string
	// Search matches a substring of the product name or category label, ignoring case.
	Search   string
	SortBy   string
	Page     int
	PageSize int
}

func CreateProduct(ctx context.Context, db *sql.DB, input ProductInput) (*models.Product, error) {
	product := &models.Product{}

	query := `
		WITH p AS (
			INSERT INTO products (name, description, price, quantity_label, image_url, category_id, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
			RETURNING *
		)
		SELECT ` + productColumns + `
		FROM p JOIN categories c ON c.id = p.category_id`

	err := scanProduct(db.QueryRowContext(ctx, query,
		input.Name, input.Description, input.Price, input.QuantityLabel, input.ImageURL, input.CategoryID,
	), product)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`

	err := scanProduct(db.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductsByIDs returns the products that still exist, ordered by id.
// Unknown ids are silently absent from the result.
func GetProductsByIDs(ctx context.Context, db *sql.DB, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1)
		ORDER BY p.id`

	rows, err := db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// UpdateProduct replaces the editable fields of a product if its version
// still matches. Existing order items keep their snapshotted prices.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, input ProductInput, version int) (*models.Product, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, quantity_label = $4,
		     image_url = $5, category_id = $6, version = version + 1, updated_at = NOW()
		 WHERE id = $7 AND version = $8`,
		input.Name, input.Description, input.Price, input.QuantityLabel, input.ImageURL, input.CategoryID, id, version)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := GetProduct(ctx, db, id); err != nil {
			return nil, err
		}
		return nil, database.ErrOptimisticLockFailed
	}

	return GetProduct(ctx, db, id)
}

func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func SearchProducts(ctx context.Context, db *sql.DB, filter ProductFilter) (*OffsetPage, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)

	var (
		conditions []string
		args       []interface{}
	)

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("LOWER(c.label) = LOWER($%d)", len(args)))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR c.label ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id ` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	orderBy, ok := productOrderBy[filter.SortBy]
	if !ok {
		orderBy = "p.id ASC"
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, productColumns, where, orderBy, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

func collectProducts(rows *sql.Rows) ([]models.Product, error) {
	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
