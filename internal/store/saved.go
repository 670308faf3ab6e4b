package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// ToggleSaved flips wishlist membership for (user, product). It returns true
// when the product was added and false when it was removed.
func ToggleSaved(ctx context.Context, db *sql.DB, userID, productID int64) (bool, error) {
	var added bool

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM saved_items WHERE user_id = $1 AND product_id = $2`,
			userID, productID)
		if err != nil {
			return fmt.Errorf("delete saved item: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected > 0 {
			added = false
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO saved_items (user_id, product_id, saved_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT ON CONSTRAINT saved_items_user_product_key DO NOTHING`,
			userID, productID)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("insert saved item: %w", err)
		}

		added = true
		return nil
	})

	return added, err
}

// RemoveSaved deletes the saved item if present. Removing an absent item is not an error.
func RemoveSaved(ctx context.Context, db *sql.DB, userID, productID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM saved_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove saved item: %w", err)
	}
	return nil
}

func ListSavedProducts(ctx context.Context, db *sql.DB, userID int64) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM saved_items s
		JOIN products p ON p.id = s.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE s.user_id = $1
		ORDER BY s.saved_at DESC, s.id DESC`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func SavedProductIDs(ctx context.Context, db *sql.DB, userID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT product_id FROM saved_items WHERE user_id = $1 ORDER BY product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved product ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan saved product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}
