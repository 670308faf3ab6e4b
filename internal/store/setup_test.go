package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

func seedCategory(t *testing.T, db *sql.DB, label string) *models.Category {
	t.Helper()

	category, err := store.CreateCategory(context.Background(), db, label)
	if err != nil {
		t.Fatalf("Create category %s: %v", label, err)
	}
	return category
}

func seedProduct(t *testing.T, db *sql.DB, categoryID int64, name, price string) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, store.ProductInput{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		QuantityLabel: "1 pc",
		ImageURL:      fmt.Sprintf("https://img.example.com/%s.png", name),
		CategoryID:    categoryID,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func seedUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), db, username, "hash")
	if err != nil {
		t.Fatalf("Create user %s: %v", username, err)
	}
	return user
}
