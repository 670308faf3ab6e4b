package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/testsupport"
	"github.com/shopspring/decimal"
)

func TestUpsertReviewReplacesPrevious(t *testing.T) {
	db := testsupport.StartPostgres(t)
	ctx := context.Background()

	category := seedCategory(t, db, "Fruit")
	apple := seedProduct(t, db, category.ID, "Apple", "30.00")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	summary, err := store.GetRatingSummary(ctx, db, apple.ID)
	if err != nil {
		t.Fatalf("Rating summary without reviews: %v", err)
	}
	if summary.Count != 0 || !summary.Average.IsZero() {
		t.Errorf("Expected empty summary, got %+v", summary)
	}

	if _, err := store.UpsertReview(ctx, db, apple.ID, alice.ID, 2, "meh"); err != nil {
		t.Fatalf("First review: %v", err)
	}
	if _, err := store.UpsertReview(ctx, db, apple.ID, bob.ID, 5, "great"); err != nil {
		t.Fatalf("Second review: %v", err)
	}

	updated, err := store.UpsertReview(ctx, db, apple.ID, alice.ID, 4, "better than I thought")
	if err != nil {
		t.Fatalf("Replace review: %v", err)
	}
	if updated.Rating != 4 || updated.Comment != "better than I thought" {
		t.Errorf("Unexpected replaced review %+v", updated)
	}

	reviews, err := store.ListReviews(ctx, db, apple.ID)
	if err != nil {
		t.Fatalf("List reviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("Expected one review per user, got %d", len(reviews))
	}
	if reviews[0].Username != "bob" {
		t.Errorf("Expected newest review first, got %s", reviews[0].Username)
	}

	summary, err = store.GetRatingSummary(ctx, db, apple.ID)
	if err != nil {
		t.Fatalf("Rating summary: %v", err)
	}
	if summary.Count != 2 || !summary.Average.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("Expected 2 reviews averaging 4.5, got %+v", summary)
	}
}

func TestUpsertReviewUnknownProduct(t *testing.T) {
	db := testsupport.StartPostgres(t)
	user := seedUser(t, db, "alice")

	_, err := store.UpsertReview(context.Background(), db, 999999, user.ID, 5, "")
	if err != database.ErrProductNotFound {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestRatingSummaryRoundsTiesToEven(t *testing.T) {
	db := testsupport.StartPostgres(t)
	ctx := context.Background()

	category := seedCategory(t, db, "Fruit")
	apple := seedProduct(t, db, category.ID, "Apple", "30.00")

	for i, rating := range []int{4, 4, 4, 5} {
		user := seedUser(t, db, fmt.Sprintf("user%d", i))
		if _, err := store.UpsertReview(ctx, db, apple.ID, user.ID, rating, ""); err != nil {
			t.Fatalf("Review %d: %v", i, err)
		}
	}

	summary, err := store.GetRatingSummary(ctx, db, apple.ID)
	if err != nil {
		t.Fatalf("Rating summary: %v", err)
	}
	if summary.Count != 4 || !summary.Average.Equal(decimal.RequireFromString("4.2")) {
		t.Errorf("Expected 4 reviews averaging 4.2, got %+v", summary)
	}
}
