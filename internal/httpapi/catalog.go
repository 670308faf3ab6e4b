package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/session"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
)

func (h *Handler) index(c *gin.Context) {
	categories, err := h.store.ListCategoriesWithTopProducts(c.Request.Context(), h.opts.TopProducts)
	if err != nil {
		h.serverError(c, "failed to list categories", err)
		return
	}

	h.page(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) productList(c *gin.Context) {
	ctx := c.Request.Context()

	filter := store.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort_by"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}

	products, err := h.store.SearchProducts(ctx, filter)
	if err != nil {
		h.serverError(c, "failed to search products", err)
		return
	}

	categories, err := h.store.ListCategories(ctx)
	if err != nil {
		h.serverError(c, "failed to list categories", err)
		return
	}

	savedIDs := []int64{}
	if userID, ok := auth.UserID(c); ok {
		savedIDs, err = h.store.SavedProductIDs(ctx, userID)
		if err != nil {
			h.serverError(c, "failed to list saved products", err)
			return
		}
	}

	h.page(c, http.StatusOK, gin.H{
		"products":          products,
		"categories":        categories,
		"selected_category": filter.Category,
		"search_query":      filter.Search,
		"selected_sort_by":  filter.SortBy,
		"saved_product_ids": savedIDs,
	})
}

func (h *Handler) productDetail(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	reviews, err := h.store.ListReviews(ctx, product.ID)
	if err != nil {
		h.serverError(c, "failed to list reviews", err)
		return
	}

	summary, err := h.store.GetRatingSummary(ctx, product.ID)
	if err != nil {
		h.serverError(c, "failed to summarize ratings", err)
		return
	}

	categories, err := h.store.ListCategories(ctx)
	if err != nil {
		h.serverError(c, "failed to list categories", err)
		return
	}

	h.page(c, http.StatusOK, gin.H{
		"product":      product,
		"reviews":      reviews,
		"review_count": summary.Count,
		"avg_rating":   summary.Average,
		"categories":   categories,
	})
}

// submitReview creates or replaces the signed-in user's review.
func (h *Handler) submitReview(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	userID, ok := auth.UserID(c)
	if !ok {
		h.flashRedirect(c, session.LevelError, "You must be logged in to leave a review.", "/login/")
		return
	}

	back := fmt.Sprintf("/product/%d/", product.ID)

	var req validation.ReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		h.flashRedirect(c, session.LevelError, "Rating must be between 1 and 5.", back)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.flashRedirect(c, session.LevelError, validation.FirstMessage(err), back)
		return
	}

	if _, err := h.store.UpsertReview(c.Request.Context(), product.ID, userID, req.Rating, req.Comment); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		h.serverError(c, "failed to save review", err)
		return
	}

	h.flashRedirect(c, session.LevelSuccess, "Your review has been submitted.", back)
}

func (h *Handler) quickView(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}
