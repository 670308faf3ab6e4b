package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w.Body.Bytes())
	assert.Len(t, body["categories"], 1)
	assert.Equal(t, []interface{}{}, body["messages"])
}

func TestProductListMarksSavedProducts(t *testing.T) {
	s := newTestServer(t)
	s.loginAs(7, "alice")
	s.store.saved[[2]int64{7, 4}] = true

	w := s.do(http.MethodGet, "/detail/?search=gum&sort_by=price_asc", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w.Body.Bytes())
	products := body["products"].(map[string]interface{})
	assert.Equal(t, float64(1), products["total"])
	assert.Equal(t, "gum", body["search_query"])
	assert.Equal(t, "price_asc", body["selected_sort_by"])
	assert.Equal(t, []interface{}{float64(4)}, body["saved_product_ids"])
}

func TestProductDetail(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/product/3/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w.Body.Bytes())
	assert.Equal(t, "Apple", body["product"].(map[string]interface{})["name"])
	assert.Equal(t, float64(0), body["review_count"])
	assert.Equal(t, "0", body["avg_rating"])

	w = s.do(http.MethodGet, "/product/999/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuickView(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/product/quick-view/4/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Gum", decode(t, w.Body.Bytes())["product"].(map[string]interface{})["name"])
}

func TestSubmitReviewReplacesPrevious(t *testing.T) {
	s := newTestServer(t)
	s.loginAs(7, "alice")

	w := s.do(http.MethodPost, "/product/3/", url.Values{"rating": {"2"}, "comment": {"meh"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/product/3/", w.Header().Get("Location"))

	s.do(http.MethodPost, "/product/3/", url.Values{"rating": {"5"}, "comment": {"great"}})
	assert.Len(t, s.store.reviews, 1)
	assert.Equal(t, 5, s.store.reviews[[2]int64{3, 7}].Rating)

	w = s.do(http.MethodGet, "/product/3/", nil)
	body := decode(t, w.Body.Bytes())
	assert.Equal(t, float64(1), body["review_count"])
	assert.Equal(t, "5", body["avg_rating"])
	assert.Len(t, body["messages"], 2)
}

func TestSubmitReviewInvalidRating(t *testing.T) {
	s := newTestServer(t)
	s.loginAs(7, "alice")

	for _, rating := range []string{"0", "6", "abc", ""} {
		w := s.do(http.MethodPost, "/product/3/", url.Values{"rating": {rating}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/product/3/", w.Header().Get("Location"))
	}

	assert.Empty(t, s.store.reviews)
	for _, text := range s.flashTexts() {
		assert.Equal(t, "Rating must be between 1 and 5.", text)
	}
}

func TestSubmitReviewRequiresLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/product/3/", url.Values{"rating": {"4"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/", w.Header().Get("Location"))
	assert.Equal(t, []string{"You must be logged in to leave a review."}, s.flashTexts())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w.Body.Bytes())["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
