package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/session"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStore struct {
	categories []models.Category
	products   map[int64]*models.Product
	reviews    map[[2]int64]models.Review
	saved      map[[2]int64]bool
	orders     map[int64]*models.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: []models.Category{{ID: 1, Label: "Fruit"}},
		products: map[int64]*models.Product{
			3: {ID: 3, Name: "Apple", Price: decimal.RequireFromString("30.00"), CategoryID: 1, CategoryLabel: "Fruit", Version: 1},
			4: {ID: 4, Name: "Gum", Price: decimal.RequireFromString("5.00"), CategoryID: 1, CategoryLabel: "Fruit", Version: 1},
		},
		reviews: map[[2]int64]models.Review{},
		saved:   map[[2]int64]bool{},
		orders:  map[int64]*models.Order{},
	}
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCategories(context.Context) ([]models.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) ListCategoriesWithTopProducts(_ context.Context, n int) ([]models.CategoryProducts, error) {
	var out []models.CategoryProducts
	for _, c := range f.categories {
		out = append(out, models.CategoryProducts{Category: c, TopProducts: []models.Product{}})
	}
	return out, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, label string) (*models.Category, error) {
	for _, c := range f.categories {
		if strings.EqualFold(c.Label, label) {
			return nil, database.ErrCategoryExists
		}
	}
	c := models.Category{ID: int64(len(f.categories) + 1), Label: label}
	f.categories = append(f.categories, c)
	return &c, nil
}

func (f *fakeStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, database.ErrProductNotFound
}

func (f *fakeStore) SearchProducts(_ context.Context, filter store.ProductFilter) (*store.OffsetPage, error) {
	var out []models.Product
	for _, p := range f.products {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &store.OffsetPage{Items: out, Total: int64(len(out)), Page: 1, PageSize: store.DefaultPageSize, TotalPages: 1}, nil
}

func (f *fakeStore) CreateProduct(_ context.Context, input store.ProductInput) (*models.Product, error) {
	if input.CategoryID != 1 {
		return nil, database.ErrCategoryNotFound
	}
	p := &models.Product{ID: int64(len(f.products) + 100), Name: input.Name, Price: input.Price, CategoryID: input.CategoryID, Version: 1}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, id int64, input store.ProductInput, version int) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	if p.Version != version {
		return nil, database.ErrOptimisticLockFailed
	}
	p.Name, p.Price, p.Version = input.Name, input.Price, p.Version+1
	return p, nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return database.ErrProductNotFound
	}
	for _, o := range f.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return database.ErrProductInUse
			}
		}
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, database.ErrOrderNotFound
}

func (f *fakeStore) ListOrdersCursor(_ context.Context, userID int64, cursor string, _ int) (*store.CursorPage, error) {
	if cursor != "" {
		return nil, store.ErrInvalidCursor
	}
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &store.CursorPage{Items: out}, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, id int64, status string, _ int) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	if !models.CanTransition(o.Status, status) {
		return nil, database.ErrInvalidStatusTransition
	}
	o.Status = status
	return o, nil
}

func (f *fakeStore) UpsertReview(_ context.Context, productID, userID int64, rating int, comment string) (*models.Review, error) {
	r := models.Review{ProductID: productID, UserID: userID, Rating: rating, Comment: comment}
	f.reviews[[2]int64{productID, userID}] = r
	return &r, nil
}

func (f *fakeStore) ListReviews(_ context.Context, productID int64) ([]models.Review, error) {
	out := []models.Review{}
	for k, r := range f.reviews {
		if k[0] == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRatingSummary(ctx context.Context, productID int64) (models.RatingSummary, error) {
	reviews, _ := f.ListReviews(ctx, productID)
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	if len(reviews) == 0 {
		return models.NewRatingSummary(0, decimal.Zero), nil
	}
	return models.NewRatingSummary(len(reviews), decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(reviews))))), nil
}

func (f *fakeStore) ToggleSaved(_ context.Context, userID, productID int64) (bool, error) {
	key := [2]int64{userID, productID}
	if f.saved[key] {
		delete(f.saved, key)
		return false, nil
	}
	f.saved[key] = true
	return true, nil
}

func (f *fakeStore) RemoveSaved(_ context.Context, userID, productID int64) error {
	delete(f.saved, [2]int64{userID, productID})
	return nil
}

func (f *fakeStore) ListSavedProducts(_ context.Context, userID int64) ([]models.Product, error) {
	out := []models.Product{}
	for k := range f.saved {
		if k[0] == userID {
			out = append(out, *f.products[k[1]])
		}
	}
	return out, nil
}

func (f *fakeStore) SavedProductIDs(_ context.Context, userID int64) ([]int64, error) {
	out := []int64{}
	for k := range f.saved {
		if k[0] == userID {
			out = append(out, k[1])
		}
	}
	return out, nil
}

func (f *fakeStore) ListUsers(_ context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return &store.OffsetPage{Items: []models.User{}, Page: 1, PageSize: store.DefaultPageSize}, nil
}

type memoryCarts map[string]cart.Cart

func (m memoryCarts) get(sid string) cart.Cart {
	if m[sid] == nil {
		m[sid] = cart.New()
	}
	return m[sid]
}

func (m memoryCarts) Load(_ context.Context, sid string) (cart.Cart, error) {
	return m.get(sid), nil
}

func (m memoryCarts) Add(_ context.Context, sid string, id int64, delta int) (cart.Cart, error) {
	c := m.get(sid)
	c.Add(id, delta)
	return c, nil
}

func (m memoryCarts) Decrease(_ context.Context, sid string, id int64) (cart.Cart, error) {
	c := m.get(sid)
	if err := c.Decrease(id); err != nil {
		return nil, err
	}
	return c, nil
}

func (m memoryCarts) Remove(_ context.Context, sid string, id int64) (cart.Cart, error) {
	c := m.get(sid)
	c.Remove(id)
	return c, nil
}

func (m memoryCarts) Prune(_ context.Context, sid string, ids ...int64) error {
	c := m.get(sid)
	for _, id := range ids {
		c.Remove(id)
	}
	return nil
}

func (m memoryCarts) Clear(_ context.Context, sid string) error {
	delete(m, sid)
	return nil
}

type memoryFlashes map[string][]session.Message

func (m memoryFlashes) Add(_ context.Context, sid, level, text string) error {
	m[sid] = append(m[sid], session.Message{Level: level, Text: text})
	return nil
}

func (m memoryFlashes) Pop(_ context.Context, sid string) ([]session.Message, error) {
	out := m[sid]
	delete(m, sid)
	return out, nil
}

type fakeCheckout struct {
	begun     []cart.Cart
	beginErr  error
	completed []string
	order     *models.Order
	// existing marks payment ids whose order was created before.
	existing map[string]bool
	err      error
}

func (f *fakeCheckout) Begin(_ context.Context, userID int64, c cart.Cart) (*checkout.BeginResult, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begun = append(f.begun, c)
	return &checkout.BeginResult{PaymentID: "cs_1", RedirectURL: "https://pay.example.com/cs_1"}, nil
}

func (f *fakeCheckout) Complete(_ context.Context, userID int64, paymentID string) (*checkout.CompleteResult, error) {
	f.completed = append(f.completed, paymentID)
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.CompleteResult{Order: f.order, Created: !f.existing[paymentID]}, nil
}

func (f *fakeCheckout) MinimumTotal() decimal.Decimal {
	return decimal.NewFromInt(50)
}

type fakeAccounts struct {
	users map[string]string
}

func (f *fakeAccounts) Register(_ context.Context, req validation.RegisterRequest) (*models.User, error) {
	if err := validation.New().Struct(req); err != nil {
		return nil, err
	}
	if _, ok := f.users[req.Username]; ok {
		return nil, database.ErrUsernameTaken
	}
	f.users[req.Username] = req.Password
	return &models.User{ID: int64(len(f.users)), Username: req.Username}, nil
}

func (f *fakeAccounts) Login(_ context.Context, req validation.LoginRequest) (*models.User, string, error) {
	if pw, ok := f.users[req.Username]; !ok || pw != req.Password {
		return nil, "", auth.ErrInvalidCredentials
	}
	return &models.User{ID: 1, Username: req.Username}, "token-for-" + req.Username, nil
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	store    *fakeStore
	carts    memoryCarts
	flashes  memoryFlashes
	checkout *fakeCheckout
	accounts *fakeAccounts
	tokens   *auth.Tokens
	sid      string
	token    string
	logs     *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	s := &testServer{
		t:        t,
		store:    newFakeStore(),
		carts:    memoryCarts{},
		flashes:  memoryFlashes{},
		checkout: &fakeCheckout{},
		accounts: &fakeAccounts{users: map[string]string{}},
		tokens:   auth.NewTokens("test-secret", time.Hour),
		sid:      "0b9c2a52-5d5e-4d5f-9a3e-1f0e7e0c1a11",
		logs:     logs,
	}

	h := NewHandler(Deps{
		Store:    s.store,
		Carts:    s.carts,
		Flashes:  s.flashes,
		Checkout: s.checkout,
		Accounts: s.accounts,
		Tokens:   s.tokens,
		Validate: validation.New(),
		Logger:   zap.New(core),
	}, Options{SessionTTL: time.Hour, AdminAPIKey: "admin-key"})

	s.router = NewRouter(h, nil, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	return s
}

// loginAs makes subsequent requests carry a token for the user.
func (s *testServer) loginAs(userID int64, username string) {
	token, err := s.tokens.Issue(userID, username)
	require.NoError(s.t, err)
	s.token = token
}

func (s *testServer) do(method, path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.sid})
	if s.token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: s.token})
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// doRaw posts an already encoded form body.
func (s *testServer) doRaw(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.sid})

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) flashTexts() []string {
	var out []string
	for _, m := range s.flashes[s.sid] {
		out = append(out, m.Text)
	}
	return out
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
