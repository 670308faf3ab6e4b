package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBareHandler() *Handler {
	return NewHandler(Deps{
		Store:    newFakeStore(),
		Carts:    memoryCarts{},
		Flashes:  memoryFlashes{},
		Checkout: &fakeCheckout{},
		Accounts: &fakeAccounts{users: map[string]string{}},
		Tokens:   auth.NewTokens("test-secret", time.Hour),
		Validate: validation.New(),
		Logger:   zap.NewNop(),
	}, Options{SessionTTL: time.Hour})
}

func TestHealthReportsFailingDependency(t *testing.T) {
	r := NewRouter(newBareHandler(), nil, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decode(t, w.Body.Bytes())
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]interface{}{"postgres": "up", "redis": "down"}, body["checks"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(newBareHandler(), metrics.New(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/count/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `route="/cart/count/"`))
}

func TestSessionCookieIssued(t *testing.T) {
	r := NewRouter(newBareHandler(), nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/count/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookie := responseCookie(w, "sid")
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, 36)
	assert.True(t, cookie.HttpOnly)
}

func TestDisabledAdminKeyDeniesAll(t *testing.T) {
	r := NewRouter(newBareHandler(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("X-API-KEY", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
