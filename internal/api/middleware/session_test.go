package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/nazareth-shop/internal/auth"
)

// ============================================
// Cart Session Tests
// ============================================

func TestCartSession_IssuesCookie(t *testing.T) {
	var seen string
	handler := CartSession(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CartSessionID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CartCookieName, cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestCartSession_ReusesCookie(t *testing.T) {
	existing := uuid.NewString()

	var seen string
	handler := CartSession(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CartSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: auth.CartCookieName, Value: existing})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, existing, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestCartSession_ReplacesMalformedCookie(t *testing.T) {
	var seen string
	handler := CartSession(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CartSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: auth.CartCookieName, Value: "../../etc"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc", seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

// ============================================
// Logging / Recovery Tests
// ============================================

func TestLogging_RecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	Logging(zap.New(core))(Metrics(mux)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/lambie-plush", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /api/products/{id}", fields["route"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&buf), zap.ErrorLevel))

	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "boom")
}
