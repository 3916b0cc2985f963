package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/storage"
	"github.com/grachmannico95/bankline/pkg/logger"
)

func newStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore(storage.WithHashCost(bcrypt.MinCost))
	require.NoError(t, store.Seed(context.Background()))
	return store
}

func tokenFor(t *testing.T, store *storage.MemoryStore, email string) string {
	t.Helper()
	user, err := store.Login(context.Background(), email, storage.DemoPassword)
	require.NoError(t, err)
	return user.Token
}

func do(e *echo.Echo, method, target, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorEnvelope {
	t.Helper()
	var env domain.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAuth(t *testing.T) {
	store := newStore(t)
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, AccountFrom(c).Email)
	}, Auth(store))

	token := tokenFor(t, store, storage.DemoCustomerEmail)

	tests := []struct {
		name     string
		target   string
		token    string
		wantCode int
	}{
		{"bearer header", "/me", token, http.StatusOK},
		{"query token", "/me?token=" + token, "", http.StatusOK},
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"unknown token", "/me", "not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.target, tt.token, "", nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, storage.DemoCustomerEmail, rec.Body.String())
			} else {
				assert.Equal(t, domain.CodeTokenExpired, decodeEnvelope(t, rec).ErrorCode)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	store := newStore(t)
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Auth(store), RequireRole(domain.RoleAdmin))

	rec := do(e, http.MethodGet, "/admin", tokenFor(t, store, storage.DemoAdminEmail), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/admin", tokenFor(t, store, storage.DemoCustomerEmail), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.CodeForbidden, decodeEnvelope(t, rec).ErrorCode)
}

func newIdempotentEcho(t *testing.T, store *storage.MemoryStore, hits *int32, status int) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.POST("/pay", func(c echo.Context) error {
		n := atomic.AddInt32(hits, 1)
		return c.JSON(status, map[string]int32{"attempt": n})
	}, Auth(store), Idempotency(store, logger.NewNop()))
	return e
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newStore(t)
	var hits int32
	e := newIdempotentEcho(t, store, &hits, http.StatusCreated)
	token := tokenFor(t, store, storage.DemoCustomerEmail)
	key := map[string]string{HeaderIdempotencyKey: "k-1"}

	first := do(e, http.MethodPost, "/pay", token, `{"amount":"10"}`, key)
	second := do(e, http.MethodPost, "/pay", token, `{"amount":"10"}`, key)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestIdempotency_ConflictOnDifferentBody(t *testing.T) {
	store := newStore(t)
	var hits int32
	e := newIdempotentEcho(t, store, &hits, http.StatusCreated)
	token := tokenFor(t, store, storage.DemoCustomerEmail)
	key := map[string]string{HeaderIdempotencyKey: "k-2"}

	do(e, http.MethodPost, "/pay", token, `{"amount":"10"}`, key)
	rec := do(e, http.MethodPost, "/pay", token, `{"amount":"99"}`, key)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.CodeIdempotencyConflict, decodeEnvelope(t, rec).ErrorCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestIdempotency_ConflictWhilePending(t *testing.T) {
	store := newStore(t)
	var hits int32
	e := newIdempotentEcho(t, store, &hits, http.StatusCreated)
	token := tokenFor(t, store, storage.DemoCustomerEmail)
	acc, err := store.AccountByToken(context.Background(), token)
	require.NoError(t, err)

	body := `{"amount":"10"}`
	_, fresh, err := store.BeginIdempotent(context.Background(), acc.ID+":k-3", fingerprint(http.MethodPost, "/pay", []byte(body)))
	require.NoError(t, err)
	require.True(t, fresh)

	rec := do(e, http.MethodPost, "/pay", token, body, map[string]string{HeaderIdempotencyKey: "k-3"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := newStore(t)
	var hits int32
	e := newIdempotentEcho(t, store, &hits, http.StatusInternalServerError)
	token := tokenFor(t, store, storage.DemoCustomerEmail)
	key := map[string]string{HeaderIdempotencyKey: "k-4"}

	do(e, http.MethodPost, "/pay", token, `{}`, key)
	rec := do(e, http.MethodPost, "/pay", token, `{}`, key)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestIdempotency_KeysAreScopedPerAccount(t *testing.T) {
	store := newStore(t)
	var hits int32
	e := newIdempotentEcho(t, store, &hits, http.StatusCreated)
	key := map[string]string{HeaderIdempotencyKey: "shared"}

	do(e, http.MethodPost, "/pay", tokenFor(t, store, storage.DemoCustomerEmail), `{}`, key)
	do(e, http.MethodPost, "/pay", tokenFor(t, store, storage.DemoRecipientEmail), `{}`, key)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	store := newStore(t)
	var hits int32
	e := newIdempotentEcho(t, store, &hits, http.StatusCreated)
	token := tokenFor(t, store, storage.DemoCustomerEmail)

	do(e, http.MethodPost, "/pay", token, `{}`, nil)
	do(e, http.MethodPost, "/pay", token, `{}`, nil)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = logger.GetTraceID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}, RequestID())

	rec := do(e, http.MethodGet, "/", "", "", map[string]string{HeaderTraceID: "trace-123"})
	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", rec.Header().Get(HeaderTraceID))

	rec = do(e, http.MethodGet, "/", "", "", nil)
	assert.NotEmpty(t, rec.Header().Get(HeaderTraceID))
}
