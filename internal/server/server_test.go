package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grachmannico95/bankline/internal/config"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/realtime"
	"github.com/grachmannico95/bankline/internal/storage"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type fixture struct {
	srv   *Server
	store *storage.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := storage.NewMemoryStore(storage.WithHashCost(bcrypt.MinCost))
	require.NoError(t, store.Seed(context.Background()))

	log := logger.NewNop()
	hub := realtime.NewHub(log)
	t.Cleanup(hub.Close)

	cfg := &config.Config{Server: config.ServerConfig{Port: "8080", Host: "0.0.0.0"}}
	return fixture{
		srv:   New(cfg, log, store, NewHandlers(store, store, hub, log)),
		store: store,
	}
}

func (f fixture) token(t *testing.T, email string) string {
	t.Helper()
	user, err := f.store.Login(context.Background(), email, storage.DemoPassword)
	require.NoError(t, err)
	return user.Token
}

func (f fixture) do(method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorEnvelope {
	t.Helper()
	var env domain.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["streamClients"])
}

func TestRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{"/api/account/me", "/api/data/versions", "/api/no-such-route"} {
		rec := f.do(http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, domain.CodeTokenExpired, envelope(t, rec).ErrorCode, target)
	}
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)
	customer := f.token(t, storage.DemoCustomerEmail)
	admin := f.token(t, storage.DemoAdminEmail)

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"customer is forbidden", customer, http.StatusForbidden},
		{"admin is allowed", admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, target := range []string{"/api/admin/users", "/api/admin/stats", "/api/analytics/overview", "/api/audit/logs"} {
				rec := f.do(http.MethodGet, target, tt.token, "")
				assert.Equal(t, tt.wantCode, rec.Code, target)
			}
		})
	}
}

func TestLoginAndRegister(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"ana@bankline.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.CodeInvalidCredentials, envelope(t, rec).ErrorCode)

	rec = f.do(http.MethodPost, "/api/auth/register", "", `{"email":"cam@bankline.test","password":"secret123","name":"Cam"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.NotEmpty(t, user.Token)
	assert.Equal(t, domain.RoleCustomer, user.Role)

	rec = f.do(http.MethodPost, "/api/auth/register", "", `{"email":"CAM@bankline.test","password":"x","name":"Cam"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.CodeDuplicateEmail, envelope(t, rec).ErrorCode)

	rec = f.do(http.MethodPost, "/api/auth/register", "", `{"email":"dev@bankline.test","password":"x","name":"Dev","role":"DEVELOPER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.CodeInvalidAdminCode, envelope(t, rec).ErrorCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, storage.DemoCustomerEmail)

	rec := f.do(http.MethodPost, "/api/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/account/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVersions(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, storage.DemoCustomerEmail)

	check := func(query string) domain.VersionCheck {
		rec := f.do(http.MethodGet, "/api/data/versions"+query, token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var vc domain.VersionCheck
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vc))
		return vc
	}

	vc := check("?transactionsV=0&accountsV=0")
	assert.False(t, vc.HasChanges)
	assert.Len(t, vc.Versions, 2)

	rec := f.do(http.MethodPost, "/api/transaction/transfer", token, `{"toAccount":"ACC1002","amount":"25"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	vc = check("?transactionsV=0&loansV=0")
	assert.True(t, vc.HasChanges)
	assert.True(t, vc.Changed[domain.CategoryTransactions])
	assert.False(t, vc.Changed[domain.CategoryLoans])
	assert.Equal(t, int64(1), vc.Versions[domain.CategoryTransactions])

	vc = check("?transactionsV=1")
	assert.False(t, vc.HasChanges)

	vc = check("")
	assert.True(t, vc.HasChanges)
	assert.Len(t, vc.Versions, len(domain.AllCategories))

	rec = f.do(http.MethodGet, "/api/data/versions?transactionsV=abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupportReplyOwnership(t *testing.T) {
	f := newFixture(t)
	ana := f.token(t, storage.DemoCustomerEmail)
	ben := f.token(t, storage.DemoRecipientEmail)
	admin := f.token(t, storage.DemoAdminEmail)

	rec := f.do(http.MethodPost, "/api/support/ticket", ana, `{"subject":"Card","message":"Card declined"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var ticket domain.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))

	target := "/api/support/ticket/" + ticket.ID + "/reply"

	rec = f.do(http.MethodPost, target, ben, `{"message":"me too"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, target, admin, `{"message":"looking into it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	assert.Equal(t, domain.TicketStatusAnswered, ticket.Status)
}
