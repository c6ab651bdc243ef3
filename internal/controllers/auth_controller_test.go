package controllers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

func newAuthServer(t *testing.T) (*http.ServeMux, *memUserRepo) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &memUserRepo{users: []domain.User{{
		ID:        1,
		CompanyID: "acme",
		Username:  "amara",
		Password:  string(hashed),
	}}}
	clock := fixedClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	mux := http.NewServeMux()
	auth := AuthController{UserRepo: users, Clock: clock}
	auth.RegisterRoutes(mux)
	mux.HandleFunc("GET /api/whoami", auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return mux, users
}

func TestLogin_IssuesSessionCookie(t *testing.T) {
	mux, users := newAuthServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/login", "", models.LoginRequest{
		Username: "amara",
		Password: "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == "sessionId" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	// the stored session matches the cookie
	u, err := users.FindById(1)
	require.NoError(t, err)
	assert.Equal(t, sessionCookie.Value, u.SessionID.String)

	// the cookie authenticates follow-up requests
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.AddCookie(sessionCookie)
	out := httptest.NewRecorder()
	mux.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	mux, _ := newAuthServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/login", "", models.LoginRequest{
		Username: "amara",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/login", "", models.LoginRequest{
		Username: "nobody",
		Password: "hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/login", "", models.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_DisabledUserIsRejected(t *testing.T) {
	mux, users := newAuthServer(t)
	users.users[0].Enabled = sql.NullBool{Bool: false, Valid: true}

	rec := doJSON(t, mux, http.MethodPost, "/api/login", "", models.LoginRequest{
		Username: "amara",
		Password: "hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ExpiredSessionFallsThrough(t *testing.T) {
	mux, users := newAuthServer(t)
	users.users[0].SessionID = sql.NullString{String: "stale", Valid: true}
	users.users[0].SessionExpiry = sql.NullTime{Time: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Valid: true}

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sessionId", Value: "stale"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsSession(t *testing.T) {
	mux, users := newAuthServer(t)
	users.users[0].SessionID = sql.NullString{String: "live", Valid: true}
	users.users[0].SessionExpiry = sql.NullTime{Time: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Valid: true}

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sessionId", Value: "live"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.False(t, users.users[0].SessionID.Valid)
}
