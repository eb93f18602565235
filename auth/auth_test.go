package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthenticator(known map[uint]Principal) *Authenticator {
	return NewAuthenticator("test-secret", time.Hour, false, func(_ context.Context, uid uint) (Principal, bool) {
		p, ok := known[uid]
		return p, ok
	})
}

func sessionProbe(got *Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionFromContext_DefaultsToLoading(t *testing.T) {
	s := SessionFromContext(context.Background())
	assert.Equal(t, StateLoading, s.State)
	assert.False(t, s.Authenticated())
}

func TestCookieSession_RoundTrip(t *testing.T) {
	a := testAuthenticator(map[uint]Principal{42: {UserID: 42, Email: "owner@example.com"}})

	rr := httptest.NewRecorder()
	a.CreateSession(rr, 42)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	uid, ok := a.ParseSession(req)
	require.True(t, ok)
	assert.Equal(t, uint(42), uid)

	var got Session
	a.Middleware(sessionProbe(&got)).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, StateAuthenticated, got.State)
	assert.Equal(t, "owner@example.com", got.Principal.Email)
}

func TestCookieSession_Tampered(t *testing.T) {
	a := testAuthenticator(nil)
	rr := httptest.NewRecorder()
	a.CreateSession(rr, 1)
	c := rr.Result().Cookies()[0]
	c.Value = "2" + c.Value[1:]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	_, ok := a.ParseSession(req)
	assert.False(t, ok)
}

func TestCookieSession_Expired(t *testing.T) {
	a := testAuthenticator(nil)
	rr := httptest.NewRecorder()
	a.CreateSession(rr, 1)
	c := rr.Result().Cookies()[0]

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	_, ok := a.ParseSession(req)
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	a := testAuthenticator(map[uint]Principal{7: {UserID: 7, Admin: true}})
	token, err := a.IssueToken(7)
	require.NoError(t, err)

	uid, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), uid)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	var got Session
	a.Middleware(sessionProbe(&got)).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, got.Authenticated())
	assert.True(t, got.Principal.Admin)

	other := NewAuthenticator("other-secret", time.Hour, false, nil)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestMiddleware_UnknownUserIsUnauthenticated(t *testing.T) {
	a := testAuthenticator(map[uint]Principal{})
	rr := httptest.NewRecorder()
	a.CreateSession(rr, 99)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rr.Result().Cookies()[0])
	var got Session
	out := httptest.NewRecorder()
	a.Middleware(sessionProbe(&got)).ServeHTTP(out, req)

	assert.Equal(t, StateUnauthenticated, got.State)
	require.NotEmpty(t, out.Result().Cookies())
	assert.Empty(t, out.Result().Cookies()[0].Value, "stale cookie is cleared")
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("json client gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
		req.Header.Set("Accept", "application/json")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("browser is redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
		req.Header.Set("Accept", "text/html")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
		req = req.WithContext(WithSession(req.Context(), Session{State: StateAuthenticated, Principal: Principal{UserID: 1}}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPassword("s3cret!", h))
	assert.False(t, CheckPassword("wrong", h))
}
