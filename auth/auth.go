package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
)

const sessionCookieName = "session"

// Principal is the authenticated operator.
type Principal struct {
	UserID uint
	Email  string
	Admin  bool
}

// PrincipalResolver loads the principal for a user id taken from a cookie or token.
// It returns false when the user no longer exists.
type PrincipalResolver func(ctx context.Context, uid uint) (Principal, bool)

// Authenticator signs and verifies session cookies and bearer tokens.
type Authenticator struct {
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	resolve      PrincipalResolver
	now          func() time.Time
}

// NewAuthenticator creates an Authenticator. resolve must not be nil.
func NewAuthenticator(secret string, ttl time.Duration, secureCookie bool, resolve PrincipalResolver) *Authenticator {
	return &Authenticator{
		secret:       []byte(secret),
		ttl:          ttl,
		secureCookie: secureCookie,
		resolve:      resolve,
		now:          time.Now,
	}
}

func (a *Authenticator) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie holding the user id and its expiry.
func (a *Authenticator) CreateSession(w http.ResponseWriter, userID uint) {
	exp := a.now().Add(a.ttl)
	payload := strconv.FormatUint(uint64(userID), 10) + "." + strconv.FormatInt(exp.Unix(), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    payload + "." + a.sign(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// ClearSession deletes the session cookie.
func (a *Authenticator) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, Secure: a.secureCookie, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns the user id.
func (a *Authenticator) ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(a.sign(payload))) {
		return 0, false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || a.now().Unix() > exp {
		return 0, false
	}
	id64, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id64), true
}

// identify returns the user id from the cookie or, failing that, from a bearer token.
func (a *Authenticator) identify(r *http.Request) (uint, bool) {
	if uid, ok := a.ParseSession(r); ok {
		return uid, true
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		if uid, err := a.ParseToken(token); err == nil {
			return uid, true
		}
	}
	return 0, false
}

// Middleware resolves the request session and stores it in the context.
// Every request leaves this middleware either authenticated or unauthenticated.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := Session{State: StateUnauthenticated}
		if uid, ok := a.identify(r); ok {
			if p, found := a.resolve(r.Context(), uid); found {
				s = Session{State: StateAuthenticated, Principal: p}
			} else {
				// Signed for a user that is gone.
				a.ClearSession(w)
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireAuth returns 401 JSON (or redirects browsers to /) unless the session is authenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).Authenticated() {
			accept := r.Header.Get("Accept")
			if strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json") {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
