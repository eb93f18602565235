package auth

import "context"

// SessionState is the explicit tri-state of the current request's session.
type SessionState string

const (
	// StateLoading is the zero value: the session has not been resolved yet.
	StateLoading         SessionState = "loading"
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
)

// Session is passed through the request context by Middleware.
type Session struct {
	State     SessionState
	Principal Principal
}

// Authenticated reports whether a principal is attached.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.Principal.UserID != 0
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFromContext returns the session, or a loading session if none was resolved.
func SessionFromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Session{State: StateLoading}
}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	s := SessionFromContext(ctx)
	if !s.Authenticated() {
		return Principal{}, false
	}
	return s.Principal, true
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}
