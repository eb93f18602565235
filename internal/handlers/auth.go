package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/services"
	"github.com/dbuatti/danielebuatti-sub001/validation"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	base
	users *services.UserService
	authn *auth.Authenticator
}

func NewAuthHandler(users *services.UserService, authn *auth.Authenticator, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{base: base{log: log}, users: users, authn: authn}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

type sessionResponse struct {
	State auth.SessionState `json:"state"`
	User  *sessionUser      `json:"user,omitempty"`
	Token string            `json:"token,omitempty"`
}

// Login checks credentials, sets the session cookie and also returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	v := make(validation.Violations)
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if err := apperr.Validation(v); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.log.WithField("email", req.Email).Info("failed login")
		h.respondError(w, r, err)
		return
	}
	token, err := h.authn.IssueToken(user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.authn.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, sessionResponse{
		State: auth.StateAuthenticated,
		User:  &sessionUser{ID: user.ID, Email: user.Email, Admin: user.IsAdmin},
		Token: token,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authn.ClearSession(w)
	httpx.JSON(w, http.StatusOK, sessionResponse{State: auth.StateUnauthenticated})
}

// Session reports the tri-state session of the caller.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := auth.SessionFromContext(r.Context())
	resp := sessionResponse{State: s.State}
	if s.Authenticated() {
		resp.User = &sessionUser{ID: s.Principal.UserID, Email: s.Principal.Email, Admin: s.Principal.Admin}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
