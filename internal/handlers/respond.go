// Package handlers exposes the quote back-office over HTTP. Handlers decode the request, call a
// service and map the result through respondError; they hold no business rules.
package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/gate"
	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type base struct {
	log logrus.FieldLogger
}

// respondError maps the error taxonomy onto status codes.
func (b base) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	var aerr *apperr.AdapterError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Violations)
	case errors.Is(err, apperr.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, apperr.ErrUnauthenticated):
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, gate.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, apperr.ErrInvalidTransition):
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.As(err, &aerr):
		b.log.WithError(err).WithFields(logrus.Fields{"service": aerr.Service, "path": r.URL.Path}).Warn("adapter failure")
		httpx.JSONError(w, http.StatusBadGateway, aerr.Service+"_unavailable", aerr.Err.Error())
	default:
		b.log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decode reads the JSON body or answers 400 itself. It reports whether the handler may go on.
func (b base) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := httpx.DecodeJSON(w, r, dst, allowEmpty); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// principal returns the authenticated caller. Routes behind auth.RequireAuth always have one.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
