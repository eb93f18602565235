package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"title": "required"})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"validation_failed","details":{"title":"required"}}`, rr.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	t.Run("single document", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
		var p payload
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &p, false))
		assert.Equal(t, "a@b.co", p.Email)
	})

	t.Run("trailing data", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a"} {"email":"b"}`))
		var p payload
		assert.Error(t, DecodeJSON(httptest.NewRecorder(), r, &p, false))
	})

	t.Run("empty body allowed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		assert.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &p, true))
	})

	t.Run("empty body rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		assert.Error(t, DecodeJSON(httptest.NewRecorder(), r, &p, false))
	})
}

func TestEchoOperationID(t *testing.T) {
	h := EchoOperationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(OperationIDHeader, "send-quote-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.Equal(t, "send-quote-42", rr.Header().Get(OperationIDHeader))
}
