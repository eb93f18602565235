package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/audience"
	"github.com/dbuatti/danielebuatti-sub001/internal/config"
	"github.com/dbuatti/danielebuatti-sub001/internal/db"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/dbuatti/danielebuatti-sub001/internal/notify"
	"github.com/dbuatti/danielebuatti-sub001/internal/policy"
	"github.com/dbuatti/danielebuatti-sub001/internal/services"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct{ err error }

func (s stubSender) SendCounting(context.Context, notify.Message) (int, error) { return 1, s.err }

type stubExtractor struct {
	form models.QuoteForm
	err  error
}

func (s stubExtractor) Extract(context.Context, string) (models.QuoteForm, error) { return s.form, s.err }

type stubAudience struct{ existing map[string]bool }

func (s stubAudience) Subscribe(_ context.Context, sub audience.Subscriber) (audience.Outcome, error) {
	sub.Normalize()
	if err := apperr.Validation(sub.Validate()); err != nil {
		return "", err
	}
	if s.existing[sub.Email] {
		return audience.OutcomeAlreadySubscribed, nil
	}
	return audience.OutcomeSubscribed, nil
}

type testApp struct {
	handler http.Handler
	tokens  map[string]string
}

func newTestApp(t *testing.T, extractor stubExtractor) *testApp {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	conn, err := db.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, log)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	_, err = db.EnsureAdmin(conn, "admin@example.com", "Admin", "admin-pass")
	require.NoError(t, err)
	for _, email := range []string{"owner@example.com", "other@example.com"} {
		hash, err := auth.HashPassword("password")
		require.NoError(t, err)
		require.NoError(t, conn.Create(&models.User{Email: email, Password: hash}).Error)
	}

	users := services.NewUserService(conn)
	authn := auth.NewAuthenticator("test-secret", time.Hour, false, users.Principal)
	quotes := services.NewQuoteService(conn, policy.NewGate(), stubSender{}, "https://example.com", log)
	drafts := services.NewDraftService(conn, quotes, log)

	app := &testApp{tokens: map[string]string{}}
	app.handler = NewRouter(RouterConfig{
		Authn:       authn,
		CORSOrigins: []string{"*"},
		Log:         log,
		Auth:        NewAuthHandler(users, authn, log),
		Drafts:      NewDraftHandler(drafts, log),
		Quotes:      NewQuoteHandler(quotes, log),
		Public:      NewPublicHandler(quotes, log),
		Extract:     NewExtractHandler(extractor, log),
		Newsletter:  NewNewsletterHandler(stubAudience{existing: map[string]bool{"fan@example.com": true}}, log),
		Health:      NewHealthHandler(conn, log),
	})
	app.login(t, "owner@example.com", "password")
	app.login(t, "other@example.com", "password")
	app.login(t, "admin@example.com", "admin-pass")
	return app
}

func (a *testApp) login(t *testing.T, email, password string) {
	t.Helper()
	rr := a.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	a.tokens[email] = resp.Token
}

// do sends a JSON request as user (empty for anonymous).
func (a *testApp) do(t *testing.T, user, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[user])
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func weddingPayload(finalize bool) map[string]any {
	return map[string]any{
		"clientName":      "Jane Smith",
		"clientEmail":     "jane@example.com",
		"eventTitle":      "Wedding",
		"eventDate":       "2025-06-01",
		"finalize":        finalize,
		"compulsoryItems": []map[string]any{{"name": "Ceremony", "price": 500, "quantity": 1}},
		"addOns":          []map[string]any{{"name": "Extra song", "price": 50, "quantity": 2}},
	}
}

const owner = "owner@example.com"

func TestSession_TriState(t *testing.T) {
	app := newTestApp(t, stubExtractor{})

	anon := decodeBody[map[string]any](t, app.do(t, "", http.MethodGet, "/api/session", nil))
	assert.Equal(t, string(auth.StateUnauthenticated), anon["state"])
	assert.Nil(t, anon["user"])

	me := decodeBody[map[string]any](t, app.do(t, "admin@example.com", http.MethodGet, "/api/session", nil))
	assert.Equal(t, string(auth.StateAuthenticated), me["state"])
	assert.Equal(t, true, me["user"].(map[string]any)["admin"])
}

func TestLogin_Errors(t *testing.T) {
	app := newTestApp(t, stubExtractor{})
	assert.Equal(t, http.StatusUnprocessableEntity, app.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"email": owner}).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"email": owner, "password": "bad"}).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, "", http.MethodPost, "/api/auth/login", "not an object").Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	app := newTestApp(t, stubExtractor{})
	for _, path := range []string{"/api/drafts", "/api/quotes"} {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, "", http.MethodGet, path, nil).Code, path)
	}
}

func TestOperationIDIsEchoed(t *testing.T) {
	app := newTestApp(t, stubExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpx.OperationIDHeader, "op-123")
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "op-123", rr.Header().Get(httpx.OperationIDHeader))
}

func TestDrafts(t *testing.T) {
	app := newTestApp(t, stubExtractor{})

	rr := app.do(t, owner, http.MethodPost, "/api/drafts", map[string]any{"title": "Wedding Quote", "data": weddingPayload(false)})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	draft := decodeBody[models.Draft](t, rr)
	path := "/api/drafts/" + draft.ID.String()

	assert.Equal(t, http.StatusNotFound, app.do(t, "other@example.com", http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, "other@example.com", http.MethodDelete, path, nil).Code)

	rr = app.do(t, owner, http.MethodPut, path, map[string]any{"title": "Wedding Quote v2", "data": weddingPayload(false)})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Wedding Quote v2", decodeBody[models.Draft](t, rr).Title)

	assert.Equal(t, http.StatusNoContent, app.do(t, owner, http.MethodDelete, path, nil).Code)
	list := decodeBody[[]models.Draft](t, app.do(t, owner, http.MethodGet, "/api/drafts", nil))
	assert.Empty(t, list)
}

func TestDrafts_Promote(t *testing.T) {
	app := newTestApp(t, stubExtractor{})
	draft := decodeBody[models.Draft](t, app.do(t, owner, http.MethodPost, "/api/drafts", map[string]any{"data": weddingPayload(false)}))

	rr := app.do(t, owner, http.MethodPost, "/api/drafts/"+draft.ID.String()+"/promote", map[string]any{"finalize": true})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	q := decodeBody[models.Quote](t, rr)
	assert.Equal(t, models.StatusCreated, q.Status)
	assert.Equal(t, 600.0, q.TotalAmount)
	assert.Equal(t, http.StatusNotFound, app.do(t, owner, http.MethodGet, "/api/drafts/"+draft.ID.String(), nil).Code)
}

func TestQuotes_Lifecycle(t *testing.T) {
	app := newTestApp(t, stubExtractor{})

	rr := app.do(t, owner, http.MethodPost, "/api/quotes", map[string]any{"clientName": "Jane"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "eventTitle")

	rr = app.do(t, owner, http.MethodPost, "/api/quotes", weddingPayload(true))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	q := decodeBody[models.Quote](t, rr)
	path := "/api/quotes/" + q.ID.String()

	assert.Equal(t, http.StatusNotFound, app.do(t, "other@example.com", http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, owner, http.MethodGet, "/api/quotes/nope", nil).Code)

	rr = app.do(t, owner, http.MethodPost, path+"/send", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sent := decodeBody[services.SendResult](t, rr)
	assert.Empty(t, sent.Warning)
	assert.Equal(t, models.StatusSent, sent.Quote.Status)

	assert.Equal(t, http.StatusConflict, app.do(t, owner, http.MethodPut, path, weddingPayload(false)).Code)

	pub := decodeBody[map[string]any](t, app.do(t, "", http.MethodGet, "/api/public/quotes/"+q.Slug, nil))
	assert.Equal(t, true, pub["canRespond"])
	assert.Equal(t, 600.0, pub["total"])
	assert.NotContains(t, pub, "user_id")

	rr = app.do(t, "", http.MethodPost, "/api/public/quotes/"+q.Slug+"/accept", map[string]any{"selectedAddOns": []string{"Nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = app.do(t, "", http.MethodPost, "/api/public/quotes/"+q.Slug+"/accept", map[string]any{"selectedAddOns": []string{"Extra song"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, string(models.StatusAccepted), decodeBody[map[string]any](t, rr)["status"])

	assert.Equal(t, http.StatusConflict, app.do(t, "", http.MethodPost, "/api/public/quotes/"+q.Slug+"/reject", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, owner, http.MethodPost, path+"/reset", nil).Code)

	rr = app.do(t, "admin@example.com", http.MethodPost, path+"/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	reset := decodeBody[models.Quote](t, rr)
	assert.Equal(t, models.StatusCreated, reset.Status)
	assert.Nil(t, reset.AcceptedAt)

	rr = app.do(t, owner, http.MethodPost, path+"/revisions", map[string]string{"versionName": "Second take"})
	require.Equal(t, http.StatusCreated, rr.Code)
	revised := decodeBody[models.Quote](t, rr)
	assert.Len(t, revised.Versions(), 2)

	rr = app.do(t, owner, http.MethodPost, path+"/versions/v1/activate", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, owner, http.MethodPost, path+"/versions/v7/activate", nil).Code)

	deliveries := decodeBody[[]models.EmailDelivery](t, app.do(t, owner, http.MethodGet, path+"/deliveries", nil))
	assert.Len(t, deliveries, 1)

	rr = app.do(t, owner, http.MethodGet, path+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))

	list := decodeBody[[]models.Quote](t, app.do(t, owner, http.MethodGet, "/api/quotes?status=Created", nil))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, app.do(t, owner, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, "", http.MethodGet, "/api/public/quotes/"+q.Slug, nil).Code)
}

func TestPublicPage(t *testing.T) {
	app := newTestApp(t, stubExtractor{})
	draft := decodeBody[models.Quote](t, app.do(t, owner, http.MethodPost, "/api/quotes", weddingPayload(false)))
	assert.Equal(t, http.StatusNotFound, app.do(t, "", http.MethodGet, "/q/"+draft.Slug, nil).Code, "drafts are not public")
	unknownAddOn := map[string]any{"selectedAddOns": []string{"Nope"}}
	assert.Equal(t, http.StatusNotFound, app.do(t, "", http.MethodPost, "/api/public/quotes/"+draft.Slug+"/accept", unknownAddOn).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, "", http.MethodPost, "/api/public/quotes/"+draft.Slug+"/reject", nil).Code)

	q := decodeBody[models.Quote](t, app.do(t, owner, http.MethodPost, "/api/quotes", weddingPayload(true)))
	assert.Equal(t, http.StatusConflict, app.do(t, "", http.MethodPost, "/api/public/quotes/"+q.Slug+"/accept", unknownAddOn).Code, "not sent yet")
	require.Equal(t, http.StatusOK, app.do(t, owner, http.MethodPost, "/api/quotes/"+q.ID.String()+"/send", nil).Code)

	rr := app.do(t, "", http.MethodGet, "/q/"+q.Slug, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Ceremony")

	form := url.Values{"selectedAddOns": {"Extra song"}}
	req := httptest.NewRequest(http.MethodPost, "/api/public/quotes/"+q.Slug+"/accept", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/q/"+q.Slug, rr.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, app.do(t, "", http.MethodGet, "/q/missing", nil).Code)
}

func TestPreviewTotal(t *testing.T) {
	app := newTestApp(t, stubExtractor{})
	body := weddingPayload(false)
	got := decodeBody[map[string]float64](t, app.do(t, owner, http.MethodPost, "/api/quotes/preview-total", body))
	assert.Equal(t, 600.0, got["total"])

	body["discountPercentage"] = 20
	body["depositPercentage"] = 50
	got = decodeBody[map[string]float64](t, app.do(t, owner, http.MethodPost, "/api/quotes/preview-total", body))
	assert.Equal(t, 480.0, got["total"])
	assert.Equal(t, 600.0, got["preDiscountTotal"])
	assert.Equal(t, 240.0, got["deposit"])
}

func TestExtract(t *testing.T) {
	extracted := models.QuoteForm{QuoteHeader: models.QuoteHeader{ClientName: "Jane", EventTitle: "Gala"}}
	app := newTestApp(t, stubExtractor{form: extracted})

	rr := app.do(t, owner, http.MethodPost, "/api/extract", map[string]any{
		"emailContent": "Hi, quote for our gala please",
		"form":         map[string]any{"discountPercentage": 10, "eventDate": "2025-01-01"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Form models.QuoteForm `json:"form"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Jane", resp.Form.ClientName)
	assert.Equal(t, "2025-01-01", resp.Form.EventDate)
	assert.Equal(t, 10.0, resp.Form.DiscountPercentage)

	failing := newTestApp(t, stubExtractor{err: apperr.Adapter("ai_extraction", errors.New("timeout"))})
	rr = failing.do(t, owner, http.MethodPost, "/api/extract", map[string]any{"emailContent": "x"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "ai_extraction_unavailable")
}

func TestNewsletter(t *testing.T) {
	app := newTestApp(t, stubExtractor{})

	got := decodeBody[map[string]string](t, app.do(t, "", http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "new@example.com"}))
	assert.Equal(t, string(audience.OutcomeSubscribed), got["outcome"])

	got = decodeBody[map[string]string](t, app.do(t, "", http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "Fan@example.com"}))
	assert.Equal(t, string(audience.OutcomeAlreadySubscribed), got["outcome"])

	assert.Equal(t, http.StatusUnprocessableEntity, app.do(t, "", http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "nope"}).Code)
}
