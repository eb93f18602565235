package handlers

import (
	"net/http"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// RouterConfig holds the configured handlers and middleware of the application.
type RouterConfig struct {
	Authn       *auth.Authenticator
	CORSOrigins []string
	Log         logrus.FieldLogger

	Auth       *AuthHandler
	Drafts     *DraftHandler
	Quotes     *QuoteHandler
	Public     *PublicHandler
	Extract    *ExtractHandler
	Newsletter *NewsletterHandler
	Health     *HealthHandler
}

// NewRouter wires every route. Public routes accept cross-origin calls from the marketing
// site; everything under the admin group needs an authenticated session.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Log))
	r.Use(httpx.EchoOperationID)
	r.Use(cfg.Authn.Middleware)

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/q/{slug}", cfg.Public.Page)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.OperationIDHeader},
			ExposedHeaders: []string{httpx.OperationIDHeader},
			MaxAge:         300,
		}))
		r.Get("/api/public/quotes/{slug}", cfg.Public.Get)
		r.Post("/api/public/quotes/{slug}/accept", cfg.Public.Accept)
		r.Post("/api/public/quotes/{slug}/reject", cfg.Public.Reject)
		r.Post("/api/newsletter/subscribe", cfg.Newsletter.Subscribe)
		// Preflight requests only reach the cors middleware through a matching route.
		for _, p := range []string{
			"/api/public/quotes/{slug}",
			"/api/public/quotes/{slug}/accept",
			"/api/public/quotes/{slug}/reject",
			"/api/newsletter/subscribe",
		} {
			r.Options(p, func(w http.ResponseWriter, r *http.Request) {})
		}
	})

	r.Post("/api/auth/login", cfg.Auth.Login)
	r.Post("/api/auth/logout", cfg.Auth.Logout)
	r.Get("/api/session", cfg.Auth.Session)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Route("/api/drafts", func(r chi.Router) {
			r.Get("/", cfg.Drafts.List)
			r.Post("/", cfg.Drafts.Create)
			r.Get("/{id}", cfg.Drafts.Get)
			r.Put("/{id}", cfg.Drafts.Update)
			r.Delete("/{id}", cfg.Drafts.Delete)
			r.Post("/{id}/promote", cfg.Drafts.Promote)
		})

		r.Route("/api/quotes", func(r chi.Router) {
			r.Get("/", cfg.Quotes.List)
			r.Post("/", cfg.Quotes.Create)
			r.Post("/preview-total", cfg.Quotes.PreviewTotal)
			r.Get("/{id}", cfg.Quotes.Get)
			r.Put("/{id}", cfg.Quotes.Update)
			r.Delete("/{id}", cfg.Quotes.Delete)
			r.Post("/{id}/finalize", cfg.Quotes.Finalize)
			r.Post("/{id}/send", cfg.Quotes.Send)
			r.Post("/{id}/revisions", cfg.Quotes.Revise)
			r.Post("/{id}/versions/{versionId}/activate", cfg.Quotes.Activate)
			r.Post("/{id}/reset", cfg.Quotes.Reset)
			r.Get("/{id}/deliveries", cfg.Quotes.Deliveries)
			r.Get("/{id}/pdf", cfg.Quotes.PDF)
		})

		r.Post("/api/extract", cfg.Extract.Extract)
	})
	return r
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
			}).Info("request")
		})
	}
}
