package main

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/internal/audience"
	"github.com/dbuatti/danielebuatti-sub001/internal/config"
	"github.com/dbuatti/danielebuatti-sub001/internal/extract"
	"github.com/dbuatti/danielebuatti-sub001/internal/handlers"
	"github.com/dbuatti/danielebuatti-sub001/internal/notify"
	"github.com/dbuatti/danielebuatti-sub001/internal/policy"
	"github.com/dbuatti/danielebuatti-sub001/internal/services"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewApp builds the services, the adapters and the router.
func NewApp(cfg *config.Config, conn *gorm.DB, log logrus.FieldLogger) http.Handler {
	users := services.NewUserService(conn)
	authn := auth.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.SessionTTL, !cfg.App.Dev, users.Principal)

	mailer := notify.NewRetryingSender(
		notify.NewHTTPSender(cfg.Mail.Endpoint, cfg.Mail.APIKey, cfg.Mail.Timeout),
		cfg.Mail.Retries,
		cfg.Mail.RetryBackoff,
		log.WithField("adapter", "email"),
	)
	quotes := services.NewQuoteService(conn, policy.NewGate(), mailer, cfg.Server.PublicURL, log.WithField("service", "quotes"))
	drafts := services.NewDraftService(conn, quotes, log.WithField("service", "drafts"))

	extractor := extract.NewClient(cfg.Extract.Endpoint, cfg.Extract.APIKey, cfg.Extract.Timeout)
	subscriber := audience.NewClient(cfg.Audience.Endpoint, cfg.Audience.APIKey, cfg.Audience.Timeout)

	return handlers.NewRouter(handlers.RouterConfig{
		Authn:       authn,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
		Auth:        handlers.NewAuthHandler(users, authn, log),
		Drafts:      handlers.NewDraftHandler(drafts, log),
		Quotes:      handlers.NewQuoteHandler(quotes, log),
		Public:      handlers.NewPublicHandler(quotes, log),
		Extract:     handlers.NewExtractHandler(extractor, log),
		Newsletter:  handlers.NewNewsletterHandler(subscriber, log),
		Health:      handlers.NewHealthHandler(conn, log),
	})
}
