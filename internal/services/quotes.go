// Package services holds the quote and draft operations behind the HTTP handlers. Every write
// runs in a transaction and every read is scoped to the calling principal.
package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/gate"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/dbuatti/danielebuatti-sub001/internal/notify"
	"github.com/dbuatti/danielebuatti-sub001/view"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DeliverySender sends one email and reports how many attempts it took.
type DeliverySender interface {
	SendCounting(ctx context.Context, msg notify.Message) (int, error)
}

// SendResult is the outcome of sending a quote. The quote is Sent even when Warning is set.
type SendResult struct {
	Quote    *models.Quote         `json:"quote"`
	Delivery *models.EmailDelivery `json:"delivery"`
	Warning  string                `json:"warning,omitempty"`
}

type QuoteService struct {
	db        *gorm.DB
	gate      *gate.Gate[auth.Principal]
	sender    DeliverySender
	publicURL string
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewQuoteService(db *gorm.DB, g *gate.Gate[auth.Principal], sender DeliverySender, publicURL string, log logrus.FieldLogger) *QuoteService {
	return &QuoteService{
		db:        db,
		gate:      g,
		sender:    sender,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
		now:       time.Now,
	}
}

// notFound converts gorm's missing-row error into the shared sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(apperr.ErrNotFound, what)
	}
	return errors.Wrapf(err, "load %s", what)
}

// owned restricts a query to the principal's quotes. Admins see every quote.
func owned(tx *gorm.DB, p auth.Principal) *gorm.DB {
	if p.Admin {
		return tx
	}
	return tx.Where("user_id = ?", p.UserID)
}

func (s *QuoteService) authorize(ctx context.Context, p auth.Principal, action gate.Action, q *models.Quote) error {
	if err := s.gate.Authorize(ctx, p, action, "quote", q); err != nil {
		return errors.Wrapf(apperr.ErrForbidden, "%s quote %s", action, q.ID)
	}
	return nil
}

// load fetches one quote the principal may see. Malformed ids are reported as not found.
func (s *QuoteService) load(tx *gorm.DB, p auth.Principal, id string) (*models.Quote, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrNotFound, "quote")
	}
	var q models.Quote
	if err := owned(tx, p).Where("id = ?", uid).First(&q).Error; err != nil {
		return nil, notFound(err, "quote")
	}
	return &q, nil
}

// mutate loads, authorizes, changes and saves a quote in one transaction.
func (s *QuoteService) mutate(ctx context.Context, p auth.Principal, id string, action gate.Action, fn func(q *models.Quote) error) (*models.Quote, error) {
	var out *models.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.load(tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, p, action, q); err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
		if err := tx.Save(q).Error; err != nil {
			return errors.Wrap(err, "save quote")
		}
		out = q
		return nil
	})
	return out, err
}

// mutateBySlug is the public counterpart of mutate: the slug is the only credential.
func (s *QuoteService) mutateBySlug(ctx context.Context, quoteSlug string, fn func(q *models.Quote) error) (*models.Quote, error) {
	var out *models.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.Where("slug = ?", quoteSlug).First(&q).Error; err != nil {
			return notFound(err, "quote")
		}
		if q.Status == models.StatusDraft {
			return errors.Wrap(apperr.ErrNotFound, "quote")
		}
		if err := fn(&q); err != nil {
			return err
		}
		if err := tx.Save(&q).Error; err != nil {
			return errors.Wrap(err, "save quote")
		}
		out = &q
		return nil
	})
	return out, err
}

// uniqueSlug derives a slug from the event title, client name and date, adding -2, -3, ...
// until it is free.
func uniqueSlug(tx *gorm.DB, h models.QuoteHeader) (string, error) {
	base := slug.Make(strings.Join([]string{h.EventTitle, h.ClientName, h.EventDate}, " "))
	if base == "" {
		base = "quote"
	}
	candidate := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Model(&models.Quote{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", errors.Wrap(err, "check slug")
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// create validates form and inserts a new quote with one active version.
func (s *QuoteService) create(tx *gorm.DB, p auth.Principal, form models.QuoteForm, finalize bool) (*models.Quote, error) {
	form.Normalize()
	if err := apperr.Validation(form.Validate()); err != nil {
		return nil, err
	}
	status := models.StatusDraft
	if finalize {
		status = models.StatusCreated
	}
	q, err := models.NewQuote(p.UserID, form, status, s.now())
	if err != nil {
		return nil, err
	}
	if q.Slug, err = uniqueSlug(tx, q.QuoteHeader); err != nil {
		return nil, err
	}
	if err := tx.Create(q).Error; err != nil {
		return nil, errors.Wrap(err, "create quote")
	}
	return q, nil
}

// Create stores a new quote. With finalize it starts as Created, otherwise as Draft.
func (s *QuoteService) Create(ctx context.Context, p auth.Principal, form models.QuoteForm, finalize bool) (*models.Quote, error) {
	var out *models.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.create(tx, p, form, finalize)
		out = q
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"quote_id": out.ID, "slug": out.Slug, "status": out.Status}).Info("quote created")
	return out, nil
}

// List returns the principal's quotes, most recently updated first, optionally filtered by status.
func (s *QuoteService) List(ctx context.Context, p auth.Principal, status string) ([]models.Quote, error) {
	q := owned(s.db.WithContext(ctx), p)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var quotes []models.Quote
	if err := q.Order("updated_at DESC").Find(&quotes).Error; err != nil {
		return nil, errors.Wrap(err, "list quotes")
	}
	return quotes, nil
}

func (s *QuoteService) Get(ctx context.Context, p auth.Principal, id string) (*models.Quote, error) {
	q, err := s.load(s.db.WithContext(ctx), p, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, gate.ActionView, q); err != nil {
		return nil, err
	}
	return q, nil
}

// GetBySlug is the public read used by the client-facing page.
func (s *QuoteService) GetBySlug(ctx context.Context, quoteSlug string) (*models.Quote, error) {
	var q models.Quote
	if err := s.db.WithContext(ctx).Where("slug = ?", quoteSlug).First(&q).Error; err != nil {
		return nil, notFound(err, "quote")
	}
	return &q, nil
}

// Update replaces the header and the active version content. Locked versions are rejected.
func (s *QuoteService) Update(ctx context.Context, p auth.Principal, id string, form models.QuoteForm) (*models.Quote, error) {
	form.Normalize()
	if err := apperr.Validation(form.Validate()); err != nil {
		return nil, err
	}
	return s.mutate(ctx, p, id, gate.ActionUpdate, func(q *models.Quote) error {
		return q.UpdateForm(form)
	})
}

// Delete removes the quote and its delivery history.
func (s *QuoteService) Delete(ctx context.Context, p auth.Principal, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.load(tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, p, gate.ActionDelete, q); err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", q.ID).Delete(&models.EmailDelivery{}).Error; err != nil {
			return errors.Wrap(err, "delete deliveries")
		}
		if err := tx.Delete(q).Error; err != nil {
			return errors.Wrap(err, "delete quote")
		}
		return nil
	})
}

// Finalize moves a Draft quote to Created.
func (s *QuoteService) Finalize(ctx context.Context, p auth.Principal, id string) (*models.Quote, error) {
	return s.mutate(ctx, p, id, gate.ActionUpdate, func(q *models.Quote) error {
		return q.Finalize(s.now())
	})
}

// IssueRevision appends a new active version copied from the current one.
func (s *QuoteService) IssueRevision(ctx context.Context, p auth.Principal, id, name string) (*models.Quote, error) {
	return s.mutate(ctx, p, id, gate.ActionRevise, func(q *models.Quote) error {
		_, err := q.IssueRevision(name, s.now())
		return err
	})
}

// ActivateVersion switches the active version.
func (s *QuoteService) ActivateVersion(ctx context.Context, p auth.Principal, id, versionID string) (*models.Quote, error) {
	return s.mutate(ctx, p, id, gate.ActionRevise, func(q *models.Quote) error {
		return q.ActivateVersion(versionID)
	})
}

// Reset returns an accepted or rejected quote to Created. Admin only.
func (s *QuoteService) Reset(ctx context.Context, p auth.Principal, id string) (*models.Quote, error) {
	q, err := s.mutate(ctx, p, id, gate.ActionReset, func(q *models.Quote) error {
		return q.Reset(s.now())
	})
	if err == nil {
		s.log.WithFields(logrus.Fields{"quote_id": q.ID, "admin_id": p.UserID}).Info("quote reset")
	}
	return q, err
}

// Accept records the client's acceptance through the public slug.
func (s *QuoteService) Accept(ctx context.Context, quoteSlug string, selectedAddOns []string) (*models.Quote, error) {
	q, err := s.mutateBySlug(ctx, quoteSlug, func(q *models.Quote) error {
		return q.Accept(s.now(), selectedAddOns)
	})
	if err == nil {
		s.log.WithFields(logrus.Fields{"quote_id": q.ID, "add_ons": len(selectedAddOns)}).Info("quote accepted")
	}
	return q, err
}

// Reject records the client's rejection through the public slug.
func (s *QuoteService) Reject(ctx context.Context, quoteSlug string) (*models.Quote, error) {
	q, err := s.mutateBySlug(ctx, quoteSlug, func(q *models.Quote) error {
		return q.Reject(s.now())
	})
	if err == nil {
		s.log.WithField("quote_id", q.ID).Info("quote rejected")
	}
	return q, err
}

// PublicLink is the client-facing URL of a quote.
func (s *QuoteService) PublicLink(q *models.Quote) string {
	return s.publicURL + "/q/" + q.Slug
}

// Send marks the active version Sent, then emails the client. The Sent status is committed
// before the provider is called; a delivery failure is reported in SendResult.Warning and
// recorded on the EmailDelivery, never as an error. A quote that is already Sent is re-sent
// without a status change.
func (s *QuoteService) Send(ctx context.Context, p auth.Principal, id string) (*SendResult, error) {
	q, err := s.mutate(ctx, p, id, gate.ActionSend, func(q *models.Quote) error {
		if err := apperr.Validation(q.QuoteHeader.Validate()); err != nil {
			return err
		}
		if q.Status == models.StatusSent {
			return nil
		}
		return q.MarkSent(s.now())
	})
	if err != nil {
		return nil, err
	}
	active, err := q.ActiveVersion()
	if err != nil {
		return nil, err
	}

	msg := notify.Message{
		To:      q.ClientEmail,
		Subject: fmt.Sprintf("Your %s for %s", strings.ToLower(string(q.InvoiceType)), q.EventTitle),
	}
	var body bytes.Buffer
	if err := view.Execute(&body, "quote_email.html", view.QuoteEmail{Header: q.QuoteHeader, Version: active, Link: s.PublicLink(q)}); err != nil {
		return nil, errors.Wrap(err, "render quote email")
	}
	msg.HTML = body.String()

	delivery := &models.EmailDelivery{
		QuoteID:   q.ID,
		VersionID: active.VersionID,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Status:    models.DeliveryPending,
	}
	conn := s.db.WithContext(ctx)
	if err := conn.Create(delivery).Error; err != nil {
		return nil, errors.Wrap(err, "record delivery")
	}

	log := s.log.WithFields(logrus.Fields{"quote_id": q.ID, "recipient": msg.To, "version_id": active.VersionID})
	attempts, sendErr := s.sender.SendCounting(ctx, msg)
	delivery.Attempts = attempts
	result := &SendResult{Quote: q, Delivery: delivery}
	if sendErr != nil {
		delivery.MarkFailed(sendErr.Error())
		result.Warning = "Quote marked as sent, but the email could not be delivered: " + sendErr.Error()
		log.WithError(sendErr).WithField("attempts", attempts).Warn("quote email delivery failed")
	} else {
		delivery.MarkSent(s.now())
		log.WithField("attempts", attempts).Info("quote email delivered")
	}
	q.DeliveryConfirmed = sendErr == nil

	// The quote is already Sent; bookkeeping failures below are logged, not returned.
	if err := conn.Save(delivery).Error; err != nil {
		log.WithError(err).Error("update delivery record")
	}
	if err := conn.Model(&models.Quote{}).Where("id = ?", q.ID).UpdateColumn("delivery_confirmed", q.DeliveryConfirmed).Error; err != nil {
		log.WithError(err).Error("update delivery flag")
	}
	return result, nil
}

// Deliveries lists the email attempts recorded for a quote, newest first.
func (s *QuoteService) Deliveries(ctx context.Context, p auth.Principal, id string) ([]models.EmailDelivery, error) {
	q, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	var out []models.EmailDelivery
	if err := s.db.WithContext(ctx).Where("quote_id = ?", q.ID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list deliveries")
	}
	return out, nil
}
