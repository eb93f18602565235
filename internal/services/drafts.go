package services

import (
	"context"
	"strings"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/gate"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DraftService stores quote builder drafts. Drafts are private to their owner: a draft of another
// user is reported as not found, for admins too.
type DraftService struct {
	db     *gorm.DB
	gate   *gate.Gate[auth.Principal]
	quotes *QuoteService
	log    logrus.FieldLogger
}

func NewDraftService(db *gorm.DB, quotes *QuoteService, log logrus.FieldLogger) *DraftService {
	return &DraftService{db: db, gate: quotes.gate, quotes: quotes, log: log}
}

// load fetches a draft and checks it against the draft policy. A draft the user may not
// touch is reported as not found.
func (s *DraftService) load(ctx context.Context, tx *gorm.DB, userID uint, id string, action gate.Action) (*models.Draft, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrNotFound, "draft")
	}
	var d models.Draft
	if err := tx.Where("id = ?", uid).First(&d).Error; err != nil {
		return nil, notFound(err, "draft")
	}
	if err := s.gate.Authorize(ctx, auth.Principal{UserID: userID}, action, "draft", &d); err != nil {
		return nil, errors.Wrapf(apperr.ErrNotFound, "%s draft %s", action, d.ID)
	}
	return &d, nil
}

// List returns the user's drafts, most recently updated first.
func (s *DraftService) List(ctx context.Context, userID uint) ([]models.Draft, error) {
	var drafts []models.Draft
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&drafts).Error
	if err != nil {
		return nil, errors.Wrap(err, "list drafts")
	}
	return drafts, nil
}

func (s *DraftService) Get(ctx context.Context, userID uint, id string) (*models.Draft, error) {
	return s.load(ctx, s.db.WithContext(ctx), userID, id, gate.ActionView)
}

// Save creates a draft when id is empty, otherwise overwrites the user's draft with that id.
// An update with an empty title keeps the stored one.
// Drafts are scratch space and are not validated; Promote validates.
func (s *DraftService) Save(ctx context.Context, userID uint, id, title string, form models.QuoteForm) (*models.Draft, error) {
	form.Normalize()
	var out *models.Draft
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d := &models.Draft{UserID: userID}
		if id != "" {
			existing, err := s.load(ctx, tx, userID, id, gate.ActionUpdate)
			if err != nil {
				return err
			}
			d = existing
		}
		if t := strings.TrimSpace(title); t != "" || id == "" {
			d.Title = t
		}
		d.SetForm(form)
		d.DefaultTitle()
		if err := tx.Save(d).Error; err != nil {
			return errors.Wrap(err, "save draft")
		}
		out = d
		return nil
	})
	return out, err
}

// Delete removes the user's draft. Deleting a missing or foreign draft is NotFound.
func (s *DraftService) Delete(ctx context.Context, userID uint, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.load(ctx, tx, userID, id, gate.ActionDelete)
		if err != nil {
			return err
		}
		if err := tx.Delete(d).Error; err != nil {
			return errors.Wrap(err, "delete draft")
		}
		return nil
	})
}

// Promote turns a draft into a quote and deletes the draft, atomically.
func (s *DraftService) Promote(ctx context.Context, p auth.Principal, id string, finalize bool) (*models.Quote, error) {
	var out *models.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.load(ctx, tx, p.UserID, id, gate.ActionCreate)
		if err != nil {
			return err
		}
		q, err := s.quotes.create(tx, p, d.Form(), finalize)
		if err != nil {
			return err
		}
		if err := tx.Delete(d).Error; err != nil {
			return errors.Wrap(err, "delete promoted draft")
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"draft_id": id, "quote_id": out.ID}).Info("draft promoted")
	return out, nil
}
