package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/validation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrActiveVersion is returned when a quote does not have exactly one active version.
var ErrActiveVersion = errors.New("quote must have exactly one active version")

// QuoteDetails is the JSON document holding the ordered version history.
type QuoteDetails struct {
	Versions []QuoteVersion `json:"versions"`
}

// Quote is the aggregate root. Versions live in Details; the flat status/total/timestamp columns
// mirror the active version and are refreshed by SyncMirror before every save.
// Implements the Ownable interface for ownership-based authorization.
type Quote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the operator who owns this quote.
	UserID uint `gorm:"index;not null" json:"user_id"`

	// Slug is the public, URL-safe identifier used by the client-facing page.
	Slug string `gorm:"size:255;uniqueIndex;not null" json:"slug"`

	QuoteHeader `gorm:"embedded"`

	Details datatypes.JSONType[QuoteDetails] `json:"details"`

	// Mirror of the active version.
	TotalAmount float64     `json:"total_amount"`
	Status      QuoteStatus `gorm:"size:20;index" json:"status"`
	AcceptedAt  *time.Time  `json:"accepted_at"`
	RejectedAt  *time.Time  `json:"rejected_at"`
	CreatedAt   *time.Time  `gorm:"autoCreateTime:false" json:"created_at"`

	// DeliveryConfirmed is true once the latest send reached the email provider.
	DeliveryConfirmed bool `gorm:"default:false" json:"delivery_confirmed"`
}

// NewQuote builds a quote with a single active version from a form.
// status must be StatusDraft or StatusCreated.
func NewQuote(userID uint, form QuoteForm, status QuoteStatus, now time.Time) (*Quote, error) {
	if status != StatusDraft && status != StatusCreated {
		return nil, apperr.Transition("", string(status))
	}
	form.Normalize()
	v := QuoteVersion{
		VersionID:    versionID(1),
		VersionName:  "Version 1",
		IsActive:     true,
		Status:       status,
		QuoteContent: form.QuoteContent.Clone(),
	}
	if status == StatusCreated {
		t := now
		v.CreatedAt = &t
	}
	q := &Quote{UserID: userID, QuoteHeader: form.QuoteHeader}
	q.setVersions([]QuoteVersion{v})
	if err := q.SyncMirror(); err != nil {
		return nil, err
	}
	return q, nil
}

// GetUserID implements the Ownable interface for authorization.
func (q *Quote) GetUserID() uint {
	return q.UserID
}

// BeforeCreate assigns the UUID primary key.
func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// BeforeSave refreshes the mirror columns in the same statement as the version write.
func (q *Quote) BeforeSave(tx *gorm.DB) error {
	return q.SyncMirror()
}

// Versions returns a copy of the version history in order.
func (q *Quote) Versions() []QuoteVersion {
	src := q.Details.Data().Versions
	out := make([]QuoteVersion, len(src))
	for i, v := range src {
		out[i] = v.clone()
	}
	return out
}

func (q *Quote) setVersions(vs []QuoteVersion) {
	q.Details = datatypes.NewJSONType(QuoteDetails{Versions: vs})
}

func activeIndex(vs []QuoteVersion) (int, error) {
	idx := -1
	for i, v := range vs {
		if v.IsActive {
			if idx >= 0 {
				return -1, ErrActiveVersion
			}
			idx = i
		}
	}
	if idx < 0 {
		return -1, ErrActiveVersion
	}
	return idx, nil
}

// ActiveVersion is the read projection of the current version.
func (q *Quote) ActiveVersion() (QuoteVersion, error) {
	vs := q.Versions()
	idx, err := activeIndex(vs)
	if err != nil {
		return QuoteVersion{}, err
	}
	return vs[idx], nil
}

// SyncMirror recomputes every version total and copies the active version onto the flat columns.
func (q *Quote) SyncMirror() error {
	vs := q.Versions()
	idx, err := activeIndex(vs)
	if err != nil {
		return err
	}
	for i := range vs {
		vs[i].TotalAmount = vs[i].Total()
	}
	q.setVersions(vs)
	active := vs[idx]
	q.TotalAmount = active.TotalAmount
	q.Status = active.Status
	q.AcceptedAt = active.AcceptedAt
	q.RejectedAt = active.RejectedAt
	q.CreatedAt = active.CreatedAt
	return nil
}

// mutateActive applies fn to the active version and refreshes the mirror.
func (q *Quote) mutateActive(fn func(v *QuoteVersion) error) error {
	vs := q.Versions()
	idx, err := activeIndex(vs)
	if err != nil {
		return err
	}
	if err := fn(&vs[idx]); err != nil {
		return err
	}
	q.setVersions(vs)
	return q.SyncMirror()
}

// Form returns the header plus the active version content, as edited in the quote builder.
func (q *Quote) Form() (QuoteForm, error) {
	v, err := q.ActiveVersion()
	if err != nil {
		return QuoteForm{}, err
	}
	return QuoteForm{QuoteHeader: q.QuoteHeader, QuoteContent: v.QuoteContent.Clone()}, nil
}

// UpdateForm replaces header and active content. Sent and answered versions are locked;
// issue a revision instead.
func (q *Quote) UpdateForm(form QuoteForm) error {
	form.Normalize()
	err := q.mutateActive(func(v *QuoteVersion) error {
		if !v.Editable() {
			return errors.Wrapf(apperr.ErrInvalidTransition, "version %s is %s and can no longer be edited", v.VersionID, v.Status)
		}
		v.QuoteContent = form.QuoteContent.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	q.QuoteHeader = form.QuoteHeader
	return nil
}

func versionID(n int) string { return "v" + strconv.Itoa(n) }

func nextVersionID(vs []QuoteVersion) string {
	maxIdx := 0
	for _, v := range vs {
		n, err := strconv.Atoi(strings.TrimPrefix(v.VersionID, "v"))
		if err == nil && n > maxIdx {
			maxIdx = n
		}
	}
	return versionID(maxIdx + 1)
}

// IssueRevision appends a copy of the active version as the new active version.
// Older versions keep their status and timestamps.
func (q *Quote) IssueRevision(name string, now time.Time) (QuoteVersion, error) {
	vs := q.Versions()
	var next QuoteVersion
	if len(vs) > 0 {
		idx, err := activeIndex(vs)
		if err != nil {
			return QuoteVersion{}, err
		}
		next = vs[idx].clone()
	} else {
		next.QuoteContent.Normalize()
	}
	next.VersionID = nextVersionID(vs)
	next.VersionName = strings.TrimSpace(name)
	if next.VersionName == "" {
		next.VersionName = fmt.Sprintf("Version %d", len(vs)+1)
	}
	next.IsActive = true
	next.Status = StatusCreated
	next.AcceptedAt = nil
	next.RejectedAt = nil
	next.ClientSelectedAddOns = nil
	t := now
	next.CreatedAt = &t

	for i := range vs {
		vs[i].IsActive = false
	}
	vs = append(vs, next)
	q.setVersions(vs)
	if err := q.SyncMirror(); err != nil {
		return QuoteVersion{}, err
	}
	return q.ActiveVersion()
}

// ActivateVersion makes versionID the active version.
func (q *Quote) ActivateVersion(versionID string) error {
	vs := q.Versions()
	found := false
	for i := range vs {
		vs[i].IsActive = vs[i].VersionID == versionID
		found = found || vs[i].IsActive
	}
	if !found {
		return errors.Wrapf(apperr.ErrNotFound, "version %s", versionID)
	}
	q.setVersions(vs)
	return q.SyncMirror()
}

// Finalize moves a draft quote to Created.
func (q *Quote) Finalize(now time.Time) error {
	return q.mutateActive(func(v *QuoteVersion) error { return v.transition(StatusCreated, now) })
}

// MarkSent moves the active version to Sent.
func (q *Quote) MarkSent(now time.Time) error {
	return q.mutateActive(func(v *QuoteVersion) error { return v.transition(StatusSent, now) })
}

// Accept records the client's acceptance and the add-ons they picked, by name.
func (q *Quote) Accept(now time.Time, selectedAddOns []string) error {
	return q.mutateActive(func(v *QuoteVersion) error {
		if !CanTransition(v.Status, StatusAccepted) {
			return apperr.Transition(string(v.Status), string(StatusAccepted))
		}
		selected, err := pickAddOns(v.AddOns, selectedAddOns)
		if err != nil {
			return err
		}
		if err := v.transition(StatusAccepted, now); err != nil {
			return err
		}
		v.ClientSelectedAddOns = selected
		return nil
	})
}

// Reject records the client's rejection.
func (q *Quote) Reject(now time.Time) error {
	return q.mutateActive(func(v *QuoteVersion) error { return v.transition(StatusRejected, now) })
}

// Reset is the administrative move from Accepted or Rejected back to Created.
func (q *Quote) Reset(now time.Time) error {
	return q.mutateActive(func(v *QuoteVersion) error {
		if !v.Status.IsTerminal() {
			return apperr.Transition(string(v.Status), string(StatusCreated))
		}
		return v.transition(StatusCreated, now)
	})
}

// pickAddOns copies the named add-ons. A picked add-on with no positive quantity counts as one.
func pickAddOns(addOns []QuoteItem, names []string) ([]QuoteItem, error) {
	if len(names) == 0 {
		return nil, nil
	}
	byName := make(map[string]QuoteItem, len(addOns))
	for _, a := range addOns {
		byName[a.Name] = a
	}
	v := validation.Violations{}
	out := make([]QuoteItem, 0, len(names))
	for i, n := range names {
		it, ok := byName[n]
		if !ok {
			v[fmt.Sprintf("selectedAddOns[%d]", i)] = "unknown_add_on"
			continue
		}
		if it.EffectiveQuantity(DefaultAddOnQuantity) <= 0 {
			it.Quantity = Qty(1)
		}
		out = append(out, cloneItems([]QuoteItem{it})...)
	}
	if err := apperr.Validation(v); err != nil {
		return nil, err
	}
	return out, nil
}
