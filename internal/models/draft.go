package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Draft is a scratch quote builder state, owned by one user, until it is promoted or discarded.
type Draft struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	UserID uint   `gorm:"index;not null" json:"user_id"`
	Title  string `gorm:"size:255;not null" json:"title"`

	Data datatypes.JSONType[QuoteForm] `json:"data"`
}

// GetUserID implements the Ownable interface for authorization.
func (d *Draft) GetUserID() uint {
	return d.UserID
}

// BeforeCreate assigns the UUID primary key.
func (d *Draft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Form returns the stored payload.
func (d *Draft) Form() QuoteForm {
	return d.Data.Data()
}

// SetForm replaces the stored payload.
func (d *Draft) SetForm(f QuoteForm) {
	d.Data = datatypes.NewJSONType(f)
}

// DefaultTitle falls back to the event title, then to a generic label.
func (d *Draft) DefaultTitle() {
	if strings.TrimSpace(d.Title) != "" {
		return
	}
	if t := strings.TrimSpace(d.Form().EventTitle); t != "" {
		d.Title = t
		return
	}
	d.Title = "Untitled draft"
}
