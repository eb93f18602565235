package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryStatus tracks one email send attempt.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// EmailDelivery records a quote email. It is created as pending before the provider is called
// and updated once the provider answers, so a quote marked Sent always has a delivery trail.
type EmailDelivery struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	QuoteID   uuid.UUID `gorm:"type:uuid;index;not null" json:"quote_id"`
	VersionID string    `gorm:"size:20" json:"version_id"`
	Recipient string    `gorm:"size:255;not null" json:"recipient"`
	Subject   string    `gorm:"size:500" json:"subject"`

	Status        DeliveryStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	Attempts      int            `json:"attempts"`
	FailureReason string         `gorm:"type:text" json:"failure_reason,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
}

// BeforeCreate assigns the UUID primary key.
func (d *EmailDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// MarkSent records a successful delivery.
func (d *EmailDelivery) MarkSent(now time.Time) {
	t := now
	d.Status = DeliverySent
	d.SentAt = &t
	d.FailureReason = ""
}

// MarkFailed records a failed delivery.
func (d *EmailDelivery) MarkFailed(reason string) {
	d.Status = DeliveryFailed
	d.FailureReason = reason
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []any {
	return []any{&User{}, &Quote{}, &Draft{}, &EmailDelivery{}}
}
