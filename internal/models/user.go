package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an operator account of the back-office.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	// IsAdmin grants administrative actions such as resetting an accepted or rejected quote.
	IsAdmin bool `gorm:"default:false" json:"is_admin"`
}
