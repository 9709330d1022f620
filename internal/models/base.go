package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the columns shared by every soft-deletable entity: an opaque
// UUID primary key, audit timestamps, nullable creator/updater references,
// and the soft-delete markers. Default read paths must exclude rows where
// IsDeleted is set; repositories apply database.Alive for that.
type Base struct {
	ID          uuid.UUID  `gorm:"type:char(36);primarykey" json:"id"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedByID *uuid.UUID `gorm:"type:char(36)" json:"created_by,omitempty"`
	UpdatedByID *uuid.UUID `gorm:"type:char(36)" json:"updated_by,omitempty"`
	IsDeleted   bool       `gorm:"index;not null;default:false" json:"-"`
	DeletedAt   *time.Time `json:"-"`
}

// BeforeCreate assigns a random UUID when none was provided. Sequential
// integers would allow cross-tenant enumeration of resource identifiers.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// MarkDeleted flips the soft-delete markers without touching the row's
// children. The row itself stays in place for recovery and audit.
func (b *Base) MarkDeleted(now time.Time) {
	b.IsDeleted = true
	b.DeletedAt = &now
}
