package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey is an authentication credential for header-based access.
// Raw secrets are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID  `gorm:"type:char(36);primarykey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:char(36);index;not null" json:"user_id"`
	Name       string     `gorm:"type:varchar(100);not null;default:''" json:"name"`
	KeyHash    string     `gorm:"type:varchar(128);not null" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `gorm:"index;not null;default:false" json:"revoked"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
