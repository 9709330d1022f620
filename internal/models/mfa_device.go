package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MFADevice is a registered TOTP authenticator. Only confirmed devices
// participate in authentication decisions; unconfirmed ones are inert.
type MFADevice struct {
	ID        uuid.UUID `gorm:"type:char(36);primarykey" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"`
	Name      string    `gorm:"type:varchar(100);not null;default:'totp'" json:"name"`
	Secret    string    `gorm:"type:varchar(64);not null" json:"-"`
	Confirmed bool      `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (d *MFADevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
