package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskAssignment joins a task to an assigned user.
type TaskAssignment struct {
	TaskID    uuid.UUID `gorm:"type:char(36);primarykey" json:"task_id"`
	UserID    uuid.UUID `gorm:"type:char(36);primarykey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
