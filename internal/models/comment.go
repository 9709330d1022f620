package models

import "github.com/google/uuid"

// Comment belongs to a task. AuthorID is nullable so the comment survives
// removal of its author.
type Comment struct {
	Base
	TaskID   uuid.UUID  `gorm:"type:char(36);index;not null" json:"task_id"`
	AuthorID *uuid.UUID `gorm:"type:char(36)" json:"author_id"`
	Content  string     `gorm:"type:text;not null" json:"content"`

	// Relations
	Task   Task  `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
