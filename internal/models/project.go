package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

type Project struct {
	Base
	ClientID    uuid.UUID     `gorm:"type:char(36);index;not null;uniqueIndex:idx_project_client_slug" json:"client_id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Slug        *string       `gorm:"type:varchar(120);uniqueIndex:idx_project_client_slug" json:"slug"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`

	// Relations
	Client Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Tasks  []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
