package models

// Client is the tenant scope. Every project, task, and comment resolves to
// exactly one client, and every access decision checks client membership.
type Client struct {
	Base
	Name            string `gorm:"type:varchar(255);not null;index" json:"name"`
	Slug            string `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	DefaultTimezone string `gorm:"type:varchar(50);not null;default:'UTC'" json:"default_timezone"`
	IsActive        bool   `gorm:"not null;default:true" json:"is_active"`

	// Relations
	Memberships []ClientMembership `gorm:"foreignKey:ClientID" json:"memberships,omitempty"`
	Projects    []Project          `gorm:"foreignKey:ClientID" json:"projects,omitempty"`
}
