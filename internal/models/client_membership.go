package models

import "github.com/google/uuid"

type MembershipRole string

const (
	RoleOwner  MembershipRole = "owner"
	RoleAdmin  MembershipRole = "admin"
	RoleMember MembershipRole = "member"
	RoleViewer MembershipRole = "viewer"
)

// Valid reports whether the role is one of the closed set.
func (r MembershipRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// CanManage reports whether the role may administer the client
// (memberships, project deletion, client settings).
func (r MembershipRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanWrite reports whether the role may mutate resources inside the client.
func (r MembershipRole) CanWrite() bool {
	return r != RoleViewer
}

// ClientMembership joins a user to a client with a role. It is the ground
// truth for access decisions: an inactive membership grants nothing even
// though the row still exists.
type ClientMembership struct {
	Base
	UserID   uuid.UUID      `gorm:"type:char(36);uniqueIndex:idx_membership_user_client;not null" json:"user_id"`
	ClientID uuid.UUID      `gorm:"type:char(36);uniqueIndex:idx_membership_user_client;index;not null" json:"client_id"`
	Role     MembershipRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	IsActive bool           `gorm:"not null;default:true" json:"is_active"`

	// Relations
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Client Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}
