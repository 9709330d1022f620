package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
)

// ClientDTO represents a client in API responses
type ClientDTO struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	DefaultTimezone string    `json:"default_timezone"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ClientWithRoleDTO represents a client together with the caller's role
type ClientWithRoleDTO struct {
	ClientDTO
	Role models.MembershipRole `json:"role"`
}

// MemberDTO represents a client membership in API responses
type MemberDTO struct {
	User     UserDTO               `json:"user"`
	Role     models.MembershipRole `json:"role"`
	IsActive bool                  `json:"is_active"`
	JoinedAt time.Time             `json:"joined_at"`
}

// ClientDetailDTO represents detailed client information
type ClientDetailDTO struct {
	ClientDTO
	Members  []MemberDTO           `json:"members"`
	YourRole models.MembershipRole `json:"your_role"`
}

// ToClientDTO converts a Client model to ClientDTO
func ToClientDTO(client models.Client) ClientDTO {
	return ClientDTO{
		ID:              client.ID,
		Name:            client.Name,
		Slug:            client.Slug,
		DefaultTimezone: client.DefaultTimezone,
		IsActive:        client.IsActive,
		CreatedAt:       client.CreatedAt,
		UpdatedAt:       client.UpdatedAt,
	}
}

// ToMemberDTO converts a membership to MemberDTO
func ToMemberDTO(member models.ClientMembership) MemberDTO {
	return MemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		IsActive: member.IsActive,
		JoinedAt: member.CreatedAt,
	}
}

// ToClientDetailDTO converts a client with members to detailed DTO
func ToClientDetailDTO(client models.Client, members []models.ClientMembership, yourRole models.MembershipRole) ClientDetailDTO {
	memberDTOs := make([]MemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToMemberDTO(member)
	}

	return ClientDetailDTO{
		ClientDTO: ToClientDTO(client),
		Members:   memberDTOs,
		YourRole:  yourRole,
	}
}
