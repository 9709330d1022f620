package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
}

// APIKeyDTO represents an API key in API responses. The raw secret never
// appears here.
type APIKeyDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	Revoked    bool       `json:"revoked"`
}

// IssuedAPIKeyDTO is the one response that carries the raw secret. It is
// shown exactly once, at issue time.
type IssuedAPIKeyDTO struct {
	APIKeyDTO
	Key string `json:"key"`
}

// MFADeviceDTO represents an MFA device in API responses
type MFADeviceDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

// MFAEnrollmentDTO is returned when a device is registered. The otpauth URL
// carries the shared secret and is shown exactly once.
type MFAEnrollmentDTO struct {
	MFADeviceDTO
	OTPAuthURL string `json:"otpauth_url"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

// ToAPIKeyDTO converts an APIKey model to APIKeyDTO
func ToAPIKeyDTO(key models.APIKey) APIKeyDTO {
	return APIKeyDTO{
		ID:         key.ID,
		Name:       key.Name,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
		Revoked:    key.Revoked,
	}
}

// ToIssuedAPIKeyDTO converts a freshly issued key and its raw secret
func ToIssuedAPIKeyDTO(key models.APIKey, raw string) IssuedAPIKeyDTO {
	return IssuedAPIKeyDTO{
		APIKeyDTO: ToAPIKeyDTO(key),
		Key:       raw,
	}
}

// ToMFADeviceDTO converts an MFADevice model to MFADeviceDTO
func ToMFADeviceDTO(device models.MFADevice) MFADeviceDTO {
	return MFADeviceDTO{
		ID:        device.ID,
		Name:      device.Name,
		Confirmed: device.Confirmed,
		CreatedAt: device.CreatedAt,
	}
}

// ToMFAEnrollmentDTO converts a freshly registered device and its otpauth URL
func ToMFAEnrollmentDTO(device models.MFADevice, url string) MFAEnrollmentDTO {
	return MFAEnrollmentDTO{
		MFADeviceDTO: ToMFADeviceDTO(device),
		OTPAuthURL:   url,
	}
}
