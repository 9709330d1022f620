package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrMFADeviceNotFound    = errors.New("mfa device not found")
	ErrInvalidMFACode       = errors.New("invalid mfa code")
)

// AuthService handles accounts, API keys, and MFA device management.
type AuthService struct {
	userRepo    repository.UserRepository
	keyRepo     repository.APIKeyRepository
	deviceRepo  repository.MFADeviceRepository
	credentials *auth.CredentialStore
	mfa         *auth.MFAVerifier
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	keyRepo repository.APIKeyRepository,
	deviceRepo repository.MFADeviceRepository,
	credentials *auth.CredentialStore,
	mfa *auth.MFAVerifier,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		keyRepo:     keyRepo,
		deviceRepo:  deviceRepo,
		credentials: credentials,
		mfa:         mfa,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates a new user account.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// IssueAPIKey creates a new API key for the user. The returned raw secret
// is shown to the caller exactly once and cannot be recovered later.
func (s *AuthService) IssueAPIKey(userID uuid.UUID, name string) (*models.APIKey, string, error) {
	return s.credentials.Issue(userID, name)
}

// ListAPIKeys lists all of the user's keys, revoked ones included.
func (s *AuthService) ListAPIKeys(userID uuid.UUID) ([]models.APIKey, error) {
	keys, err := s.keyRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey revokes one of the user's keys. A key belonging to another
// user is reported as not found rather than forbidden.
func (s *AuthService) RevokeAPIKey(userID, keyID uuid.UUID) error {
	key, err := s.keyRepo.FindByID(keyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to find key: %w", err)
	}
	if key.UserID != userID {
		return ErrAPIKeyNotFound
	}

	if err := s.credentials.Revoke(key.ID); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}
	return nil
}

// RegisterMFADevice enrolls a new, unconfirmed TOTP device for the user and
// returns it with its otpauth provisioning URL.
func (s *AuthService) RegisterMFADevice(userID uuid.UUID, deviceName string) (*models.MFADevice, string, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	return s.mfa.Enroll(user.ID, user.Username, deviceName)
}

// ListMFADevices lists all of the user's devices.
func (s *AuthService) ListMFADevices(userID uuid.UUID) ([]models.MFADevice, error) {
	devices, err := s.deviceRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// ConfirmMFADevice validates the code against the user's device and marks
// it confirmed. Once confirmed, the device gates every API-key login.
func (s *AuthService) ConfirmMFADevice(userID, deviceID uuid.UUID, code string) error {
	device, err := s.findOwnedDevice(userID, deviceID)
	if err != nil {
		return err
	}

	ok, err := s.mfa.Confirm(device, code)
	if err != nil {
		return fmt.Errorf("failed to confirm device: %w", err)
	}
	if !ok {
		return ErrInvalidMFACode
	}
	return nil
}

// RemoveMFADevice deletes one of the user's devices.
func (s *AuthService) RemoveMFADevice(userID, deviceID uuid.UUID) error {
	device, err := s.findOwnedDevice(userID, deviceID)
	if err != nil {
		return err
	}

	if err := s.deviceRepo.Delete(device.ID); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}

func (s *AuthService) findOwnedDevice(userID, deviceID uuid.UUID) (*models.MFADevice, error) {
	device, err := s.deviceRepo.FindByID(deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMFADeviceNotFound
		}
		return nil, fmt.Errorf("failed to find device: %w", err)
	}
	if device.UserID != userID {
		return nil, ErrMFADeviceNotFound
	}
	return device, nil
}
