package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore issues and verifies API keys. Raw secrets exist only in
// transit: Issue returns the raw value exactly once, and only its bcrypt
// hash is persisted.
type CredentialStore struct {
	keys repository.APIKeyRepository
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(keys repository.APIKeyRepository) *CredentialStore {
	return &CredentialStore{keys: keys}
}

// Issue generates a new API key for the user and returns it together with
// the raw secret. The raw secret cannot be recovered afterwards.
func (s *CredentialStore) Issue(userID uuid.UUID, name string) (*models.APIKey, string, error) {
	raw, err := utils.GenerateAPIKeySecret()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash secret: %w", err)
	}

	if name == "" {
		name = "default"
	}

	key := &models.APIKey{
		UserID:  userID,
		Name:    name,
		KeyHash: string(hash),
	}
	if err := s.keys.Create(key); err != nil {
		return nil, "", fmt.Errorf("failed to store key: %w", err)
	}

	return key, raw, nil
}

// Verify compares the raw secret against every non-revoked key's hash and
// returns the first match, or nil when nothing matches. A hash is salted
// per-entry, so there is no indexed lookup; each candidate must be tried.
// An empty or malformed secret is a non-match, not an error.
func (s *CredentialStore) Verify(raw string) (*models.APIKey, error) {
	if raw == "" {
		return nil, nil
	}

	keys, err := s.keys.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}

	for i := range keys {
		if bcrypt.CompareHashAndPassword([]byte(keys[i].KeyHash), []byte(raw)) == nil {
			return &keys[i], nil
		}
	}
	return nil, nil
}

// Revoke marks the key revoked. Once revoked, Verify never returns it
// again; the row itself is kept for audit.
func (s *CredentialStore) Revoke(keyID uuid.UUID) error {
	return s.keys.MarkRevoked(keyID)
}

// MarkUsed records that the key was matched. It is deliberately separate
// from Verify: the pipeline fires it on every successful lookup, including
// ones that later fail the MFA gate.
func (s *CredentialStore) MarkUsed(keyID uuid.UUID) error {
	return s.keys.UpdateLastUsed(keyID, time.Now())
}
