package auth

import (
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrNoCredential means no API key was supplied at all. Recoverable:
	// the transport may fall through to another scheme.
	ErrNoCredential = errors.New("no credential supplied")

	// ErrInvalidCredential means a key was supplied but matched nothing.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrMFARequired means the key matched but the MFA gate was not passed,
	// either because no code was supplied or the code was wrong. The two
	// cases are deliberately not distinguishable here.
	ErrMFARequired = errors.New("mfa required")
)

// Pipeline chains API-key lookup and the MFA gate into a single
// authenticate-or-reject decision.
type Pipeline struct {
	credentials *CredentialStore
	mfa         *MFAVerifier
	users       repository.UserRepository
}

// NewPipeline creates a new authentication Pipeline.
func NewPipeline(credentials *CredentialStore, mfa *MFAVerifier, users repository.UserRepository) *Pipeline {
	return &Pipeline{
		credentials: credentials,
		mfa:         mfa,
		users:       users,
	}
}

// Authenticate resolves the identity behind an API key header and an
// optional MFA code header.
//
// The key is marked used as soon as it matches, before the MFA gate runs:
// a failed-MFA attempt still counts as key usage, which is what the audit
// trail wants to see.
func (p *Pipeline) Authenticate(apiKey, mfaCode string) (*models.User, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	key, err := p.credentials.Verify(apiKey)
	if err != nil {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}
	if key == nil {
		return nil, ErrInvalidCredential
	}

	if err := p.credentials.MarkUsed(key.ID); err != nil {
		// Authentication still stands; losing a last-used update is not
		// worth rejecting the request over.
		logger.GetLogger().Warn("failed to mark api key used",
			zap.String("key_id", key.ID.String()),
			zap.Error(err),
		)
	}

	user, err := p.users.FindByID(key.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve key owner: %w", err)
	}

	ok, err := p.mfa.Satisfied(user.ID, mfaCode)
	if err != nil {
		return nil, fmt.Errorf("mfa check failed: %w", err)
	}
	if !ok {
		return nil, ErrMFARequired
	}

	return user, nil
}
