package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/constants"
)

// GenerateAPIKeySecret returns a URL-safe random secret with
// constants.APIKeySecretBytes bytes of entropy. The raw value is handed to
// the caller exactly once; only a hash of it is ever persisted.
func GenerateAPIKeySecret() (string, error) {
	bytes := make([]byte, constants.APIKeySecretBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateSlugSuffix returns a short random hex suffix used to disambiguate
// generated slugs.
func GenerateSlugSuffix() (string, error) {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
