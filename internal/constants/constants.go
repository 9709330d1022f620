package constants

// Context and session keys
const (
	ContextKeyUserID = "user_id"

	SessionCookieName = "pm_session"
)

// Authentication headers
const (
	HeaderAPIKey  = "X-API-Key"
	HeaderMFACode = "X-MFA-Code"
)

// Validation limits
const (
	MinPasswordLength = 8

	// APIKeySecretBytes is the entropy of a raw API key secret before encoding.
	APIKeySecretBytes = 32

	// MFACodeSkewSteps is the accepted clock-skew window for TOTP codes,
	// in 30-second steps on either side of the current one.
	MFACodeSkewSteps = 1
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI task generation
const (
	MaxAIGeneratedTasks = 20
)
