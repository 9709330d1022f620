package middleware

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/logger"
	"go.uber.org/zap"
)

// RequireAuth authenticates the request. API-key headers take precedence;
// when no key is supplied the session cookie is tried instead. Every
// credential failure gets the same opaque 401 so callers cannot probe
// which step rejected them.
func RequireAuth(pipeline *auth.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(constants.HeaderAPIKey)
		mfaCode := c.GetHeader(constants.HeaderMFACode)

		user, err := pipeline.Authenticate(apiKey, mfaCode)
		if err == nil {
			c.Set(constants.ContextKeyUserID, user.ID)
			c.Next()
			return
		}

		if errors.Is(err, auth.ErrNoCredential) {
			// No API key at all; fall through to the session scheme.
			session := sessions.Default(c)
			if raw, ok := session.Get(constants.ContextKeyUserID).(string); ok {
				if userID, parseErr := uuid.Parse(raw); parseErr == nil {
					c.Set(constants.ContextKeyUserID, userID)
					c.Next()
					return
				}
			}
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if errors.Is(err, auth.ErrInvalidCredential) || errors.Is(err, auth.ErrMFARequired) {
			apierrors.InvalidCredentials(c)
			c.Abort()
			return
		}

		logger.FromGin(c).Error("authentication pipeline failed", zap.Error(err))
		apierrors.InternalError(c, "")
		c.Abort()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}

	switch v := value.(type) {
	case uuid.UUID:
		return v, true
	case string:
		userID, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return userID, true
	default:
		return uuid.Nil, false
	}
}
