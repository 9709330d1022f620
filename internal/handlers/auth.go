package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/services"
)

// AuthHandler coordinates account, API key, and MFA device HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup registers a new user.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username string `json:"username" binding:"required,min=3,max=150"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"required"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user with username and password and initializes
// the session. API clients normally skip this and send an API key instead.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID.String())
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// IssueAPIKey creates a new API key for the authenticated user. The raw
// secret appears in this response and nowhere else, ever again.
func (h *AuthHandler) IssueAPIKey(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type IssueKeyRequest struct {
		Name string `json:"name" binding:"omitempty,max=100"`
	}

	var req IssueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	key, raw, err := h.authService.IssueAPIKey(userID, req.Name)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToIssuedAPIKeyDTO(*key, raw))
}

// ListAPIKeys lists the authenticated user's keys, revoked ones included.
func (h *AuthHandler) ListAPIKeys(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	keys, err := h.authService.ListAPIKeys(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	dtos := make([]dto.APIKeyDTO, len(keys))
	for i, key := range keys {
		dtos[i] = dto.ToAPIKeyDTO(key)
	}

	c.JSON(http.StatusOK, gin.H{"keys": dtos})
}

// RevokeAPIKey revokes one of the authenticated user's keys.
func (h *AuthHandler) RevokeAPIKey(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	keyID, err := uuid.Parse(c.Param("key_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid key ID")
		return
	}

	if err := h.authService.RevokeAPIKey(userID, keyID); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "API key revoked",
	})
}

// RegisterMFADevice enrolls a new TOTP device for the authenticated user.
// The otpauth URL in the response carries the secret and is shown once.
func (h *AuthHandler) RegisterMFADevice(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type RegisterDeviceRequest struct {
		Name string `json:"name" binding:"omitempty,max=100"`
	}

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	device, url, err := h.authService.RegisterMFADevice(userID, req.Name)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMFAEnrollmentDTO(*device, url))
}

// ListMFADevices lists the authenticated user's devices.
func (h *AuthHandler) ListMFADevices(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	devices, err := h.authService.ListMFADevices(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	dtos := make([]dto.MFADeviceDTO, len(devices))
	for i, device := range devices {
		dtos[i] = dto.ToMFADeviceDTO(device)
	}

	c.JSON(http.StatusOK, gin.H{"devices": dtos})
}

// ConfirmMFADevice confirms a device with a TOTP code. From this point on,
// every API-key login for this user must pass the MFA gate.
func (h *AuthHandler) ConfirmMFADevice(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	deviceID, err := uuid.Parse(c.Param("device_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid device ID")
		return
	}

	type ConfirmDeviceRequest struct {
		Code string `json:"code" binding:"required,len=6"`
	}

	var req ConfirmDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.ConfirmMFADevice(userID, deviceID, req.Code); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "MFA device confirmed",
	})
}

// RemoveMFADevice deletes one of the authenticated user's devices.
func (h *AuthHandler) RemoveMFADevice(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	deviceID, err := uuid.Parse(c.Param("device_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid device ID")
		return
	}

	if err := h.authService.RemoveMFADevice(userID, deviceID); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "MFA device removed",
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAPIKeyNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrMFADeviceNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidMFACode):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrFailedToHashPassword):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
