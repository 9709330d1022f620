package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/models"
)

func TestAuthHandler_Signup(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "newuser",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response dto.UserDTO
	decodeJSON(t, w, &response)
	require.Equal(t, "newuser", response.Username)
}

func TestAuthHandler_SignupRejectsShortPassword(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "newuser",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_SignupRejectsDuplicateUsername(t *testing.T) {
	env := setupTestEnv(t)
	env.signupWithKey(t, "taken")

	w := env.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "taken",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_LoginSetsSession(t *testing.T) {
	env := setupTestEnv(t)
	env.signupWithKey(t, "existing")

	w := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "existing",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, w.Result().Cookies(), "expected session cookie to be set")
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	env := setupTestEnv(t)
	env.signupWithKey(t, "existing")

	w := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "existing",
		"password": "not-the-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_MeWithAPIKey(t *testing.T) {
	env := setupTestEnv(t)
	user, apiKey := env.signupWithKey(t, "keyuser")

	w := env.request(t, http.MethodGet, "/api/auth/me", apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response dto.UserDTO
	decodeJSON(t, w, &response)
	require.Equal(t, user.ID, response.ID)
}

func TestAuthHandler_MeRejectsBadKey(t *testing.T) {
	env := setupTestEnv(t)
	env.signupWithKey(t, "keyuser")

	w := env.request(t, http.MethodGet, "/api/auth/me", "wrong-key", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_IssueAndRevokeAPIKey(t *testing.T) {
	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "keyuser")

	w := env.request(t, http.MethodPost, "/api/keys", apiKey, map[string]string{"name": "ci"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issued dto.IssuedAPIKeyDTO
	decodeJSON(t, w, &issued)
	require.Equal(t, "ci", issued.Name)
	require.NotEmpty(t, issued.Key)

	// The fresh key authenticates.
	w = env.request(t, http.MethodGet, "/api/auth/me", issued.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Revoke it; it stops authenticating but stays listed.
	w = env.request(t, http.MethodDelete, "/api/keys/"+issued.ID.String(), apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.request(t, http.MethodGet, "/api/auth/me", issued.Key, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodGet, "/api/keys", apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Keys []dto.APIKeyDTO `json:"keys"`
	}
	decodeJSON(t, w, &list)
	require.Len(t, list.Keys, 2)
}

func TestAuthHandler_CannotRevokeSomeoneElsesKey(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceKey := env.signupWithKey(t, "alice")
	bob, _ := env.signupWithKey(t, "bob")

	var bobKeys []models.APIKey
	require.NoError(t, env.db.Where("user_id = ?", bob.ID).Find(&bobKeys).Error)
	require.NotEmpty(t, bobKeys)

	w := env.request(t, http.MethodDelete, "/api/keys/"+bobKeys[0].ID.String(), aliceKey, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthHandler_MFALifecycle(t *testing.T) {
	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "mfauser")

	w := env.request(t, http.MethodPost, "/api/mfa/devices", apiKey, map[string]string{"name": "phone"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var enrolled dto.MFAEnrollmentDTO
	decodeJSON(t, w, &enrolled)
	require.Contains(t, enrolled.OTPAuthURL, "otpauth://totp/")
	require.False(t, enrolled.Confirmed)

	// Unconfirmed devices do not gate logins yet.
	w = env.request(t, http.MethodGet, "/api/auth/me", apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var device models.MFADevice
	require.NoError(t, env.db.Where("id = ?", enrolled.ID).First(&device).Error)

	code, err := totp.GenerateCode(device.Secret, time.Now())
	require.NoError(t, err)
	w = env.request(t, http.MethodPost, "/api/mfa/devices/"+device.ID.String()+"/confirm", apiKey, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The key alone no longer passes; key plus code does.
	w = env.request(t, http.MethodGet, "/api/auth/me", apiKey, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	code, err = totp.GenerateCode(device.Secret, time.Now())
	require.NoError(t, err)
	w = env.requestWithMFA(t, http.MethodGet, "/api/auth/me", apiKey, code, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
