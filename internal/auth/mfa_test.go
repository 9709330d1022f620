package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
)

func pinnedVerifier(repos authTestRepos, at time.Time) *MFAVerifier {
	v := NewMFAVerifier(repos.devices, "test-issuer")
	v.now = func() time.Time { return at }
	return v
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, at)
	require.NoError(t, err)
	return code
}

func TestMFAVerifier_EnrollAndConfirm(t *testing.T) {
	repos := setupAuthTestRepos(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := pinnedVerifier(repos, now)
	user := createTestUser(t, repos, "mfa-user")

	device, url, err := v.Enroll(user.ID, user.Username, "phone")
	require.NoError(t, err)
	require.False(t, device.Confirmed)
	require.Contains(t, url, "otpauth://totp/")
	require.Contains(t, url, "test-issuer")

	// An unconfirmed device does not make MFA required.
	required, err := v.IsRequired(user.ID)
	require.NoError(t, err)
	require.False(t, required)

	ok, err := v.Confirm(device, codeAt(t, device.Secret, now))
	require.NoError(t, err)
	require.True(t, ok)

	required, err = v.IsRequired(user.ID)
	require.NoError(t, err)
	require.True(t, required)
}

func TestMFAVerifier_ConfirmRejectsWrongCode(t *testing.T) {
	repos := setupAuthTestRepos(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := pinnedVerifier(repos, now)
	user := createTestUser(t, repos, "mfa-user")

	device, _, err := v.Enroll(user.ID, user.Username, "phone")
	require.NoError(t, err)

	ok, err := v.Confirm(device, "000000")
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := repos.devices.FindByID(device.ID)
	require.NoError(t, err)
	require.False(t, stored.Confirmed)
}

func TestMFAVerifier_VerifyCodeWindow(t *testing.T) {
	repos := setupAuthTestRepos(t)
	now := time.Date(2026, 3, 14, 12, 0, 15, 0, time.UTC)
	v := pinnedVerifier(repos, now)
	user := createTestUser(t, repos, "mfa-user")

	device, _, err := v.Enroll(user.ID, user.Username, "phone")
	require.NoError(t, err)

	cases := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"current step", 0, true},
		{"one step behind", -30 * time.Second, true},
		{"one step ahead", 30 * time.Second, true},
		{"two steps behind", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := codeAt(t, device.Secret, now.Add(tc.offset))
			require.Equal(t, tc.want, v.VerifyCode(device, code, 1))
		})
	}
}

func TestMFAVerifier_Satisfied(t *testing.T) {
	repos := setupAuthTestRepos(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := pinnedVerifier(repos, now)
	user := createTestUser(t, repos, "mfa-user")

	// No devices at all: nothing to satisfy.
	ok, err := v.Satisfied(user.ID, "")
	require.NoError(t, err)
	require.True(t, ok)

	device, _, err := v.Enroll(user.ID, user.Username, "phone")
	require.NoError(t, err)

	// Unconfirmed devices are inert.
	ok, err = v.Satisfied(user.ID, "")
	require.NoError(t, err)
	require.True(t, ok)

	confirmed, err := v.Confirm(device, codeAt(t, device.Secret, now))
	require.NoError(t, err)
	require.True(t, confirmed)

	// Confirmed device, no code: challenge.
	ok, err = v.Satisfied(user.ID, "")
	require.NoError(t, err)
	require.False(t, ok)

	// Confirmed device, wrong code: fail.
	ok, err = v.Satisfied(user.ID, "000000")
	require.NoError(t, err)
	require.False(t, ok)

	// Confirmed device, valid code: pass.
	ok, err = v.Satisfied(user.ID, codeAt(t, device.Secret, now))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMFAVerifier_SatisfiedMatchesAnyDevice(t *testing.T) {
	repos := setupAuthTestRepos(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := pinnedVerifier(repos, now)
	user := createTestUser(t, repos, "mfa-user")

	var devices []*models.MFADevice
	for _, name := range []string{"phone", "tablet"} {
		device, _, err := v.Enroll(user.ID, user.Username, name)
		require.NoError(t, err)
		ok, err := v.Confirm(device, codeAt(t, device.Secret, now))
		require.NoError(t, err)
		require.True(t, ok)
		devices = append(devices, device)
	}

	for _, device := range devices {
		ok, err := v.Satisfied(user.ID, codeAt(t, device.Secret, now))
		require.NoError(t, err)
		require.True(t, ok)
	}
}
