package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
)

// MFAVerifier decides whether a second factor is required for a user and
// validates TOTP codes against registered devices. Only confirmed devices
// count; an unconfirmed device is inert.
type MFAVerifier struct {
	devices repository.MFADeviceRepository
	issuer  string

	// now is swappable for tests that need to pin the time step.
	now func() time.Time
}

// NewMFAVerifier creates a new MFAVerifier.
func NewMFAVerifier(devices repository.MFADeviceRepository, issuer string) *MFAVerifier {
	return &MFAVerifier{
		devices: devices,
		issuer:  issuer,
		now:     time.Now,
	}
}

// IsRequired reports whether the user has at least one confirmed device.
func (v *MFAVerifier) IsRequired(userID uuid.UUID) (bool, error) {
	devices, err := v.devices.ListConfirmedByUser(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load devices: %w", err)
	}
	return len(devices) > 0, nil
}

// VerifyCode checks the code against the device's secret at the current
// 30-second step and at `window` steps on either side, tolerating clock
// skew between the server and the authenticator.
func (v *MFAVerifier) VerifyCode(device *models.MFADevice, code string, window uint) bool {
	ok, err := totp.ValidateCustom(code, device.Secret, v.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}

// Satisfied runs the per-attempt state machine:
//
//	no confirmed devices                    -> pass
//	devices exist, no code supplied         -> challenge (fail)
//	devices exist, code matches any device  -> pass
//	devices exist, code matches none        -> fail
//
// Challenge and failure are indistinguishable in the return value; callers
// must not leak which one occurred.
func (v *MFAVerifier) Satisfied(userID uuid.UUID, code string) (bool, error) {
	devices, err := v.devices.ListConfirmedByUser(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load devices: %w", err)
	}
	if len(devices) == 0 {
		return true, nil
	}
	if code == "" {
		return false, nil
	}
	for i := range devices {
		if v.VerifyCode(&devices[i], code, constants.MFACodeSkewSteps) {
			return true, nil
		}
	}
	return false, nil
}

// Enroll creates a new, unconfirmed device for the user and returns it
// with the otpauth provisioning URL. The device stays inert until the user
// confirms it with a valid code.
func (v *MFAVerifier) Enroll(userID uuid.UUID, accountName, deviceName string) (*models.MFADevice, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate secret: %w", err)
	}

	if deviceName == "" {
		deviceName = "totp"
	}

	device := &models.MFADevice{
		UserID: userID,
		Name:   deviceName,
		Secret: key.Secret(),
	}
	if err := v.devices.Create(device); err != nil {
		return nil, "", fmt.Errorf("failed to store device: %w", err)
	}

	return device, key.URL(), nil
}

// Confirm validates the code against the device and, on success, marks it
// confirmed so it starts participating in authentication decisions.
func (v *MFAVerifier) Confirm(device *models.MFADevice, code string) (bool, error) {
	if !v.VerifyCode(device, code, constants.MFACodeSkewSteps) {
		return false, nil
	}
	if err := v.devices.Confirm(device.ID); err != nil {
		return false, fmt.Errorf("failed to confirm device: %w", err)
	}
	return true, nil
}
