package repository

import (
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormMFADeviceRepository is a GORM implementation of MFADeviceRepository
type GormMFADeviceRepository struct {
	db *gorm.DB
}

// NewMFADeviceRepository creates a new MFADeviceRepository
func NewMFADeviceRepository(db *gorm.DB) MFADeviceRepository {
	return &GormMFADeviceRepository{db: db}
}

// Create stores a new, unconfirmed device
func (r *GormMFADeviceRepository) Create(device *models.MFADevice) error {
	return r.db.Create(device).Error
}

// FindByID finds a device by ID
func (r *GormMFADeviceRepository) FindByID(id uuid.UUID) (*models.MFADevice, error) {
	var device models.MFADevice
	if err := r.db.Where("id = ?", id).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// ListByUser lists all devices of a user
func (r *GormMFADeviceRepository) ListByUser(userID uuid.UUID) ([]models.MFADevice, error) {
	var devices []models.MFADevice
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// ListConfirmedByUser lists only confirmed devices of a user
func (r *GormMFADeviceRepository) ListConfirmedByUser(userID uuid.UUID) ([]models.MFADevice, error) {
	var devices []models.MFADevice
	if err := r.db.Where("user_id = ? AND confirmed = ?", userID, true).
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// Confirm marks a device as confirmed
func (r *GormMFADeviceRepository) Confirm(id uuid.UUID) error {
	return r.db.Model(&models.MFADevice{}).
		Where("id = ?", id).
		Update("confirmed", true).Error
}

// Delete removes a device
func (r *GormMFADeviceRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.MFADevice{}).Error
}
