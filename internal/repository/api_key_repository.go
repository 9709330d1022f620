package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormAPIKeyRepository is a GORM implementation of APIKeyRepository
type GormAPIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &GormAPIKeyRepository{db: db}
}

// Create stores a new API key
func (r *GormAPIKeyRepository) Create(key *models.APIKey) error {
	return r.db.Create(key).Error
}

// FindByID finds an API key by ID
func (r *GormAPIKeyRepository) FindByID(id uuid.UUID) (*models.APIKey, error) {
	var key models.APIKey
	if err := r.db.Where("id = ?", id).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// ListByUser lists all keys belonging to a user
func (r *GormAPIKeyRepository) ListByUser(userID uuid.UUID) ([]models.APIKey, error) {
	var keys []models.APIKey
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// ListActive lists all non-revoked keys. The secret hash is salted
// per-entry, so verification has to try candidates; there is nothing to
// index a raw secret against.
func (r *GormAPIKeyRepository) ListActive() ([]models.APIKey, error) {
	var keys []models.APIKey
	if err := r.db.Where("revoked = ?", false).Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// MarkRevoked flips the revoked flag
func (r *GormAPIKeyRepository) MarkRevoked(id uuid.UUID) error {
	return r.db.Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("revoked", true).Error
}

// UpdateLastUsed sets last_used_at without touching any other column
func (r *GormAPIKeyRepository) UpdateLastUsed(id uuid.UUID, at time.Time) error {
	return r.db.Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
