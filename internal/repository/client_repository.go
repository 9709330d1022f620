package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormClientRepository is a GORM implementation of ClientRepository
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &GormClientRepository{db: db}
}

// Create creates a new client
func (r *GormClientRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}

// FindByID finds a non-deleted client by ID
func (r *GormClientRepository) FindByID(id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.Scopes(database.Alive).
		Where("id = ?", id).
		First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// FindBySlug finds a non-deleted client by slug
func (r *GormClientRepository) FindBySlug(slug string) (*models.Client, error) {
	var client models.Client
	if err := r.db.Scopes(database.Alive).
		Where("slug = ?", slug).
		First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// Update updates a client
func (r *GormClientRepository) Update(client *models.Client) error {
	return r.db.Save(client).Error
}

// SoftDelete marks the client deleted. Projects, tasks, and memberships
// stay in place; they become unreachable because every containment walk
// checks the client's alive state.
func (r *GormClientRepository) SoftDelete(id uuid.UUID, actorID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Client{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted":    true,
			"deleted_at":    now,
			"updated_by_id": actorID,
		}).Error
}

// HardDelete removes the client and everything beneath it in one transaction.
func (r *GormClientRepository) HardDelete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		projectIDs := tx.Model(&models.Project{}).Select("id").Where("client_id = ?", id)
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id IN (?)", projectIDs)

		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id IN (?)", projectIDs).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.ClientMembership{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Client{}).Error
	})
}

// AddMember adds a membership row
func (r *GormClientRepository) AddMember(member *models.ClientMembership) error {
	return r.db.Create(member).Error
}

// FindMembership finds a membership regardless of its active flag
func (r *GormClientRepository) FindMembership(clientID, userID uuid.UUID) (*models.ClientMembership, error) {
	var member models.ClientMembership
	if err := r.db.Scopes(database.Alive).
		Where("client_id = ? AND user_id = ?", clientID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindActiveMembership finds a membership with is_active = true. An
// inactive row grants nothing even though it still exists.
func (r *GormClientRepository) FindActiveMembership(clientID, userID uuid.UUID) (*models.ClientMembership, error) {
	var member models.ClientMembership
	if err := r.db.Scopes(database.Alive).
		Where("client_id = ? AND user_id = ? AND is_active = ?", clientID, userID, true).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMembership updates a membership row
func (r *GormClientRepository) UpdateMembership(member *models.ClientMembership) error {
	return r.db.Save(member).Error
}

// ListMembershipsByUser lists all active memberships of a user with the
// client preloaded
func (r *GormClientRepository) ListMembershipsByUser(userID uuid.UUID) ([]models.ClientMembership, error) {
	var memberships []models.ClientMembership
	if err := r.db.Scopes(database.Alive).
		Preload("Client").
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists all memberships of a client with users preloaded
func (r *GormClientRepository) ListMembers(clientID uuid.UUID) ([]models.ClientMembership, error) {
	var members []models.ClientMembership
	if err := r.db.Scopes(database.Alive).
		Preload("User").
		Where("client_id = ?", clientID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
