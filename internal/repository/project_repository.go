package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// FindByID finds a non-deleted project by ID with optional preloading
func (r *GormProjectRepository) FindByID(id uuid.UUID, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db.Scopes(database.Alive)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDInClient finds a non-deleted project scoped to a client
func (r *GormProjectRepository) FindByIDInClient(id, clientID uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.Scopes(database.Alive).
		Where("id = ? AND client_id = ?", id, clientID).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List lists non-deleted projects of a client, newest first
func (r *GormProjectRepository) List(clientID uuid.UUID, params utils.PaginationParams) ([]models.Project, int64, error) {
	query := r.db.Model(&models.Project{}).
		Scopes(database.Alive).
		Where("client_id = ?", clientID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	if err := query.
		Order("created_at DESC").
		Scopes(database.Paginate(params)).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// CountBySlug counts non-deleted projects with the slug inside a client
func (r *GormProjectRepository) CountBySlug(clientID uuid.UUID, slug string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Project{}).
		Scopes(database.Alive).
		Where("client_id = ? AND slug = ?", clientID, slug).
		Count(&count).Error
	return count, err
}

// Update updates a project
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// SoftDelete marks the project deleted; tasks and comments stay in place
func (r *GormProjectRepository) SoftDelete(id uuid.UUID, actorID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted":    true,
			"deleted_at":    now,
			"updated_by_id": actorID,
		}).Error
}

// HardDelete removes the project and cascades through its tasks
func (r *GormProjectRepository) HardDelete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", id)

		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Project{}).Error
	})
}
