package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create creates a new comment
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// FindByID finds a non-deleted comment by ID
func (r *GormCommentRepository) FindByID(id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.Scopes(database.Alive).
		Where("id = ?", id).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// FindByIDInTask finds a non-deleted comment scoped to a task
func (r *GormCommentRepository) FindByIDInTask(id, taskID uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.Scopes(database.Alive).
		Where("id = ? AND task_id = ?", id, taskID).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTask lists non-deleted comments of a task, oldest first
func (r *GormCommentRepository) ListByTask(taskID uuid.UUID, params utils.PaginationParams) ([]models.Comment, int64, error) {
	query := r.db.Model(&models.Comment{}).
		Scopes(database.Alive).
		Where("task_id = ?", taskID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	if err := query.
		Preload("Author").
		Order("created_at ASC").
		Scopes(database.Paginate(params)).
		Find(&comments).Error; err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// Update updates a comment
func (r *GormCommentRepository) Update(comment *models.Comment) error {
	return r.db.Save(comment).Error
}

// SoftDelete marks the comment deleted
func (r *GormCommentRepository) SoftDelete(id uuid.UUID, actorID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted":    true,
			"deleted_at":    now,
			"updated_by_id": actorID,
		}).Error
}

// HardDelete removes the comment
func (r *GormCommentRepository) HardDelete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.Comment{}).Error
}
