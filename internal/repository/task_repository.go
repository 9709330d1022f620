package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a non-deleted task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uuid.UUID, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.Scopes(database.Alive)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDInProject finds a non-deleted task scoped to a project
func (r *GormTaskRepository) FindByIDInProject(id, projectID uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.Scopes(database.Alive).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves non-deleted tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.Model(&models.Task{}).
		Scopes(database.AliveIn("tasks")).
		Where("tasks.project_id = ?", filter.ProjectID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID)
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	var tasks []models.Task
	if err := listQuery.
		Preload("Assignments").
		Preload("Assignments.User").
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// SoftDelete marks the task deleted; comments and assignments stay in place
func (r *GormTaskRepository) SoftDelete(id uuid.UUID, actorID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted":    true,
			"deleted_at":    now,
			"updated_by_id": actorID,
		}).Error
}

// HardDelete removes the task, its assignments, and its comments
func (r *GormTaskRepository) HardDelete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Task{}).Error
	})
}

// AssignUsers assigns multiple users to a task; re-assigning is a no-op
func (r *GormTaskRepository) AssignUsers(taskID uuid.UUID, userIDs []uuid.UUID) error {
	assignments := make([]models.TaskAssignment, len(userIDs))
	for i, userID := range userIDs {
		assignments[i] = models.TaskAssignment{
			TaskID: taskID,
			UserID: userID,
		}
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&assignments).Error
}

// UnassignUsers removes user assignments from a task
func (r *GormTaskRepository) UnassignUsers(taskID uuid.UUID, userIDs []uuid.UUID) error {
	return r.db.Where("task_id = ? AND user_id IN ?", taskID, userIDs).
		Delete(&models.TaskAssignment{}).Error
}

// CountActiveMembers counts how many of the given user IDs hold an active
// membership in the client
func (r *GormTaskRepository) CountActiveMembers(userIDs []uuid.UUID, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClientMembership{}).
		Scopes(database.Alive).
		Where("client_id = ? AND user_id IN ? AND is_active = ?", clientID, userIDs, true).
		Count(&count).Error
	return count, err
}
