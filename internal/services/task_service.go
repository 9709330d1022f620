package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrAssigneeOutside = errors.New("assignee is not an active member of the client")
)

// TaskService handles task business logic.
type TaskService struct {
	taskRepo    repository.TaskRepository
	invalidator cache.ClientInvalidator
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, invalidator cache.ClientInvalidator) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		invalidator: invalidator,
	}
}

// CreateTaskInput represents the information to create a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
}

// CreateTask creates a task inside the project.
func (s *TaskService) CreateTask(ctx context.Context, actor *models.ClientMembership, project *models.Project, input CreateTaskInput) (*models.Task, error) {
	if !actor.Role.CanWrite() {
		return nil, ErrReadOnlyMember
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task := &models.Task{
		ProjectID:   project.ID,
		Title:       title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
	}
	task.CreatedByID = &actor.UserID
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.invalidate(ctx, project.ClientID)
	return task, nil
}

// GetTask retrieves a task with its assignments and their users.
func (s *TaskService) GetTask(id uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id, "Assignments", "Assignments.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListTasks lists the project's live tasks matching the filter.
func (s *TaskService) ListTasks(filter repository.TaskFilter) ([]models.Task, int64, error) {
	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// UpdateTaskInput holds the updatable task fields. Nil means unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTask applies changes to a task.
func (s *TaskService) UpdateTask(ctx context.Context, actor *models.ClientMembership, task *models.Task, input UpdateTaskInput) (*models.Task, error) {
	if !actor.Role.CanWrite() {
		return nil, ErrReadOnlyMember
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("task title is required")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	task.UpdatedByID = &actor.UserID

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.invalidate(ctx, actor.ClientID)
	return task, nil
}

// DeleteTask soft-deletes a task. Comments beneath it stay in place.
func (s *TaskService) DeleteTask(ctx context.Context, actor *models.ClientMembership, task *models.Task) error {
	if !actor.Role.CanWrite() {
		return ErrReadOnlyMember
	}

	if err := s.taskRepo.SoftDelete(task.ID, actor.UserID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.invalidate(ctx, actor.ClientID)
	return nil
}

// PurgeTask hard-deletes a task with its assignments and comments.
func (s *TaskService) PurgeTask(ctx context.Context, actor *models.ClientMembership, task *models.Task) error {
	if !actor.Role.CanManage() {
		return ErrInsufficientRole
	}

	if err := s.taskRepo.HardDelete(task.ID); err != nil {
		return fmt.Errorf("failed to purge task: %w", err)
	}

	s.invalidate(ctx, actor.ClientID)
	return nil
}

// AssignUsers assigns users to a task. Every assignee must hold an active
// membership in the task's client; one outsider rejects the whole batch.
func (s *TaskService) AssignUsers(ctx context.Context, actor *models.ClientMembership, task *models.Task, userIDs []uuid.UUID) error {
	if !actor.Role.CanWrite() {
		return ErrReadOnlyMember
	}
	if len(userIDs) == 0 {
		return fmt.Errorf("no users to assign")
	}

	count, err := s.taskRepo.CountActiveMembers(userIDs, actor.ClientID)
	if err != nil {
		return fmt.Errorf("failed to check assignees: %w", err)
	}
	if count != int64(len(uniqueIDs(userIDs))) {
		return ErrAssigneeOutside
	}

	if err := s.taskRepo.AssignUsers(task.ID, userIDs); err != nil {
		return fmt.Errorf("failed to assign users: %w", err)
	}

	s.invalidate(ctx, actor.ClientID)
	return nil
}

// UnassignUsers removes user assignments from a task.
func (s *TaskService) UnassignUsers(ctx context.Context, actor *models.ClientMembership, task *models.Task, userIDs []uuid.UUID) error {
	if !actor.Role.CanWrite() {
		return ErrReadOnlyMember
	}
	if len(userIDs) == 0 {
		return fmt.Errorf("no users to unassign")
	}

	if err := s.taskRepo.UnassignUsers(task.ID, userIDs); err != nil {
		return fmt.Errorf("failed to unassign users: %w", err)
	}

	s.invalidate(ctx, actor.ClientID)
	return nil
}

func (s *TaskService) invalidate(ctx context.Context, clientID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	_ = s.invalidator.InvalidateClient(ctx, clientID)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
