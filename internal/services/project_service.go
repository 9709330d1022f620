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
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectSlugTaken = errors.New("project slug already exists in this client")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDateRange = errors.New("end date must not be before start date")
	ErrReadOnlyMember   = errors.New("viewers cannot modify resources")
)

// ProjectService handles project business logic.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	invalidator cache.ClientInvalidator
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, invalidator cache.ClientInvalidator) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		invalidator: invalidator,
	}
}

// CreateProjectInput represents the information to create a project.
type CreateProjectInput struct {
	Name        string
	Slug        string
	Description string
	Status      models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateProject creates a project inside the client. The slug is generated
// from the name when absent and must be unique among the client's live
// projects.
func (s *ProjectService) CreateProject(ctx context.Context, actor *models.ClientMembership, clientID uuid.UUID, input CreateProjectInput) (*models.Project, error) {
	if !actor.Role.CanWrite() {
		return nil, ErrReadOnlyMember
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	status := input.Status
	if status == "" {
		status = models.ProjectStatusDraft
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := validateDateRange(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	count, err := s.projectRepo.CountBySlug(clientID, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return nil, ErrProjectSlugTaken
	}

	project := &models.Project{
		ClientID:    clientID,
		Name:        name,
		Slug:        &slug,
		Description: input.Description,
		Status:      status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	project.CreatedByID = &actor.UserID
	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.invalidate(ctx, clientID)
	return project, nil
}

// GetProject retrieves a project by ID.
func (s *ProjectService) GetProject(id uuid.UUID) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// ListProjects lists the client's live projects with pagination.
func (s *ProjectService) ListProjects(clientID uuid.UUID, params utils.PaginationParams) ([]models.Project, int64, error) {
	projects, total, err := s.projectRepo.List(clientID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProjectInput holds the updatable project fields. Nil means unchanged.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
	ClearDates  bool
}

// UpdateProject applies changes to a project.
func (s *ProjectService) UpdateProject(ctx context.Context, actor *models.ClientMembership, project *models.Project, input UpdateProjectInput) (*models.Project, error) {
	if !actor.Role.CanWrite() {
		return nil, ErrReadOnlyMember
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("project name is required")
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		project.Status = *input.Status
	}
	if input.ClearDates {
		project.StartDate = nil
		project.EndDate = nil
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}
	if err := validateDateRange(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}
	project.UpdatedByID = &actor.UserID

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.invalidate(ctx, project.ClientID)
	return project, nil
}

// DeleteProject soft-deletes a project. Requires a managing role. Tasks and
// comments beneath it are untouched; the containment walk hides them.
func (s *ProjectService) DeleteProject(ctx context.Context, actor *models.ClientMembership, project *models.Project) error {
	if !actor.Role.CanManage() {
		return ErrInsufficientRole
	}

	if err := s.projectRepo.SoftDelete(project.ID, actor.UserID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.invalidate(ctx, project.ClientID)
	return nil
}

// PurgeProject hard-deletes a project and everything beneath it.
func (s *ProjectService) PurgeProject(ctx context.Context, actor *models.ClientMembership, project *models.Project) error {
	if !actor.Role.CanManage() {
		return ErrInsufficientRole
	}

	if err := s.projectRepo.HardDelete(project.ID); err != nil {
		return fmt.Errorf("failed to purge project: %w", err)
	}

	s.invalidate(ctx, project.ClientID)
	return nil
}

func (s *ProjectService) invalidate(ctx context.Context, clientID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	_ = s.invalidator.InvalidateClient(ctx, clientID)
}

func validateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrInvalidDateRange
	}
	return nil
}
