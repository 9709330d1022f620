package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uuid.UUID) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}

// APIKeyRepository defines the interface for API key data access.
// Keys are never physically deleted in normal operation; revocation is the
// terminal state.
type APIKeyRepository interface {
	// Create stores a new API key (hash only, never the raw secret)
	Create(key *models.APIKey) error

	// FindByID finds an API key by ID
	FindByID(id uuid.UUID) (*models.APIKey, error)

	// ListByUser lists all keys belonging to a user, revoked included
	ListByUser(userID uuid.UUID) ([]models.APIKey, error)

	// ListActive lists all non-revoked keys across users
	ListActive() ([]models.APIKey, error)

	// MarkRevoked flips the revoked flag; a single-row update
	MarkRevoked(id uuid.UUID) error

	// UpdateLastUsed sets last_used_at; a single-row update
	UpdateLastUsed(id uuid.UUID, at time.Time) error
}

// MFADeviceRepository defines the interface for MFA device data access
type MFADeviceRepository interface {
	// Create stores a new, unconfirmed device
	Create(device *models.MFADevice) error

	// FindByID finds a device by ID
	FindByID(id uuid.UUID) (*models.MFADevice, error)

	// ListByUser lists all devices of a user
	ListByUser(userID uuid.UUID) ([]models.MFADevice, error)

	// ListConfirmedByUser lists only confirmed devices of a user
	ListConfirmedByUser(userID uuid.UUID) ([]models.MFADevice, error)

	// Confirm marks a device as confirmed
	Confirm(id uuid.UUID) error

	// Delete removes a device
	Delete(id uuid.UUID) error
}

// ClientRepository defines the interface for client (tenant) and
// membership data access
type ClientRepository interface {
	// Create creates a new client
	Create(client *models.Client) error

	// FindByID finds a non-deleted client by ID
	FindByID(id uuid.UUID) (*models.Client, error)

	// FindBySlug finds a non-deleted client by slug
	FindBySlug(slug string) (*models.Client, error)

	// Update updates a client
	Update(client *models.Client) error

	// SoftDelete marks the client deleted without touching its children
	SoftDelete(id uuid.UUID, actorID uuid.UUID) error

	// HardDelete removes the client and cascades through projects, tasks,
	// assignments, comments, and memberships
	HardDelete(id uuid.UUID) error

	// AddMember adds a membership row
	AddMember(member *models.ClientMembership) error

	// FindMembership finds a membership regardless of its active flag
	FindMembership(clientID, userID uuid.UUID) (*models.ClientMembership, error)

	// FindActiveMembership finds a membership with is_active = true
	FindActiveMembership(clientID, userID uuid.UUID) (*models.ClientMembership, error)

	// UpdateMembership updates a membership row
	UpdateMembership(member *models.ClientMembership) error

	// ListMembershipsByUser lists all active memberships of a user
	ListMembershipsByUser(userID uuid.UUID) ([]models.ClientMembership, error)

	// ListMembers lists all memberships of a client
	ListMembers(clientID uuid.UUID) ([]models.ClientMembership, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a non-deleted project by ID
	FindByID(id uuid.UUID, preload ...string) (*models.Project, error)

	// FindByIDInClient finds a non-deleted project scoped to a client
	FindByIDInClient(id, clientID uuid.UUID) (*models.Project, error)

	// List lists non-deleted projects of a client with pagination
	List(clientID uuid.UUID, params utils.PaginationParams) ([]models.Project, int64, error)

	// CountBySlug counts non-deleted projects with the slug inside a client
	CountBySlug(clientID uuid.UUID, slug string) (int64, error)

	// Update updates a project
	Update(project *models.Project) error

	// SoftDelete marks the project deleted; children are untouched
	SoftDelete(id uuid.UUID, actorID uuid.UUID) error

	// HardDelete removes the project and cascades through tasks,
	// assignments, and comments
	HardDelete(id uuid.UUID) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID      uuid.UUID
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedUserID *uuid.UUID
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
	Page           int
	PageSize       int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a non-deleted task by ID with optional preloading
	FindByID(id uuid.UUID, preload ...string) (*models.Task, error)

	// FindByIDInProject finds a non-deleted task scoped to a project
	FindByIDInProject(id, projectID uuid.UUID) (*models.Task, error)

	// List retrieves non-deleted tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// SoftDelete marks the task deleted; children are untouched
	SoftDelete(id uuid.UUID, actorID uuid.UUID) error

	// HardDelete removes the task, its assignments, and its comments
	HardDelete(id uuid.UUID) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(taskID uuid.UUID, userIDs []uuid.UUID) error

	// UnassignUsers removes user assignments from a task
	UnassignUsers(taskID uuid.UUID, userIDs []uuid.UUID) error

	// CountActiveMembers counts how many of the given user IDs hold an
	// active membership in the client
	CountActiveMembers(userIDs []uuid.UUID, clientID uuid.UUID) (int64, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(comment *models.Comment) error

	// FindByID finds a non-deleted comment by ID
	FindByID(id uuid.UUID) (*models.Comment, error)

	// FindByIDInTask finds a non-deleted comment scoped to a task
	FindByIDInTask(id, taskID uuid.UUID) (*models.Comment, error)

	// ListByTask lists non-deleted comments of a task, oldest first
	ListByTask(taskID uuid.UUID, params utils.PaginationParams) ([]models.Comment, int64, error)

	// Update updates a comment
	Update(comment *models.Comment) error

	// SoftDelete marks the comment deleted
	SoftDelete(id uuid.UUID, actorID uuid.UUID) error

	// HardDelete removes the comment
	HardDelete(id uuid.UUID) error
}
