package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// ResourceKind is the closed set of resource types the guard can resolve.
// Each kind has an explicit resolver; there is no attribute-name lookup.
type ResourceKind int

const (
	KindClient ResourceKind = iota
	KindProject
	KindTask
	KindComment
)

func (k ResourceKind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindProject:
		return "project"
	case KindTask:
		return "task"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

var (
	// ErrNotFound means the resource, or a link in its containment chain,
	// does not resolve to a live row.
	ErrNotFound = errors.New("resource not found")

	// ErrDenied means the resource exists but the user holds no active
	// membership in its owning client.
	ErrDenied = errors.New("access denied")

	// ErrUnknownResourceKind is a programmer error, not a security
	// decision; the transport maps it to an internal error.
	ErrUnknownResourceKind = errors.New("unknown resource kind")
)

// Guard answers one question: does this user belong to the client that
// owns this resource? It walks the containment chain
// (comment -> task -> project -> client) and checks for an active
// membership. Role-based restrictions are resource-level policy, outside
// the guard: membership is necessary, not sufficient, for writes.
type Guard struct {
	clients  repository.ClientRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	comments repository.CommentRepository
}

// NewGuard creates a new Guard.
func NewGuard(
	clients repository.ClientRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	comments repository.CommentRepository,
) *Guard {
	return &Guard{
		clients:  clients,
		projects: projects,
		tasks:    tasks,
		comments: comments,
	}
}

// Authorize resolves the owning client of the resource and checks the
// user's membership. On success it returns the membership so callers can
// apply role policy without a second lookup.
func (g *Guard) Authorize(userID, resourceID uuid.UUID, kind ResourceKind) (*models.ClientMembership, error) {
	clientID, err := g.resolveOwningClient(resourceID, kind)
	if err != nil {
		return nil, err
	}

	member, err := g.clients.FindActiveMembership(clientID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDenied
		}
		return nil, fmt.Errorf("membership lookup failed: %w", err)
	}

	return member, nil
}

// resolveOwningClient walks the containment chain one live hop at a time.
// A soft-deleted link anywhere in the chain makes the resource unresolvable.
func (g *Guard) resolveOwningClient(resourceID uuid.UUID, kind ResourceKind) (uuid.UUID, error) {
	switch kind {
	case KindClient:
		client, err := g.clients.FindByID(resourceID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		return client.ID, nil

	case KindProject:
		project, err := g.projects.FindByID(resourceID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		return g.liveClient(project.ClientID)

	case KindTask:
		task, err := g.tasks.FindByID(resourceID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		project, err := g.projects.FindByID(task.ProjectID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		return g.liveClient(project.ClientID)

	case KindComment:
		comment, err := g.comments.FindByID(resourceID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		task, err := g.tasks.FindByID(comment.TaskID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		project, err := g.projects.FindByID(task.ProjectID)
		if err != nil {
			return uuid.Nil, notFoundOr(err)
		}
		return g.liveClient(project.ClientID)

	default:
		return uuid.Nil, fmt.Errorf("%w: %d", ErrUnknownResourceKind, kind)
	}
}

func (g *Guard) liveClient(clientID uuid.UUID) (uuid.UUID, error) {
	client, err := g.clients.FindByID(clientID)
	if err != nil {
		return uuid.Nil, notFoundOr(err)
	}
	return client.ID, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("resource lookup failed: %w", err)
}
