package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
)

// Context keys set by the resource access middleware
const (
	ContextKeyMembership = "client_membership"
	ContextKeyClient     = "client"
	ContextKeyProject    = "project"
	ContextKeyTask       = "task"
	ContextKeyComment    = "comment"
)

// RequireClientAccess checks that the user holds an active membership in the
// client named by the URL. Denied and not-found both answer 404 so the
// response does not leak whether the client exists.
func RequireClientAccess(guard *authz.Guard, clients repository.ClientRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := parseUUIDParam(c, "client_id", "Invalid client ID")
		if !ok {
			return
		}

		member, ok := authorize(c, guard, clientID, authz.KindClient, "Client not found")
		if !ok {
			return
		}

		client, err := clients.FindByID(clientID)
		if err != nil {
			apierrors.NotFound(c, "Client not found")
			c.Abort()
			return
		}

		c.Set(ContextKeyMembership, member)
		c.Set(ContextKeyClient, client)
		c.Next()
	}
}

// RequireProjectAccess checks access to a project nested under a client. The
// project must belong to the client in the URL; a project ID from another
// client answers 404 even when the user could access it there.
func RequireProjectAccess(guard *authz.Guard, projects repository.ProjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := parseUUIDParam(c, "client_id", "Invalid client ID")
		if !ok {
			return
		}
		projectID, ok := parseUUIDParam(c, "project_id", "Invalid project ID")
		if !ok {
			return
		}

		project, err := projects.FindByIDInClient(projectID, clientID)
		if err != nil {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		member, ok := authorize(c, guard, project.ID, authz.KindProject, "Project not found")
		if !ok {
			return
		}

		c.Set(ContextKeyMembership, member)
		c.Set(ContextKeyProject, project)
		c.Next()
	}
}

// RequireTaskAccess checks access to a task nested under a project.
func RequireTaskAccess(guard *authz.Guard, tasks repository.TaskRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseUUIDParam(c, "project_id", "Invalid project ID")
		if !ok {
			return
		}
		taskID, ok := parseUUIDParam(c, "task_id", "Invalid task ID")
		if !ok {
			return
		}

		task, err := tasks.FindByIDInProject(taskID, projectID)
		if err != nil {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		member, ok := authorize(c, guard, task.ID, authz.KindTask, "Task not found")
		if !ok {
			return
		}

		c.Set(ContextKeyMembership, member)
		c.Set(ContextKeyTask, task)
		c.Next()
	}
}

// RequireCommentAccess checks access to a comment nested under a task.
func RequireCommentAccess(guard *authz.Guard, comments repository.CommentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := parseUUIDParam(c, "task_id", "Invalid task ID")
		if !ok {
			return
		}
		commentID, ok := parseUUIDParam(c, "comment_id", "Invalid comment ID")
		if !ok {
			return
		}

		comment, err := comments.FindByIDInTask(commentID, taskID)
		if err != nil {
			apierrors.NotFound(c, "Comment not found")
			c.Abort()
			return
		}

		member, ok := authorize(c, guard, comment.ID, authz.KindComment, "Comment not found")
		if !ok {
			return
		}

		c.Set(ContextKeyMembership, member)
		c.Set(ContextKeyComment, comment)
		c.Next()
	}
}

// GetMembership retrieves the membership stashed by the access middleware
func GetMembership(c *gin.Context) (*models.ClientMembership, bool) {
	value, exists := c.Get(ContextKeyMembership)
	if !exists {
		return nil, false
	}
	member, ok := value.(*models.ClientMembership)
	return member, ok
}

func authorize(c *gin.Context, guard *authz.Guard, resourceID uuid.UUID, kind authz.ResourceKind, notFoundMsg string) (*models.ClientMembership, bool) {
	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		c.Abort()
		return nil, false
	}

	member, err := guard.Authorize(userID, resourceID, kind)
	if err != nil {
		// Return 404 instead of 403 to avoid leaking resource existence
		if errors.Is(err, authz.ErrNotFound) || errors.Is(err, authz.ErrDenied) {
			apierrors.NotFound(c, notFoundMsg)
			c.Abort()
			return nil, false
		}
		logger.FromGin(c).Error("authorization check failed",
			zap.String("resource_kind", kind.String()),
			zap.String("resource_id", resourceID.String()),
			zap.Error(err),
		)
		apierrors.InternalError(c, "")
		c.Abort()
		return nil, false
	}

	return member, true
}

func parseUUIDParam(c *gin.Context, name, invalidMsg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierrors.BadRequest(c, invalidMsg)
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}
