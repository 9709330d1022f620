package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// ProjectHandler coordinates project HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProject creates a project inside the client.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string               `json:"name" binding:"required,min=1,max=255"`
		Slug        string               `json:"slug" binding:"omitempty,max=120"`
		Description string               `json:"description"`
		Status      models.ProjectStatus `json:"status"`
		StartDate   *time.Time           `json:"start_date"`
		EndDate     *time.Time           `json:"end_date"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), member, client.ID, services.CreateProjectInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects lists the client's live projects with pagination.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	client, _, ok := clientFromContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	projects, total, err := h.projectService.ListProjects(client.ID, params)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, params, total))
}

// GetProject returns a single project.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, _, ok := projectFromContext(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject updates a project.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	project, member, ok := projectFromContext(c)
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		Name        *string               `json:"name" binding:"omitempty,min=1,max=255"`
		Description *string               `json:"description"`
		Status      *models.ProjectStatus `json:"status"`
		StartDate   *time.Time            `json:"start_date"`
		EndDate     *time.Time            `json:"end_date"`
		ClearDates  bool                  `json:"clear_dates"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.projectService.UpdateProject(c.Request.Context(), member, project, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ClearDates:  req.ClearDates,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*updated))
}

// DeleteProject soft-deletes a project.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	project, member, ok := projectFromContext(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), member, project); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted",
	})
}

// PurgeProject hard-deletes a project with its tasks and comments.
func (h *ProjectHandler) PurgeProject(c *gin.Context) {
	project, member, ok := projectFromContext(c)
	if !ok {
		return
	}

	if err := h.projectService.PurgeProject(c.Request.Context(), member, project); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project purged",
	})
}

func projectFromContext(c *gin.Context) (*models.Project, *models.ClientMembership, bool) {
	member, ok := middleware.GetMembership(c)
	if !ok {
		apierrors.InternalError(c, "Project access required")
		return nil, nil, false
	}

	value, exists := c.Get(middleware.ContextKeyProject)
	if !exists {
		apierrors.InternalError(c, "Project access required")
		return nil, nil, false
	}
	project, ok := value.(*models.Project)
	if !ok {
		apierrors.InternalError(c, "Invalid project data")
		return nil, nil, false
	}

	return project, member, true
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectSlugTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidDateRange):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrReadOnlyMember),
		errors.Is(err, services.ErrInsufficientRole):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
