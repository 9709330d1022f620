package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
)

// TaskHandler coordinates task HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
	aiService   *services.AIService
}

// NewTaskHandler creates a new TaskHandler. aiService may be nil when no
// OpenAI key is configured.
func NewTaskHandler(taskService *services.TaskService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		aiService:   aiService,
	}
}

// CreateTask creates a task inside the project.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	project, member, ok := projectFromContext(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required,min=1,max=255"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), member, project, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks lists the project's live tasks matching the query filters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	project, _, ok := projectFromContext(c)
	if !ok {
		return
	}

	filter, ok := parseTaskFilter(c, project.ID)
	if !ok {
		return
	}

	tasks, total, err := h.taskService.ListTasks(filter)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, filter.Page, filter.PageSize, total))
}

// GetTask returns a single task with its assignments.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, _, ok := taskFromContext(c)
	if !ok {
		return
	}

	// Reload with assignments; the access middleware fetches the bare row.
	full, err := h.taskService.GetTask(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*full))
}

// UpdateTask updates a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, member, ok := taskFromContext(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title        *string              `json:"title" binding:"omitempty,min=1,max=255"`
		Description  *string              `json:"description"`
		Status       *models.TaskStatus   `json:"status"`
		Priority     *models.TaskPriority `json:"priority"`
		DueDate      *time.Time           `json:"due_date"`
		ClearDueDate bool                 `json:"clear_due_date"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), member, task, services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask soft-deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, member, ok := taskFromContext(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), member, task); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted",
	})
}

// PurgeTask hard-deletes a task with its assignments and comments.
func (h *TaskHandler) PurgeTask(c *gin.Context) {
	task, member, ok := taskFromContext(c)
	if !ok {
		return
	}

	if err := h.taskService.PurgeTask(c.Request.Context(), member, task); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task purged",
	})
}

// AssignUsers assigns users to a task. Every assignee must be an active
// member of the client.
func (h *TaskHandler) AssignUsers(c *gin.Context) {
	task, member, ok := taskFromContext(c)
	if !ok {
		return
	}

	type AssignRequest struct {
		UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.AssignUsers(c.Request.Context(), member, task, req.UserIDs); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users assigned",
	})
}

// UnassignUsers removes user assignments from a task.
func (h *TaskHandler) UnassignUsers(c *gin.Context) {
	task, member, ok := taskFromContext(c)
	if !ok {
		return
	}

	type UnassignRequest struct {
		UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	}

	var req UnassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.UnassignUsers(c.Request.Context(), member, task, req.UserIDs); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users unassigned",
	})
}

// GenerateTasks extracts task drafts from free text using the AI service.
// Nothing is persisted; the drafts come back for review.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	_, member, ok := projectFromContext(c)
	if !ok {
		return
	}
	if !member.Role.CanWrite() {
		apierrors.Forbidden(c, services.ErrReadOnlyMember.Error())
		return
	}
	if h.aiService == nil {
		apierrors.ServiceUnavailable(c, "AI task generation is not configured")
		return
	}

	type GenerateRequest struct {
		Text string `json:"text" binding:"required,min=1,max=10000"`
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.aiService.GenerateTasksFromText(c.Request.Context(), req.Text)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to generate tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": drafts})
}

func taskFromContext(c *gin.Context) (*models.Task, *models.ClientMembership, bool) {
	member, ok := middleware.GetMembership(c)
	if !ok {
		apierrors.InternalError(c, "Task access required")
		return nil, nil, false
	}

	value, exists := c.Get(middleware.ContextKeyTask)
	if !exists {
		apierrors.InternalError(c, "Task access required")
		return nil, nil, false
	}
	task, ok := value.(*models.Task)
	if !ok {
		apierrors.InternalError(c, "Invalid task data")
		return nil, nil, false
	}

	return task, member, true
}

func parseTaskFilter(c *gin.Context, projectID uuid.UUID) (repository.TaskFilter, bool) {
	filter := repository.TaskFilter{ProjectID: projectID}

	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status filter")
			return filter, false
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.TaskPriority(raw)
		if !priority.Valid() {
			apierrors.BadRequest(c, "Invalid priority filter")
			return filter, false
		}
		filter.Priority = &priority
	}
	if raw := c.Query("assigned_to"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assigned_to filter")
			return filter, false
		}
		filter.AssignedUserID = &userID
	}
	if raw := c.Query("due_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_from filter")
			return filter, false
		}
		filter.DueDateFrom = &t
	}
	if raw := c.Query("due_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_to filter")
			return filter, false
		}
		filter.DueDateTo = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(constants.DefaultPageSize)))
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if pageSize < constants.MinPageSize || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	filter.Page = page
	filter.PageSize = pageSize

	return filter, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrAssigneeOutside):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrReadOnlyMember),
		errors.Is(err, services.ErrInsufficientRole):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
