package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// CommentHandler coordinates comment HTTP handlers.
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// CreateComment adds a comment to the task.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	task, member, ok := taskFromContext(c)
	if !ok {
		return
	}

	type CreateCommentRequest struct {
		Content string `json:"content" binding:"required,min=1,max=10000"`
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.CreateComment(member, task, req.Content)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// ListComments lists the task's live comments, oldest first.
func (h *CommentHandler) ListComments(c *gin.Context) {
	task, _, ok := taskFromContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	comments, total, err := h.commentService.ListComments(task.ID, params)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentListResponse(comments, params, total))
}

// UpdateComment changes a comment's content. Author only.
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	comment, member, ok := commentFromContext(c)
	if !ok {
		return
	}

	type UpdateCommentRequest struct {
		Content string `json:"content" binding:"required,min=1,max=10000"`
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.commentService.UpdateComment(member, comment, req.Content)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentDTO(*updated))
}

// DeleteComment soft-deletes a comment.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	comment, member, ok := commentFromContext(c)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(member, comment); err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment deleted",
	})
}

// PurgeComment hard-deletes a comment.
func (h *CommentHandler) PurgeComment(c *gin.Context) {
	comment, member, ok := commentFromContext(c)
	if !ok {
		return
	}

	if err := h.commentService.PurgeComment(member, comment); err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment purged",
	})
}

func commentFromContext(c *gin.Context) (*models.Comment, *models.ClientMembership, bool) {
	member, ok := middleware.GetMembership(c)
	if !ok {
		apierrors.InternalError(c, "Comment access required")
		return nil, nil, false
	}

	value, exists := c.Get(middleware.ContextKeyComment)
	if !exists {
		apierrors.InternalError(c, "Comment access required")
		return nil, nil, false
	}
	comment, ok := value.(*models.Comment)
	if !ok {
		apierrors.InternalError(c, "Invalid comment data")
		return nil, nil, false
	}

	return comment, member, true
}

func respondCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCommentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotCommentAuthor),
		errors.Is(err, services.ErrReadOnlyMember),
		errors.Is(err, services.ErrInsufficientRole):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
