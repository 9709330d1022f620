package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// CommentDTO represents a comment in API responses. Author is null when the
// author's account has been removed.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Content   string    `json:"content"`
	Author    *UserDTO  `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentListResponse represents a paginated list of comments
type CommentListResponse struct {
	Comments   []CommentDTO             `json:"comments"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	if comment.Author != nil {
		author := ToUserDTO(*comment.Author)
		dto.Author = &author
	}
	return dto
}

// ToCommentListResponse converts comments and pagination info to a list response
func ToCommentListResponse(comments []models.Comment, params utils.PaginationParams, total int64) CommentListResponse {
	dtos := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		dtos[i] = ToCommentDTO(comment)
	}

	return CommentListResponse{
		Comments:   dtos,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
