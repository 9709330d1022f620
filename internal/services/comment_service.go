package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentAuthor = errors.New("only the author can edit a comment")
)

// CommentService handles comment business logic.
type CommentService struct {
	commentRepo repository.CommentRepository
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// CreateComment adds a comment to a task.
func (s *CommentService) CreateComment(actor *models.ClientMembership, task *models.Task, content string) (*models.Comment, error) {
	if !actor.Role.CanWrite() {
		return nil, ErrReadOnlyMember
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}

	authorID := actor.UserID
	comment := &models.Comment{
		TaskID:   task.ID,
		AuthorID: &authorID,
		Content:  content,
	}
	comment.CreatedByID = &authorID
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// GetComment retrieves a comment by ID.
func (s *CommentService) GetComment(id uuid.UUID) (*models.Comment, error) {
	comment, err := s.commentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return comment, nil
}

// ListComments lists a task's live comments, oldest first.
func (s *CommentService) ListComments(taskID uuid.UUID, params utils.PaginationParams) ([]models.Comment, int64, error) {
	comments, total, err := s.commentRepo.ListByTask(taskID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, total, nil
}

// UpdateComment changes a comment's content. Only the author may edit;
// managers can delete but not rewrite someone else's words.
func (s *CommentService) UpdateComment(actor *models.ClientMembership, comment *models.Comment, content string) (*models.Comment, error) {
	if comment.AuthorID == nil || *comment.AuthorID != actor.UserID {
		return nil, ErrNotCommentAuthor
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}

	comment.Content = content
	comment.UpdatedByID = &actor.UserID
	if err := s.commentRepo.Update(comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment. The author or a managing role may
// delete it.
func (s *CommentService) DeleteComment(actor *models.ClientMembership, comment *models.Comment) error {
	isAuthor := comment.AuthorID != nil && *comment.AuthorID == actor.UserID
	if !isAuthor && !actor.Role.CanManage() {
		return ErrInsufficientRole
	}

	if err := s.commentRepo.SoftDelete(comment.ID, actor.UserID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// PurgeComment hard-deletes a comment. Managing roles only.
func (s *CommentService) PurgeComment(actor *models.ClientMembership, comment *models.Comment) error {
	if !actor.Role.CanManage() {
		return ErrInsufficientRole
	}

	if err := s.commentRepo.HardDelete(comment.ID); err != nil {
		return fmt.Errorf("failed to purge comment: %w", err)
	}
	return nil
}
