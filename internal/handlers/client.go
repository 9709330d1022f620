package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// ClientHandler coordinates client and membership HTTP handlers.
type ClientHandler struct {
	clientService *services.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clientService *services.ClientService) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
	}
}

// CreateClient creates a new client owned by the caller.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateClientRequest struct {
		Name            string `json:"name" binding:"required,min=1,max=255"`
		Slug            string `json:"slug" binding:"omitempty,max=120"`
		DefaultTimezone string `json:"default_timezone" binding:"omitempty,max=64"`
	}

	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	client, err := h.clientService.CreateClient(userID, services.CreateClientInput{
		Name:            req.Name,
		Slug:            req.Slug,
		DefaultTimezone: req.DefaultTimezone,
	})
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToClientDTO(*client))
}

// ListClients lists the clients the caller actively belongs to.
func (h *ClientHandler) ListClients(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	clients, err := h.clientService.ListClients(userID)
	if err != nil {
		respondClientError(c, err)
		return
	}

	dtos := make([]dto.ClientDTO, len(clients))
	for i, client := range clients {
		dtos[i] = dto.ToClientDTO(client)
	}

	c.JSON(http.StatusOK, gin.H{"clients": dtos})
}

// GetClient returns a client with its members and the caller's role.
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	members, err := h.clientService.ListMembers(client.ID)
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToClientDetailDTO(*client, members, member.Role))
}

// UpdateClient updates a client's settings.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	type UpdateClientRequest struct {
		Name            *string `json:"name" binding:"omitempty,min=1,max=255"`
		DefaultTimezone *string `json:"default_timezone" binding:"omitempty,max=64"`
		IsActive        *bool   `json:"is_active"`
	}

	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.clientService.UpdateClient(member, client.ID, services.UpdateClientInput{
		Name:            req.Name,
		DefaultTimezone: req.DefaultTimezone,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToClientDTO(*updated))
}

// DeleteClient soft-deletes a client. Its data stays in the database but
// every read and containment walk stops seeing it.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), member, client.ID); err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Client deleted",
	})
}

// PurgeClient hard-deletes a client and everything beneath it.
func (h *ClientHandler) PurgeClient(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	if err := h.clientService.PurgeClient(c.Request.Context(), member, client.ID); err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Client purged",
	})
}

// AddMember adds a user to the client by username.
func (h *ClientHandler) AddMember(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Username string                `json:"username" binding:"required"`
		Role     models.MembershipRole `json:"role" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	added, err := h.clientService.AddMember(member, client.ID, req.Username, req.Role)
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMemberDTO(*added))
}

// ChangeMemberRole changes a member's role.
func (h *ClientHandler) ChangeMemberRole(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type ChangeRoleRequest struct {
		Role models.MembershipRole `json:"role" binding:"required"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.clientService.ChangeMemberRole(member, client.ID, targetID, req.Role)
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberDTO(*updated))
}

// SetMemberActive activates or deactivates a membership. Deactivation is
// how members are removed; the row stays for audit.
func (h *ClientHandler) SetMemberActive(c *gin.Context) {
	client, member, ok := clientFromContext(c)
	if !ok {
		return
	}

	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type SetActiveRequest struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.clientService.SetMemberActive(member, client.ID, targetID, *req.IsActive)
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberDTO(*updated))
}

func clientFromContext(c *gin.Context) (*models.Client, *models.ClientMembership, bool) {
	member, ok := middleware.GetMembership(c)
	if !ok {
		apierrors.InternalError(c, "Client access required")
		return nil, nil, false
	}

	value, exists := c.Get(middleware.ContextKeyClient)
	if !exists {
		apierrors.InternalError(c, "Client access required")
		return nil, nil, false
	}
	client, ok := value.(*models.Client)
	if !ok {
		apierrors.InternalError(c, "Invalid client data")
		return nil, nil, false
	}

	return client, member, true
}

func respondClientError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrClientNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrClientSlugTaken),
		errors.Is(err, services.ErrMemberAlreadyExists):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInsufficientRole):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrLastOwner):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
