package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrClientSlugTaken     = errors.New("client slug already exists")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("user is already a member")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInsufficientRole    = errors.New("insufficient role")
	ErrLastOwner           = errors.New("cannot remove the last owner")
)

// ClientService handles client (tenant) and membership business logic.
type ClientService struct {
	clientRepo  repository.ClientRepository
	userRepo    repository.UserRepository
	invalidator cache.ClientInvalidator
}

// NewClientService creates a new ClientService.
func NewClientService(
	clientRepo repository.ClientRepository,
	userRepo repository.UserRepository,
	invalidator cache.ClientInvalidator,
) *ClientService {
	return &ClientService{
		clientRepo:  clientRepo,
		userRepo:    userRepo,
		invalidator: invalidator,
	}
}

// CreateClientInput represents the information to create a client.
type CreateClientInput struct {
	Name            string
	Slug            string
	DefaultTimezone string
}

// CreateClient creates a new client and makes the creator its owner.
func (s *ClientService) CreateClient(actorID uuid.UUID, input CreateClientInput) (*models.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("client name is required")
	}

	slug := strings.TrimSpace(input.Slug)
	generated := slug == ""
	if generated {
		slug = utils.Slugify(name)
	}
	if _, err := s.clientRepo.FindBySlug(slug); err == nil {
		// A slug the caller picked conflicts; a derived one gets a suffix.
		if !generated {
			return nil, ErrClientSlugTaken
		}
		suffix, err := utils.GenerateSlugSuffix()
		if err != nil {
			return nil, fmt.Errorf("failed to generate slug suffix: %w", err)
		}
		slug = slug + "-" + suffix
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	timezone := input.DefaultTimezone
	if timezone == "" {
		timezone = "UTC"
	}

	client := &models.Client{
		Name:            name,
		Slug:            slug,
		DefaultTimezone: timezone,
		IsActive:        true,
	}
	client.CreatedByID = &actorID
	if err := s.clientRepo.Create(client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	owner := &models.ClientMembership{
		UserID:   actorID,
		ClientID: client.ID,
		Role:     models.RoleOwner,
		IsActive: true,
	}
	owner.CreatedByID = &actorID
	if err := s.clientRepo.AddMember(owner); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	return client, nil
}

// GetClient retrieves a client by ID.
func (s *ClientService) GetClient(id uuid.UUID) (*models.Client, error) {
	client, err := s.clientRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return client, nil
}

// ListClients lists the clients the user actively belongs to.
func (s *ClientService) ListClients(userID uuid.UUID) ([]models.Client, error) {
	memberships, err := s.clientRepo.ListMembershipsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	clients := make([]models.Client, 0, len(memberships))
	for _, m := range memberships {
		if m.Client.IsDeleted {
			continue
		}
		clients = append(clients, m.Client)
	}
	return clients, nil
}

// UpdateClientInput holds the updatable client fields. Nil means unchanged.
type UpdateClientInput struct {
	Name            *string
	DefaultTimezone *string
	IsActive        *bool
}

// UpdateClient applies changes to a client. Requires a managing role.
func (s *ClientService) UpdateClient(actor *models.ClientMembership, clientID uuid.UUID, input UpdateClientInput) (*models.Client, error) {
	if !actor.Role.CanManage() {
		return nil, ErrInsufficientRole
	}

	client, err := s.GetClient(clientID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("client name is required")
		}
		client.Name = name
	}
	if input.DefaultTimezone != nil {
		client.DefaultTimezone = *input.DefaultTimezone
	}
	if input.IsActive != nil {
		client.IsActive = *input.IsActive
	}
	client.UpdatedByID = &actor.UserID

	if err := s.clientRepo.Update(client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

// DeleteClient soft-deletes a client. Only owners may do this. The client's
// projects and tasks stay in place but become unreachable through the
// containment walk.
func (s *ClientService) DeleteClient(ctx context.Context, actor *models.ClientMembership, clientID uuid.UUID) error {
	if actor.Role != models.RoleOwner {
		return ErrInsufficientRole
	}

	if _, err := s.GetClient(clientID); err != nil {
		return err
	}
	if err := s.clientRepo.SoftDelete(clientID, actor.UserID); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	s.invalidate(ctx, clientID)
	return nil
}

// PurgeClient hard-deletes a client and everything beneath it. Owner only.
func (s *ClientService) PurgeClient(ctx context.Context, actor *models.ClientMembership, clientID uuid.UUID) error {
	if actor.Role != models.RoleOwner {
		return ErrInsufficientRole
	}

	if err := s.clientRepo.HardDelete(clientID); err != nil {
		return fmt.Errorf("failed to purge client: %w", err)
	}

	s.invalidate(ctx, clientID)
	return nil
}

// ListMembers lists all memberships of a client.
func (s *ClientService) ListMembers(clientID uuid.UUID) ([]models.ClientMembership, error) {
	members, err := s.clientRepo.ListMembers(clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// AddMember adds a user to the client with the given role. Requires a
// managing role; only owners may grant the owner role.
func (s *ClientService) AddMember(actor *models.ClientMembership, clientID uuid.UUID, username string, role models.MembershipRole) (*models.ClientMembership, error) {
	if !actor.Role.CanManage() {
		return nil, ErrInsufficientRole
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == models.RoleOwner && actor.Role != models.RoleOwner {
		return nil, ErrInsufficientRole
	}

	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.clientRepo.FindMembership(clientID, user.ID); err == nil {
		return nil, ErrMemberAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.ClientMembership{
		UserID:   user.ID,
		ClientID: clientID,
		Role:     role,
		IsActive: true,
	}
	member.CreatedByID = &actor.UserID
	if err := s.clientRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	member.User = *user
	return member, nil
}

// ChangeMemberRole changes a member's role. Requires a managing role; the
// owner role can only be granted or taken away by an owner, and the last
// owner cannot be demoted.
func (s *ClientService) ChangeMemberRole(actor *models.ClientMembership, clientID, userID uuid.UUID, role models.MembershipRole) (*models.ClientMembership, error) {
	if !actor.Role.CanManage() {
		return nil, ErrInsufficientRole
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	member, err := s.clientRepo.FindMembership(clientID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	if (member.Role == models.RoleOwner || role == models.RoleOwner) && actor.Role != models.RoleOwner {
		return nil, ErrInsufficientRole
	}
	if member.Role == models.RoleOwner && role != models.RoleOwner {
		if err := s.ensureNotLastOwner(clientID, member.UserID); err != nil {
			return nil, err
		}
	}

	member.Role = role
	member.UpdatedByID = &actor.UserID
	if err := s.clientRepo.UpdateMembership(member); err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	return member, nil
}

// SetMemberActive toggles a membership's active flag. Deactivation is how
// members are removed: the row stays for audit, but the guard no longer
// honors it. The last owner cannot be deactivated.
func (s *ClientService) SetMemberActive(actor *models.ClientMembership, clientID, userID uuid.UUID, active bool) (*models.ClientMembership, error) {
	if !actor.Role.CanManage() {
		return nil, ErrInsufficientRole
	}

	member, err := s.clientRepo.FindMembership(clientID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	if member.Role == models.RoleOwner && actor.Role != models.RoleOwner {
		return nil, ErrInsufficientRole
	}
	if member.Role == models.RoleOwner && !active {
		if err := s.ensureNotLastOwner(clientID, member.UserID); err != nil {
			return nil, err
		}
	}

	member.IsActive = active
	member.UpdatedByID = &actor.UserID
	if err := s.clientRepo.UpdateMembership(member); err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	return member, nil
}

func (s *ClientService) ensureNotLastOwner(clientID, userID uuid.UUID) error {
	members, err := s.clientRepo.ListMembers(clientID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.Role == models.RoleOwner && m.IsActive && m.UserID != userID {
			return nil
		}
	}
	return ErrLastOwner
}

func (s *ClientService) invalidate(ctx context.Context, clientID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	// Invalidation failures are logged by the cache layer; stale data ages
	// out via TTL anyway.
	_ = s.invalidator.InvalidateClient(ctx, clientID)
}
