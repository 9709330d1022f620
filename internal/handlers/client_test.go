package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/models"
)

func TestClientHandler_CreateClientMakesCreatorOwner(t *testing.T) {
	env := setupTestEnv(t)
	user, apiKey := env.signupWithKey(t, "founder")

	client := env.createClient(t, apiKey, "Acme Corp")
	require.Equal(t, "acme-corp", client.Slug)

	member, err := env.clientRepo.FindActiveMembership(client.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, member.Role)
}

func TestClientHandler_ListClientsOnlyShowsMemberships(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceKey := env.signupWithKey(t, "alice")
	_, bobKey := env.signupWithKey(t, "bob")

	env.createClient(t, aliceKey, "Alice Inc")
	env.createClient(t, bobKey, "Bob LLC")

	w := env.request(t, http.MethodGet, "/api/clients", aliceKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Clients []dto.ClientDTO `json:"clients"`
	}
	decodeJSON(t, w, &list)
	require.Len(t, list.Clients, 1)
	require.Equal(t, "Alice Inc", list.Clients[0].Name)
}

func TestClientHandler_NonMemberGets404(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceKey := env.signupWithKey(t, "alice")
	_, bobKey := env.signupWithKey(t, "bob")

	client := env.createClient(t, aliceKey, "Alice Inc")

	// Existence must not leak: not 403, 404.
	w := env.request(t, http.MethodGet, "/api/clients/"+client.ID.String(), bobKey, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestClientHandler_GetClientDetail(t *testing.T) {
	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "founder")
	client := env.createClient(t, apiKey, "Acme Corp")

	w := env.request(t, http.MethodGet, "/api/clients/"+client.ID.String(), apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var detail dto.ClientDetailDTO
	decodeJSON(t, w, &detail)
	require.Equal(t, client.ID, detail.ID)
	require.Equal(t, models.RoleOwner, detail.YourRole)
	require.Len(t, detail.Members, 1)
}

func TestClientHandler_AddAndDeactivateMember(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerKey := env.signupWithKey(t, "owner")
	member, memberKey := env.signupWithKey(t, "colleague")
	client := env.createClient(t, ownerKey, "Acme Corp")

	w := env.request(t, http.MethodPost, "/api/clients/"+client.ID.String()+"/members", ownerKey, map[string]string{
		"username": "colleague",
		"role":     "member",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The new member can now see the client.
	w = env.request(t, http.MethodGet, "/api/clients/"+client.ID.String(), memberKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deactivation removes access without deleting the row.
	w = env.request(t, http.MethodPatch, "/api/clients/"+client.ID.String()+"/members/"+member.ID.String()+"/active", ownerKey, map[string]interface{}{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.request(t, http.MethodGet, "/api/clients/"+client.ID.String(), memberKey, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var row models.ClientMembership
	require.NoError(t, env.db.Where("client_id = ? AND user_id = ?", client.ID, member.ID).First(&row).Error)
	require.False(t, row.IsActive)
}

func TestClientHandler_MemberCannotManageMembers(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerKey := env.signupWithKey(t, "owner")
	_, memberKey := env.signupWithKey(t, "colleague")
	env.signupWithKey(t, "outsider")
	client := env.createClient(t, ownerKey, "Acme Corp")

	w := env.request(t, http.MethodPost, "/api/clients/"+client.ID.String()+"/members", ownerKey, map[string]string{
		"username": "colleague",
		"role":     "member",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodPost, "/api/clients/"+client.ID.String()+"/members", memberKey, map[string]string{
		"username": "outsider",
		"role":     "member",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestClientHandler_LastOwnerCannotBeDemoted(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerKey := env.signupWithKey(t, "owner")
	client := env.createClient(t, ownerKey, "Acme Corp")

	w := env.request(t, http.MethodPatch, "/api/clients/"+client.ID.String()+"/members/"+owner.ID.String()+"/role", ownerKey, map[string]string{
		"role": "member",
	})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestClientHandler_SoftDeleteHidesClient(t *testing.T) {
	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "founder")
	client := env.createClient(t, apiKey, "Acme Corp")

	w := env.request(t, http.MethodDelete, "/api/clients/"+client.ID.String(), apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Gone from every read path.
	w = env.request(t, http.MethodGet, "/api/clients/"+client.ID.String(), apiKey, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodGet, "/api/clients", apiKey, nil)
	var list struct {
		Clients []dto.ClientDTO `json:"clients"`
	}
	decodeJSON(t, w, &list)
	require.Empty(t, list.Clients)

	// The row itself is still there, flagged.
	var row models.Client
	require.NoError(t, env.db.Where("id = ?", client.ID).First(&row).Error)
	require.True(t, row.IsDeleted)
	require.NotNil(t, row.DeletedAt)
}

func TestClientHandler_PurgeRemovesRows(t *testing.T) {
	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "founder")
	client := env.createClient(t, apiKey, "Acme Corp")

	w := env.request(t, http.MethodDelete, "/api/clients/"+client.ID.String()+"/purge", apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, env.db.Model(&models.Client{}).Where("id = ?", client.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, env.db.Model(&models.ClientMembership{}).Where("client_id = ?", client.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestClientHandler_InvalidClientIDIsBadRequest(t *testing.T) {
	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "founder")

	w := env.request(t, http.MethodGet, "/api/clients/not-a-uuid", apiKey, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
