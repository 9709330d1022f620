package authz

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type guardTestEnv struct {
	db    *gorm.DB
	guard *Guard

	user    *models.User
	client  *models.Client
	member  *models.ClientMembership
	project *models.Project
	task    *models.Task
	comment *models.Comment
}

func setupGuardTestEnv(t *testing.T) *guardTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.ClientMembership{},
		&models.Project{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Comment{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	user := &models.User{Username: "member", PasswordHash: "irrelevant"}
	require.NoError(t, db.Create(user).Error)

	client := &models.Client{Name: "Acme", Slug: "acme", DefaultTimezone: "UTC", IsActive: true}
	require.NoError(t, db.Create(client).Error)

	member := &models.ClientMembership{
		UserID:   user.ID,
		ClientID: client.ID,
		Role:     models.RoleMember,
		IsActive: true,
	}
	require.NoError(t, db.Create(member).Error)

	slug := "website"
	project := &models.Project{
		ClientID: client.ID,
		Name:     "Website",
		Slug:     &slug,
		Status:   models.ProjectStatusActive,
	}
	require.NoError(t, db.Create(project).Error)

	task := &models.Task{
		ProjectID: project.ID,
		Title:     "Build landing page",
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
	}
	require.NoError(t, db.Create(task).Error)

	authorID := user.ID
	comment := &models.Comment{
		TaskID:   task.ID,
		AuthorID: &authorID,
		Content:  "First draft is up",
	}
	require.NoError(t, db.Create(comment).Error)

	guard := NewGuard(
		repository.NewClientRepository(db),
		repository.NewProjectRepository(db),
		repository.NewTaskRepository(db),
		repository.NewCommentRepository(db),
	)

	return &guardTestEnv{
		db:      db,
		guard:   guard,
		user:    user,
		client:  client,
		member:  member,
		project: project,
		task:    task,
		comment: comment,
	}
}

func (env *guardTestEnv) softDelete(t *testing.T, model interface{}, id uuid.UUID) {
	t.Helper()
	now := time.Now()
	require.NoError(t, env.db.Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": now,
		}).Error)
}

func TestGuard_AuthorizeEveryKind(t *testing.T) {
	env := setupGuardTestEnv(t)

	cases := []struct {
		kind ResourceKind
		id   uuid.UUID
	}{
		{KindClient, env.client.ID},
		{KindProject, env.project.ID},
		{KindTask, env.task.ID},
		{KindComment, env.comment.ID},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			member, err := env.guard.Authorize(env.user.ID, tc.id, tc.kind)
			require.NoError(t, err)
			require.Equal(t, env.member.ID, member.ID)
			require.Equal(t, models.RoleMember, member.Role)
		})
	}
}

func TestGuard_NonMemberIsDenied(t *testing.T) {
	env := setupGuardTestEnv(t)

	outsider := &models.User{Username: "outsider", PasswordHash: "irrelevant"}
	require.NoError(t, env.db.Create(outsider).Error)

	_, err := env.guard.Authorize(outsider.ID, env.task.ID, KindTask)
	require.ErrorIs(t, err, ErrDenied)
}

func TestGuard_ActiveFlagFlipsDecision(t *testing.T) {
	env := setupGuardTestEnv(t)

	_, err := env.guard.Authorize(env.user.ID, env.task.ID, KindTask)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(env.member).Update("is_active", false).Error)
	_, err = env.guard.Authorize(env.user.ID, env.task.ID, KindTask)
	require.ErrorIs(t, err, ErrDenied)

	// Flipping the flag back restores access; the row never moved.
	require.NoError(t, env.db.Model(env.member).Update("is_active", true).Error)
	_, err = env.guard.Authorize(env.user.ID, env.task.ID, KindTask)
	require.NoError(t, err)
}

func TestGuard_TaskKindMatchesClientKind(t *testing.T) {
	env := setupGuardTestEnv(t)

	byTask, err := env.guard.Authorize(env.user.ID, env.task.ID, KindTask)
	require.NoError(t, err)
	byClient, err := env.guard.Authorize(env.user.ID, env.client.ID, KindClient)
	require.NoError(t, err)
	require.Equal(t, byClient.ID, byTask.ID)
}

func TestGuard_SoftDeletedLinkBreaksChain(t *testing.T) {
	env := setupGuardTestEnv(t)

	env.softDelete(t, &models.Project{}, env.project.ID)

	_, err := env.guard.Authorize(env.user.ID, env.task.ID, KindTask)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = env.guard.Authorize(env.user.ID, env.comment.ID, KindComment)
	require.ErrorIs(t, err, ErrNotFound)

	// The client itself is still reachable.
	_, err = env.guard.Authorize(env.user.ID, env.client.ID, KindClient)
	require.NoError(t, err)
}

func TestGuard_SoftDeletedClientHidesEverything(t *testing.T) {
	env := setupGuardTestEnv(t)

	env.softDelete(t, &models.Client{}, env.client.ID)

	for _, tc := range []struct {
		kind ResourceKind
		id   uuid.UUID
	}{
		{KindClient, env.client.ID},
		{KindProject, env.project.ID},
		{KindTask, env.task.ID},
		{KindComment, env.comment.ID},
	} {
		_, err := env.guard.Authorize(env.user.ID, tc.id, tc.kind)
		require.ErrorIs(t, err, ErrNotFound, tc.kind.String())
	}
}

func TestGuard_UnknownResource(t *testing.T) {
	env := setupGuardTestEnv(t)

	_, err := env.guard.Authorize(env.user.ID, uuid.New(), KindTask)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGuard_UnknownKind(t *testing.T) {
	env := setupGuardTestEnv(t)

	_, err := env.guard.Authorize(env.user.ID, env.task.ID, ResourceKind(99))
	require.ErrorIs(t, err, ErrUnknownResourceKind)
}
