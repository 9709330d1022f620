package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/models"
)

type taskTestFixture struct {
	env     *testEnv
	apiKey  string
	client  *models.Client
	project *models.Project
}

func setupTaskFixture(t *testing.T) taskTestFixture {
	t.Helper()

	env := setupTestEnv(t)
	_, apiKey := env.signupWithKey(t, "founder")
	client := env.createClient(t, apiKey, "Acme Corp")
	project := env.createProject(t, apiKey, client, "Website")

	return taskTestFixture{
		env:     env,
		apiKey:  apiKey,
		client:  client,
		project: project,
	}
}

func (f taskTestFixture) tasksPath() string {
	return "/api/clients/" + f.client.ID.String() + "/projects/" + f.project.ID.String() + "/tasks"
}

func TestTaskHandler_CreateTaskDefaults(t *testing.T) {
	f := setupTaskFixture(t)

	task := f.env.createTask(t, f.apiKey, f.client, f.project, "Landing page")
	require.Equal(t, models.TaskStatusTodo, task.Status)
	require.Equal(t, models.TaskPriorityMedium, task.Priority)
}

func TestTaskHandler_ListTasksWithFilters(t *testing.T) {
	f := setupTaskFixture(t)

	w := f.env.request(t, http.MethodPost, f.tasksPath(), f.apiKey, map[string]string{
		"title":    "Urgent fix",
		"priority": "urgent",
		"status":   "in_progress",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	f.env.createTask(t, f.apiKey, f.client, f.project, "Ordinary chore")

	w = f.env.request(t, http.MethodGet, f.tasksPath()+"?priority=urgent", f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.TaskListResponse
	decodeJSON(t, w, &list)
	require.Len(t, list.Tasks, 1)
	require.Equal(t, "Urgent fix", list.Tasks[0].Title)

	w = f.env.request(t, http.MethodGet, f.tasksPath()+"?status=bogus", f.apiKey, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_UpdateTaskStatus(t *testing.T) {
	f := setupTaskFixture(t)
	task := f.env.createTask(t, f.apiKey, f.client, f.project, "Landing page")

	w := f.env.request(t, http.MethodPatch, f.tasksPath()+"/"+task.ID.String(), f.apiKey, map[string]string{
		"status": "done",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated dto.TaskDTO
	decodeJSON(t, w, &updated)
	require.Equal(t, models.TaskStatusDone, updated.Status)
}

func TestTaskHandler_AssignMembersOnly(t *testing.T) {
	f := setupTaskFixture(t)
	outsider, _ := f.env.signupWithKey(t, "outsider")
	colleague, _ := f.env.signupWithKey(t, "colleague")

	w := f.env.request(t, http.MethodPost, "/api/clients/"+f.client.ID.String()+"/members", f.apiKey, map[string]string{
		"username": "colleague",
		"role":     "member",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	task := f.env.createTask(t, f.apiKey, f.client, f.project, "Landing page")
	assignPath := f.tasksPath() + "/" + task.ID.String() + "/assign"

	// An outsider in the batch rejects the whole batch.
	w = f.env.request(t, http.MethodPost, assignPath, f.apiKey, map[string]interface{}{
		"user_ids": []string{colleague.ID.String(), outsider.ID.String()},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = f.env.request(t, http.MethodPost, assignPath, f.apiKey, map[string]interface{}{
		"user_ids": []string{colleague.ID.String()},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Assigning twice is a no-op, not an error.
	w = f.env.request(t, http.MethodPost, assignPath, f.apiKey, map[string]interface{}{
		"user_ids": []string{colleague.ID.String()},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.env.request(t, http.MethodGet, f.tasksPath()+"/"+task.ID.String(), f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.TaskDTO
	decodeJSON(t, w, &got)
	require.Len(t, got.Assignments, 1)
	require.Equal(t, colleague.ID, got.Assignments[0].User.ID)

	// Unassign clears it.
	w = f.env.request(t, http.MethodPost, f.tasksPath()+"/"+task.ID.String()+"/unassign", f.apiKey, map[string]interface{}{
		"user_ids": []string{colleague.ID.String()},
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTaskHandler_SoftDeleteExcludesFromList(t *testing.T) {
	f := setupTaskFixture(t)
	task := f.env.createTask(t, f.apiKey, f.client, f.project, "Landing page")
	f.env.createTask(t, f.apiKey, f.client, f.project, "Keep me")

	w := f.env.request(t, http.MethodDelete, f.tasksPath()+"/"+task.ID.String(), f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.env.request(t, http.MethodGet, f.tasksPath(), f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.TaskListResponse
	decodeJSON(t, w, &list)
	require.Len(t, list.Tasks, 1)
	require.Equal(t, "Keep me", list.Tasks[0].Title)
}

func TestTaskHandler_GenerateUnavailableWithoutAI(t *testing.T) {
	f := setupTaskFixture(t)

	w := f.env.request(t, http.MethodPost, f.tasksPath()+"/generate", f.apiKey, map[string]string{
		"text": "Ship the landing page by Friday",
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCommentHandler_Lifecycle(t *testing.T) {
	f := setupTaskFixture(t)
	_, otherKey := f.env.signupWithKey(t, "colleague")

	w := f.env.request(t, http.MethodPost, "/api/clients/"+f.client.ID.String()+"/members", f.apiKey, map[string]string{
		"username": "colleague",
		"role":     "member",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	task := f.env.createTask(t, f.apiKey, f.client, f.project, "Landing page")
	commentsPath := f.tasksPath() + "/" + task.ID.String() + "/comments"

	w = f.env.request(t, http.MethodPost, commentsPath, f.apiKey, map[string]string{
		"content": "First draft is up",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.CommentDTO
	decodeJSON(t, w, &created)
	require.NotNil(t, created.Author)

	// Another member cannot rewrite someone else's comment.
	w = f.env.request(t, http.MethodPatch, commentsPath+"/"+created.ID.String(), otherKey, map[string]string{
		"content": "rewritten",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// The author can.
	w = f.env.request(t, http.MethodPatch, commentsPath+"/"+created.ID.String(), f.apiKey, map[string]string{
		"content": "Second draft is up",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.env.request(t, http.MethodGet, commentsPath, f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.CommentListResponse
	decodeJSON(t, w, &list)
	require.Len(t, list.Comments, 1)
	require.Equal(t, "Second draft is up", list.Comments[0].Content)

	// Soft delete hides it from the list.
	w = f.env.request(t, http.MethodDelete, commentsPath+"/"+created.ID.String(), f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.env.request(t, http.MethodGet, commentsPath, f.apiKey, nil)
	decodeJSON(t, w, &list)
	require.Empty(t, list.Comments)
}

func TestDashboardHandler_AggregatesAndInvalidation(t *testing.T) {
	f := setupTaskFixture(t)
	task := f.env.createTask(t, f.apiKey, f.client, f.project, "Landing page")
	f.env.createTask(t, f.apiKey, f.client, f.project, "Copywriting")

	dashboardPath := "/api/clients/" + f.client.ID.String() + "/dashboard"
	w := f.env.request(t, http.MethodGet, dashboardPath, f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dash struct {
		TotalProjects int64 `json:"total_projects"`
		Projects      []struct {
			TotalTasks int64 `json:"total_tasks"`
			DoneTasks  int64 `json:"done_tasks"`
		} `json:"projects"`
		RecentTasks []struct {
			Title string `json:"title"`
		} `json:"recent_tasks"`
	}
	decodeJSON(t, w, &dash)
	require.EqualValues(t, 1, dash.TotalProjects)
	require.Len(t, dash.Projects, 1)
	require.EqualValues(t, 2, dash.Projects[0].TotalTasks)
	require.Zero(t, dash.Projects[0].DoneTasks)
	require.Len(t, dash.RecentTasks, 2)

	// A task write invalidates the cached aggregate, so the next read
	// sees the completion immediately instead of waiting out the TTL.
	w = f.env.request(t, http.MethodPatch, f.tasksPath()+"/"+task.ID.String(), f.apiKey, map[string]string{
		"status": "done",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.env.request(t, http.MethodGet, dashboardPath, f.apiKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &dash)
	require.EqualValues(t, 1, dash.Projects[0].DoneTasks)
}
