package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	cache  *cache.MemoryCache

	authService    *services.AuthService
	clientService  *services.ClientService
	projectService *services.ProjectService
	taskService    *services.TaskService
	commentService *services.CommentService

	clientRepo repository.ClientRepository
}

// setupTestEnv wires the full route tree against an in-memory database,
// mirroring the production wiring with a cookie session store and an
// in-process cache.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.MFADevice{},
		&models.Client{},
		&models.ClientMembership{},
		&models.Project{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Comment{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	deviceRepo := repository.NewMFADeviceRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	credentials := auth.NewCredentialStore(keyRepo)
	mfa := auth.NewMFAVerifier(deviceRepo, "test-issuer")
	pipeline := auth.NewPipeline(credentials, mfa, userRepo)
	guard := authz.NewGuard(clientRepo, projectRepo, taskRepo, commentRepo)

	memCache := cache.NewMemoryCache()

	authService := services.NewAuthService(userRepo, keyRepo, deviceRepo, credentials, mfa)
	clientService := services.NewClientService(clientRepo, userRepo, memCache)
	projectService := services.NewProjectService(projectRepo, memCache)
	taskService := services.NewTaskService(taskRepo, memCache)
	commentService := services.NewCommentService(commentRepo)
	dashboardService := services.NewDashboardService(db, memCache)

	authHandler := NewAuthHandler(authService)
	clientHandler := NewClientHandler(clientService)
	projectHandler := NewProjectHandler(projectService)
	taskHandler := NewTaskHandler(taskService, nil)
	commentHandler := NewCommentHandler(commentService)
	dashboardHandler := NewDashboardHandler(dashboardService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	api := r.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", middleware.RequireAuth(pipeline), authHandler.GetCurrentUser)
		}

		keys := api.Group("/keys")
		keys.Use(middleware.RequireAuth(pipeline))
		{
			keys.POST("", authHandler.IssueAPIKey)
			keys.GET("", authHandler.ListAPIKeys)
			keys.DELETE("/:key_id", authHandler.RevokeAPIKey)
		}

		devices := api.Group("/mfa/devices")
		devices.Use(middleware.RequireAuth(pipeline))
		{
			devices.POST("", authHandler.RegisterMFADevice)
			devices.GET("", authHandler.ListMFADevices)
			devices.POST("/:device_id/confirm", authHandler.ConfirmMFADevice)
			devices.DELETE("/:device_id", authHandler.RemoveMFADevice)
		}

		clients := api.Group("/clients")
		clients.Use(middleware.RequireAuth(pipeline))
		{
			clients.POST("", clientHandler.CreateClient)
			clients.GET("", clientHandler.ListClients)

			client := clients.Group("/:client_id")
			client.Use(middleware.RequireClientAccess(guard, clientRepo))
			{
				client.GET("", clientHandler.GetClient)
				client.PATCH("", clientHandler.UpdateClient)
				client.DELETE("", clientHandler.DeleteClient)
				client.DELETE("/purge", clientHandler.PurgeClient)

				client.GET("/dashboard", dashboardHandler.GetDashboard)

				client.POST("/members", clientHandler.AddMember)
				client.PATCH("/members/:user_id/role", clientHandler.ChangeMemberRole)
				client.PATCH("/members/:user_id/active", clientHandler.SetMemberActive)

				client.POST("/projects", projectHandler.CreateProject)
				client.GET("/projects", projectHandler.ListProjects)

				project := client.Group("/projects/:project_id")
				project.Use(middleware.RequireProjectAccess(guard, projectRepo))
				{
					project.GET("", projectHandler.GetProject)
					project.PATCH("", projectHandler.UpdateProject)
					project.DELETE("", projectHandler.DeleteProject)
					project.DELETE("/purge", projectHandler.PurgeProject)

					project.POST("/tasks", taskHandler.CreateTask)
					project.GET("/tasks", taskHandler.ListTasks)
					project.POST("/tasks/generate", taskHandler.GenerateTasks)

					task := project.Group("/tasks/:task_id")
					task.Use(middleware.RequireTaskAccess(guard, taskRepo))
					{
						task.GET("", taskHandler.GetTask)
						task.PATCH("", taskHandler.UpdateTask)
						task.DELETE("", taskHandler.DeleteTask)
						task.DELETE("/purge", taskHandler.PurgeTask)
						task.POST("/assign", taskHandler.AssignUsers)
						task.POST("/unassign", taskHandler.UnassignUsers)

						task.POST("/comments", commentHandler.CreateComment)
						task.GET("/comments", commentHandler.ListComments)

						comment := task.Group("/comments/:comment_id")
						comment.Use(middleware.RequireCommentAccess(guard, commentRepo))
						{
							comment.PATCH("", commentHandler.UpdateComment)
							comment.DELETE("", commentHandler.DeleteComment)
							comment.DELETE("/purge", commentHandler.PurgeComment)
						}
					}
				}
			}
		}
	}

	return &testEnv{
		db:             db,
		router:         r,
		cache:          memCache,
		authService:    authService,
		clientService:  clientService,
		projectService: projectService,
		taskService:    taskService,
		commentService: commentService,
		clientRepo:     clientRepo,
	}
}

// signupWithKey creates a user and issues an API key for request auth.
func (env *testEnv) signupWithKey(t *testing.T, username string) (*models.User, string) {
	t.Helper()

	user, err := env.authService.Signup(services.SignupInput{
		Username: username,
		Password: "supersecret",
	})
	require.NoError(t, err)

	_, raw, err := env.authService.IssueAPIKey(user.ID, "test")
	require.NoError(t, err)

	return user, raw
}

// request performs a JSON request against the env router. apiKey may be
// empty for unauthenticated requests.
func (env *testEnv) request(t *testing.T, method, path, apiKey string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(constants.HeaderAPIKey, apiKey)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// requestWithMFA is request with an additional MFA code header.
func (env *testEnv) requestWithMFA(t *testing.T, method, path, apiKey, mfaCode string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.HeaderAPIKey, apiKey)
	req.Header.Set(constants.HeaderMFACode, mfaCode)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (env *testEnv) createClient(t *testing.T, apiKey, name string) *models.Client {
	t.Helper()

	w := env.request(t, http.MethodPost, "/api/clients", apiKey, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &created)

	var client models.Client
	require.NoError(t, env.db.Where("id = ?", created.ID).First(&client).Error)
	return &client
}

func (env *testEnv) createProject(t *testing.T, apiKey string, client *models.Client, name string) *models.Project {
	t.Helper()

	w := env.request(t, http.MethodPost, "/api/clients/"+client.ID.String()+"/projects", apiKey, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &created)

	var project models.Project
	require.NoError(t, env.db.Where("id = ?", created.ID).First(&project).Error)
	return &project
}

func (env *testEnv) createTask(t *testing.T, apiKey string, client *models.Client, project *models.Project, title string) *models.Task {
	t.Helper()

	path := "/api/clients/" + client.ID.String() + "/projects/" + project.ID.String() + "/tasks"
	w := env.request(t, http.MethodPost, path, apiKey, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &created)

	var task models.Task
	require.NoError(t, env.db.Where("id = ?", created.ID).First(&task).Error)
	return &task
}
