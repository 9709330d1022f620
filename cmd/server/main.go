package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zlog := logger.GetLogger()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}
	db := database.GetDB()
	if cfg.DBDriver == "postgres" {
		if err := database.AddIndexes(db); err != nil {
			zlog.Fatal("Failed to create indexes", zap.Error(err))
		}
	}

	// Dashboard cache
	redisCache := cache.NewRedisCache(cfg.RedisAddr())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	deviceRepo := repository.NewMFADeviceRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Authentication and authorization
	credentials := auth.NewCredentialStore(keyRepo)
	mfa := auth.NewMFAVerifier(deviceRepo, cfg.MFAIssuer)
	pipeline := auth.NewPipeline(credentials, mfa, userRepo)
	guard := authz.NewGuard(clientRepo, projectRepo, taskRepo, commentRepo)

	// Services
	authService := services.NewAuthService(userRepo, keyRepo, deviceRepo, credentials, mfa)
	clientService := services.NewClientService(clientRepo, userRepo, redisCache)
	projectService := services.NewProjectService(projectRepo, redisCache)
	taskService := services.NewTaskService(taskRepo, redisCache)
	commentService := services.NewCommentService(commentRepo)
	dashboardService := services.NewDashboardService(db, redisCache)

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	clientHandler := handlers.NewClientHandler(clientService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService, aiService)
	commentHandler := handlers.NewCommentHandler(commentService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(logger.Middleware())

	httpMetrics := metrics.NewHTTPMetrics(cfg.ServiceName)
	r.Use(httpMetrics.Middleware())
	r.GET("/metrics", metrics.Handler())

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,
		"tcp",
		cfg.RedisAddr(),
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		zlog.Fatal("Failed to create Redis store", zap.Error(err))
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", middleware.RequireAuth(pipeline), authHandler.GetCurrentUser)
		}

		// API key routes (protected)
		keys := api.Group("/keys")
		keys.Use(middleware.RequireAuth(pipeline))
		{
			keys.POST("", authHandler.IssueAPIKey)
			keys.GET("", authHandler.ListAPIKeys)
			keys.DELETE("/:key_id", authHandler.RevokeAPIKey)
		}

		// MFA device routes (protected)
		devices := api.Group("/mfa/devices")
		devices.Use(middleware.RequireAuth(pipeline))
		{
			devices.POST("", authHandler.RegisterMFADevice)
			devices.GET("", authHandler.ListMFADevices)
			devices.POST("/:device_id/confirm", authHandler.ConfirmMFADevice)
			devices.DELETE("/:device_id", authHandler.RemoveMFADevice)
		}

		// Client routes (protected)
		clients := api.Group("/clients")
		clients.Use(middleware.RequireAuth(pipeline))
		{
			clients.POST("", clientHandler.CreateClient)
			clients.GET("", clientHandler.ListClients)

			// Routes scoped to one client
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

				// Routes scoped to one project
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

					// Routes scoped to one task
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

						// Routes scoped to one comment
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

	// Start server
	addr := ":" + cfg.ServerPort
	zlog.Info("Server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zlog.Fatal("Failed to start server", zap.Error(err))
	}
}
