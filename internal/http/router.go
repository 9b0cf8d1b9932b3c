package http

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := gin.New()
	router.Use(requestLogger(logger.WithPrefix("http")))
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	router.Use(authMiddleware.Handler())

	identity := newIdentitySync(cfg.Clients, logger)

	var recorder ActivityRecorder
	if cfg.Audit != nil {
		recorder = cfg.Audit
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	validate := NewValidateController(cfg.AuthService)
	booksController := NewBooksController(cfg.Books)
	libraryController := NewLibraryController(cfg.Library, cfg.Shelves, identity, recorder)
	positionController := NewPositionController(cfg.Tracker, identity)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Token validation
	router.GET("/validate", validate.Validate)

	// Book catalogue
	router.GET("/books", booksController.ListBooks)
	router.GET("/books/:id", booksController.GetBook)
	router.POST("/books", authMiddleware.RequireUser(), booksController.CreateBook)

	// Account collections with full book rows
	router.GET("/library", libraryController.ListByType)

	api := router.Group("/api")
	api.Use(identity.dropTokenViews())

	// Library core: collections and reading positions of the request identity
	api.GET("/library", libraryController.Shelf)
	api.POST("/library/:kind/:bookId/toggle", libraryController.Toggle)
	api.GET("/books/:id/membership", libraryController.Membership)
	api.GET("/books/:id/position", positionController.GetPosition)
	api.PUT("/books/:id/position", positionController.ReportPosition)

	// Session lifecycle
	if cfg.SessionManager != nil {
		session := NewSessionController(cfg.AuthService, cfg.SessionManager, cfg.RateLimiter, cfg.Library, identity, recorder)
		api.GET("/session", session.Current)
		minting := []gin.HandlerFunc{}
		if cfg.SessionThrottle != nil {
			minting = append(minting, cfg.SessionThrottle.Middleware())
		}
		api.POST("/session/guest", append(minting, session.StartGuest)...)
		api.POST("/session/register", append(minting, session.Register)...)
		api.POST("/session/login", session.Login)
		api.POST("/session/logout", session.Logout)
		api.POST("/session/token", authMiddleware.RequireUser(), session.GenerateToken)
		api.DELETE("/session/token", authMiddleware.RequireUser(), session.RevokeToken)
	}

	// Account activity
	if cfg.Audit != nil {
		activityController := NewActivityController(cfg.Audit)
		api.GET("/account/activity", authMiddleware.RequireUser(), activityController.List)
	}

	// Task queue management
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient, TaskDefaults{
			GuestRetentionDays: cfg.GuestRetentionDays,
			AuditRetentionDays: cfg.AuditRetentionDays,
		})
		taskRoutes := api.Group("/tasks", authMiddleware.RequireUser())
		taskRoutes.GET("/types", tasksController.ListTaskTypes)
		taskRoutes.GET("/:id", tasksController.GetTaskStatus)
		taskRoutes.POST("/:type/run", tasksController.RunTask)
	}

	return router
}

// requestLogger logs one line per request.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			logger.Error("request", kv...)
		case status >= 400:
			logger.Warn("request", kv...)
		default:
			logger.Info("request", kv...)
		}
	}
}
