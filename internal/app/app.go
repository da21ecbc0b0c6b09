package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamtask/server/internal/infra/jobs"
	"github.com/teamtask/server/internal/module/auth"
	"github.com/teamtask/server/internal/module/task"
	"github.com/teamtask/server/internal/shared/config"
	"github.com/teamtask/server/internal/shared/database"
	"github.com/teamtask/server/internal/shared/events"
	"github.com/teamtask/server/internal/utils/metrics"
	"github.com/teamtask/server/internal/utils/middleware"
)

// App owns the router and the background components whose lifecycle
// follows the server.
type App struct {
	config   *config.Config
	db       *gorm.DB
	router   *gin.Engine
	sessions *auth.Service
	handlers *Handlers
	metrics  *metrics.Metrics
	logger   *zap.Logger

	broadcaster *events.Broadcaster
	jobs        *jobs.Manager
	reminder    *task.Reminder
}

// New creates the application and its router.
func New(
	cfg *config.Config,
	db *gorm.DB,
	sessions *auth.Service,
	handlers *Handlers,
	broadcaster *events.Broadcaster,
	jobManager *jobs.Manager,
	reminder *task.Reminder,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*App, error) {
	a := &App{
		config:      cfg,
		db:          db,
		sessions:    sessions,
		handlers:    handlers,
		metrics:     m,
		logger:      logger,
		broadcaster: broadcaster,
		jobs:        jobManager,
		reminder:    reminder,
	}

	if err := registerValidators(); err != nil {
		return nil, err
	}
	a.router = a.setupRouter()

	return a, nil
}

// registerValidators adds the task enum tags to gin's binding validator.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}
	return task.RegisterValidators(v)
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Start starts the background components.
func (a *App) Start(ctx context.Context) error {
	if err := a.broadcaster.Start(ctx); err != nil {
		return fmt.Errorf("start broadcaster: %w", err)
	}
	if err := a.reminder.Start(ctx); err != nil {
		return fmt.Errorf("start reminder: %w", err)
	}
	return nil
}

// StopStreams disconnects the live notification streams so the HTTP server
// can drain. Later publishes are dropped.
func (a *App) StopStreams() {
	a.broadcaster.Stop()
}

// Stop stops the reminder and waits for in-flight jobs until ctx expires.
// Call it after the HTTP server has shut down so no handler submits to a
// stopped job manager.
func (a *App) Stop(ctx context.Context) {
	a.broadcaster.Stop()
	a.reminder.Stop(ctx)
	a.jobs.Stop(ctx)
	a.logger.Info("application stopped")
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Server.Mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(a.config.Server.CORSOrigins...)))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	v1 := r.Group("/api/v1")

	// Public routes
	a.handlers.Auth.RegisterRoutes(v1)
	a.handlers.Calendar.RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.Auth(a.sessions, middleware.CookieOptions{
		MaxAge: a.sessions.AccessCookieMaxAge(),
		Secure: a.config.Auth.SecureCookies,
	}, a.logger))
	{
		a.handlers.User.RegisterProtectedRoutes(protected)
		a.handlers.Team.RegisterProtectedRoutes(protected)
		a.handlers.Task.RegisterProtectedRoutes(protected)
		a.handlers.Calendar.RegisterProtectedRoutes(protected)
		a.handlers.Notification.RegisterProtectedRoutes(protected)
	}

	return r
}

// health reports whether the database is reachable.
func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, a.db); err != nil {
		a.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
