package app

import (
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/teamtask/server/internal/infra/jobs"
	"github.com/teamtask/server/internal/infra/mail"
	"github.com/teamtask/server/internal/module/auth"
	"github.com/teamtask/server/internal/module/calendar"
	"github.com/teamtask/server/internal/module/notification"
	"github.com/teamtask/server/internal/module/task"
	"github.com/teamtask/server/internal/module/team"
	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/cache"
	"github.com/teamtask/server/internal/shared/config"
	"github.com/teamtask/server/internal/shared/database"
	"github.com/teamtask/server/internal/shared/events"
	"github.com/teamtask/server/internal/utils/metrics"
	"github.com/teamtask/server/internal/utils/middleware"
)

const (
	oauthStatePrefix   = "oauth:state:"
	revokedTokenPrefix = "auth:revoked:"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideDatabase,
	ProvideRedisClient,
	ProvideStores,
	ProvideLimiter,
	ProvideMetrics,
	ProvideMailSender,
	ProvideJobManager,
	ProvideBroadcaster,
	wire.Bind(new(events.Publisher), new(*events.Broadcaster)),
	wire.Bind(new(notification.Subscriber), new(*events.Broadcaster)),
	wire.Bind(new(task.JobSubmitter), new(*jobs.Manager)),
)

// Stores groups the short-lived key-value stores.
type Stores struct {
	OAuthState cache.Store
	Revoked    cache.Store
}

// ProvideDatabase opens the database and migrates the schema when enabled.
func ProvideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(db); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return db, cleanup, nil
}

func migrate(db *gorm.DB) error {
	if err := database.Migrate(db, &user.User{}); err != nil {
		return err
	}
	if err := team.Migrate(db); err != nil {
		return err
	}
	return task.Migrate(db)
}

// ProvideRedisClient connects to Redis when configured.
// A failed connection is logged and the app falls back to in-memory stores.
func ProvideRedisClient(cfg *config.Config, logger *zap.Logger) (goredis.UniversalClient, func()) {
	if !cfg.Redis.Enabled() {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory stores", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = cache.Close(client) }
}

// ProvideStores returns Redis-backed stores, or in-memory ones without Redis.
func ProvideStores(client goredis.UniversalClient) Stores {
	if client == nil {
		return Stores{
			OAuthState: cache.NewMemoryStore(),
			Revoked:    cache.NewMemoryStore(),
		}
	}
	return Stores{
		OAuthState: cache.NewRedisStore(client, oauthStatePrefix),
		Revoked:    cache.NewRedisStore(client, revokedTokenPrefix),
	}
}

// ProvideLimiter returns the credential endpoint limiter, or nil without Redis.
func ProvideLimiter(client goredis.UniversalClient) middleware.Limiter {
	if client == nil {
		return nil
	}
	return cache.NewRateLimiter(client)
}

// ProvideMetrics registers the application metrics.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("teamtask", nil)
}

// ProvideMailSender creates the invite mail sender.
func ProvideMailSender(cfg *config.Config, logger *zap.Logger) mail.Sender {
	return mail.NewSender(&cfg.Mail, logger)
}

// ProvideJobManager creates the background job manager.
func ProvideJobManager(cfg *config.Config, logger *zap.Logger) *jobs.Manager {
	return jobs.NewManager(logger.Named("jobs"), &jobs.Config{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		JobTimeout:    cfg.Jobs.JobTimeout,
	})
}

// ProvideBroadcaster creates the notification broadcaster.
func ProvideBroadcaster(client goredis.UniversalClient, m *metrics.Metrics, logger *zap.Logger) *events.Broadcaster {
	return events.NewBroadcaster(client, m, logger)
}

// ===== Module Providers =====

// ModuleSet provides services.
var ModuleSet = wire.NewSet(
	ProvideUserService,
	ProvideInviteSigner,
	ProvideTeamService,
	ProvideJWTManager,
	ProvideAuthService,
	ProvideOAuthConfig,
	ProvideCalendarClient,
	ProvideConnector,
	ProvideTaskRepository,
	ProvideTaskService,
	ProvideReminder,
	wire.Bind(new(team.InviteSigner), new(*auth.InviteSigner)),
	wire.Bind(new(team.UserDirectory), new(*user.Service)),
	wire.Bind(new(auth.UserStore), new(*user.Service)),
	wire.Bind(new(auth.InviteResolver), new(*team.Service)),
	wire.Bind(new(calendar.CredentialStore), new(*user.Service)),
	wire.Bind(new(task.TeamDirectory), new(*team.Service)),
	wire.Bind(new(task.CredentialLookup), new(*user.Service)),
)

// ProvideUserService creates the identity store.
func ProvideUserService(db *gorm.DB, logger *zap.Logger) *user.Service {
	return user.NewService(user.NewRepository(db), logger.Named("user"))
}

// ProvideInviteSigner creates the invite token signer.
func ProvideInviteSigner(cfg *config.Config) *auth.InviteSigner {
	return auth.NewInviteSigner(cfg.Auth.InviteSecret, cfg.Auth.InviteTokenExpiry)
}

// ProvideTeamService creates the team directory.
func ProvideTeamService(
	cfg *config.Config,
	db *gorm.DB,
	users team.UserDirectory,
	signer team.InviteSigner,
	sender mail.Sender,
	logger *zap.Logger,
) *team.Service {
	notifier := team.NewMailNotifier(sender, cfg.Server.ClientURL)
	return team.NewService(team.NewRepository(db), users, signer, notifier, logger.Named("team"))
}

// ProvideJWTManager creates the session token manager.
func ProvideJWTManager(cfg *config.Config) *auth.JWTManager {
	return auth.NewJWTManager(&auth.JWTConfig{
		AccessSecret:       cfg.Auth.JWTSecret,
		RefreshSecret:      cfg.Auth.RefreshSecret,
		AccessTokenExpiry:  cfg.Auth.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		Issuer:             cfg.Auth.Issuer,
	})
}

// ProvideAuthService creates the session service.
func ProvideAuthService(
	users auth.UserStore,
	invites auth.InviteResolver,
	jwtManager *auth.JWTManager,
	signer *auth.InviteSigner,
	stores Stores,
	m *metrics.Metrics,
	logger *zap.Logger,
) *auth.Service {
	return auth.NewService(users, invites, jwtManager, signer, stores.Revoked, m, logger.Named("auth"))
}

// ProvideOAuthConfig creates the Google OAuth client.
func ProvideOAuthConfig(cfg *config.Config) *oauth2.Config {
	return calendar.NewOAuthConfig(&cfg.Google)
}

// ProvideCalendarClient creates the Google Calendar adapter.
func ProvideCalendarClient(
	cfg *config.Config,
	oauthCfg *oauth2.Config,
	creds calendar.CredentialStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) calendar.Client {
	return calendar.NewGoogleClient(
		oauthCfg,
		creds,
		calendar.NewGoogleAPI,
		calendar.OptionsFromConfig(&cfg.Google),
		m,
		logger.Named("calendar"),
	)
}

// ProvideConnector creates the calendar OAuth connector.
func ProvideConnector(oauthCfg *oauth2.Config, stores Stores, creds calendar.CredentialStore, logger *zap.Logger) *calendar.Connector {
	return calendar.NewConnector(oauthCfg, stores.OAuthState, creds, logger.Named("calendar"))
}

// ProvideTaskRepository creates the task repository.
func ProvideTaskRepository(db *gorm.DB) task.Repository {
	return task.NewRepository(db)
}

// ProvideTaskService creates the task store.
func ProvideTaskService(
	repo task.Repository,
	teams task.TeamDirectory,
	cal calendar.Client,
	creds task.CredentialLookup,
	submitter task.JobSubmitter,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *task.Service {
	return task.NewService(repo, teams, cal, creds, submitter, publisher, m, logger.Named("task"))
}

// ProvideReminder creates the due-date reminder.
func ProvideReminder(cfg *config.Config, tasks task.Repository, publisher events.Publisher, logger *zap.Logger) (*task.Reminder, error) {
	return task.NewReminder(tasks, publisher, &cfg.Reminder, cfg.Google.TimeZone, logger)
}

// ===== Handler Providers =====

// HandlerSet provides HTTP handlers.
var HandlerSet = wire.NewSet(
	ProvideAuthHandler,
	ProvideUserHandler,
	ProvideTeamHandler,
	ProvideTaskHandler,
	ProvideCalendarHandler,
	ProvideNotificationHandler,
	wire.Struct(new(Handlers), "*"),
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Team         *team.Handler
	Task         *task.Handler
	Calendar     *calendar.Handler
	Notification *notification.Handler
}

// ProvideAuthHandler creates the session handler.
func ProvideAuthHandler(cfg *config.Config, service *auth.Service, limiter middleware.Limiter, logger *zap.Logger) *auth.Handler {
	return auth.NewHandler(service, limiter, cfg.Auth.SecureCookies, logger)
}

// ProvideUserHandler creates the profile handler.
func ProvideUserHandler(service *user.Service, logger *zap.Logger) *user.Handler {
	return user.NewHandler(service, logger)
}

// ProvideTeamHandler creates the team handler.
func ProvideTeamHandler(service *team.Service, logger *zap.Logger) *team.Handler {
	return team.NewHandler(service, logger)
}

// ProvideTaskHandler creates the task handler.
func ProvideTaskHandler(service *task.Service, logger *zap.Logger) *task.Handler {
	return task.NewHandler(service, logger)
}

// ProvideCalendarHandler creates the calendar connect handler.
func ProvideCalendarHandler(cfg *config.Config, connector *calendar.Connector, logger *zap.Logger) *calendar.Handler {
	return calendar.NewHandler(connector, cfg.Server.ClientURL, logger)
}

// ProvideNotificationHandler creates the notification stream handler.
func ProvideNotificationHandler(subscriber notification.Subscriber, logger *zap.Logger) *notification.Handler {
	return notification.NewHandler(subscriber, logger)
}

// AppSet is the complete provider set.
var AppSet = wire.NewSet(
	InfraSet,
	ModuleSet,
	HandlerSet,
	New,
)
