// Package entrypoint wires the application together and runs the HTTP
// server until it receives a termination signal.
package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	auditRepo "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/collections"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/guestcache"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/logger"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// App holds every long-lived component of a running server.
type App struct {
	Config *config.Config
	Logger *log.Logger

	DB    *database.Database
	Cache *guestcache.Store

	Library *library.Service
	Tracker *library.Tracker
	Clients *library.Clients

	Auth     *auth.Service
	Sessions *auth.SessionManager
	Limiter  *auth.RateLimiter
	Audit    *audit.Service

	Tasks     *tasks.Client
	Scheduler *scheduler.Maintenance

	Router *gin.Engine

	cancel context.CancelFunc
}

// Build opens the stores and constructs the application. Nothing runs in
// the background until Start is called, except the session and rate limit
// cleanup loops.
func Build(cfg *config.Config, version string, l *log.Logger) (app *App, err error) {
	if l == nil {
		l = logger.New(cfg.Log)
	}
	app = &App{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			app.Shutdown(context.Background())
			app = nil
		}
	}()

	app.DB, err = database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return app, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.Cache, err = guestcache.Open(cfg.GuestCache.Path)
	if err != nil {
		return app, fmt.Errorf("failed to open guest cache: %w", err)
	}

	collectionRepo := collections.NewRepository(app.DB.DB)
	progressRepo := progress.NewRepository(app.DB.DB)
	bookRepo := books.NewRepository(app.DB.DB)

	app.Library = library.NewService(
		library.Stores{Remote: collectionRepo, Local: app.Cache},
		library.Options{
			GuestQuota: library.Quota{Max: cfg.Library.GuestMaxItems},
			Logger:     l,
		},
	)
	app.Tracker = library.NewTracker(
		library.PositionStores{Remote: progressRepo, Local: app.Cache},
		library.TrackerOptions{Debounce: cfg.Library.PositionDebounce, Logger: l},
	)
	app.Clients = library.NewClients(app.Library, app.Tracker)

	app.Auth = auth.NewService(app.DB.DB, cfg.Auth)
	app.Auth.SetLogger(l)
	app.Audit = audit.NewService(auditRepo.NewRepository(app.DB.DB), l)

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		return app, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	app.Sessions, err = auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return app, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	limitCfg := auth.DefaultRateLimitConfig()
	if cfg.Auth.MaxLoginAttempts > 0 {
		limitCfg.MaxAttempts = cfg.Auth.MaxLoginAttempts
	}
	if cfg.Auth.LockoutDuration > 0 {
		limitCfg.LockoutDuration = cfg.Auth.LockoutDuration
	}
	app.Limiter = auth.NewRateLimiter(limitCfg)
	throttle := auth.NewThrottle(cfg.Auth.SessionRatePerMinute, cfg.Auth.SessionRateBurst)

	secret, err := csrfSecret(cfg.Auth.SessionSecret, l)
	if err != nil {
		return app, err
	}

	if cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(cfg.Tasks.DatabasePath, tasks.ConfigFrom(cfg.Tasks), l)
		if err != nil {
			return app, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.Tasks.Register(
			tasks.NewPurgeGuestCacheQueue(auditedPurger{cache: app.Cache, audit: app.Audit}, l),
			tasks.NewCleanupAuditEventsQueue(auditedCleaner{audit: app.Audit}, l),
		)
	}

	if cfg.Scheduler.Enabled {
		app.Scheduler = scheduler.NewMaintenance(app.Clients, scheduler.Jobs{
			PurgeGuestCache: app.purgeGuestCache,
			CleanupAudit:    app.cleanupAudit,
		}, scheduler.Options{
			SweepSchedule:        cfg.Scheduler.SweepSchedule,
			IdleTimeout:          cfg.Library.ClientIdleTimeout,
			PurgeSchedule:        cfg.GuestCache.PurgeSchedule,
			AuditCleanupSchedule: cfg.Audit.CleanupSchedule,
			Logger:               l,
		})
	}

	app.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:           app.DB,
		Books:              bookRepo,
		Shelves:            collectionRepo,
		Library:            app.Library,
		Clients:            app.Clients,
		Tracker:            app.Tracker,
		AuthService:        app.Auth,
		SessionManager:     app.Sessions,
		RateLimiter:        app.Limiter,
		SessionThrottle:    throttle,
		CSRFSecret:         secret,
		SecureCookies:      cfg.Auth.SecureCookies,
		Audit:              app.Audit,
		TaskClient:         app.Tasks,
		GuestRetentionDays: cfg.GuestCache.RetentionDays,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		Logger:             l,
		Version:            version,
	})

	if n, err := users.NewRepository(app.DB.DB).CountUsers(); err == nil && n == 0 {
		l.Info("no accounts yet; create one with 'create-user' or POST /api/session/register")
	}

	return app, nil
}

// csrfSecret decodes the configured secret, generating one when unset.
func csrfSecret(configured string, l *log.Logger) ([]byte, error) {
	if configured != "" {
		secret, err := hex.DecodeString(configured)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(configured), nil
		}
		return secret, nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	l.Warn("generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

// auditedPurger records every guest cache purge in the activity trail.
type auditedPurger struct {
	cache *guestcache.Store
	audit *audit.Service
}

func (p auditedPurger) Purge(cutoff time.Time) (int, error) {
	removed, err := p.cache.Purge(cutoff)
	p.audit.LogMaintenance(tasks.PurgeGuestCacheQueue, removed, err)
	return removed, err
}

// auditedCleaner records every activity cleanup in the trail it cleans.
type auditedCleaner struct {
	audit *audit.Service
}

func (c auditedCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	deleted, err := c.audit.DeleteOldEvents(retention)
	c.audit.LogMaintenance(tasks.CleanupAuditEventsQueue, int(deleted), err)
	return deleted, err
}

// purgeGuestCache enqueues a purge task, or purges inline when the task
// queue is disabled.
func (a *App) purgeGuestCache(ctx context.Context) error {
	days := a.Config.GuestCache.RetentionDays
	if days <= 0 {
		days = tasks.DefaultGuestRetentionDays
	}

	if a.Tasks != nil {
		return a.enqueue(ctx, tasks.PurgeGuestCacheTask{OlderThanDays: days})
	}

	purger := auditedPurger{cache: a.Cache, audit: a.Audit}
	removed, err := purger.Purge(time.Now().AddDate(0, 0, -days))
	if err != nil {
		return err
	}
	a.Logger.Info("purged guest cache", "guests", removed, "older_than_days", days)
	return nil
}

// cleanupAudit enqueues an activity cleanup task, or cleans inline when the
// task queue is disabled.
func (a *App) cleanupAudit(ctx context.Context) error {
	days := a.Config.Audit.RetentionDays
	if days <= 0 {
		return nil
	}

	if a.Tasks != nil {
		return a.enqueue(ctx, tasks.CleanupAuditEventsTask{RetentionDays: days})
	}

	deleted, err := auditedCleaner{audit: a.Audit}.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	a.Logger.Info("cleaned up audit events", "deleted", deleted, "older_than_days", days)
	return nil
}

func (a *App) enqueue(ctx context.Context, task backlite.Task) error {
	ids, err := a.Tasks.Add(task).Ctx(ctx).Save()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Config().Name, err)
	}
	a.Logger.Info("task enqueued", "queue", task.Config().Name, "task_id", ids[0])
	return nil
}

// Start launches the task workers and the maintenance scheduler.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.Tasks != nil {
		a.Tasks.Start(ctx)
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown flushes pending reading positions and releases every resource.
// It is safe to call on a partially built App.
func (a *App) Shutdown(ctx context.Context) {
	l := a.Logger
	if l == nil {
		l = log.Default()
	}

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Tracker != nil {
		a.Tracker.Close(ctx)
	}
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
		if err := a.Tasks.Close(); err != nil {
			l.Error("error closing task queue", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.Audit != nil {
		a.Audit.Wait()
	}
	if a.Limiter != nil {
		a.Limiter.Stop()
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			l.Error("error closing guest cache", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			l.Error("error closing database", "error", err)
		}
	}
}

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// and the rest of app with it.
func Serve(app *App) error {
	cfg := app.Config
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		app.Logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var listenErr error
	select {
	case <-quit:
	case listenErr = <-serveErr:
	}
	app.Logger.Info("shutting down", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		app.Logger.Error("server shutdown", "error", err)
	}
	app.Shutdown(ctx)

	app.Logger.Info("server exiting")
	return listenErr
}

// Run builds and serves the application, exiting the process on failure.
func Run(cfg *config.Config, version string) {
	l := logger.New(cfg.Log)
	l.Info("starting bookshelf", "version", version)

	if l.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := Build(cfg, version, l)
	if err != nil {
		l.Fatal("startup failed", "error", err)
	}
	if err := app.Start(context.Background()); err != nil {
		app.Shutdown(context.Background())
		l.Fatal("startup failed", "error", err)
	}
	if err := Serve(app); err != nil {
		l.Fatal("server failed", "error", err)
	}
}
