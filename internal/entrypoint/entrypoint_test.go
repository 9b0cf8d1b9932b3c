package entrypoint

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(dir, "app.db")
	cfg.GuestCache.Path = filepath.Join(dir, "guest-cache.db")
	cfg.GuestCache.RetentionDays = 30
	cfg.GuestCache.PurgeSchedule = "0 3 * * *"
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.SweepSchedule = "*/10 * * * *"
	cfg.Tasks.Enabled = true
	cfg.Tasks.DatabasePath = filepath.Join(dir, "tasks.db")
	cfg.Tasks.Workers = 1
	cfg.Audit.RetentionDays = 30
	cfg.Audit.CleanupSchedule = "30 3 * * *"
	cfg.Auth.SessionLifetime = time.Hour
	cfg.Auth.BcryptCost = 4
	cfg.Library.GuestMaxItems = 7
	cfg.Library.PositionDebounce = time.Hour
	cfg.Library.ClientIdleTimeout = time.Minute
	return cfg
}

func TestBuildStartShutdown(t *testing.T) {
	app, err := Build(testConfig(t), "test", log.New(io.Discard))
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	assert.True(t, app.Scheduler.IsRunning())

	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.Shutdown(ctx)
	assert.False(t, app.Scheduler.IsRunning())
}

func TestBuildWithoutBackgroundJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tasks.Enabled = false
	cfg.Scheduler.Enabled = false

	app, err := Build(cfg, "test", log.New(io.Discard))
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	assert.Nil(t, app.Tasks)
	assert.Nil(t, app.Scheduler)
	require.NoError(t, app.Start(context.Background()))
}

func TestBuildFailsOnBadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "app.db")

	app, err := Build(cfg, "test", log.New(io.Discard))
	require.Error(t, err)
	assert.Nil(t, app)
}

func TestPurgeGuestCacheInline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tasks.Enabled = false

	app, err := Build(cfg, "test", log.New(io.Discard))
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	ctx := context.Background()
	require.NoError(t, app.Cache.SaveShelf(ctx, "guest-1", library.Shelf{}))
	require.NoError(t, app.purgeGuestCache(ctx))

	_, found, err := app.Cache.LoadShelf(ctx, "guest-1")
	require.NoError(t, err)
	assert.True(t, found, "recently used guest libraries are kept")

	app.Audit.Wait()
	events, _, err := app.Audit.GetEventsByType(entities.AuditEventMaintenance, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "purge_guest_cache", events[0].Action)
}

func TestMaintenanceJobsEnqueue(t *testing.T) {
	app, err := Build(testConfig(t), "test", log.New(io.Discard))
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	require.NoError(t, app.purgeGuestCache(context.Background()))
	require.NoError(t, app.cleanupAudit(context.Background()))
}

func TestCleanupAuditInline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tasks.Enabled = false

	app, err := Build(cfg, "test", log.New(io.Discard))
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	require.NoError(t, app.Audit.Log(&entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventAuth,
		Action:    "login",
		CreatedAt: time.Now().AddDate(0, 0, -60),
	}))

	require.NoError(t, app.cleanupAudit(context.Background()))
	app.Audit.Wait()

	events, _, err := app.Audit.GetEventsByType(entities.AuditEventAuth, 0, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, _, err = app.Audit.GetEventsByType(entities.AuditEventMaintenance, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cleanup_audit_events", events[0].Action)
}

func TestCSRFSecret(t *testing.T) {
	quiet := log.New(io.Discard)

	secret, err := csrfSecret("00ff", quiet)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, secret)

	secret, err = csrfSecret("not-hex", quiet)
	require.NoError(t, err)
	assert.Equal(t, []byte("not-hex"), secret)

	secret, err = csrfSecret("", quiet)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}
