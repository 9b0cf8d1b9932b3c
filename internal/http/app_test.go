package http

import (
	"bytes"
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
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	auditRepo "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/collections"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/guestcache"
	"github.com/mrlokans/bookshelf/internal/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testApp is the full HTTP stack over temporary SQLite and bbolt files.
type testApp struct {
	router      *gin.Engine
	db          *database.Database
	auth        *auth.Service
	books       *books.Repository
	collections *collections.Repository
	progress    *progress.Repository
	cache       *guestcache.Store
	library     *library.Service
	tracker     *library.Tracker
	clients     *library.Clients
	audit       *audit.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	quiet := log.New(io.Discard)

	db, err := database.NewDatabase(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	cache, err := guestcache.Open(filepath.Join(dir, "guest-cache.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	authCfg := config.Auth{SessionLifetime: time.Hour, BcryptCost: 4, TokenExpiry: time.Hour}
	authService := auth.NewService(db.DB, authCfg)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)
	limiter := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: 3, CleanupInterval: time.Hour})

	app := &testApp{
		db:          db,
		auth:        authService,
		books:       books.NewRepository(db.DB),
		collections: collections.NewRepository(db.DB),
		progress:    progress.NewRepository(db.DB),
		cache:       cache,
		audit:       audit.NewService(auditRepo.NewRepository(db.DB), quiet),
	}
	app.library = library.NewService(
		library.Stores{Remote: app.collections, Local: cache},
		library.Options{GuestQuota: library.Quota{Max: 7}, Logger: quiet},
	)
	app.tracker = library.NewTracker(
		library.PositionStores{Remote: app.progress, Local: cache},
		library.TrackerOptions{Debounce: time.Hour, Logger: quiet},
	)
	app.clients = library.NewClients(app.library, app.tracker)

	app.router = NewRouter(RouterConfig{
		Database:        db,
		Books:           app.books,
		Shelves:         app.collections,
		Library:         app.library,
		Clients:         app.clients,
		Tracker:         app.tracker,
		AuthService:     authService,
		SessionManager:  sessions,
		RateLimiter:     limiter,
		SessionThrottle: auth.NewThrottle(600, 100),
		Audit:           app.audit,
		Logger:          quiet,
		Version:         "test",
	})

	t.Cleanup(func() {
		app.audit.Wait()
		app.tracker.Close(context.Background())
		limiter.Stop()
		cache.Close()
		db.Close()
	})
	return app
}

func (a *testApp) register(t *testing.T, username string) *entities.User {
	t.Helper()
	user, err := a.auth.Register(username, username+"@example.com", "password123")
	require.NoError(t, err)
	return user
}

func (a *testApp) token(t *testing.T, user *entities.User) string {
	t.Helper()
	token, err := a.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return token
}

// testClient is a browser-like client keeping session cookies between
// requests.
type testClient struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
	header  http.Header
}

func (a *testApp) client(t *testing.T) *testClient {
	return &testClient{t: t, app: a, cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (a *testApp) bearerClient(t *testing.T, token string) *testClient {
	c := a.client(t)
	c.header.Set("Authorization", "Bearer "+token)
	return c
}

func (c *testClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	c.app.router.ServeHTTP(rr, req)

	for _, cookie := range rr.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type toggleBody struct {
	OK     bool           `json:"ok"`
	Kind   library.Kind   `json:"kind"`
	BookID string         `json:"book_id"`
	Action library.Action `json:"action"`
	Reason library.Code   `json:"reason"`
	Error  string         `json:"error"`
}

func (c *testClient) toggle(kind, book string, body any) (int, toggleBody) {
	c.t.Helper()
	rr := c.do(http.MethodPost, "/api/library/"+kind+"/"+book+"/toggle", body)
	return rr.Code, decode[toggleBody](c.t, rr)
}

func (c *testClient) shelf() (int, ShelfResponse) {
	c.t.Helper()
	rr := c.do(http.MethodGet, "/api/library", nil)
	if rr.Code != http.StatusOK {
		return rr.Code, ShelfResponse{}
	}
	return rr.Code, decode[ShelfResponse](c.t, rr)
}
