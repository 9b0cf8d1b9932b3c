package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyGuestID  = "guest_id"
	SessionKeyClientID = "client_id"
	SessionKeyLoginAt  = "login_at"
)

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	return newSessionManager(sqlDB, cfg, 5*time.Minute)
}

func newSessionManager(sqlDB *sql.DB, cfg config.Auth, cleanupInterval time.Duration) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(sqlDB, cleanupInterval)

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// Close stops the background cleanup of expired sessions.
func (sm *SessionManager) Close() {
	if store, ok := sm.Store.(*sqlite3store.SQLite3Store); ok {
		store.StopCleanup()
	}
}

// StartGuest marks the session as a guest and returns its guest id. An
// existing guest id is kept, so a device always maps to the same library.
func (sm *SessionManager) StartGuest(r *http.Request) string {
	ctx := r.Context()
	guestID := sm.GetString(ctx, SessionKeyGuestID)
	if guestID == "" {
		guestID = uuid.NewString()
		sm.Put(ctx, SessionKeyGuestID, guestID)
	}
	sm.EnsureClientID(r)
	return guestID
}

// CreateSession signs the user in after password verification. The client
// and guest ids survive the token renewal.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	// Stored as int to match GetInt() retrieval
	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyUsername, user.Username)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())
	sm.EnsureClientID(r)

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// EnsureClientID returns the session's client id, creating one if needed.
func (sm *SessionManager) EnsureClientID(r *http.Request) string {
	ctx := r.Context()
	id := sm.GetString(ctx, SessionKeyClientID)
	if id == "" {
		id = uuid.NewString()
		sm.Put(ctx, SessionKeyClientID, id)
	}
	return id
}

// GetClientID returns the session's client id or "".
func (sm *SessionManager) GetClientID(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyClientID)
}

// GetUserID retrieves the user ID from the session.
// Returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// GetGuestID returns the guest id bound to the session or "".
func (sm *SessionManager) GetGuestID(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyGuestID)
}

// GetUsername retrieves the username from the session.
func (sm *SessionManager) GetUsername(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyUsername)
}

// IsAuthenticated returns true if the request has a signed-in session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// SessionData holds the session information for a request.
type SessionData struct {
	UserID   uint      `json:"user_id,omitempty"`
	Username string    `json:"username,omitempty"`
	GuestID  string    `json:"guest_id,omitempty"`
	ClientID string    `json:"client_id,omitempty"`
	LoginAt  time.Time `json:"login_at,omitempty"`
}

// GetSessionData retrieves all session data at once.
func (sm *SessionManager) GetSessionData(r *http.Request) *SessionData {
	loginAt, _ := sm.Get(r.Context(), SessionKeyLoginAt).(time.Time)
	return &SessionData{
		UserID:   sm.GetUserID(r),
		Username: sm.GetUsername(r),
		GuestID:  sm.GetGuestID(r),
		ClientID: sm.GetClientID(r),
		LoginAt:  loginAt,
	}
}
