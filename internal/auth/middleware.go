package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Context keys for request identity
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyAuthType = "auth_type" // "session", "bearer", "guest" or "none"
	ContextKeyIdentity = "auth_identity"
	ContextKeyClientID = "auth_client_id"
)

// AuthType indicates how the request identity was resolved
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeGuest   AuthType = "guest"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Middleware resolves the library identity of every request. It never
// rejects a request; RequireIdentity and RequireUser do that per route.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware. sessionManager may
// be nil, in which case only Bearer tokens are recognized.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// Handler returns a Gin middleware handler that resolves the request
// identity: Bearer token, then signed-in session, then guest session.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := m.tryBearerAuth(c); user != nil {
			m.setUserContext(c, user, AuthTypeBearer)
			c.Next()
			return
		}

		if user := m.trySessionAuth(c); user != nil {
			m.setUserContext(c, user, AuthTypeSession)
			c.Set(ContextKeyClientID, m.sessionManager.EnsureClientID(c.Request))
			c.Next()
			return
		}

		if guestID := m.tryGuestSession(c); guestID != "" {
			c.Set(ContextKeyIdentity, library.Guest(guestID))
			c.Set(ContextKeyAuthType, AuthTypeGuest)
			c.Set(ContextKeyClientID, m.sessionManager.EnsureClientID(c.Request))
			c.Next()
			return
		}

		c.Set(ContextKeyIdentity, library.Unknown())
		c.Set(ContextKeyAuthType, AuthTypeNone)
		if m.sessionManager != nil {
			if id := m.sessionManager.GetClientID(c.Request); id != "" {
				c.Set(ContextKeyClientID, id)
			}
		}
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token, ok := BearerToken(c)
	if !ok {
		return nil
	}
	user, err := m.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) tryGuestSession(c *gin.Context) string {
	if m.sessionManager == nil {
		return ""
	}
	return m.sessionManager.GetGuestID(c.Request)
}

func (m *Middleware) setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyAuthType, authType)
	c.Set(ContextKeyIdentity, library.Authenticated(user.ID))
}

// RequireIdentity rejects requests that resolved to neither a guest nor a
// signed-in user.
func (m *Middleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).Resolved() {
			abortUnauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireUser rejects requests without a signed-in user.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			abortUnauthenticated(c)
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
		"code":  library.CodeNotAuthenticated,
	})
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the signed-in user's ID from the context, or 0.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the signed-in user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetAuthType retrieves how the identity was resolved.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// GetIdentity returns the library identity of the request.
func GetIdentity(c *gin.Context) library.Identity {
	if v, exists := c.Get(ContextKeyIdentity); exists {
		if id, ok := v.(library.Identity); ok {
			return id
		}
	}
	return library.Unknown()
}

// GetClientID returns the session client id, or "" for token requests and
// visitors without a session.
func GetClientID(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyClientID); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// IsAuthenticated returns true if the request carries a signed-in user.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}
