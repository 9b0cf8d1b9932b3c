package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// SessionController drives the identity lifecycle of a cookie session:
// guest entry, registration, login and logout.
type SessionController struct {
	authService *auth.Service
	sessions    *auth.SessionManager
	limiter     *auth.RateLimiter
	svc         *library.Service
	identity    *identitySync
	activity    activity
}

func NewSessionController(authService *auth.Service, sessions *auth.SessionManager, limiter *auth.RateLimiter, svc *library.Service, identity *identitySync, recorder ActivityRecorder) *SessionController {
	return &SessionController{
		authService: authService,
		sessions:    sessions,
		limiter:     limiter,
		svc:         svc,
		identity:    identity,
		activity:    activity{rec: recorder},
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	// Login is a username or an email address.
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse describes the identity a session resolved to.
type SessionResponse struct {
	Identity      library.Identity `json:"identity"`
	Authenticated bool             `json:"authenticated"`
	User          *entities.User   `json:"user,omitempty"`
	Library       *library.Shelf   `json:"library,omitempty"`
}

// Current returns the session identity and hands out a CSRF token for the
// next mutation.
func (controller *SessionController) Current(c *gin.Context) {
	id := controller.identity.resolve(c)
	if token := auth.GetCSRFToken(c); token != "" {
		c.Header(auth.CSRFTokenHeader, token)
	}

	resp := SessionResponse{Identity: id, Authenticated: id.IsAuthenticated()}
	if id.IsAuthenticated() {
		if user, err := controller.authService.GetUserByID(id.UserID); err == nil {
			resp.User = user
		}
	}
	c.JSON(http.StatusOK, resp)
}

// StartGuest turns an unresolved session into a guest session. Calling it
// again keeps the same guest id.
func (controller *SessionController) StartGuest(c *gin.Context) {
	if auth.IsAuthenticated(c) {
		respondLibraryError(c, library.InvalidTransition(auth.GetIdentity(c), library.Guest("")), "start guest")
		return
	}

	guestID := controller.sessions.StartGuest(c.Request)
	id := library.Guest(guestID)
	controller.identity.apply(c.Request.Context(), controller.sessions.GetClientID(c.Request), id)

	controller.respondWithLibrary(c, http.StatusOK, id, nil)
}

// Register creates an account. It does not sign the session in.
func (controller *SessionController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username, email and password are required")
		return
	}

	user, err := controller.authService.Register(req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		respondError(c, http.StatusConflict, err.Error())
		return
	case errors.Is(err, auth.ErrUsernameInvalid),
		errors.Is(err, auth.ErrEmailInvalid),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrUsernameRequired),
		errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrPasswordRequired):
		respondBadRequest(c, err.Error())
		return
	case err != nil:
		respondInternalError(c, err, "register")
		return
	}
	controller.activity.auth(c, user.ID, audit.ActionRegister, "", true)
	respondCreated(c, gin.H{"user": user})
}

// Login verifies credentials and switches the session to the account. A
// guest library on the device is left in the local cache.
func (controller *SessionController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "login and password are required")
		return
	}
	if controller.limiter != nil && !controller.limiter.Check(c, req.Login) {
		return
	}

	user, err := controller.authService.Authenticate(req.Login, req.Password)
	if err != nil {
		if controller.limiter != nil {
			controller.limiter.RecordFailure(c.ClientIP(), req.Login)
		}
		controller.activity.auth(c, 0, audit.ActionLogin, req.Login, false)
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			respondError(c, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
			respondUnauthorized(c, "invalid credentials")
		default:
			respondInternalError(c, err, "login")
		}
		return
	}
	if controller.limiter != nil {
		controller.limiter.RecordSuccess(c.ClientIP(), req.Login)
	}

	if err := controller.sessions.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, err, "create session")
		return
	}
	id := library.Authenticated(user.ID)
	controller.identity.apply(c.Request.Context(), controller.sessions.GetClientID(c.Request), id)
	controller.activity.auth(c, user.ID, audit.ActionLogin, "", true)

	controller.respondWithLibrary(c, http.StatusOK, id, user)
}

// Logout clears the account from the client, cancelling its pending
// position writes, and destroys the session.
func (controller *SessionController) Logout(c *gin.Context) {
	if userID := auth.GetUserID(c); userID != 0 {
		controller.activity.auth(c, userID, audit.ActionLogout, "", true)
	}
	controller.identity.logout(c.Request.Context(), auth.GetClientID(c))
	if err := controller.sessions.DestroySession(c.Request); err != nil {
		respondInternalError(c, err, "destroy session")
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Identity: library.Unknown()})
}

// GenerateToken issues a new API token for the signed-in account. The
// plaintext is only returned once.
func (controller *SessionController) GenerateToken(c *gin.Context) {
	token, err := controller.authService.GenerateToken(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "generate token")
		return
	}
	controller.activity.auth(c, auth.GetUserID(c), audit.ActionTokenCreate, "", true)
	respondCreated(c, gin.H{"token": token})
}

// RevokeToken removes the signed-in account's API token.
func (controller *SessionController) RevokeToken(c *gin.Context) {
	if err := controller.authService.RevokeToken(auth.GetUserID(c)); err != nil {
		respondInternalError(c, err, "revoke token")
		return
	}
	controller.activity.auth(c, auth.GetUserID(c), audit.ActionTokenRevoke, "", true)
	respondSuccess(c, "token revoked")
}

func (controller *SessionController) respondWithLibrary(c *gin.Context, status int, id library.Identity, user *entities.User) {
	resp := SessionResponse{Identity: id, Authenticated: id.IsAuthenticated(), User: user}
	if shelf, err := controller.svc.View(c.Request.Context(), id); err == nil {
		resp.Library = &shelf
	}
	c.JSON(status, resp)
}
