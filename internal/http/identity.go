package http

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/library"
)

// identitySync keeps the per-client identity manager in step with the
// identity the session resolved to. Token requests carry no client id and
// bypass it.
type identitySync struct {
	clients *library.Clients
	logger  *log.Logger
}

func newIdentitySync(clients *library.Clients, logger *log.Logger) *identitySync {
	if logger == nil {
		logger = log.Default()
	}
	return &identitySync{clients: clients, logger: logger.WithPrefix("identity")}
}

// resolve returns the request identity after moving the client manager to
// it.
func (s *identitySync) resolve(c *gin.Context) library.Identity {
	id := auth.GetIdentity(c)
	s.apply(c.Request.Context(), auth.GetClientID(c), id)
	return id
}

// apply moves the manager of clientID to id. A transition the manager
// rejects (a guest session that lost its guest id, an account swap without
// logout) starts the client over from Unknown.
func (s *identitySync) apply(ctx context.Context, clientID string, id library.Identity) {
	if s == nil || s.clients == nil || clientID == "" {
		return
	}

	m := s.clients.Acquire(clientID)
	err := moveTo(ctx, m, id)
	if library.CodeOf(err) == library.CodeInvalidTransition {
		s.logger.Debug("restarting client", "client", clientID, "from", m.Current(), "to", id)
		s.clients.Forget(ctx, clientID)
		err = moveTo(ctx, s.clients.Acquire(clientID), id)
	}
	if err != nil {
		// The view is loaded again on first use.
		s.logger.Warn("identity switch incomplete", "client", clientID, "identity", id, "err", err)
	}
}

// dropTokenViews forgets the cached view of token requests once they are
// served. Only client sessions keep a view between requests.
func (s *identitySync) dropTokenViews() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if s == nil || s.clients == nil || auth.GetClientID(c) != "" {
			return
		}
		s.clients.DropUnbound(auth.GetIdentity(c))
	}
}

// logout signs the client out and forgets its manager.
func (s *identitySync) logout(ctx context.Context, clientID string) {
	if s == nil || s.clients == nil || clientID == "" {
		return
	}
	if m, ok := s.clients.Peek(clientID); ok && m.Current().IsAuthenticated() {
		if err := m.Logout(ctx); err != nil {
			s.logger.Warn("logout listeners failed", "client", clientID, "err", err)
		}
	}
	s.clients.Forget(ctx, clientID)
}

func moveTo(ctx context.Context, m *library.Manager, id library.Identity) error {
	switch id.Kind {
	case library.IdentityGuest:
		return m.EnterGuest(ctx, id.GuestID)
	case library.IdentityAuthenticated:
		return m.Login(ctx, id.UserID)
	default:
		return m.Logout(ctx)
	}
}
