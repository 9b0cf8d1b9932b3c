package http

import (
	"github.com/charmbracelet/log"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Books    BookStore
	Shelves  ShelfBooks

	// Library core
	Library *library.Service
	Clients *library.Clients
	Tracker *library.Tracker

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	RateLimiter    *auth.RateLimiter
	// SessionThrottle limits guest sessions and registrations per IP (optional)
	SessionThrottle *auth.Throttle
	CSRFSecret      []byte
	SecureCookies   bool

	// Account activity trail (optional)
	Audit *audit.Service

	// Background jobs (optional)
	TaskClient         *tasks.Client
	GuestRetentionDays int
	AuditRetentionDays int

	Logger *log.Logger

	// Application info
	Version string
}
