// Package auth resolves who is acting on a request: a signed-in account, an
// anonymous guest bound to a device session, or nobody yet.
//
// Accounts authenticate with a password (cookie session) or an API token
// (Bearer header). Guests get a random guest id stored in the session the
// first time they ask for one; the id survives a later login so the device
// keeps its guest library in the local cache.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_TOKEN_EXPIRY=720h                 # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failures before the account locks
//	AUTH_LOCKOUT_DURATION=30m
//	AUTH_SESSION_RATE_PER_MINUTE=30        # Guest sessions and sign-ups per client IP
//	AUTH_SESSION_RATE_BURST=10
//
// # Usage
//
//	authService := auth.NewService(db, cfg.Auth)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	router.Use(sessions.SessionLoadSave())
//	router.Use(auth.NewMiddleware(authService, sessions).Handler())
//
// Extract the identity in handlers:
//
//	id := auth.GetIdentity(c) // library.Unknown() when nothing resolved
package auth
