package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// maxEmailLength is the RFC 5321 path limit.
const maxEmailLength = 254

var (
	ErrUserNotFound     = users.ErrUserNotFound
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// Service owns the credential rules of accounts: registration, password
// sign-in with account lockout, and one API token per account for Bearer
// clients.
type Service struct {
	users  *users.Repository
	config config.Auth
	now    func() time.Time
	logger *log.Logger
}

func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		users:  users.NewRepository(db),
		config: cfg,
		now:    time.Now,
		logger: log.Default().WithPrefix("auth"),
	}
}

// SetLogger replaces the logger used for bookkeeping failures.
func (s *Service) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l.WithPrefix("auth")
	}
}

// normalizeRegistration trims the input and checks it against the account
// format rules.
func normalizeRegistration(username, email, password string) (string, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	switch {
	case username == "":
		return "", "", ErrUsernameRequired
	case email == "":
		return "", "", ErrEmailRequired
	case password == "":
		return "", "", ErrPasswordRequired
	case !usernamePattern.MatchString(username):
		return "", "", ErrUsernameInvalid
	case len(email) > maxEmailLength || !emailPattern.MatchString(email):
		return "", "", ErrEmailInvalid
	}
	return username, email, nil
}

// Register creates an account with password authentication.
func (s *Service) Register(username, email, password string) (*entities.User, error) {
	username, email, err := normalizeRegistration(username, email, password)
	if err != nil {
		return nil, err
	}

	taken, err := s.users.Taken(username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate signs in with a username or email. The account is locked for
// LockoutDuration after MaxLoginAttempts consecutive failures.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	login = strings.TrimSpace(login)
	user, err := s.users.GetUserByUsername(login)
	if errors.Is(err, ErrUserNotFound) && strings.Contains(login, "@") && login != strings.ToLower(login) {
		user, err = s.users.GetUserByUsername(strings.ToLower(login))
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user, now)
		return nil, err
	}

	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	if err := s.users.UpdateFields(user.ID, map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}); err != nil {
		s.logger.Error("failed to record successful login", "user_id", user.ID, "err", err)
	}
	return user, nil
}

func (s *Service) lockoutPolicy() (int, time.Duration) {
	maxAttempts, lockout := s.config.MaxLoginAttempts, s.config.LockoutDuration
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 30 * time.Minute
	}
	return maxAttempts, lockout
}

func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	user.FailedLoginCount++
	fields := map[string]any{"failed_login_count": user.FailedLoginCount}

	maxAttempts, lockout := s.lockoutPolicy()
	if user.FailedLoginCount >= maxAttempts {
		until := now.Add(lockout)
		user.LockedUntil = &until
		fields["locked_until"] = until
	}
	if err := s.users.UpdateFields(user.ID, fields); err != nil {
		s.logger.Error("failed to record failed login", "user_id", user.ID, "attempts", user.FailedLoginCount, "err", err)
	}
}

func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	return s.users.GetUserByID(id)
}

// ValidateToken checks a plaintext API token and returns its owner.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByTokenHash(HashToken(token))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil &&
		s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
		return nil, ErrTokenExpired
	}
	return user, nil
}

// GenerateToken replaces the account's API token and returns the new
// plaintext. Only its hash is stored.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if err := s.users.UpdateFields(userID, map[string]any{
		"token_hash":       hash,
		"token_created_at": s.now(),
	}); err != nil {
		return "", err
	}
	return plaintext, nil
}

// RevokeToken removes the account's API token. Revoking twice is not an
// error.
func (s *Service) RevokeToken(userID uint) error {
	return s.users.UpdateFields(userID, map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
}
