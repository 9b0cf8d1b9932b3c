package auth

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func newTestService(t *testing.T) *Service {
	return NewService(setupTestDB(t), config.Auth{BcryptCost: 4, MaxLoginAttempts: 3, LockoutDuration: time.Minute, TokenExpiry: time.Hour})
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid user", username: "reader", email: "reader@example.com", password: "password123"},
		{name: "missing username", email: "a@example.com", password: "password123", wantErr: ErrUsernameRequired},
		{name: "missing email", username: "reader", password: "password123", wantErr: ErrEmailRequired},
		{name: "missing password", username: "reader", email: "a@example.com", wantErr: ErrPasswordRequired},
		{name: "short password", username: "reader", email: "a@example.com", password: "short", wantErr: ErrPasswordTooShort},
		{name: "invalid username", username: "a b", email: "a@example.com", password: "password123", wantErr: ErrUsernameInvalid},
		{name: "invalid email", username: "reader", email: "nope", password: "password123", wantErr: ErrEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			user, err := svc.Register(tt.username, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.NotEqual(t, tt.password, user.PasswordHash)
		})
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register("reader", "reader@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register("reader", "other@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register("other", "READER@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_Authenticate(t *testing.T) {
	svc := newTestService(t)
	created, err := svc.Register("reader", "reader@example.com", "password123")
	require.NoError(t, err)

	user, err := svc.Authenticate("reader", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.NotNil(t, user.LastLoginAt)

	user, err = svc.Authenticate("reader@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	user, err = svc.Authenticate(" Reader@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate("READER", "password123")
	assert.ErrorIs(t, err, ErrUserNotFound, "usernames are case sensitive")

	_, err = svc.Authenticate("reader", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Authenticate("ghost", "password123")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_LockoutAfterFailures(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register("reader", "reader@example.com", "password123")
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate("reader", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, err = svc.Authenticate("reader", "password123")
	assert.ErrorIs(t, err, ErrAccountLocked)

	now = now.Add(2 * time.Minute)
	_, err = svc.Authenticate("reader", "password123")
	assert.NoError(t, err)
}

func TestService_LoginBookkeepingFailuresAreLogged(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, MaxLoginAttempts: 3, LockoutDuration: time.Minute})
	var buf bytes.Buffer
	svc.SetLogger(log.New(&buf))
	_, err := svc.Register("reader", "reader@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_updates", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk full"))
	}))

	_, err = svc.Authenticate("reader", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	assert.Contains(t, buf.String(), "failed to record failed login")
	assert.Contains(t, buf.String(), "disk full")

	user, err := svc.Authenticate("reader", "password123")
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)
	assert.Contains(t, buf.String(), "failed to record successful login")
}

func TestService_Tokens(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Register("reader", "reader@example.com", "password123")
	require.NoError(t, err)

	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.ValidateToken("bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.GenerateToken(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, svc.RevokeToken(user.ID))
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NoError(t, svc.RevokeToken(user.ID))
}

func TestService_TokenExpiry(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Register("reader", "reader@example.com", "password123")
	require.NoError(t, err)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
