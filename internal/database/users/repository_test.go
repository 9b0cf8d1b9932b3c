package users

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db, NewRepository(db)
}

func TestRepository_Lookups(t *testing.T) {
	db, repo := setupTestDB(t)
	alice := &entities.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(alice).Error)

	byID, err := repo.GetUserByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := repo.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := repo.GetUserByUsername("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)
}

func TestRepository_NotFound(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.GetUserByID(42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetUserByUsername("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_ListAndCount(t *testing.T) {
	db, repo := setupTestDB(t)
	require.NoError(t, db.Create(&entities.User{Username: "a", Email: "a@example.com"}).Error)
	require.NoError(t, db.Create(&entities.User{Username: "b", Email: "b@example.com"}).Error)

	users, err := repo.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].Username)

	count, err := repo.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_CreateAndTaken(t *testing.T) {
	_, repo := setupTestDB(t)

	taken, err := repo.Taken("alice", "alice@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, repo.CreateUser(&entities.User{Username: "alice", Email: "alice@example.com"}))

	for _, tc := range []struct{ username, email string }{
		{"alice", "other@example.com"},
		{"other", "alice@example.com"},
	} {
		taken, err := repo.Taken(tc.username, tc.email)
		require.NoError(t, err)
		assert.True(t, taken, "%s / %s", tc.username, tc.email)
	}

	assert.Error(t, repo.CreateUser(&entities.User{Username: "alice", Email: "x@example.com"}))
}

func TestRepository_UpdateFieldsAndTokenLookup(t *testing.T) {
	db, repo := setupTestDB(t)
	alice := &entities.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(alice).Error)

	require.NoError(t, repo.UpdateFields(alice.ID, map[string]any{"token_hash": "abc"}))

	owner, err := repo.GetUserByTokenHash("abc")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, owner.ID)

	require.NoError(t, repo.UpdateFields(alice.ID, map[string]any{"token_hash": ""}))
	_, err = repo.GetUserByTokenHash("abc")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, repo.UpdateFields(999, map[string]any{"token_hash": "x"}), ErrUserNotFound)
}
