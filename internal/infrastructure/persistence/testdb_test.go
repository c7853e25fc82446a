package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vidgen/backend/internal/domain/identity"
	"github.com/vidgen/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
// TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey, matching the postgres configuration.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.UserModel{},
		&models.LedgerEntryModel{},
		&models.GenerationModel{},
		&models.SubscriptionModel{},
	)
	require.NoError(t, err)

	return db
}

// createTestUser inserts a user with the given token balance
func createTestUser(t *testing.T, db *gorm.DB, tokens int) *identity.User {
	t.Helper()

	user, err := identity.NewUser("test@example.com", "Test User", "hash")
	require.NoError(t, err)
	user.Tokens = tokens

	repo := NewGormUserRepository(db)
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}
