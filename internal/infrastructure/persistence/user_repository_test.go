package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidgen/backend/internal/domain/identity"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockUserRepository creates a GormUserRepository with a mocked SQL connection
func newMockUserRepository(t *testing.T) (*GormUserRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormUserRepository(gormDB), mock, mockDB
}

func TestGormUserRepository_FindByID(t *testing.T) {
	t.Run("finds existing user", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "email", "full_name", "hashed_password", "active", "tokens"}).
			AddRow(userID, "ada@example.com", "Ada Lovelace", "hash", true, 285)

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(userID, 1).
			WillReturnRows(rows)

		user, err := repo.FindByID(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, 285, user.Tokens)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user maps to UserNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(userID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := repo.FindByID(context.Background(), userID)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	})
}

func TestGormUserRepository_CreateWithSignupBonus(t *testing.T) {
	ctx := context.Background()

	t.Run("user and bonus entry commit together", func(t *testing.T) {
		db := setupTestDB(t)
		userRepo := NewGormUserRepository(db)
		ledgerRepo := NewGormLedgerRepository(db)

		user, err := identity.NewUser("grace@example.com", "Grace Hopper", "hash")
		require.NoError(t, err)
		entry, err := ledger.NewCredit(user.ID, identity.DefaultStartingTokens, ledger.ReasonSignupBonus, "Signup bonus")
		require.NoError(t, err)

		require.NoError(t, userRepo.CreateWithSignupBonus(ctx, user, entry))

		balance, err := ledgerRepo.Balance(ctx, user.ID)
		require.NoError(t, err)
		sum, err := ledgerRepo.SumDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.DefaultStartingTokens, balance)
		assert.Equal(t, balance, sum)
	})

	t.Run("zero token balance persists as zero", func(t *testing.T) {
		db := setupTestDB(t)
		userRepo := NewGormUserRepository(db)

		// The tokens column must be written even when it is zero; a column
		// default sneaking in here would desync the balance from the ledger.
		user, err := identity.NewUser("zero@example.com", "Zero Balance", "hash")
		require.NoError(t, err)
		user.Tokens = 0
		require.NoError(t, userRepo.Create(ctx, user))

		found, err := userRepo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, found.Tokens)
	})

	t.Run("duplicate email maps to AlreadyExists", func(t *testing.T) {
		db := setupTestDB(t)
		userRepo := NewGormUserRepository(db)

		first, err := identity.NewUser("grace@example.com", "Grace Hopper", "hash")
		require.NoError(t, err)
		require.NoError(t, userRepo.Create(ctx, first))

		second, err := identity.NewUser("grace@example.com", "Grace H.", "hash")
		require.NoError(t, err)
		err = userRepo.Create(ctx, second)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	userRepo := NewGormUserRepository(db)
	ledgerRepo := NewGormLedgerRepository(db)
	user := createTestUser(t, db, 300)

	entry, err := ledger.NewDebit(user.ID, 15, ledger.ReasonImageGeneration, "")
	require.NoError(t, err)
	require.NoError(t, ledgerRepo.Apply(ctx, entry))

	require.NoError(t, userRepo.Delete(ctx, user.ID))

	_, err = userRepo.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	_, total, err := ledgerRepo.History(ctx, user.ID, shared.DefaultPage())
	require.NoError(t, err)
	assert.Zero(t, total)
}
