package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
)

func TestLedgerRepositoryApply(t *testing.T) {
	ctx := context.Background()

	t.Run("credit moves balance and records entry", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormLedgerRepository(db)
		user := createTestUser(t, db, 300)

		entry, err := ledger.NewCredit(user.ID, 100, ledger.ReasonPurchase, "Subscription purchase")
		require.NoError(t, err)
		entry.WithExternalRef("cs_test_1")

		require.NoError(t, repo.Apply(ctx, entry))

		balance, err := repo.Balance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 400, balance)
	})

	t.Run("debit moves balance down", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormLedgerRepository(db)
		user := createTestUser(t, db, 300)

		entry, err := ledger.NewDebit(user.ID, 15, ledger.ReasonImageGeneration, "Image generation")
		require.NoError(t, err)

		require.NoError(t, repo.Apply(ctx, entry))

		balance, err := repo.Balance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 285, balance)
	})

	t.Run("debit below zero is rejected and leaves no trace", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormLedgerRepository(db)
		user := createTestUser(t, db, 10)

		entry, err := ledger.NewDebit(user.ID, 35, ledger.ReasonVideoGeneration, "Video generation")
		require.NoError(t, err)

		err = repo.Apply(ctx, entry)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientTokens)
		assert.Contains(t, err.Error(), "available 10")
		assert.Contains(t, err.Error(), "required 35")

		balance, err := repo.Balance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, balance)

		_, total, err := repo.History(ctx, user.ID, shared.DefaultPage())
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("unknown user fails with UserNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormLedgerRepository(db)

		entry, err := ledger.NewCredit(uuid.New(), 100, ledger.ReasonPurchase, "")
		require.NoError(t, err)

		err = repo.Apply(ctx, entry)
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	})

	t.Run("balance always equals sum of deltas", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormLedgerRepository(db)
		user := createTestUser(t, db, 0)

		steps := []struct {
			credit bool
			tokens int
			reason ledger.Reason
		}{
			{true, 300, ledger.ReasonSignupBonus},
			{false, 15, ledger.ReasonImageGeneration},
			{true, 100, ledger.ReasonPurchase},
			{false, 35, ledger.ReasonVideoGeneration},
			{false, 15, ledger.ReasonImageGeneration},
		}
		for _, step := range steps {
			var entry *ledger.Entry
			var err error
			if step.credit {
				entry, err = ledger.NewCredit(user.ID, step.tokens, step.reason, "")
			} else {
				entry, err = ledger.NewDebit(user.ID, step.tokens, step.reason, "")
			}
			require.NoError(t, err)
			require.NoError(t, repo.Apply(ctx, entry))

			balance, err := repo.Balance(ctx, user.ID)
			require.NoError(t, err)
			sum, err := repo.SumDeltas(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, sum, balance, "users.tokens must equal the ledger sum after every apply")
		}

		balance, err := repo.Balance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 335, balance)
	})
}

func TestLedgerRepositoryHistory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormLedgerRepository(db)
	user := createTestUser(t, db, 1000)

	for i := 0; i < 5; i++ {
		entry, err := ledger.NewDebit(user.ID, 15, ledger.ReasonImageGeneration, "Image generation")
		require.NoError(t, err)
		// Distinct timestamps so ordering is deterministic
		entry.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Apply(ctx, entry))
	}

	t.Run("newest first", func(t *testing.T) {
		entries, total, err := repo.History(ctx, user.ID, shared.DefaultPage())
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, entries, 5)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt))
		}
	})

	t.Run("offset and limit paginate", func(t *testing.T) {
		entries, total, err := repo.History(ctx, user.ID, shared.Page{Offset: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, entries, 2)
	})

	t.Run("other users are not included", func(t *testing.T) {
		entries, total, err := repo.History(ctx, uuid.New(), shared.DefaultPage())
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, entries)
	})
}
