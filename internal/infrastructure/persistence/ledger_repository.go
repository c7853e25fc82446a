package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ensure GormLedgerRepository implements ledger.Repository
var _ ledger.Repository = (*GormLedgerRepository)(nil)

// GormLedgerRepository implements ledger.Repository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Apply atomically inserts the entry and moves the user's balance
func (r *GormLedgerRepository) Apply(ctx context.Context, entry *ledger.Entry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyEntryTx(tx, entry)
	})
}

// applyEntryTx performs the insert-entry-and-move-balance pair inside an
// already open transaction. The user row is locked for the duration so the
// balance check and the update cannot interleave with another writer for
// the same user. Shared with the generation and subscription repositories,
// which compose it into their own transactions.
func applyEntryTx(tx *gorm.DB, entry *ledger.Entry) error {
	var user models.UserModel
	if err := lockForUpdate(tx).Where("id = ?", entry.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrUserNotFound
		}
		return err
	}

	if entry.IsDebit() && user.Tokens+entry.Delta < 0 {
		return shared.NewInsufficientTokensError(user.Tokens, -entry.Delta)
	}

	if err := tx.Create(models.LedgerEntryModelFromDomain(entry)).Error; err != nil {
		return err
	}

	return tx.Model(&models.UserModel{}).
		Where("id = ?", entry.UserID).
		UpdateColumn("tokens", gorm.Expr("tokens + ?", entry.Delta)).Error
}

// lockForUpdate adds a SELECT ... FOR UPDATE clause on dialects that
// support it. SQLite, used by the test suites, serializes writers with its
// database-level lock instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Balance reads the user's current token balance
func (r *GormLedgerRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.UserModel
	if err := r.db.WithContext(ctx).
		Select("tokens").
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, shared.ErrUserNotFound
		}
		return 0, err
	}
	return user.Tokens, nil
}

// History lists a user's ledger entries newest first
func (r *GormLedgerRepository) History(ctx context.Context, userID uuid.UUID, page shared.Page) ([]*ledger.Entry, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entryModels []models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*ledger.Entry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = model.ToDomain()
	}
	return entries, total, nil
}

// SumDeltas returns the live sum of a user's entry deltas. Used by tests
// and consistency checks to verify the balance invariant; the read path
// uses users.tokens directly.
func (r *GormLedgerRepository) SumDeltas(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum *int
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Select("SUM(delta)").
		Where("user_id = ?", userID).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
