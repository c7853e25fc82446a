package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/billing"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Ensure GormSubscriptionRepository implements billing.SubscriptionRepository
var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// CreateWithCredit inserts the subscription and, when entry is non-nil,
// applies the token credit in the same transaction. The unique index on
// transaction_id turns a concurrent duplicate delivery into
// shared.ErrAlreadyExists with the whole transaction rolled back, so the
// credit can never be applied twice.
func (r *GormSubscriptionRepository) CreateWithCredit(ctx context.Context, sub *billing.Subscription, entry *ledger.Entry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.SubscriptionModelFromDomain(sub)).Error; err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return applyEntryTx(tx, entry)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByTransactionID looks up a subscription by its payment transaction id
func (r *GormSubscriptionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByUser lists a user's subscriptions newest first
func (r *GormSubscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID, page shared.Page) ([]*billing.Subscription, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subscriptionModels []models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&subscriptionModels).Error; err != nil {
		return nil, 0, err
	}

	subscriptions := make([]*billing.Subscription, len(subscriptionModels))
	for i, model := range subscriptionModels {
		subscriptions[i] = model.ToDomain()
	}
	return subscriptions, total, nil
}
