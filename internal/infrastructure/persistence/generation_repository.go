package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/generation"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Ensure GormGenerationRepository implements generation.Repository
var _ generation.Repository = (*GormGenerationRepository)(nil)

// GormGenerationRepository implements generation.Repository using GORM
type GormGenerationRepository struct {
	db *gorm.DB
}

// NewGormGenerationRepository creates a new GormGenerationRepository
func NewGormGenerationRepository(db *gorm.DB) *GormGenerationRepository {
	return &GormGenerationRepository{db: db}
}

// Create inserts one generation row
func (r *GormGenerationRepository) Create(ctx context.Context, gen *generation.Generation) error {
	return r.db.WithContext(ctx).Create(models.GenerationModelFromDomain(gen)).Error
}

// CreateWithDebit inserts the generation row and applies the ledger debit
// in one transaction. If either write fails the transaction rolls back and
// neither the record nor the debit survives.
func (r *GormGenerationRepository) CreateWithDebit(ctx context.Context, gen *generation.Generation, entry *ledger.Entry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.GenerationModelFromDomain(gen)).Error; err != nil {
			return err
		}
		return applyEntryTx(tx, entry)
	})
}

// FindByID finds a generation by ID
func (r *GormGenerationRepository) FindByID(ctx context.Context, id uuid.UUID) (*generation.Generation, error) {
	var model models.GenerationModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByUser lists a user's generations newest first, optionally filtered
// by media type
func (r *GormGenerationRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter generation.Filter) ([]*generation.Generation, int64, error) {
	if filter.Type != "" && !generation.Type(filter.Type).IsValid() {
		return nil, 0, shared.ErrInvalidFilter
	}
	page := filter.Page.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.GenerationModel{}).
		Where("user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var generationModels []models.GenerationModel
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&generationModels).Error; err != nil {
		return nil, 0, err
	}

	generations := make([]*generation.Generation, len(generationModels))
	for i, model := range generationModels {
		generations[i] = model.ToDomain()
	}
	return generations, total, nil
}
