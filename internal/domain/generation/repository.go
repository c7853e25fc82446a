package generation

import (
	"context"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
)

// Filter narrows a generation listing
type Filter struct {
	// Type filters by media type when non-empty. Values other than
	// "image" or "video" are rejected with shared.ErrInvalidFilter.
	Type string
	Page shared.Page
}

// Repository defines persistence operations for generation records
type Repository interface {
	// Create inserts one generation row. Pure record keeping, no ledger
	// side effects.
	Create(ctx context.Context, gen *Generation) error

	// CreateWithDebit inserts the generation row and applies the ledger
	// debit in a single database transaction. Both writes commit together
	// or not at all; a partially applied pair must be impossible.
	CreateWithDebit(ctx context.Context, gen *Generation, entry *ledger.Entry) error

	// FindByID finds a generation by ID, returning shared.ErrNotFound if absent
	FindByID(ctx context.Context, id uuid.UUID) (*Generation, error)

	// ListByUser lists a user's generations newest first
	ListByUser(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Generation, int64, error)
}
