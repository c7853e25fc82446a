package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/shared"
)

// Repository defines the durable token ledger.
//
// Apply is the only write path for token balances: within one database
// transaction it inserts the entry and moves users.tokens by the entry's
// delta, holding a row lock on the user so that concurrent check-then-apply
// sequences for the same user serialize. A debit that would take the
// balance negative fails with shared.ErrInsufficientTokens.
type Repository interface {
	// Apply atomically inserts the entry and updates the user's balance.
	// Returns shared.ErrUserNotFound if the user does not exist.
	Apply(ctx context.Context, entry *Entry) error

	// Balance reads the user's current token balance in O(1).
	// The ledger invariant keeps users.tokens equal to the live sum,
	// so no aggregation is needed.
	Balance(ctx context.Context, userID uuid.UUID) (int, error)

	// History lists a user's ledger entries newest first
	History(ctx context.Context, userID uuid.UUID, page shared.Page) ([]*Entry, int64, error)
}
