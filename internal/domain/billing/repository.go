package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
)

// SubscriptionRepository defines persistence operations for subscriptions
type SubscriptionRepository interface {
	// CreateWithCredit inserts the subscription row and, when entry is
	// non-nil, applies the ledger credit in the same database transaction.
	// The unique index on transaction_id is the final arbiter against
	// concurrent deliveries of the same payment event: a duplicate insert
	// fails the whole transaction with shared.ErrAlreadyExists and no
	// credit is applied.
	CreateWithCredit(ctx context.Context, sub *Subscription, entry *ledger.Entry) error

	// FindByTransactionID looks up a subscription by its external payment
	// transaction id, returning shared.ErrNotFound if absent
	FindByTransactionID(ctx context.Context, transactionID string) (*Subscription, error)

	// ListByUser lists a user's subscriptions newest first
	ListByUser(ctx context.Context, userID uuid.UUID, page shared.Page) ([]*Subscription, int64, error)
}
