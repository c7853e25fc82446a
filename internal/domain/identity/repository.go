package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	// Create persists a new user
	Create(ctx context.Context, user *User) error

	// CreateWithSignupBonus persists the user and the signup bonus ledger
	// entry in the same transaction, so the balance invariant holds from
	// the account's first row. Returns shared.ErrAlreadyExists when the
	// email is taken.
	CreateWithSignupBonus(ctx context.Context, user *User, entry *ledger.Entry) error

	// FindByID finds a user by ID, returning shared.ErrUserNotFound if absent
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by email, returning shared.ErrUserNotFound if absent
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Save updates an existing user
	Save(ctx context.Context, user *User) error

	// Delete removes a user and, by cascade, their ledger entries,
	// generations and subscriptions
	Delete(ctx context.Context, id uuid.UUID) error
}
