package ledger

import (
	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/shared"
)

// Reason categorizes why a token balance changed
type Reason string

const (
	ReasonSignupBonus     Reason = "signup_bonus"
	ReasonPurchase        Reason = "purchase"
	ReasonImageGeneration Reason = "image_generation"
	ReasonVideoGeneration Reason = "video_generation"
	ReasonAdjustment      Reason = "adjustment"
)

// IsValid reports whether the reason is one of the recognized values
func (r Reason) IsValid() bool {
	switch r {
	case ReasonSignupBonus, ReasonPurchase, ReasonImageGeneration,
		ReasonVideoGeneration, ReasonAdjustment:
		return true
	}
	return false
}

// Metadata holds additional context about a ledger entry
type Metadata map[string]any

// Entry represents an immutable record of a single token balance change.
// Once created, entries cannot be modified - corrections must be made with
// new entries. The running sum of a user's deltas always equals the user's
// current token balance.
type Entry struct {
	shared.BaseEntity
	UserID      uuid.UUID // The user whose balance changed
	Delta       int       // Signed change: positive = credit, negative = debit
	Reason      Reason    // Why the balance changed
	Description string    // Free-text description, e.g. "Subscription purchase"
	ExternalRef string    // Generation id or payment transaction id (audit / idempotence)
	Metadata    Metadata  // Additional context
}

// NewCredit creates a ledger entry that adds tokens to a user's balance
func NewCredit(userID uuid.UUID, tokens int, reason Reason, description string) (*Entry, error) {
	if tokens <= 0 {
		return nil, shared.NewDomainError("INVALID_DELTA", "Credit amount must be positive")
	}
	return newEntry(userID, tokens, reason, description)
}

// NewDebit creates a ledger entry that removes tokens from a user's balance
func NewDebit(userID uuid.UUID, tokens int, reason Reason, description string) (*Entry, error) {
	if tokens <= 0 {
		return nil, shared.NewDomainError("INVALID_DELTA", "Debit amount must be positive")
	}
	return newEntry(userID, -tokens, reason, description)
}

func newEntry(userID uuid.UUID, delta int, reason Reason, description string) (*Entry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Invalid ledger reason")
	}
	return &Entry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Delta:       delta,
		Reason:      reason,
		Description: description,
		Metadata:    make(Metadata),
	}, nil
}

// WithExternalRef links the entry to an external document
// (a generation id or a payment transaction id)
func (e *Entry) WithExternalRef(ref string) *Entry {
	e.ExternalRef = ref
	return e
}

// WithMetadata adds metadata to the entry
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata[key] = value
	return e
}

// IsDebit reports whether the entry removes tokens
func (e *Entry) IsDebit() bool {
	return e.Delta < 0
}
