package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vidgen/backend/internal/domain/shared"
)

// PaymentStatus mirrors the payment processor's session status
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentMethodStripe is currently the only supported payment method
const PaymentMethodStripe = "stripe"

// Subscription records one token purchase. TransactionID carries the
// external payment transaction id and is unique: at most one subscription
// row may ever exist per transaction id, which is what makes webhook
// processing idempotent.
type Subscription struct {
	shared.BaseEntity
	UserID          uuid.UUID
	TokensPurchased int
	AmountPaid      decimal.Decimal
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	TransactionID   string
}

// NewSubscription creates a subscription record for a payment event
func NewSubscription(
	userID uuid.UUID,
	tokensPurchased int,
	amountPaid decimal.Decimal,
	status PaymentStatus,
	transactionID string,
) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if tokensPurchased <= 0 {
		return nil, shared.NewDomainError("INVALID_TOKENS", "Purchased tokens must be positive")
	}
	if amountPaid.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount paid cannot be negative")
	}
	if transactionID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}

	return &Subscription{
		BaseEntity:      shared.NewBaseEntity(),
		UserID:          userID,
		TokensPurchased: tokensPurchased,
		AmountPaid:      amountPaid,
		PaymentStatus:   status,
		PaymentMethod:   PaymentMethodStripe,
		TransactionID:   transactionID,
	}, nil
}

// IsPaid reports whether the payment completed
func (s *Subscription) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}
