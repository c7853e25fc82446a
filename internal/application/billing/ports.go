package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// CheckoutSession is the gateway-neutral view of one payment session.
// The session id doubles as the external transaction id: the idempotence
// key for all downstream processing.
type CheckoutSession struct {
	ID                string
	ClientReferenceID string // the purchasing user's id
	AmountTotal       decimal.Decimal
	PaymentStatus     string // "paid", "unpaid", ...
	Metadata          map[string]string
}

// WebhookEvent is a verified event delivered by the payment gateway
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // populated for checkout.session.completed
}

// CreateCheckoutInput describes a token purchase to start
type CreateCheckoutInput struct {
	UserID string
	Tokens int
	Amount decimal.Decimal
}

// PaymentGateway is the payment processor collaborator
type PaymentGateway interface {
	// ConstructEvent verifies the webhook signature and decodes the event.
	// Fails with shared.ErrSignatureInvalid on a bad signature.
	ConstructEvent(payload []byte, signature string) (*WebhookEvent, error)

	// GetCheckoutSession fetches the current state of a checkout session
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)

	// CreateCheckoutSession starts a checkout and returns its session id
	CreateCheckoutSession(ctx context.Context, input CreateCheckoutInput) (string, error)
}
