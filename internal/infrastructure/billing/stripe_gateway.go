package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
	appbilling "github.com/vidgen/backend/internal/application/billing"
	"go.uber.org/zap"
)

// Ensure StripeGateway implements the payment gateway port
var _ appbilling.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway implements payment operations against Stripe Checkout
type StripeGateway struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.InitStripeClient()

	return &StripeGateway{
		config: config,
		logger: logger,
	}, nil
}

// ConstructEvent verifies the webhook signature and decodes the event.
// Checkout session payloads are mapped into the gateway-neutral view; other
// event types pass through with a nil session.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*appbilling.WebhookEvent, error) {
	// The account's webhook API version can trail or lead the SDK's pinned
	// version; the signature check is what matters here.
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("stripe: webhook verification failed: %w", err)
	}

	result := &appbilling.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Type == "checkout.session.completed" {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: failed to decode checkout session: %w", err)
		}
		result.Session = toCheckoutSession(&sess)
	}

	return result, nil
}

// GetCheckoutSession fetches the current state of a checkout session
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*appbilling.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(id, params)
	if err != nil {
		g.logger.Error("Failed to fetch Stripe checkout session",
			zap.String("session_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to get checkout session: %w", err)
	}

	return toCheckoutSession(sess), nil
}

// CreateCheckoutSession starts a Stripe Checkout for a token purchase.
// The user id travels as the client reference and the token count as
// metadata, so the completed-session webhook carries everything needed to
// apply the purchase.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, input appbilling.CreateCheckoutInput) (string, error) {
	amountCents := input.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(input.UserID),
		SuccessURL:        stripe.String(g.config.SuccessURL),
		CancelURL:         stripe.String(g.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.config.DefaultCurrency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d tokens", input.Tokens)),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"application_tag": g.config.ApplicationTag,
			"tokens":          fmt.Sprintf("%d", input.Tokens),
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("user_id", input.UserID),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("session_id", sess.ID),
		zap.String("user_id", input.UserID),
		zap.Int("tokens", input.Tokens))

	return sess.ID, nil
}

// toCheckoutSession maps a Stripe session into the gateway-neutral view.
// AmountTotal is in the currency's smallest unit on the wire.
func toCheckoutSession(sess *stripe.CheckoutSession) *appbilling.CheckoutSession {
	return &appbilling.CheckoutSession{
		ID:                sess.ID,
		ClientReferenceID: sess.ClientReferenceID,
		AmountTotal:       decimal.NewFromInt(sess.AmountTotal).Div(decimal.NewFromInt(100)),
		PaymentStatus:     string(sess.PaymentStatus),
		Metadata:          sess.Metadata,
	}
}
