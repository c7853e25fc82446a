package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vidgen/backend/internal/domain/billing"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// checkoutCompletedEvent is the only gateway event that moves tokens
const checkoutCompletedEvent = "checkout.session.completed"

// idempotencyTTL bounds how long processed webhook event ids are remembered.
// The subscription table's uniqueness constraint covers everything beyond it.
const idempotencyTTL = 24 * time.Hour

// PaymentService applies payment-completed events exactly once per external
// transaction id. Duplicate deliveries are absorbed as no-op successes,
// never errors.
type PaymentService struct {
	subscriptionRepo billing.SubscriptionRepository
	gateway          PaymentGateway
	idempotency      shared.IdempotencyStore
	applicationTag   string
	logger           *zap.Logger
}

// PaymentServiceConfig contains construction parameters for PaymentService
type PaymentServiceConfig struct {
	SubscriptionRepo billing.SubscriptionRepository
	Gateway          PaymentGateway
	// Idempotency optionally short-circuits redelivered webhook events.
	// It is an optimization only; correctness comes from the transaction
	// id uniqueness constraint.
	Idempotency shared.IdempotencyStore
	// ApplicationTag filters out events for other applications sharing the
	// same webhook channel.
	ApplicationTag string
	Logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		subscriptionRepo: cfg.SubscriptionRepo,
		gateway:          cfg.Gateway,
		idempotency:      cfg.Idempotency,
		applicationTag:   cfg.ApplicationTag,
		logger:           logger,
	}
}

// HandleCheckoutCompleted applies one payment-completed session. Returns
// true when the subscription (and, for a paid session, the token credit)
// was newly applied, false when the event was foreign or already processed.
func (s *PaymentService) HandleCheckoutCompleted(ctx context.Context, session *CheckoutSession) (bool, error) {
	if session == nil || session.ID == "" {
		return false, shared.ErrInvalidPaymentPayload
	}

	if tag := session.Metadata["application_tag"]; tag != s.applicationTag {
		s.logger.Debug("Ignoring payment event for foreign application",
			zap.String("transaction_id", session.ID),
			zap.String("application_tag", tag))
		return false, nil
	}

	// Fast path: already processed. The uniqueness constraint below remains
	// the safety net for concurrent deliveries racing past this check.
	if _, err := s.subscriptionRepo.FindByTransactionID(ctx, session.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, fmt.Errorf("failed to check for existing subscription: %w", err)
	}

	userID, tokens, err := parsePayload(session)
	if err != nil {
		return false, err
	}

	status := billing.PaymentStatusPending
	switch session.PaymentStatus {
	case "paid":
		status = billing.PaymentStatusPaid
	case "failed":
		status = billing.PaymentStatusFailed
	}

	sub, err := billing.NewSubscription(userID, tokens, session.AmountTotal, status, session.ID)
	if err != nil {
		return false, err
	}

	// The credit only exists for a paid session; for pending/failed the
	// subscription row is still recorded so a later verification can
	// re-check under the same idempotence key.
	var entry *ledger.Entry
	if sub.IsPaid() {
		entry, err = ledger.NewCredit(userID, tokens, ledger.ReasonPurchase, "Subscription purchase")
		if err != nil {
			return false, err
		}
		entry.WithExternalRef(session.ID).
			WithMetadata("payment_method", billing.PaymentMethodStripe).
			WithMetadata("amount_paid", session.AmountTotal.String())
	}

	if err := s.subscriptionRepo.CreateWithCredit(ctx, sub, entry); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Lost the race against a concurrent delivery of the same event
			s.logger.Info("Duplicate payment delivery absorbed",
				zap.String("transaction_id", session.ID))
			return false, nil
		}
		return false, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info("Payment processed",
		zap.String("transaction_id", session.ID),
		zap.String("user_id", userID.String()),
		zap.Int("tokens", tokens),
		zap.String("payment_status", string(status)))
	return true, nil
}

func parsePayload(session *CheckoutSession) (uuid.UUID, int, error) {
	if session.ClientReferenceID == "" {
		return uuid.Nil, 0, shared.NewDomainError(shared.ErrInvalidPaymentPayload.Code, "Missing client reference id")
	}
	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return uuid.Nil, 0, shared.NewDomainError(shared.ErrInvalidPaymentPayload.Code, "Invalid client reference id")
	}

	tokensStr := session.Metadata["tokens"]
	if tokensStr == "" {
		return uuid.Nil, 0, shared.NewDomainError(shared.ErrInvalidPaymentPayload.Code, "Missing tokens in metadata")
	}
	tokens, err := strconv.Atoi(tokensStr)
	if err != nil || tokens <= 0 {
		return uuid.Nil, 0, shared.NewDomainError(shared.ErrInvalidPaymentPayload.Code, "Tokens must be a positive integer")
	}
	return userID, tokens, nil
}

// WebhookResult reports the outcome of processing one webhook delivery
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Applied   bool   `json:"applied"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and dispatches one raw webhook delivery.
// A nil result means the signature did not verify; any other failure
// returns the result alongside the error so the HTTP layer can still
// acknowledge receipt.
func (s *PaymentService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Error("Webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", shared.ErrSignatureInvalid, err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: event.Type,
	}

	if event.Type != checkoutCompletedEvent {
		result.Message = "Event type not handled"
		return result, nil
	}

	if s.idempotency != nil {
		seen, err := s.idempotency.IsProcessed(ctx, event.ID)
		if err != nil {
			// Cache failure only costs us the fast path
			s.logger.Warn("Idempotency store unavailable", zap.Error(err))
		} else if seen {
			result.Message = "Event already processed"
			return result, nil
		}
	}

	applied, err := s.HandleCheckoutCompleted(ctx, event.Session)
	if err != nil {
		// The event stays unmarked so the gateway's redelivery can retry it.
		result.Message = "Processing failed"
		return result, err
	}

	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, event.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Idempotency store unavailable", zap.Error(err))
		}
	}

	result.Applied = applied
	if applied {
		result.Message = "Payment processed"
	} else {
		result.Message = "Payment was already processed"
	}
	return result, nil
}

// VerifyResult reports the outcome of a client-initiated verification
type VerifyResult struct {
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
	Message string `json:"message"`
}

// VerifyPayment refetches the session from the gateway and runs the same
// insert-or-skip path as the webhook, so clients can poll it safely.
func (s *PaymentService) VerifyPayment(ctx context.Context, sessionID string) (*VerifyResult, error) {
	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkout session: %w", err)
	}

	if session.PaymentStatus != "paid" {
		return &VerifyResult{
			Status:  session.PaymentStatus,
			Message: "Payment is not complete",
		}, nil
	}

	applied, err := s.HandleCheckoutCompleted(ctx, session)
	if err != nil {
		return nil, err
	}

	message := "Payment processed successfully"
	if !applied {
		message = "Payment was already processed"
	}
	return &VerifyResult{
		Status:  "success",
		Applied: applied,
		Message: message,
	}, nil
}

// CreateCheckout starts a gateway checkout session for a token purchase
func (s *PaymentService) CreateCheckout(ctx context.Context, userID uuid.UUID, tokens int, amount float64) (string, error) {
	if tokens <= 0 {
		return "", shared.NewDomainError("INVALID_TOKENS", "Token amount must be positive")
	}
	if amount <= 0 {
		return "", shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	sessionID, err := s.gateway.CreateCheckoutSession(ctx, CreateCheckoutInput{
		UserID: userID.String(),
		Tokens: tokens,
		Amount: decimal.NewFromFloat(amount),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sessionID, nil
}

// SubscriptionHistory lists a user's token purchases newest first
func (s *PaymentService) SubscriptionHistory(ctx context.Context, userID uuid.UUID, page shared.Page) (shared.Paginated[*billing.Subscription], error) {
	subs, total, err := s.subscriptionRepo.ListByUser(ctx, userID, page)
	if err != nil {
		return shared.Paginated[*billing.Subscription]{}, err
	}
	return shared.NewPaginated(subs, total, page.Normalize()), nil
}
