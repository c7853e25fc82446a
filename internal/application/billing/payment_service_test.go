package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainbilling "github.com/vidgen/backend/internal/domain/billing"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"go.uber.org/zap"
)

type fakeSubscriptionRepo struct {
	subs    map[string]*domainbilling.Subscription
	credits []*ledger.Entry
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*domainbilling.Subscription)}
}

func (r *fakeSubscriptionRepo) CreateWithCredit(_ context.Context, sub *domainbilling.Subscription, entry *ledger.Entry) error {
	if _, exists := r.subs[sub.TransactionID]; exists {
		return shared.ErrAlreadyExists
	}
	r.subs[sub.TransactionID] = sub
	if entry != nil {
		r.credits = append(r.credits, entry)
	}
	return nil
}

func (r *fakeSubscriptionRepo) FindByTransactionID(_ context.Context, transactionID string) (*domainbilling.Subscription, error) {
	sub, ok := r.subs[transactionID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return sub, nil
}

func (r *fakeSubscriptionRepo) ListByUser(_ context.Context, userID uuid.UUID, page shared.Page) ([]*domainbilling.Subscription, int64, error) {
	var out []*domainbilling.Subscription
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, int64(len(out)), nil
}

type fakeGateway struct {
	event       *WebhookEvent
	eventErr    error
	sessions    map[string]*CheckoutSession
	createdID   string
	createCalls int
}

func (g *fakeGateway) ConstructEvent(payload []byte, signature string) (*WebhookEvent, error) {
	if g.eventErr != nil {
		return nil, g.eventErr
	}
	return g.event, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*CheckoutSession, error) {
	session, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return session, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, input CreateCheckoutInput) (string, error) {
	g.createCalls++
	return g.createdID, nil
}

type fakeIdempotencyStore struct {
	seen map[string]bool
	err  error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	return s.seen[eventID], s.err
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type flakySubscriptionRepo struct {
	*fakeSubscriptionRepo
	failures int
}

func (r *flakySubscriptionRepo) CreateWithCredit(ctx context.Context, sub *domainbilling.Subscription, entry *ledger.Entry) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.fakeSubscriptionRepo.CreateWithCredit(ctx, sub, entry)
}

func paidSession(userID uuid.UUID, transactionID string, tokens string) *CheckoutSession {
	return &CheckoutSession{
		ID:                transactionID,
		ClientReferenceID: userID.String(),
		AmountTotal:       decimal.NewFromFloat(9.99),
		PaymentStatus:     "paid",
		Metadata: map[string]string{
			"application_tag": "vidgen",
			"tokens":          tokens,
		},
	}
}

func newTestPaymentService(repo domainbilling.SubscriptionRepository, gateway *fakeGateway, store shared.IdempotencyStore) *PaymentService {
	return NewPaymentService(PaymentServiceConfig{
		SubscriptionRepo: repo,
		Gateway:          gateway,
		Idempotency:      store,
		ApplicationTag:   "vidgen",
		Logger:           zap.NewNop(),
	})
}

func TestHandleCheckoutCompleted(t *testing.T) {
	userID := uuid.New()

	t.Run("paid session records subscription and credit", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		svc := newTestPaymentService(repo, &fakeGateway{}, nil)

		applied, err := svc.HandleCheckoutCompleted(context.Background(), paidSession(userID, "cs_100", "100"))

		require.NoError(t, err)
		assert.True(t, applied)

		sub, err := repo.FindByTransactionID(context.Background(), "cs_100")
		require.NoError(t, err)
		assert.Equal(t, userID, sub.UserID)
		assert.Equal(t, 100, sub.TokensPurchased)
		assert.Equal(t, domainbilling.PaymentStatusPaid, sub.PaymentStatus)

		require.Len(t, repo.credits, 1)
		assert.Equal(t, 100, repo.credits[0].Delta)
		assert.Equal(t, ledger.ReasonPurchase, repo.credits[0].Reason)
		assert.Equal(t, "cs_100", repo.credits[0].ExternalRef)
	})

	t.Run("duplicate delivery is a no-op success", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		svc := newTestPaymentService(repo, &fakeGateway{}, nil)

		applied, err := svc.HandleCheckoutCompleted(context.Background(), paidSession(userID, "cs_dup", "100"))
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = svc.HandleCheckoutCompleted(context.Background(), paidSession(userID, "cs_dup", "100"))
		require.NoError(t, err)
		assert.False(t, applied)

		assert.Len(t, repo.credits, 1)
		assert.Len(t, repo.subs, 1)
	})

	t.Run("insert race is absorbed", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		// Pre-insert to simulate a concurrent delivery winning the race
		// between the fast-path lookup and the insert.
		sub, err := domainbilling.NewSubscription(userID, 100, decimal.NewFromFloat(9.99), domainbilling.PaymentStatusPaid, "cs_race")
		require.NoError(t, err)
		repo.subs["cs_race"] = sub

		svc := newTestPaymentService(newFakeSubscriptionRepo(), &fakeGateway{}, nil)
		svc.subscriptionRepo = &racingRepo{inner: repo}

		applied, err := svc.HandleCheckoutCompleted(context.Background(), paidSession(userID, "cs_race", "100"))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Empty(t, repo.credits)
	})

	t.Run("unpaid session records without credit", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		svc := newTestPaymentService(repo, &fakeGateway{}, nil)

		session := paidSession(userID, "cs_unpaid", "100")
		session.PaymentStatus = "unpaid"

		applied, err := svc.HandleCheckoutCompleted(context.Background(), session)
		require.NoError(t, err)
		assert.True(t, applied)

		sub, err := repo.FindByTransactionID(context.Background(), "cs_unpaid")
		require.NoError(t, err)
		assert.Equal(t, domainbilling.PaymentStatusPending, sub.PaymentStatus)
		assert.Empty(t, repo.credits)
	})

	t.Run("foreign application tag is skipped", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		svc := newTestPaymentService(repo, &fakeGateway{}, nil)

		session := paidSession(userID, "cs_foreign", "100")
		session.Metadata["application_tag"] = "otherapp"

		applied, err := svc.HandleCheckoutCompleted(context.Background(), session)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Empty(t, repo.subs)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		svc := newTestPaymentService(repo, &fakeGateway{}, nil)

		cases := []struct {
			name   string
			mutate func(*CheckoutSession)
		}{
			{"missing client reference", func(s *CheckoutSession) { s.ClientReferenceID = "" }},
			{"malformed client reference", func(s *CheckoutSession) { s.ClientReferenceID = "not-a-uuid" }},
			{"missing tokens", func(s *CheckoutSession) { delete(s.Metadata, "tokens") }},
			{"non-numeric tokens", func(s *CheckoutSession) { s.Metadata["tokens"] = "lots" }},
			{"zero tokens", func(s *CheckoutSession) { s.Metadata["tokens"] = "0" }},
			{"negative tokens", func(s *CheckoutSession) { s.Metadata["tokens"] = "-5" }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				session := paidSession(userID, "cs_bad_"+tc.name, "100")
				tc.mutate(session)

				applied, err := svc.HandleCheckoutCompleted(context.Background(), session)
				assert.ErrorIs(t, err, shared.ErrInvalidPaymentPayload)
				assert.False(t, applied)
			})
		}
		assert.Empty(t, repo.subs, "malformed payloads must leave no rows")
	})
}

// racingRepo makes the fast-path lookup miss while the insert still
// collides, modelling two deliveries racing past the existence check.
type racingRepo struct {
	inner *fakeSubscriptionRepo
}

func (r *racingRepo) CreateWithCredit(ctx context.Context, sub *domainbilling.Subscription, entry *ledger.Entry) error {
	return r.inner.CreateWithCredit(ctx, sub, entry)
}

func (r *racingRepo) FindByTransactionID(context.Context, string) (*domainbilling.Subscription, error) {
	return nil, shared.ErrNotFound
}

func (r *racingRepo) ListByUser(ctx context.Context, userID uuid.UUID, page shared.Page) ([]*domainbilling.Subscription, int64, error) {
	return r.inner.ListByUser(ctx, userID, page)
}

func TestProcessWebhook(t *testing.T) {
	userID := uuid.New()

	t.Run("checkout completed event applies payment", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		gateway := &fakeGateway{
			event: &WebhookEvent{
				ID:      "evt_1",
				Type:    "checkout.session.completed",
				Session: paidSession(userID, "cs_webhook", "200"),
			},
		}
		svc := newTestPaymentService(repo, gateway, nil)

		result, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")

		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, "evt_1", result.EventID)
		assert.Len(t, repo.credits, 1)
	})

	t.Run("invalid signature fails", func(t *testing.T) {
		gateway := &fakeGateway{eventErr: errors.New("bad signature")}
		svc := newTestPaymentService(newFakeSubscriptionRepo(), gateway, nil)

		result, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "bad")

		assert.ErrorIs(t, err, shared.ErrSignatureInvalid)
		assert.Nil(t, result)
	})

	t.Run("unhandled event types are acknowledged", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		gateway := &fakeGateway{
			event: &WebhookEvent{ID: "evt_2", Type: "invoice.paid"},
		}
		svc := newTestPaymentService(repo, gateway, nil)

		result, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")

		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Empty(t, repo.subs)
	})

	t.Run("idempotency store short-circuits redelivery", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		gateway := &fakeGateway{
			event: &WebhookEvent{
				ID:      "evt_3",
				Type:    "checkout.session.completed",
				Session: paidSession(userID, "cs_redelivered", "100"),
			},
		}
		store := newFakeIdempotencyStore()
		svc := newTestPaymentService(repo, gateway, store)

		result, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.True(t, result.Applied)

		result, err = svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Len(t, repo.credits, 1)
	})

	t.Run("transient failure leaves event retryable", func(t *testing.T) {
		repo := &flakySubscriptionRepo{fakeSubscriptionRepo: newFakeSubscriptionRepo(), failures: 1}
		gateway := &fakeGateway{
			event: &WebhookEvent{
				ID:      "evt_5",
				Type:    "checkout.session.completed",
				Session: paidSession(userID, "cs_transient", "100"),
			},
		}
		store := newFakeIdempotencyStore()
		svc := newTestPaymentService(repo, gateway, store)

		_, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")
		require.Error(t, err)
		assert.Empty(t, repo.credits)

		// The failed delivery must not poison the cache: the gateway's
		// redelivery of the same event id has to apply the credit.
		result, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Len(t, repo.credits, 1)

		result, err = svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Len(t, repo.credits, 1)
	})

	t.Run("idempotency store failure falls through to database", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		gateway := &fakeGateway{
			event: &WebhookEvent{
				ID:      "evt_4",
				Type:    "checkout.session.completed",
				Session: paidSession(userID, "cs_store_down", "100"),
			},
		}
		store := newFakeIdempotencyStore()
		store.err = errors.New("connection refused")
		svc := newTestPaymentService(repo, gateway, store)

		result, err := svc.ProcessWebhook(context.Background(), []byte(`{}`), "sig")

		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Len(t, repo.credits, 1)
	})
}

func TestVerifyPayment(t *testing.T) {
	userID := uuid.New()

	t.Run("paid session is applied once", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		gateway := &fakeGateway{
			sessions: map[string]*CheckoutSession{
				"cs_verify": paidSession(userID, "cs_verify", "150"),
			},
		}
		svc := newTestPaymentService(repo, gateway, nil)

		result, err := svc.VerifyPayment(context.Background(), "cs_verify")
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, "success", result.Status)

		// Webhook already delivered it; verify must not double-credit.
		result, err = svc.VerifyPayment(context.Background(), "cs_verify")
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Len(t, repo.credits, 1)
	})

	t.Run("incomplete payment reports status without writing", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		session := paidSession(userID, "cs_pending", "150")
		session.PaymentStatus = "unpaid"
		gateway := &fakeGateway{sessions: map[string]*CheckoutSession{"cs_pending": session}}
		svc := newTestPaymentService(repo, gateway, nil)

		result, err := svc.VerifyPayment(context.Background(), "cs_pending")

		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, "unpaid", result.Status)
		assert.Empty(t, repo.subs)
	})
}

func TestCreateCheckout(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{createdID: "cs_new"}
	svc := newTestPaymentService(newFakeSubscriptionRepo(), gateway, nil)

	t.Run("creates session", func(t *testing.T) {
		id, err := svc.CreateCheckout(context.Background(), userID, 100, 9.99)
		require.NoError(t, err)
		assert.Equal(t, "cs_new", id)
		assert.Equal(t, 1, gateway.createCalls)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := svc.CreateCheckout(context.Background(), userID, 0, 9.99)
		assert.Error(t, err)

		_, err = svc.CreateCheckout(context.Background(), userID, 100, 0)
		assert.Error(t, err)
	})
}
