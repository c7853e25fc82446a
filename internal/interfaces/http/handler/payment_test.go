package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billingapp "github.com/vidgen/backend/internal/application/billing"
	"github.com/vidgen/backend/internal/domain/billing"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/interfaces/http/middleware"
)

type fakePaymentService struct {
	checkoutTokens int
	checkoutAmount float64
	sessionID      string
	checkoutErr    error
	verifySession  string
	verifyResult   *billingapp.VerifyResult
	verifyErr      error
	history        shared.Paginated[*billing.Subscription]
	historyErr     error
}

func (f *fakePaymentService) CreateCheckout(_ context.Context, _ uuid.UUID, tokens int, amount float64) (string, error) {
	f.checkoutTokens = tokens
	f.checkoutAmount = amount
	return f.sessionID, f.checkoutErr
}

func (f *fakePaymentService) VerifyPayment(_ context.Context, sessionID string) (*billingapp.VerifyResult, error) {
	f.verifySession = sessionID
	return f.verifyResult, f.verifyErr
}

func (f *fakePaymentService) SubscriptionHistory(_ context.Context, _ uuid.UUID, _ shared.Page) (shared.Paginated[*billing.Subscription], error) {
	return f.history, f.historyErr
}

func newPaymentRouter(service PaymentService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Next()
	})
	NewPaymentHandler(service).RegisterRoutes(api)
	return router
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	userID := uuid.New()

	t.Run("creates a checkout session", func(t *testing.T) {
		service := &fakePaymentService{sessionID: "cs_test_123"}
		router := newPaymentRouter(service, userID)

		rec := postJSON(router, "/api/v1/payments/checkout", `{"tokens":100,"amount":9.99}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "cs_test_123")
		assert.Equal(t, 100, service.checkoutTokens)
		assert.Equal(t, 9.99, service.checkoutAmount)
	})

	t.Run("rejects non-positive token amounts", func(t *testing.T) {
		service := &fakePaymentService{}
		router := newPaymentRouter(service, userID)

		rec := postJSON(router, "/api/v1/payments/checkout", `{"tokens":0,"amount":9.99}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, service.checkoutTokens)
	})

	t.Run("maps gateway failures to 502", func(t *testing.T) {
		service := &fakePaymentService{checkoutErr: shared.ErrProviderFailure}
		router := newPaymentRouter(service, userID)

		rec := postJSON(router, "/api/v1/payments/checkout", `{"tokens":100,"amount":9.99}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	userID := uuid.New()

	t.Run("reports an applied payment", func(t *testing.T) {
		service := &fakePaymentService{
			verifyResult: &billingapp.VerifyResult{
				Status:  "success",
				Applied: true,
				Message: "Payment processed successfully",
			},
		}
		router := newPaymentRouter(service, userID)

		rec := postJSON(router, "/api/v1/payments/verify", `{"session_id":"cs_test_123"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cs_test_123", service.verifySession)
		assert.Contains(t, rec.Body.String(), `"applied":true`)
	})

	t.Run("reports an already-processed payment as not applied", func(t *testing.T) {
		service := &fakePaymentService{
			verifyResult: &billingapp.VerifyResult{
				Status:  "success",
				Applied: false,
				Message: "Payment was already processed",
			},
		}
		router := newPaymentRouter(service, userID)

		rec := postJSON(router, "/api/v1/payments/verify", `{"session_id":"cs_test_123"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"applied":false`)
	})

	t.Run("requires a session id", func(t *testing.T) {
		service := &fakePaymentService{}
		router := newPaymentRouter(service, userID)

		rec := postJSON(router, "/api/v1/payments/verify", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, service.verifySession)
	})
}

func TestPaymentHistoryEndpoint(t *testing.T) {
	userID := uuid.New()

	t.Run("renders purchases with decimal amounts", func(t *testing.T) {
		sub, err := billing.NewSubscription(userID, 100,
			decimal.NewFromFloat(9.99), billing.PaymentStatusPaid, "cs_test_123")
		require.NoError(t, err)

		service := &fakePaymentService{
			history: shared.Paginated[*billing.Subscription]{
				Items: []*billing.Subscription{sub},
				Total: 1,
				Limit: 50,
			},
		}
		router := newPaymentRouter(service, userID)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/history", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data []SubscriptionResponse `json:"data"`
			Meta struct {
				Total int64 `json:"total"`
			} `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "9.99", resp.Data[0].AmountPaid)
		assert.Equal(t, "cs_test_123", resp.Data[0].TransactionID)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		service := &fakePaymentService{historyErr: assert.AnError}
		router := newPaymentRouter(service, userID)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/history", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
