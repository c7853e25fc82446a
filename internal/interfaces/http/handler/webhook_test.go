package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billingapp "github.com/vidgen/backend/internal/application/billing"
	"github.com/vidgen/backend/internal/domain/shared"
)

type fakeWebhookService struct {
	result    *billingapp.WebhookResult
	err       error
	payload   []byte
	signature string
}

func (f *fakeWebhookService) ProcessWebhook(_ context.Context, payload []byte, signature string) (*billingapp.WebhookResult, error) {
	f.payload = payload
	f.signature = signature
	return f.result, f.err
}

func newWebhookRouter(service WebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewWebhookHandler(service).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postWebhook(router *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleStripeWebhook(t *testing.T) {
	t.Run("acknowledges a processed event", func(t *testing.T) {
		service := &fakeWebhookService{
			result: &billingapp.WebhookResult{
				EventID:   "evt_1",
				EventType: "checkout.session.completed",
				Applied:   true,
				Message:   "Payment processed",
			},
		}
		router := newWebhookRouter(service)

		rec := postWebhook(router, `{"id":"evt_1"}`, "t=1,v1=abc")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Received)
		assert.Equal(t, "evt_1", resp.EventID)
		assert.Equal(t, "Payment processed", resp.Message)

		// Raw body and signature reach the service untouched
		assert.Equal(t, `{"id":"evt_1"}`, string(service.payload))
		assert.Equal(t, "t=1,v1=abc", service.signature)
	})

	t.Run("rejects an invalid signature with 401", func(t *testing.T) {
		service := &fakeWebhookService{err: shared.ErrSignatureInvalid}
		router := newWebhookRouter(service)

		rec := postWebhook(router, `{}`, "t=1,v1=bad")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a missing signature header without calling the service", func(t *testing.T) {
		service := &fakeWebhookService{}
		router := newWebhookRouter(service)

		rec := postWebhook(router, `{}`, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, service.payload)
	})

	t.Run("acknowledges processing failures with 200", func(t *testing.T) {
		// A 4xx/5xx here would make Stripe retry an event that retrying
		// cannot fix
		service := &fakeWebhookService{
			result: &billingapp.WebhookResult{EventID: "evt_2", EventType: "checkout.session.completed"},
			err:    assert.AnError,
		}
		router := newWebhookRouter(service)

		rec := postWebhook(router, `{}`, "t=1,v1=abc")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Received)
		assert.NotContains(t, resp.Message, assert.AnError.Error())
	})

	t.Run("rejects oversized payloads", func(t *testing.T) {
		service := &fakeWebhookService{}
		router := newWebhookRouter(service)

		body := bytes.Repeat([]byte("a"), maxWebhookPayloadSize+1)
		rec := postWebhook(router, string(body), "t=1,v1=abc")

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Nil(t, service.payload)
	})
}
