package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/vidgen/backend/internal/application/billing"
	"github.com/vidgen/backend/internal/domain/shared"
)

// Maximum webhook payload size (64KB - Stripe webhooks are typically small)
const maxWebhookPayloadSize = 65536

// WebhookService is the application collaborator behind the webhook endpoint
type WebhookService interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*billingapp.WebhookResult, error)
}

// WebhookHandler handles payment processor webhook deliveries.
// The endpoint is called by Stripe and does not carry user authentication;
// the signature header is what authenticates the request.
type WebhookHandler struct {
	service WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(service WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// RegisterRoutes registers the webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.HandleStripeWebhook)
}

// WebhookResponse represents the response for a webhook delivery
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleStripeWebhook receives and processes one webhook delivery.
// Only a failed signature check is rejected; processing errors are
// acknowledged with 200 so the processor does not retry deliveries that
// retrying cannot fix.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// Signature verification needs the raw body, so no binding here
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}

	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusUnauthorized, WebhookResponse{
			Received: false,
			Message:  "Missing Stripe-Signature header",
		})
		return
	}

	result, err := h.service.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, shared.ErrSignatureInvalid) || result == nil {
			c.JSON(http.StatusUnauthorized, WebhookResponse{
				Received: false,
				Message:  "Webhook signature verification failed",
			})
			return
		}

		// Internal error details stay out of the response
		c.JSON(http.StatusOK, WebhookResponse{
			Received:  true,
			EventID:   result.EventID,
			EventType: result.EventType,
			Message:   "Webhook received but processing encountered an issue",
		})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
