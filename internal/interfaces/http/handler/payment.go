package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/vidgen/backend/internal/application/billing"
	"github.com/vidgen/backend/internal/domain/billing"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/interfaces/http/dto"
)

// PaymentService is the application collaborator behind the payment endpoints
type PaymentService interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, tokens int, amount float64) (string, error)
	VerifyPayment(ctx context.Context, sessionID string) (*billingapp.VerifyResult, error)
	SubscriptionHistory(ctx context.Context, userID uuid.UUID, page shared.Page) (shared.Paginated[*billing.Subscription], error)
}

// PaymentHandler handles token purchase endpoints
type PaymentHandler struct {
	BaseHandler
	service PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers the payment routes. All of them require auth.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/checkout", h.CreateCheckout)
		payments.POST("/verify", h.VerifyPayment)
		payments.GET("/history", h.History)
	}
}

// CreateCheckoutRequest represents a checkout creation request
type CreateCheckoutRequest struct {
	Tokens int     `json:"tokens" binding:"required,gt=0"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CheckoutResponse carries the id of the created checkout session
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
}

// CreateCheckout starts a payment checkout session for a token purchase
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, dto.FormatBindingError(err))
		return
	}

	sessionID, err := h.service.CreateCheckout(c.Request.Context(), userID, req.Tokens, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, CheckoutResponse{SessionID: sessionID})
}

// VerifyPaymentRequest represents a client-initiated verification request
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// VerifyPayment refetches a checkout session and applies it if paid.
// Safe to call repeatedly; an already-applied payment is a no-op.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, dto.FormatBindingError(err))
		return
	}

	result, err := h.service.VerifyPayment(c.Request.Context(), req.SessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SubscriptionResponse is the outward-facing view of a token purchase
type SubscriptionResponse struct {
	ID              uuid.UUID `json:"id"`
	TokensPurchased int       `json:"tokens_purchased"`
	AmountPaid      string    `json:"amount_paid"`
	PaymentStatus   string    `json:"payment_status"`
	PaymentMethod   string    `json:"payment_method"`
	TransactionID   string    `json:"transaction_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// History lists the user's token purchases newest first
func (h *PaymentHandler) History(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page := bindPage(c)
	result, err := h.service.SubscriptionHistory(c.Request.Context(), userID, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]SubscriptionResponse, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, SubscriptionResponse{
			ID:              s.ID,
			TokensPurchased: s.TokensPurchased,
			AmountPaid:      s.AmountPaid.String(),
			PaymentStatus:   string(s.PaymentStatus),
			PaymentMethod:   s.PaymentMethod,
			TransactionID:   s.TransactionID,
			CreatedAt:       s.CreatedAt,
		})
	}
	h.SuccessWithMeta(c, items, result.Total, result.Offset, result.Limit)
}
