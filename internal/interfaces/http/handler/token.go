package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
)

// TokenService is the application collaborator behind the token endpoints
type TokenService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, page shared.Page) (shared.Paginated[*ledger.Entry], error)
}

// TokenHandler handles token balance and ledger history endpoints
type TokenHandler struct {
	BaseHandler
	service TokenService
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(service TokenService) *TokenHandler {
	return &TokenHandler{service: service}
}

// RegisterRoutes registers the token routes. All of them require auth.
func (h *TokenHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tokens := rg.Group("/tokens")
	{
		tokens.GET("/balance", h.Balance)
		tokens.GET("/history", h.History)
	}
}

// BalanceResponse carries the user's current token balance
type BalanceResponse struct {
	Tokens int `json:"tokens"`
}

// Balance returns the user's current token balance
func (h *TokenHandler) Balance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, BalanceResponse{Tokens: balance})
}

// LedgerEntryResponse is the outward-facing view of a ledger entry
type LedgerEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
	Description string    `json:"description,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// History lists the user's ledger entries newest first
func (h *TokenHandler) History(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page := bindPage(c)
	result, err := h.service.History(c.Request.Context(), userID, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]LedgerEntryResponse, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, LedgerEntryResponse{
			ID:          e.ID,
			Delta:       e.Delta,
			Reason:      string(e.Reason),
			Description: e.Description,
			ExternalRef: e.ExternalRef,
			CreatedAt:   e.CreatedAt,
		})
	}
	h.SuccessWithMeta(c, items, result.Total, result.Offset, result.Limit)
}
