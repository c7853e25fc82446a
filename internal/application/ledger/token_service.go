package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TokenService is the read path over the token ledger plus the manual
// adjustment write path. Generation debits and purchase credits go through
// the orchestrator and payment service instead, which compose the ledger
// write into their own transactions.
type TokenService struct {
	ledgerRepo ledger.Repository
	logger     *zap.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(ledgerRepo ledger.Repository, logger *zap.Logger) *TokenService {
	return &TokenService{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Balance returns the user's current token balance
func (s *TokenService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.ledgerRepo.Balance(ctx, userID)
}

// History returns the user's ledger entries newest first
func (s *TokenService) History(ctx context.Context, userID uuid.UUID, page shared.Page) (shared.Paginated[*ledger.Entry], error) {
	entries, total, err := s.ledgerRepo.History(ctx, userID, page)
	if err != nil {
		return shared.Paginated[*ledger.Entry]{}, fmt.Errorf("failed to load token history: %w", err)
	}
	return shared.NewPaginated(entries, total, page.Normalize()), nil
}

// Adjust applies a manual balance correction with an audit description
func (s *TokenService) Adjust(ctx context.Context, userID uuid.UUID, delta int, description string) (*ledger.Entry, error) {
	var entry *ledger.Entry
	var err error
	if delta >= 0 {
		entry, err = ledger.NewCredit(userID, delta, ledger.ReasonAdjustment, description)
	} else {
		entry, err = ledger.NewDebit(userID, -delta, ledger.ReasonAdjustment, description)
	}
	if err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.Apply(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Applied manual token adjustment",
		zap.String("user_id", userID.String()),
		zap.Int("delta", delta))
	return entry, nil
}
