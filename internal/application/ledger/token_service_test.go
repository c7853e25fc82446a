package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainledger "github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"go.uber.org/zap"
)

type fakeLedgerRepo struct {
	balances map[uuid.UUID]int
	entries  []*domainledger.Entry
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{balances: make(map[uuid.UUID]int)}
}

func (r *fakeLedgerRepo) Apply(_ context.Context, entry *domainledger.Entry) error {
	balance, ok := r.balances[entry.UserID]
	if !ok {
		return shared.ErrUserNotFound
	}
	if entry.IsDebit() && balance+entry.Delta < 0 {
		return shared.NewInsufficientTokensError(balance, -entry.Delta)
	}
	r.balances[entry.UserID] = balance + entry.Delta
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLedgerRepo) Balance(_ context.Context, userID uuid.UUID) (int, error) {
	balance, ok := r.balances[userID]
	if !ok {
		return 0, shared.ErrUserNotFound
	}
	return balance, nil
}

func (r *fakeLedgerRepo) History(_ context.Context, userID uuid.UUID, page shared.Page) ([]*domainledger.Entry, int64, error) {
	var out []*domainledger.Entry
	for _, entry := range r.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, int64(len(out)), nil
}

func TestTokenService(t *testing.T) {
	userID := uuid.New()

	setup := func() (*TokenService, *fakeLedgerRepo) {
		repo := newFakeLedgerRepo()
		repo.balances[userID] = 300
		return NewTokenService(repo, zap.NewNop()), repo
	}

	t.Run("balance", func(t *testing.T) {
		svc, _ := setup()

		balance, err := svc.Balance(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 300, balance)

		_, err = svc.Balance(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	})

	t.Run("adjust credits and debits", func(t *testing.T) {
		svc, repo := setup()

		entry, err := svc.Adjust(context.Background(), userID, 50, "support credit")
		require.NoError(t, err)
		assert.Equal(t, 50, entry.Delta)
		assert.Equal(t, domainledger.ReasonAdjustment, entry.Reason)

		entry, err = svc.Adjust(context.Background(), userID, -30, "chargeback")
		require.NoError(t, err)
		assert.Equal(t, -30, entry.Delta)

		assert.Equal(t, 320, repo.balances[userID])
	})

	t.Run("adjust cannot take the balance negative", func(t *testing.T) {
		svc, repo := setup()

		_, err := svc.Adjust(context.Background(), userID, -500, "oversized correction")
		assert.ErrorIs(t, err, shared.ErrInsufficientTokens)
		assert.Equal(t, 300, repo.balances[userID])
	})

	t.Run("history is paginated", func(t *testing.T) {
		svc, _ := setup()

		_, err := svc.Adjust(context.Background(), userID, 10, "a")
		require.NoError(t, err)
		_, err = svc.Adjust(context.Background(), userID, 20, "b")
		require.NoError(t, err)

		page, err := svc.History(context.Background(), userID, shared.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 10, page.Limit)
	})
}
