package status

import (
	"context"

	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
)

// Service answers point queries about a transaction's current state. It is a
// pure read over the store: no caching, no side effects, safe to call
// concurrently with intake and the worker.
type Service struct {
	store interfaces.TransactionStore
}

func NewService(store interfaces.TransactionStore) *Service {
	return &Service{store: store}
}

// Get returns the stored record, or models.ErrNotFound.
func (s *Service) Get(ctx context.Context, transactionID string) (models.Transaction, error) {
	return s.store.Get(ctx, transactionID)
}
