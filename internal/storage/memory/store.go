package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"sync"    // standard Go package for concurrency primitives like Mutex
	"time"

	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
)

// MemoryTransactionStore is an in-memory implementation of
// interfaces.TransactionStore. It keeps transactions in a map guarded by a
// mutex, so the create-if-absent check and the insert are a single critical
// section and concurrent duplicate creates cannot interleave.
type MemoryTransactionStore struct {
	mu           sync.Mutex
	transactions map[string]models.Transaction
}

// NewMemoryTransactionStore creates and returns a new MemoryTransactionStore instance
func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		transactions: make(map[string]models.Transaction),
	}
}

func (m *MemoryTransactionStore) CreateIfAbsent(ctx context.Context, txn models.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transactions[txn.TransactionID]; exists {
		return false, nil
	}
	m.transactions[txn.TransactionID] = txn
	return true, nil
}

func (m *MemoryTransactionStore) Get(ctx context.Context, transactionID string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, exists := m.transactions[transactionID]
	if !exists {
		return models.Transaction{}, models.ErrNotFound
	}
	return txn, nil
}

func (m *MemoryTransactionStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, exists := m.transactions[transactionID]
	if !exists || !txn.Status.CanTransitionTo(models.StatusProcessed) {
		return models.ErrNotPending
	}

	txn.Status = models.StatusProcessed
	at := processedAt
	txn.ProcessedAt = &at
	m.transactions[transactionID] = txn
	return nil
}

// Compile-time check: ensure MemoryTransactionStore implements TransactionStore
var _ interfaces.TransactionStore = (*MemoryTransactionStore)(nil)
