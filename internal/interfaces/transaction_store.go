package interfaces

import (
	"context"
	"time"

	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
)

// TransactionStore is the durable record of every transaction the system has
// ever seen. CreateIfAbsent is the synchronization point for idempotent
// intake: when N callers race on the same TransactionID, exactly one observes
// created == true and the rest observe created == false.
type TransactionStore interface {
	// CreateIfAbsent inserts txn keyed by its TransactionID unless a record
	// already exists. Uniqueness conflicts from the underlying engine are an
	// expected outcome and are reported as created == false, not as an error.
	CreateIfAbsent(ctx context.Context, txn models.Transaction) (created bool, err error)

	// Get returns the stored record, or models.ErrNotFound.
	Get(ctx context.Context, transactionID string) (models.Transaction, error)

	// MarkProcessed moves a PROCESSING record to PROCESSED and stamps
	// processedAt. Returns models.ErrNotPending if the record is absent or
	// already terminal.
	MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error
}
