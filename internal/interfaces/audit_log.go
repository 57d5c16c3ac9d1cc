package interfaces

import (
	"context"
	"time"
)

// AuditEntry records a single intake attempt and its outcome.
type AuditEntry struct {
	ID            string
	TransactionID string
	Outcome       string // "queued" or "duplicate"
	Amount        string
	Currency      string
	ReceivedAt    time.Time
}

// AuditLog is a best-effort trail of intake attempts. Failures to record are
// logged by the caller and never affect the intake result.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}
