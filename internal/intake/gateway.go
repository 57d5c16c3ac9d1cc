package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/queue"
	"github.com/shopspring/decimal"
)

// Result is the intake outcome reported to the webhook sender.
type Result string

const (
	ResultQueued    Result = "queued"
	ResultDuplicate Result = "duplicate"
)

// Payload is the decoded webhook notification body.
type Payload struct {
	TransactionID      string           `json:"transaction_id"`
	SourceAccount      string           `json:"source_account"`
	DestinationAccount string           `json:"destination_account"`
	Amount             *decimal.Decimal `json:"amount"`
	Currency           string           `json:"currency"`
}

// Gateway performs idempotent webhook intake: it records each transaction
// identity at most once and hands newly created transactions to the queue.
// The store's CreateIfAbsent is the only synchronization point, so concurrent
// duplicate deliveries are safe without any extra locking here.
type Gateway struct {
	store  interfaces.TransactionStore
	queue  *queue.Queue
	audit  interfaces.AuditLog
	logger zerolog.Logger
	now    func() time.Time
}

func NewGateway(store interfaces.TransactionStore, q *queue.Queue, audit interfaces.AuditLog, logger zerolog.Logger) *Gateway {
	return &Gateway{
		store:  store,
		queue:  q,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// Submit validates the payload, creates the transaction record unless one
// already exists, and enqueues newly created identities for processing. A
// duplicate delivery is a normal outcome, not an error: it returns
// ResultDuplicate with no store mutation and no enqueue.
func (g *Gateway) Submit(ctx context.Context, p Payload) (Result, error) {
	if err := validate(p); err != nil {
		return "", err
	}

	// Fast path: a record we have already seen is acknowledged without
	// another insert attempt. Correctness never depends on this read; two
	// racing submits both missing here still serialize on CreateIfAbsent.
	if _, err := g.store.Get(ctx, p.TransactionID); err == nil {
		g.record(ctx, p, ResultDuplicate)
		return ResultDuplicate, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("intake lookup failed: %w", err)
	}

	txn := models.Transaction{
		TransactionID:      p.TransactionID,
		SourceAccount:      p.SourceAccount,
		DestinationAccount: p.DestinationAccount,
		Amount:             *p.Amount,
		Currency:           p.Currency,
		Status:             models.StatusProcessing,
		CreatedAt:          g.now().UTC(),
	}

	created, err := g.store.CreateIfAbsent(ctx, txn)
	if err != nil {
		return "", fmt.Errorf("intake create failed: %w", err)
	}
	if !created {
		g.record(ctx, p, ResultDuplicate)
		return ResultDuplicate, nil
	}

	g.queue.Enqueue(txn.TransactionID)
	g.logger.Info().Str("transaction_id", txn.TransactionID).Msg("transaction queued for processing")
	g.record(ctx, p, ResultQueued)
	return ResultQueued, nil
}

// record writes the audit trail entry; failures are logged and swallowed so
// the intake result never depends on the audit backend.
func (g *Gateway) record(ctx context.Context, p Payload, outcome Result) {
	if g.audit == nil {
		return
	}
	entry := interfaces.AuditEntry{
		ID:            uuid.New().String(),
		TransactionID: p.TransactionID,
		Outcome:       string(outcome),
		Amount:        p.Amount.String(),
		Currency:      p.Currency,
		ReceivedAt:    g.now().UTC(),
	}
	if err := g.audit.Record(ctx, entry); err != nil {
		g.logger.Warn().Err(err).Str("transaction_id", p.TransactionID).Msg("failed to record audit entry")
	}
}

func validate(p Payload) error {
	switch {
	case p.TransactionID == "":
		return fmt.Errorf("%w: transaction_id is required", models.ErrMalformedPayload)
	case p.SourceAccount == "":
		return fmt.Errorf("%w: source_account is required", models.ErrMalformedPayload)
	case p.DestinationAccount == "":
		return fmt.Errorf("%w: destination_account is required", models.ErrMalformedPayload)
	case p.Amount == nil:
		return fmt.Errorf("%w: amount is required", models.ErrMalformedPayload)
	case p.Currency == "":
		return fmt.Errorf("%w: currency is required", models.ErrMalformedPayload)
	}
	return nil
}
