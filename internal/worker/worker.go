package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	modelevents "github.com/sheikh-saqib/webhook-transaction-processor/internal/models/events"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/queue"
)

// ProcessedTopic is the topic completion events are published on.
const ProcessedTopic = "transaction_processed"

// Processor is the single background consumer of the processing queue. It
// dequeues transaction identities, holds them for the simulated processing
// delay, and transitions PROCESSING -> PROCESSED. One bad item never stops the
// loop: per-item errors are logged and the loop moves on.
type Processor struct {
	store     interfaces.TransactionStore
	queue     *queue.Queue
	publisher interfaces.EventPublisher
	delay     time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewProcessor(store interfaces.TransactionStore, q *queue.Queue, publisher interfaces.EventPublisher, delay time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		store:     store,
		queue:     q,
		publisher: publisher,
		delay:     delay,
		logger:    logger,
		now:       time.Now,
	}
}

// Start spawns the consuming goroutine. It must be called at most once.
func (p *Processor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		p.run(ctx)
	}()
	p.logger.Info().Dur("delay", p.delay).Msg("processor started")
}

// Stop cancels the consuming goroutine and waits for it to exit, or until ctx
// expires.
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		p.logger.Info().Msg("processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) run(ctx context.Context) {
	for {
		id, err := p.queue.Dequeue(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
			return
		}
		if err != nil {
			p.logger.Error().Err(err).Msg("dequeue failed")
			continue
		}

		if err := p.processOne(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			// The item stays in PROCESSING; a richer implementation would
			// re-enqueue with backoff.
			p.logger.Error().Err(err).Str("transaction_id", id).Msg("failed to process transaction")
		}
	}
}

func (p *Processor) processOne(ctx context.Context, id string) error {
	txn, err := p.store.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		p.logger.Debug().Str("transaction_id", id).Msg("dequeued transaction no longer exists, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if txn.Status != models.StatusProcessing {
		// Already finished, e.g. by another worker in a scaled deployment.
		p.logger.Debug().Str("transaction_id", id).Str("status", string(txn.Status)).Msg("dequeued transaction not pending, skipping")
		return nil
	}

	if err := p.hold(ctx); err != nil {
		return err
	}

	processedAt := p.now().UTC()
	if err := p.store.MarkProcessed(ctx, id, processedAt); err != nil {
		if errors.Is(err, models.ErrNotPending) {
			p.logger.Debug().Str("transaction_id", id).Msg("transaction already processed, skipping")
			return nil
		}
		return fmt.Errorf("mark processed failed: %w", err)
	}

	p.logger.Info().Str("transaction_id", id).Time("processed_at", processedAt).Msg("transaction processed")
	p.publish(ctx, txn, processedAt)
	return nil
}

// hold waits out the simulated processing delay, aborting early on shutdown.
func (p *Processor) hold(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish emits the completion event; failures are logged and never affect
// the stored record.
func (p *Processor) publish(ctx context.Context, txn models.Transaction, processedAt time.Time) {
	if p.publisher == nil {
		return
	}
	event := modelevents.TransactionProcessed{
		EventID:            uuid.New().String(),
		TransactionID:      txn.TransactionID,
		SourceAccount:      txn.SourceAccount,
		DestinationAccount: txn.DestinationAccount,
		Amount:             txn.Amount,
		Currency:           txn.Currency,
		ProcessedAt:        processedAt,
	}
	if err := p.publisher.Publish(ctx, ProcessedTopic, event); err != nil {
		p.logger.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("failed to publish completion event")
	}
}
