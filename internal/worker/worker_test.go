package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	modelevents "github.com/sheikh-saqib/webhook-transaction-processor/internal/models/events"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/queue"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/storage/memory"
	"github.com/shopspring/decimal"
)

// capturingPublisher records published events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []modelevents.TransactionProcessed
}

func (c *capturingPublisher) Publish(ctx context.Context, topic string, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := event.(modelevents.TransactionProcessed); ok {
		c.events = append(c.events, e)
	}
	return nil
}

func (c *capturingPublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func createTransaction(t *testing.T, store *memory.MemoryTransactionStore, id string) models.Transaction {
	t.Helper()
	txn := models.Transaction{
		TransactionID:      id,
		SourceAccount:      "A",
		DestinationAccount: "B",
		Amount:             decimal.NewFromInt(100),
		Currency:           "USD",
		Status:             models.StatusProcessing,
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := store.CreateIfAbsent(context.Background(), txn); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	return txn
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestProcessorTransitionsTransaction(t *testing.T) {
	store := memory.NewMemoryTransactionStore()
	q := queue.New()
	publisher := &capturingPublisher{}

	txn := createTransaction(t, store, "t1")
	q.Enqueue("t1")

	p := NewProcessor(store, q, publisher, 10*time.Millisecond, zerolog.Nop())
	p.Start()
	defer p.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		got, err := store.Get(context.Background(), "t1")
		return err == nil && got.Status == models.StatusProcessed
	})

	got, err := store.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProcessedAt == nil {
		t.Fatal("processed_at not set after processing")
	}
	if got.ProcessedAt.Before(txn.CreatedAt) {
		t.Errorf("processed_at %v is before created_at %v", got.ProcessedAt, txn.CreatedAt)
	}

	waitFor(t, time.Second, func() bool { return publisher.count() == 1 })
	publisher.mu.Lock()
	event := publisher.events[0]
	publisher.mu.Unlock()
	if event.TransactionID != "t1" {
		t.Errorf("event transaction_id = %q, want %q", event.TransactionID, "t1")
	}
	if event.EventID == "" {
		t.Error("event_id must be set")
	}
}

func TestProcessorSkipsUnknownAndTerminalItems(t *testing.T) {
	store := memory.NewMemoryTransactionStore()
	q := queue.New()

	createTransaction(t, store, "done")
	if err := store.MarkProcessed(context.Background(), "done", time.Now()); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	doneBefore, _ := store.Get(context.Background(), "done")

	// A ghost identity and an already-terminal one must both be discarded
	// without stopping the loop.
	q.Enqueue("ghost")
	q.Enqueue("done")
	createTransaction(t, store, "pending")
	q.Enqueue("pending")

	p := NewProcessor(store, q, nil, time.Millisecond, zerolog.Nop())
	p.Start()
	defer p.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		got, err := store.Get(context.Background(), "pending")
		return err == nil && got.Status == models.StatusProcessed
	})

	doneAfter, err := store.Get(context.Background(), "done")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !doneAfter.ProcessedAt.Equal(*doneBefore.ProcessedAt) {
		t.Error("terminal transaction must not be re-processed")
	}
}

func TestProcessorStop(t *testing.T) {
	store := memory.NewMemoryTransactionStore()
	q := queue.New()

	p := NewProcessor(store, q, nil, time.Millisecond, zerolog.Nop())
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestProcessorStopAbortsHold(t *testing.T) {
	store := memory.NewMemoryTransactionStore()
	q := queue.New()

	createTransaction(t, store, "slow")
	q.Enqueue("slow")

	// Long delay: Stop must cut the hold short instead of waiting it out.
	p := NewProcessor(store, q, nil, time.Hour, zerolog.Nop())
	p.Start()

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got, err := store.Get(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.StatusProcessing {
		t.Errorf("status = %q after aborted hold, want PROCESSING", got.Status)
	}
}
