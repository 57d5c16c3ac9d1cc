package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/queue"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/storage/memory"
	"github.com/shopspring/decimal"
)

func samplePayload(id string) Payload {
	amount := decimal.NewFromInt(100)
	return Payload{
		TransactionID:      id,
		SourceAccount:      "A",
		DestinationAccount: "B",
		Amount:             &amount,
		Currency:           "USD",
	}
}

func newTestGateway() (*Gateway, *memory.MemoryTransactionStore, *queue.Queue) {
	store := memory.NewMemoryTransactionStore()
	q := queue.New()
	return NewGateway(store, q, nil, zerolog.Nop()), store, q
}

func TestSubmitQueuesNewTransaction(t *testing.T) {
	gw, store, q := newTestGateway()
	ctx := context.Background()

	result, err := gw.Submit(ctx, samplePayload("t1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result != ResultQueued {
		t.Fatalf("result = %q, want %q", result, ResultQueued)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}

	txn, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if txn.Status != models.StatusProcessing {
		t.Errorf("status = %q, want PROCESSING", txn.Status)
	}
	if txn.ProcessedAt != nil {
		t.Errorf("processed_at = %v, want nil on creation", txn.ProcessedAt)
	}
	if txn.CreatedAt.IsZero() {
		t.Error("created_at must be stamped at the ingestion boundary")
	}
}

func TestSubmitDuplicateDoesNotReenqueue(t *testing.T) {
	gw, _, q := newTestGateway()
	ctx := context.Background()

	if _, err := gw.Submit(ctx, samplePayload("t1")); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	for i := 0; i < 3; i++ {
		result, err := gw.Submit(ctx, samplePayload("t1"))
		if err != nil {
			t.Fatalf("duplicate Submit: %v", err)
		}
		if result != ResultDuplicate {
			t.Fatalf("duplicate result = %q, want %q", result, ResultDuplicate)
		}
	}

	if q.Len() != 1 {
		t.Fatalf("queue length = %d after duplicates, want 1", q.Len())
	}
}

func TestSubmitConcurrentDuplicates(t *testing.T) {
	gw, _, q := newTestGateway()
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan Result, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := gw.Submit(ctx, samplePayload("race"))
			if err != nil {
				t.Errorf("Submit: %v", err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	var queued int
	for result := range results {
		if result == ResultQueued {
			queued++
		}
	}
	if queued != 1 {
		t.Fatalf("%d of %d concurrent submits observed queued, want exactly 1", queued, callers)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}

func TestSubmitValidation(t *testing.T) {
	gw, _, q := newTestGateway()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Payload)
	}{
		{"missing transaction_id", func(p *Payload) { p.TransactionID = "" }},
		{"missing source_account", func(p *Payload) { p.SourceAccount = "" }},
		{"missing destination_account", func(p *Payload) { p.DestinationAccount = "" }},
		{"missing amount", func(p *Payload) { p.Amount = nil }},
		{"missing currency", func(p *Payload) { p.Currency = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := samplePayload("t1")
			tc.mutate(&p)

			_, err := gw.Submit(ctx, p)
			if !errors.Is(err, models.ErrMalformedPayload) {
				t.Fatalf("got %v, want ErrMalformedPayload", err)
			}
		})
	}

	if q.Len() != 0 {
		t.Fatalf("queue length = %d after rejected submits, want 0", q.Len())
	}
}

func TestSubmitDistinctTransactions(t *testing.T) {
	gw, store, q := newTestGateway()
	ctx := context.Background()

	ids := []string{"t1", "t2", "t3"}
	for _, id := range ids {
		result, err := gw.Submit(ctx, samplePayload(id))
		if err != nil {
			t.Fatalf("Submit(%q): %v", id, err)
		}
		if result != ResultQueued {
			t.Fatalf("Submit(%q) = %q, want %q", id, result, ResultQueued)
		}
	}

	if q.Len() != len(ids) {
		t.Fatalf("queue length = %d, want %d", q.Len(), len(ids))
	}
	for _, id := range ids {
		if _, err := store.Get(ctx, id); err != nil {
			t.Errorf("Get(%q): %v", id, err)
		}
	}
}

// failingStore simulates an unreachable backend.
type failingStore struct {
	err error
}

func (f *failingStore) CreateIfAbsent(ctx context.Context, txn models.Transaction) (bool, error) {
	return false, f.err
}

func (f *failingStore) Get(ctx context.Context, id string) (models.Transaction, error) {
	return models.Transaction{}, f.err
}

func (f *failingStore) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	return f.err
}

var _ interfaces.TransactionStore = (*failingStore)(nil)

func TestSubmitStoreUnavailable(t *testing.T) {
	storeErr := errors.New("connection refused")
	gw := NewGateway(&failingStore{err: storeErr}, queue.New(), nil, zerolog.Nop())

	_, err := gw.Submit(context.Background(), samplePayload("t1"))
	if !errors.Is(err, storeErr) {
		t.Fatalf("got %v, want wrapped store error", err)
	}
}

// recordingAudit captures audit entries for assertions.
type recordingAudit struct {
	mu      sync.Mutex
	entries []interfaces.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry interfaces.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func TestSubmitRecordsAuditTrail(t *testing.T) {
	store := memory.NewMemoryTransactionStore()
	auditLog := &recordingAudit{}
	gw := NewGateway(store, queue.New(), auditLog, zerolog.Nop())
	ctx := context.Background()

	if _, err := gw.Submit(ctx, samplePayload("t1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := gw.Submit(ctx, samplePayload("t1")); err != nil {
		t.Fatalf("duplicate Submit: %v", err)
	}

	if len(auditLog.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(auditLog.entries))
	}
	if auditLog.entries[0].Outcome != string(ResultQueued) {
		t.Errorf("first outcome = %q, want %q", auditLog.entries[0].Outcome, ResultQueued)
	}
	if auditLog.entries[1].Outcome != string(ResultDuplicate) {
		t.Errorf("second outcome = %q, want %q", auditLog.entries[1].Outcome, ResultDuplicate)
	}
}
