package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	"github.com/shopspring/decimal"
)

const keyPrefix = "txn:"

// maxCASRetries bounds the optimistic-transaction retry loop in MarkProcessed.
const maxCASRetries = 5

// record is the JSON shape of a transaction stored under its txn: key.
type record struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	ProcessedAt        *time.Time      `json:"processed_at,omitempty"`
}

// RedisTransactionStore keeps each transaction as a JSON value keyed by its
// identity. SetNX gives the atomic insert-if-absent; MarkProcessed uses a
// WATCH transaction so the PROCESSING -> PROCESSED transition is a true
// compare-and-swap across processes.
type RedisTransactionStore struct {
	client *redis.Client
}

func NewRedisTransactionStore(client *redis.Client) *RedisTransactionStore {
	return &RedisTransactionStore{client: client}
}

func (r *RedisTransactionStore) CreateIfAbsent(ctx context.Context, txn models.Transaction) (bool, error) {
	data, err := json.Marshal(toRecord(txn))
	if err != nil {
		return false, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	created, err := r.client.SetNX(ctx, keyPrefix+txn.TransactionID, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

func (r *RedisTransactionStore) Get(ctx context.Context, transactionID string) (models.Transaction, error) {
	val, err := r.client.Get(ctx, keyPrefix+transactionID).Result()
	if errors.Is(err, redis.Nil) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}

	var rec record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return fromRecord(rec), nil
}

func (r *RedisTransactionStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	key := keyPrefix + transactionID

	transition := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return models.ErrNotPending
		}
		if err != nil {
			return err
		}

		var rec record
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return fmt.Errorf("failed to unmarshal transaction: %w", err)
		}
		if !models.Status(rec.Status).CanTransitionTo(models.StatusProcessed) {
			return models.ErrNotPending
		}

		rec.Status = string(models.StatusProcessed)
		at := processedAt
		rec.ProcessedAt = &at

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxCASRetries; i++ {
		err := r.client.Watch(ctx, transition, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to mark transaction processed: watch retries exhausted")
}

func toRecord(txn models.Transaction) record {
	return record{
		TransactionID:      txn.TransactionID,
		SourceAccount:      txn.SourceAccount,
		DestinationAccount: txn.DestinationAccount,
		Amount:             txn.Amount,
		Currency:           txn.Currency,
		Status:             string(txn.Status),
		CreatedAt:          txn.CreatedAt,
		ProcessedAt:        txn.ProcessedAt,
	}
}

func fromRecord(rec record) models.Transaction {
	return models.Transaction{
		TransactionID:      rec.TransactionID,
		SourceAccount:      rec.SourceAccount,
		DestinationAccount: rec.DestinationAccount,
		Amount:             rec.Amount,
		Currency:           rec.Currency,
		Status:             models.Status(rec.Status),
		CreatedAt:          rec.CreatedAt,
		ProcessedAt:        rec.ProcessedAt,
	}
}

var _ interfaces.TransactionStore = (*RedisTransactionStore)(nil)
