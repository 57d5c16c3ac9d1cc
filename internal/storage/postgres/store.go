package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
)

// uniqueViolation is the postgres error code raised when an insert hits the
// transactions primary key. During an intake race it is the expected signal
// that another caller created the record first.
const uniqueViolation = pq.ErrorCode("23505")

type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{
		db: db,
	}
}

// Init creates the transactions table if it does not exist yet.
func (p *PostgresTransactionStore) Init(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS transactions (
		transaction_id      TEXT PRIMARY KEY,
		source_account      TEXT NOT NULL,
		destination_account TEXT NOT NULL,
		amount              NUMERIC NOT NULL,
		currency            TEXT NOT NULL,
		status              TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		processed_at        TIMESTAMPTZ
	)`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *PostgresTransactionStore) CreateIfAbsent(ctx context.Context, txn models.Transaction) (bool, error) {
	const query = `INSERT INTO transactions
		(transaction_id, source_account, destination_account, amount, currency, status, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := p.db.ExecContext(ctx, query,
		txn.TransactionID, txn.SourceAccount, txn.DestinationAccount,
		txn.Amount, txn.Currency, string(txn.Status), txn.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *PostgresTransactionStore) Get(ctx context.Context, transactionID string) (models.Transaction, error) {
	const query = `SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at
	FROM transactions WHERE transaction_id = $1`

	var txn models.Transaction
	var status string
	var processedAt sql.NullTime

	err := p.db.QueryRowContext(ctx, query, transactionID).Scan(
		&txn.TransactionID,
		&txn.SourceAccount,
		&txn.DestinationAccount,
		&txn.Amount,
		&txn.Currency,
		&status,
		&txn.CreatedAt,
		&processedAt,
	)
	if err == sql.ErrNoRows {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}

	txn.Status = models.Status(status)
	if processedAt.Valid {
		at := processedAt.Time
		txn.ProcessedAt = &at
	}
	return txn, nil
}

func (p *PostgresTransactionStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	// The status guard in the WHERE clause makes the transition atomic: a
	// second caller matches zero rows instead of overwriting processed_at.
	const query = `UPDATE transactions SET status = $2, processed_at = $3
	WHERE transaction_id = $1 AND status = $4`

	res, err := p.db.ExecContext(ctx, query,
		transactionID, string(models.StatusProcessed), processedAt, string(models.StatusProcessing))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotPending
	}
	return nil
}

var _ interfaces.TransactionStore = (*PostgresTransactionStore)(nil)
