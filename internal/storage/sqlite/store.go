package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	"github.com/shopspring/decimal"
)

// SQLiteTransactionStore persists transactions in a local sqlite file. Amounts
// are stored as their decimal string form so no float precision is lost.
type SQLiteTransactionStore struct {
	db *sql.DB
}

func NewSQLiteTransactionStore(db *sql.DB) *SQLiteTransactionStore {
	return &SQLiteTransactionStore{
		db: db,
	}
}

// Init creates the transactions table if it does not exist yet.
func (s *SQLiteTransactionStore) Init(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS transactions (
		transaction_id      TEXT PRIMARY KEY,
		source_account      TEXT NOT NULL,
		destination_account TEXT NOT NULL,
		amount              TEXT NOT NULL,
		currency            TEXT NOT NULL,
		status              TEXT NOT NULL,
		created_at          TIMESTAMP NOT NULL,
		processed_at        TIMESTAMP
	)`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteTransactionStore) CreateIfAbsent(ctx context.Context, txn models.Transaction) (bool, error) {
	const query = `INSERT INTO transactions
		(transaction_id, source_account, destination_account, amount, currency, status, created_at)
	VALUES (?,?,?,?,?,?,?)`

	_, err := s.db.ExecContext(ctx, query,
		txn.TransactionID, txn.SourceAccount, txn.DestinationAccount,
		txn.Amount.String(), txn.Currency, string(txn.Status), txn.CreatedAt)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteTransactionStore) Get(ctx context.Context, transactionID string) (models.Transaction, error) {
	const query = `SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at
	FROM transactions WHERE transaction_id = ?`

	var txn models.Transaction
	var amount, status string
	var processedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, transactionID).Scan(
		&txn.TransactionID,
		&txn.SourceAccount,
		&txn.DestinationAccount,
		&amount,
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

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return models.Transaction{}, err
	}
	txn.Amount = dec
	txn.Status = models.Status(status)
	if processedAt.Valid {
		at := processedAt.Time
		txn.ProcessedAt = &at
	}
	return txn, nil
}

func (s *SQLiteTransactionStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	const query = `UPDATE transactions SET status = ?, processed_at = ?
	WHERE transaction_id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, query,
		string(models.StatusProcessed), processedAt, transactionID, string(models.StatusProcessing))
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

var _ interfaces.TransactionStore = (*SQLiteTransactionStore)(nil)
