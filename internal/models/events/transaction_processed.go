package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionProcessed is emitted after the worker moves a transaction to
// PROCESSED.
type TransactionProcessed struct {
	EventID            string          `json:"event_id"`
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	ProcessedAt        time.Time       `json:"processed_at"`
}
