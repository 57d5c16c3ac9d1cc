package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the processing state of a transaction.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusProcessing || s == StatusProcessed
}

// Terminal reports whether a transaction in state s can never change again.
func (s Status) Terminal() bool {
	return s == StatusProcessed
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next. The only legal transition is PROCESSING -> PROCESSED.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusProcessing && next == StatusProcessed
}

// Transaction represents one webhook-delivered transaction notification.
// TransactionID is the externally supplied identity and the primary key of the
// store; every field except Status and ProcessedAt is immutable after creation.
type Transaction struct {
	TransactionID      string
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	Currency           string
	Status             Status
	CreatedAt          time.Time
	ProcessedAt        *time.Time // nil while Status is PROCESSING
}
