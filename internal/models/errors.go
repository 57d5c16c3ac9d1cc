package models

import "errors"

var (
	// ErrNotFound is returned when no transaction exists for an identity.
	ErrNotFound = errors.New("transaction not found")

	// ErrNotPending is returned by MarkProcessed when the transaction is
	// absent or already terminal.
	ErrNotPending = errors.New("transaction is not pending")

	// ErrMalformedPayload is returned when a webhook payload is missing a
	// required field. It is always wrapped with the field name.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)
