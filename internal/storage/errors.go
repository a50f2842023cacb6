package storage

import "errors"

// Errors shared by every store implementation. Callers classify with errors.Is.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a (symbol, trade_date) event already
	// exists. Events are append-only, so a duplicate means "already recorded".
	ErrDuplicateKey = errors.New("duplicate key: event already recorded")

	// ErrInvalidInput is returned when a record is missing its key fields.
	ErrInvalidInput = errors.New("invalid input")
)
