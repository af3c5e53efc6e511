package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit beyond tolerance.
	ErrUnbalanced = errors.New("accounting: ledger does not balance")
	// ErrUnknownReport indicates a report kind the engine does not build.
	ErrUnknownReport = errors.New("accounting: unknown report")
)
