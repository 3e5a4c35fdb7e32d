package apperrors

import "errors"

// Sentinel errors for the lending core. Services wrap these with context via
// fmt.Errorf("%w: ..."); the HTTP error handler and the chat orchestrator
// unwrap them with errors.Is to decide how each failure is surfaced.
var (
	// ErrInvalidInput marks user-correctable input problems (calculator
	// bounds, malformed amounts). Surfaced as 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition marks a loan status change outside the valid
	// transition table. The loan is left unchanged. Surfaced as 409.
	ErrInvalidTransition = errors.New("invalid loan status transition")

	// ErrDuplicateActiveLoan fires when a user who already has an approved or
	// active loan tries to open another one. Surfaced as 409.
	ErrDuplicateActiveLoan = errors.New("an open loan already exists for this user")

	// ErrNotOwner marks access to a loan or transaction the caller does not
	// own. Surfaced as 403.
	ErrNotOwner = errors.New("not the owner of this resource")

	// ErrNotFound marks a missing record. Surfaced as 404.
	ErrNotFound = errors.New("record not found")

	// ErrGatewayTimeout and ErrGatewayError mark failures of the external
	// reasoning capability. The chat turn degrades but never fails.
	ErrGatewayTimeout = errors.New("agent gateway timed out")
	ErrGatewayError   = errors.New("agent gateway error")

	// ErrPersistence marks a database failure. Fatal to the current turn;
	// transactional boundaries guarantee no partial write survives.
	ErrPersistence = errors.New("persistence failure")
)
