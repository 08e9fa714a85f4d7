// Package errors defines the ledger's error taxonomy.
// Using typed errors (instead of strings) allows clients to handle specific
// cases with errors.Is / errors.As and lets the HTTP adapter map errors to
// status codes without string matching.
//
// Pattern: Sentinel Errors + Custom Error Type with machine-readable codes.
package errors

import (
	"errors"
	"fmt"
)

// Machine-readable error codes. The HTTP adapter maps these to status codes;
// the idempotency manager decides from the code class whether a failure is
// recorded and replayed.
const (
	// Client-input errors.
	CodeValidation        = "VALIDATION_ERROR"
	CodeCurrencyMismatch  = "CURRENCY_MISMATCH"
	CodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	CodeNotFound          = "NOT_FOUND"

	// State-precondition errors.
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeHoldNotActive        = "HOLD_NOT_ACTIVE"
	CodeHoldExpired          = "HOLD_EXPIRED"
	CodeIntentExpired        = "INTENT_EXPIRED"
	CodeIntentAlreadyPaid    = "INTENT_ALREADY_PAID"
	CodeRefundExceedsCapture = "REFUND_EXCEEDS_CAPTURE"
	CodeWalletNotActive      = "WALLET_NOT_ACTIVE"
	CodeSelfTransfer         = "SELF_TRANSFER"

	// Authorization errors.
	CodeForbiddenScope = "FORBIDDEN_SCOPE"
	CodeLimitExceeded  = "LIMIT_EXCEEDED"

	// Idempotency errors.
	CodeIdempotencyConflict   = "IDEMPOTENCY_CONFLICT"
	CodeIdempotencyInProgress = "IDEMPOTENCY_IN_PROGRESS"

	// Transient errors — never recorded in idempotency snapshots.
	CodeTransientConflict = "TRANSIENT_CONFLICT"
	CodeTimeout           = "TIMEOUT"

	// Internal errors.
	CodeArithmetic = "ARITHMETIC_ERROR"
	CodeStore      = "STORE_ERROR"
)

// Common sentinel errors for repository lookups.
var (
	ErrEntityNotFound      = errors.New("entity not found")
	ErrEntityAlreadyExists = errors.New("entity already exists")
)

// LedgerError is the error type every operation surfaces. It wraps an
// optional underlying error with a code, a human-readable message and
// structured details that the adapter serializes into the response body.
type LedgerError struct {
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// New creates a new LedgerError.
func New(code, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}

// Newf creates a new LedgerError with a formatted message.
func Newf(code, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a LedgerError wrapping an underlying cause.
func Wrap(code, message string, err error) *LedgerError {
	return &LedgerError{Code: code, Message: message, Err: err}
}

// WithDetails attaches structured details and returns the same error for
// chaining.
func (e *LedgerError) WithDetails(details map[string]interface{}) *LedgerError {
	e.Details = details
	return e
}

// Is re-exports errors.Is for callers that import this package under the
// name "errors".
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// AsLedgerError is errors.As specialized for *LedgerError, for callers that
// import this package under the name "errors".
func AsLedgerError(err error, target **LedgerError) bool {
	return errors.As(err, target)
}

// CodeOf extracts the machine-readable code from any error.
// Non-LedgerError values are classified as STORE_ERROR.
func CodeOf(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeStore
}

// finalCodes are the failures that are recorded in the idempotency snapshot:
// retrying the same request can never succeed, so the first outcome is
// replayed byte-equal. Authorization and transient failures are deliberately
// absent — a later retry may pass once the spend window rolls or the
// conflicting transaction finishes.
var finalCodes = map[string]bool{
	CodeValidation:           true,
	CodeCurrencyMismatch:     true,
	CodeRecipientNotFound:    true,
	CodeNotFound:             true,
	CodeInsufficientFunds:    true,
	CodeHoldNotActive:        true,
	CodeHoldExpired:          true,
	CodeIntentExpired:        true,
	CodeIntentAlreadyPaid:    true,
	CodeRefundExceedsCapture: true,
	CodeWalletNotActive:      true,
	CodeSelfTransfer:         true,
}

// IsFinal reports whether the failure should be recorded in the idempotency
// snapshot and replayed on retries with the same key.
func IsFinal(err error) bool {
	return finalCodes[CodeOf(err)]
}

// IsTransient reports whether the failure may resolve on a client retry and
// must therefore leave no idempotency record behind.
func IsTransient(err error) bool {
	code := CodeOf(err)
	return code == CodeTransientConflict || code == CodeTimeout
}

// IsNotFound checks if an error is an "entity not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
