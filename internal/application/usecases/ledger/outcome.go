// Package ledger contains the use cases of the double-entry core: one file
// per operation, plus the shared machinery they compose — idempotent
// execution, authorization, recipient resolution and posting rules.
package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/Haleralex/walletledger/internal/domain/errors"
)

// Outcome is the materialized response of a write operation: the exact bytes
// the API returns. Snapshotting Outcome (not the DTO) is what makes replays
// byte-equal with the first response.
type Outcome struct {
	Status   int
	Body     []byte
	Replayed bool
}

// ErrorBody is the error envelope shared by live responses and snapshots.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// EncodeSuccess serializes a response DTO for the snapshot and the live
// response.
func EncodeSuccess(v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "encoding response", err)
	}
	return body, nil
}

// EncodeError serializes an error into the shared envelope.
func EncodeError(err error) []byte {
	detail := ErrorDetail{Code: errors.CodeStore, Message: "internal error"}
	var le *errors.LedgerError
	if errors.AsLedgerError(err, &le) {
		detail = ErrorDetail{Code: le.Code, Message: le.Message, Details: le.Details}
	}
	body, marshalErr := json.Marshal(ErrorBody{Error: detail})
	if marshalErr != nil {
		return []byte(`{"error":{"code":"STORE_ERROR","message":"internal error"}}`)
	}
	return body
}

// StatusForError maps error codes to HTTP statuses. Lives next to the
// snapshot logic so the first response and every replay agree.
func StatusForError(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeValidation:
		return http.StatusBadRequest
	case errors.CodeRecipientNotFound, errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeCurrencyMismatch, errors.CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case errors.CodeHoldNotActive,
		errors.CodeHoldExpired,
		errors.CodeIntentExpired,
		errors.CodeIntentAlreadyPaid,
		errors.CodeRefundExceedsCapture,
		errors.CodeWalletNotActive,
		errors.CodeSelfTransfer,
		errors.CodeIdempotencyConflict,
		errors.CodeIdempotencyInProgress:
		return http.StatusConflict
	case errors.CodeForbiddenScope:
		return http.StatusForbidden
	case errors.CodeLimitExceeded:
		return http.StatusTooManyRequests
	case errors.CodeTransientConflict:
		return http.StatusServiceUnavailable
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
