// Package common holds the helpers shared by every HTTP handler: the error
// envelope, request-id plumbing and the outcome writer.
//
// Success responses are the DTO serialized as-is; errors use the envelope
// produced by the ledger package. Keeping both encodings in one place is what
// makes an idempotent replay byte-equal with the first response.
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
	"github.com/Haleralex/walletledger/internal/domain/errors"
)

const (
	// RequestIDHeader carries the correlation id. Honoured when the client
	// sends one, generated otherwise.
	RequestIDHeader = "X-Request-ID"

	// IdempotencyKeyHeader names the client's idempotency key for write
	// operations.
	IdempotencyKeyHeader = "Idempotency-Key"

	// ReplayedHeader marks responses served from an idempotency snapshot.
	ReplayedHeader = "Idempotency-Replayed"

	requestIDContextKey = "request_id"
)

// GetRequestID returns the request id set by the RequestID middleware.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// SetRequestID stores the request id in the gin context and echoes it in the
// response header.
func SetRequestID(c *gin.Context, id string) {
	c.Set(requestIDContextKey, id)
	c.Header(RequestIDHeader, id)
}

// NewRequestID generates a fresh correlation id.
func NewRequestID() string {
	return uuid.NewString()
}

// JSON writes a DTO as the response body.
func JSON(c *gin.Context, status int, v interface{}) {
	c.JSON(status, v)
}

// WriteOutcome writes a materialized operation outcome: the snapshot bytes
// verbatim, with the replay marker when the response was served from an
// idempotency record rather than executed.
func WriteOutcome(c *gin.Context, outcome *ledger.Outcome) {
	if outcome.Replayed {
		c.Header(ReplayedHeader, "true")
	}
	c.Data(outcome.Status, "application/json", outcome.Body)
}

// RespondError writes any error using the shared envelope. Status and body
// come from the same functions the idempotency manager snapshots with, so a
// live failure and its later replay are indistinguishable to the client.
func RespondError(c *gin.Context, err error) {
	c.Data(ledger.StatusForError(err), "application/json", ledger.EncodeError(err))
}

// AbortWithError is RespondError plus aborting the handler chain. Middleware
// rejections use this so handlers never run on a failed precondition.
func AbortWithError(c *gin.Context, err error) {
	RespondError(c, err)
	c.Abort()
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// RespondValidationErrors writes a 400 with per-field details in the shared
// envelope.
func RespondValidationErrors(c *gin.Context, fields []FieldError) {
	details := make(map[string]interface{}, 1)
	if len(fields) > 0 {
		details["fields"] = fields
	}
	err := errors.New(errors.CodeValidation, "request validation failed").WithDetails(details)
	RespondError(c, err)
}

// Unauthorized writes a 401. Authentication failures sit outside the ledger
// error taxonomy on purpose: they carry no details and never reach the
// idempotency layer.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ledger.ErrorBody{
		Error: ledger.ErrorDetail{Code: "UNAUTHORIZED", Message: message},
	})
	c.Abort()
}

// TooManyRequests writes a 429 with a Retry-After hint.
func TooManyRequests(c *gin.Context, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	c.Header("Retry-After", itoa(retryAfterSeconds))
	c.JSON(http.StatusTooManyRequests, ledger.ErrorBody{
		Error: ledger.ErrorDetail{
			Code:    "TOO_MANY_REQUESTS",
			Message: "rate limit exceeded, retry later",
		},
	})
	c.Abort()
}

func itoa(i int) string {
	if i <= 0 {
		return "1"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}
