package ledger

import (
	"net/http"
	"testing"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{errors.CodeValidation, http.StatusBadRequest},
		{errors.CodeRecipientNotFound, http.StatusNotFound},
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeCurrencyMismatch, http.StatusUnprocessableEntity},
		{errors.CodeInsufficientFunds, http.StatusUnprocessableEntity},
		{errors.CodeHoldNotActive, http.StatusConflict},
		{errors.CodeHoldExpired, http.StatusConflict},
		{errors.CodeIntentExpired, http.StatusConflict},
		{errors.CodeIntentAlreadyPaid, http.StatusConflict},
		{errors.CodeRefundExceedsCapture, http.StatusConflict},
		{errors.CodeWalletNotActive, http.StatusConflict},
		{errors.CodeSelfTransfer, http.StatusConflict},
		{errors.CodeIdempotencyConflict, http.StatusConflict},
		{errors.CodeIdempotencyInProgress, http.StatusConflict},
		{errors.CodeForbiddenScope, http.StatusForbidden},
		{errors.CodeLimitExceeded, http.StatusTooManyRequests},
		{errors.CodeTransientConflict, http.StatusServiceUnavailable},
		{errors.CodeTimeout, http.StatusGatewayTimeout},
		{errors.CodeArithmetic, http.StatusInternalServerError},
		{errors.CodeStore, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			got := StatusForError(errors.New(tc.code, "x"))
			assert.Equal(t, tc.want, got)
		})
	}
}
