package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRefund(t *testing.T, outcome *Outcome) dtos.RefundDTO {
	t.Helper()
	var dto dtos.RefundDTO
	require.NoError(t, json.Unmarshal(outcome.Body, &dto))
	return dto
}

// settleCapture funds the buyer with 100.00, holds `amount` against the
// merchant and captures it in full, returning the capture entry id.
func settleCapture(t *testing.T, env *testEnv, buyerKey *entities.APIKey, amount string) uuid.UUID {
	t.Helper()
	outcome, err := env.createHold.Execute(context.Background(), buyerKey, dtos.CreateHoldCommand{
		Recipient:      "@merchant",
		Amount:         amount,
		CurrencyCode:   "USD",
		TTLSeconds:     ttl,
		IdempotencyKey: uuid.NewString(),
	})
	require.NoError(t, err)
	holdDTO := decodeHold(t, outcome)

	outcome, err = env.captureHold.Execute(context.Background(), buyerKey, dtos.CaptureHoldCommand{
		HoldID:         holdDTO.ID,
		IdempotencyKey: uuid.NewString(),
	})
	require.NoError(t, err)
	capture := decodeCapture(t, outcome)

	id, err := uuid.Parse(capture.Entry.ID)
	require.NoError(t, err)
	return id
}

func TestRefund_FullThenExhausted(t *testing.T) {
	env := newTestEnv(t)
	_, buyerAcc, buyerKey := env.newWallet(t, "buyer")
	_, merchantAcc, merchantKey := env.newWallet(t, "merchant")
	env.fund(t, buyerAcc, 10000)
	captureID := settleCapture(t, env, buyerKey, "30.00")

	outcome, err := env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
		CaptureEntryID: captureID.String(),
		Amount:         "30.00",
		Reason:         "order cancelled",
		IdempotencyKey: "rf-1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, outcome.Status)
	dto := decodeRefund(t, outcome)
	assert.Equal(t, "30.00", dto.Amount)
	assert.Equal(t, captureID.String(), dto.CaptureEntryID)

	buyerAvail, _ := env.balance(t, buyerAcc)
	merchantAvail, _ := env.balance(t, merchantAcc)
	assert.Equal(t, int64(10000), buyerAvail)
	assert.Equal(t, int64(0), merchantAvail)
	assert.Equal(t, 1, env.outbox.countType(events.EventTypeRefundPosted))

	t.Run("a second refund finds nothing left", func(t *testing.T) {
		_, err := env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
			CaptureEntryID: captureID.String(),
			Amount:         "0.01",
			IdempotencyKey: "rf-2",
		})
		assert.Equal(t, errors.CodeRefundExceedsCapture, errors.CodeOf(err))
	})
}

func TestRefund_PartialAndRemainder(t *testing.T) {
	env := newTestEnv(t)
	_, buyerAcc, buyerKey := env.newWallet(t, "buyer")
	_, merchantAcc, merchantKey := env.newWallet(t, "merchant")
	env.fund(t, buyerAcc, 10000)
	captureID := settleCapture(t, env, buyerKey, "50.00")

	outcome, err := env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
		CaptureEntryID: captureID.String(),
		Amount:         "20.00",
		IdempotencyKey: "rf-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", decodeRefund(t, outcome).Amount)

	t.Run("over-refund of the remainder is rejected", func(t *testing.T) {
		_, err := env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
			CaptureEntryID: captureID.String(),
			Amount:         "30.01",
			IdempotencyKey: "rf-2",
		})
		assert.Equal(t, errors.CodeRefundExceedsCapture, errors.CodeOf(err))
	})

	// empty amount refunds whatever is still refundable
	outcome, err = env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
		CaptureEntryID: captureID.String(),
		IdempotencyKey: "rf-3",
	})
	require.NoError(t, err)
	assert.Equal(t, "30.00", decodeRefund(t, outcome).Amount)

	buyerAvail, _ := env.balance(t, buyerAcc)
	merchantAvail, _ := env.balance(t, merchantAcc)
	assert.Equal(t, int64(10000), buyerAvail)
	assert.Equal(t, int64(0), merchantAvail)
}

func TestRefund_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	_, buyerAcc, buyerKey := env.newWallet(t, "buyer")
	_, _, merchantKey := env.newWallet(t, "merchant")
	_, _, strangerKey := env.newWallet(t, "stranger")
	env.fund(t, buyerAcc, 10000)
	captureID := settleCapture(t, env, buyerKey, "10.00")

	t.Run("only the capture's payee may refund", func(t *testing.T) {
		_, err := env.refund.Execute(context.Background(), strangerKey, dtos.RefundCommand{
			CaptureEntryID: captureID.String(),
			IdempotencyKey: "rf-1",
		})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})

	t.Run("unknown capture entry", func(t *testing.T) {
		_, err := env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
			CaptureEntryID: uuid.NewString(),
			IdempotencyKey: "rf-2",
		})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})

	t.Run("entry that is not a capture", func(t *testing.T) {
		page, err := env.journal.ListByAccount(context.Background(), buyerAcc.ID(), ports.JournalFilter{}, "", 50)
		require.NoError(t, err)
		var depositID string
		for _, e := range page.Entries {
			if e.Kind() == entities.EntryKindDeposit {
				depositID = e.ID().String()
			}
		}
		require.NotEmpty(t, depositID)
		// the deposit credited the buyer, so the buyer's key owns it
		_, execErr := env.refund.Execute(context.Background(), buyerKey, dtos.RefundCommand{
			CaptureEntryID: depositID,
			IdempotencyKey: "rf-3",
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(execErr))
	})

	t.Run("refund scope required", func(t *testing.T) {
		readOnly, err := entities.NewAPIKey(uuid.New(), "hash", "ro", []entities.Scope{entities.ScopeRead}, entities.SpendLimits{})
		require.NoError(t, err)
		_, execErr := env.refund.Execute(context.Background(), readOnly, dtos.RefundCommand{
			CaptureEntryID: captureID.String(),
			IdempotencyKey: "rf-4",
		})
		assert.Equal(t, errors.CodeForbiddenScope, errors.CodeOf(execErr))
	})
}

func TestRefund_PayeeMustStillCoverIt(t *testing.T) {
	env := newTestEnv(t)
	_, buyerAcc, buyerKey := env.newWallet(t, "buyer")
	_, _, merchantKey := env.newWallet(t, "merchant")
	env.newWallet(t, "supplier")
	env.fund(t, buyerAcc, 10000)
	captureID := settleCapture(t, env, buyerKey, "40.00")

	// merchant spends the captured money elsewhere
	_, err := env.transfer.Execute(context.Background(), merchantKey, dtos.TransferCommand{
		Recipient:      "@supplier",
		Amount:         "35.00",
		CurrencyCode:   "USD",
		IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)

	_, err = env.refund.Execute(context.Background(), merchantKey, dtos.RefundCommand{
		CaptureEntryID: captureID.String(),
		Amount:         "40.00",
		IdempotencyKey: "rf-1",
	})
	assert.Equal(t, errors.CodeInsufficientFunds, errors.CodeOf(err))
}
