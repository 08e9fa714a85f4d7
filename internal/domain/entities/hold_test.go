package entities

import (
	"testing"
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base is the fixed reference clock for hold and intent tests; entities only
// ever see time through their now parameters.
var base = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestHold(t *testing.T, minor int64) *Hold {
	t.Helper()
	h, err := NewHold(uuid.New(), uuid.New(), usd(minor), uuid.New(), base.Add(time.Hour), base)
	require.NoError(t, err)
	return h
}

func TestHold_FullCapture(t *testing.T) {
	h := newTestHold(t, 1000)

	require.NoError(t, h.Capture(usd(1000), base))
	assert.Equal(t, HoldStatusCaptured, h.Status())
	assert.True(t, h.Remaining().IsZero())
	assert.False(t, h.IsCapturable())
}

func TestHold_PartialCaptures(t *testing.T) {
	h := newTestHold(t, 1000)

	require.NoError(t, h.Capture(usd(300), base))
	assert.Equal(t, HoldStatusPartiallyCaptured, h.Status())
	assert.Equal(t, int64(700), h.Remaining().MinorUnits())

	require.NoError(t, h.Capture(usd(700), base))
	assert.Equal(t, HoldStatusCaptured, h.Status())

	err := h.Capture(usd(1), base)
	assert.Equal(t, errors.CodeHoldNotActive, errors.CodeOf(err))
}

func TestHold_CaptureExceedsRemaining(t *testing.T) {
	h := newTestHold(t, 1000)

	require.NoError(t, h.Capture(usd(800), base))
	err := h.Capture(usd(300), base)
	assert.Equal(t, errors.CodeInsufficientFunds, errors.CodeOf(err))
	// failed capture leaves state untouched
	assert.Equal(t, int64(200), h.Remaining().MinorUnits())
	assert.Equal(t, HoldStatusPartiallyCaptured, h.Status())
}

func TestHold_CaptureAfterDeadline(t *testing.T) {
	h := newTestHold(t, 1000)

	// The status is still ACTIVE — only the clock has moved past the
	// deadline, as it does while a capture waits on the payer's row lock.
	err := h.Capture(usd(100), h.ExpiresAt())
	assert.Equal(t, errors.CodeHoldExpired, errors.CodeOf(err))
	assert.Equal(t, HoldStatusActive, h.Status())
	assert.Equal(t, int64(1000), h.Remaining().MinorUnits())
}

func TestHold_Release(t *testing.T) {
	h := newTestHold(t, 1000)

	require.NoError(t, h.Capture(usd(400), base))
	returned, err := h.Release(base)
	require.NoError(t, err)
	assert.Equal(t, int64(600), returned.MinorUnits())
	assert.Equal(t, HoldStatusReleased, h.Status())

	_, err = h.Release(base)
	assert.Equal(t, errors.CodeHoldNotActive, errors.CodeOf(err))
}

func TestHold_LazyExpiry(t *testing.T) {
	h := newTestHold(t, 1000)
	require.NoError(t, h.Capture(usd(250), base))

	t.Run("before deadline nothing happens", func(t *testing.T) {
		_, expired := h.ExpireIfDue(base)
		assert.False(t, expired)
		assert.Equal(t, HoldStatusPartiallyCaptured, h.Status())
	})

	t.Run("after deadline remainder is returned", func(t *testing.T) {
		returned, expired := h.ExpireIfDue(h.ExpiresAt().Add(time.Second))
		assert.True(t, expired)
		assert.Equal(t, int64(750), returned.MinorUnits())
		assert.Equal(t, HoldStatusExpired, h.Status())
	})

	t.Run("capture after expiry fails with HOLD_EXPIRED", func(t *testing.T) {
		err := h.Capture(usd(1), base)
		assert.Equal(t, errors.CodeHoldExpired, errors.CodeOf(err))
	})

	t.Run("second expiry is a no-op", func(t *testing.T) {
		_, expired := h.ExpireIfDue(h.ExpiresAt().Add(time.Minute))
		assert.False(t, expired)
	})
}

func TestNewHold_Validation(t *testing.T) {
	same := uuid.New()

	_, err := NewHold(same, same, usd(100), uuid.New(), base.Add(time.Hour), base)
	assert.Equal(t, errors.CodeSelfTransfer, errors.CodeOf(err))

	_, err = NewHold(uuid.New(), uuid.New(), usd(100), uuid.New(), base.Add(-time.Minute), base)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestPaymentIntent_Lifecycle(t *testing.T) {
	payee := uuid.New()
	intent, err := NewPaymentIntent(payee, usd(2500), "invoice 42", base.Add(time.Hour), base)
	require.NoError(t, err)

	t.Run("self pay forbidden", func(t *testing.T) {
		err := intent.Pay(payee, uuid.New(), base)
		assert.Equal(t, errors.CodeSelfTransfer, errors.CodeOf(err))
		assert.Equal(t, IntentStatusPending, intent.Status())
	})

	t.Run("pay settles once", func(t *testing.T) {
		payer := uuid.New()
		entryID := uuid.New()
		require.NoError(t, intent.Pay(payer, entryID, base))
		assert.Equal(t, IntentStatusPaid, intent.Status())
		assert.Equal(t, payer, *intent.PayerAccountID())
		assert.Equal(t, entryID, *intent.EntryID())

		err := intent.Pay(uuid.New(), uuid.New(), base)
		assert.Equal(t, errors.CodeIntentAlreadyPaid, errors.CodeOf(err))
	})

	t.Run("expired intent cannot be paid", func(t *testing.T) {
		late, err := NewPaymentIntent(uuid.New(), usd(100), "", base.Add(time.Minute), base)
		require.NoError(t, err)
		assert.True(t, late.ExpireIfDue(late.ExpiresAt().Add(time.Second)))

		err = late.Pay(uuid.New(), uuid.New(), base)
		assert.Equal(t, errors.CodeIntentExpired, errors.CodeOf(err))
	})

	t.Run("pay past deadline fails while still pending", func(t *testing.T) {
		// No expirer has run — the status is PENDING but the clock has
		// crossed the deadline while waiting on the payer's row lock.
		stale, err := NewPaymentIntent(uuid.New(), usd(100), "", base.Add(time.Minute), base)
		require.NoError(t, err)

		err = stale.Pay(uuid.New(), uuid.New(), stale.ExpiresAt())
		assert.Equal(t, errors.CodeIntentExpired, errors.CodeOf(err))
		assert.Equal(t, IntentStatusPending, stale.Status())
	})

	t.Run("cancel pending only", func(t *testing.T) {
		open, err := NewPaymentIntent(uuid.New(), usd(100), "", base.Add(time.Minute), base)
		require.NoError(t, err)
		require.NoError(t, open.Cancel(base))
		assert.Equal(t, IntentStatusCancelled, open.Status())

		err = intent.Cancel(base)
		assert.Equal(t, errors.CodeIntentAlreadyPaid, errors.CodeOf(err))
	})
}

func TestCheckRefundable(t *testing.T) {
	captured := usd(1000)

	assert.NoError(t, CheckRefundable(captured, usd(0), usd(1000)))
	assert.NoError(t, CheckRefundable(captured, usd(400), usd(600)))

	err := CheckRefundable(captured, usd(400), usd(601))
	assert.Equal(t, errors.CodeRefundExceedsCapture, errors.CodeOf(err))
}
