package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeIntent(t *testing.T, outcome *Outcome) dtos.IntentDTO {
	t.Helper()
	var dto dtos.IntentDTO
	require.NoError(t, json.Unmarshal(outcome.Body, &dto))
	return dto
}

func TestIntent_CreateAndPay(t *testing.T) {
	env := newTestEnv(t)
	_, merchantAcc, merchantKey := env.newWallet(t, "merchant")
	_, buyerAcc, buyerKey := env.newWallet(t, "buyer")
	env.fund(t, buyerAcc, 10000)

	outcome, err := env.createIntent.Execute(context.Background(), merchantKey, dtos.CreateIntentCommand{
		Amount:         "19.99",
		CurrencyCode:   "USD",
		TTLSeconds:     ttl,
		Description:    "order 42",
		IdempotencyKey: "i-1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, outcome.Status)
	intentDTO := decodeIntent(t, outcome)
	assert.Equal(t, "PENDING", intentDTO.Status)

	outcome, err = env.payIntent.Execute(context.Background(), buyerKey, dtos.PayIntentCommand{
		IntentID:       intentDTO.ID,
		IdempotencyKey: "p-1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, outcome.Status)
	paid := decodeIntent(t, outcome)
	assert.Equal(t, "PAID", paid.Status)
	require.NotNil(t, paid.EntryID)

	buyerAvail, _ := env.balance(t, buyerAcc)
	merchantAvail, _ := env.balance(t, merchantAcc)
	assert.Equal(t, int64(8001), buyerAvail)
	assert.Equal(t, int64(1999), merchantAvail)
	assert.Equal(t, 1, env.outbox.countType(events.EventTypeIntentPaid))

	t.Run("second payer sees INTENT_ALREADY_PAID", func(t *testing.T) {
		_, otherAcc, otherKey := env.newWallet(t, "other")
		env.fund(t, otherAcc, 10000)
		_, err := env.payIntent.Execute(context.Background(), otherKey, dtos.PayIntentCommand{
			IntentID:       intentDTO.ID,
			IdempotencyKey: "p-2",
		})
		assert.Equal(t, errors.CodeIntentAlreadyPaid, errors.CodeOf(err))
	})
}

func TestIntent_SelfPayForbidden(t *testing.T) {
	env := newTestEnv(t)
	_, merchantAcc, merchantKey := env.newWallet(t, "merchant")
	env.fund(t, merchantAcc, 10000)

	outcome, err := env.createIntent.Execute(context.Background(), merchantKey, dtos.CreateIntentCommand{
		Amount: "5.00", CurrencyCode: "USD", TTLSeconds: ttl, IdempotencyKey: "i-1",
	})
	require.NoError(t, err)
	intentDTO := decodeIntent(t, outcome)

	_, err = env.payIntent.Execute(context.Background(), merchantKey, dtos.PayIntentCommand{
		IntentID: intentDTO.ID, IdempotencyKey: "p-1",
	})
	assert.Equal(t, errors.CodeSelfTransfer, errors.CodeOf(err))
}

func TestIntent_LazyExpiry(t *testing.T) {
	env := newTestEnv(t)
	_, _, merchantKey := env.newWallet(t, "merchant")
	_, buyerAcc, buyerKey := env.newWallet(t, "buyer")
	env.fund(t, buyerAcc, 10000)

	outcome, err := env.createIntent.Execute(context.Background(), merchantKey, dtos.CreateIntentCommand{
		Amount: "5.00", CurrencyCode: "USD", TTLSeconds: ttl, IdempotencyKey: "i-1",
	})
	require.NoError(t, err)
	intentDTO := decodeIntent(t, outcome)

	env.clock.Advance(hour)

	_, err = env.payIntent.Execute(context.Background(), buyerKey, dtos.PayIntentCommand{
		IntentID: intentDTO.ID, IdempotencyKey: "p-1",
	})
	assert.Equal(t, errors.CodeIntentExpired, errors.CodeOf(err))

	// expiry was persisted by the read path
	got, err := env.getIntent.Execute(context.Background(), buyerKey, intentDTO.ID)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", got.Status)

	// nothing moved: intents reserve no funds
	buyerAvail, buyerHeld := env.balance(t, buyerAcc)
	assert.Equal(t, int64(10000), buyerAvail)
	assert.Equal(t, int64(0), buyerHeld)
}

func TestIntent_Cancel(t *testing.T) {
	env := newTestEnv(t)
	_, _, merchantKey := env.newWallet(t, "merchant")
	_, _, strangerKey := env.newWallet(t, "stranger")

	outcome, err := env.createIntent.Execute(context.Background(), merchantKey, dtos.CreateIntentCommand{
		Amount: "5.00", CurrencyCode: "USD", TTLSeconds: ttl, IdempotencyKey: "i-1",
	})
	require.NoError(t, err)
	intentDTO := decodeIntent(t, outcome)

	t.Run("only the payee may cancel", func(t *testing.T) {
		_, err := env.cancelIntent.Execute(context.Background(), strangerKey, dtos.PayIntentCommand{
			IntentID: intentDTO.ID, IdempotencyKey: "x-1",
		})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})

	outcome, err = env.cancelIntent.Execute(context.Background(), merchantKey, dtos.PayIntentCommand{
		IntentID: intentDTO.ID, IdempotencyKey: "x-2",
	})
	require.NoError(t, err)
	cancelled := decodeIntent(t, outcome)
	assert.Equal(t, "CANCELLED", cancelled.Status)
}
