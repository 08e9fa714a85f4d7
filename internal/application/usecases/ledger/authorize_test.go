package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minorPtr(v int64) *int64 { return &v }

func limitedKey(t *testing.T, walletID uuid.UUID, limits entities.SpendLimits) *entities.APIKey {
	t.Helper()
	key, err := entities.NewAPIKey(walletID, "hash", "limited", []entities.Scope{entities.ScopeWildcard}, limits)
	require.NoError(t, err)
	return key
}

func TestSpendLimit_PerTransaction(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceAcc, _ := env.newWallet(t, "alice")
	env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 10000)

	key := limitedKey(t, alice.ID(), entities.SpendLimits{PerTxMaxMinor: minorPtr(500)})

	outcome, err := env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "5.00", CurrencyCode: "USD", IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Replayed)

	_, err = env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "5.01", CurrencyCode: "USD", IdempotencyKey: "tr-2",
	})
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))
}

func TestSpendLimit_WindowCeiling(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceAcc, _ := env.newWallet(t, "alice")
	env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 10000)

	key := limitedKey(t, alice.ID(), entities.SpendLimits{
		WindowCeiling: minorPtr(1000),
		Window:        24 * time.Hour,
	})

	_, err := env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "6.00", CurrencyCode: "USD", IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)

	// 6.00 spent, another 6.00 would breach the 10.00 ceiling
	_, err = env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "6.00", CurrencyCode: "USD", IdempotencyKey: "tr-2",
	})
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))

	// 4.00 exactly fills it
	_, err = env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "4.00", CurrencyCode: "USD", IdempotencyKey: "tr-3",
	})
	require.NoError(t, err)
}

func TestSpendLimit_HoldsCountAgainstWindow(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceAcc, _ := env.newWallet(t, "alice")
	env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 10000)

	key := limitedKey(t, alice.ID(), entities.SpendLimits{
		WindowCeiling: minorPtr(1000),
		Window:        24 * time.Hour,
	})

	outcome, err := env.createHold.Execute(context.Background(), key, dtos.CreateHoldCommand{
		Recipient: "@bob", Amount: "6.00", CurrencyCode: "USD",
		TTLSeconds: ttl, IdempotencyKey: "h-1",
	})
	require.NoError(t, err)
	holdDTO := decodeHold(t, outcome)

	// the hold already committed 6.00 of the window
	_, err = env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "5.00", CurrencyCode: "USD", IdempotencyKey: "tr-1",
	})
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))

	// capturing moves held money and consumes nothing further
	_, err = env.captureHold.Execute(context.Background(), key, dtos.CaptureHoldCommand{
		HoldID: holdDTO.ID, IdempotencyKey: "c-1",
	})
	require.NoError(t, err)

	_, err = env.transfer.Execute(context.Background(), key, dtos.TransferCommand{
		Recipient: "@bob", Amount: "4.00", CurrencyCode: "USD", IdempotencyKey: "tr-2",
	})
	require.NoError(t, err)
}

func TestSpendLimit_NotSnapshotted(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceAcc, _ := env.newWallet(t, "alice")
	env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 10000)

	key := limitedKey(t, alice.ID(), entities.SpendLimits{PerTxMaxMinor: minorPtr(100)})

	cmd := dtos.TransferCommand{
		Recipient: "@bob", Amount: "2.00", CurrencyCode: "USD", IdempotencyKey: "tr-1",
	}
	outcome, err := env.transfer.Execute(context.Background(), key, cmd)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))
	assert.Nil(t, outcome)

	// the reservation was released, not snapshotted: the same key fails the
	// same way instead of replaying or conflicting
	_, err = env.transfer.Execute(context.Background(), key, cmd)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))
}

// spendLogJournal stubs the journal for direct authorizer tests. Only
// SumDebitsSince is implemented; the rest is never called.
type spendLogJournal struct {
	ports.JournalRepository
	spends []struct {
		at    time.Time
		minor int64
	}
}

func (j *spendLogJournal) record(at time.Time, minor int64) {
	j.spends = append(j.spends, struct {
		at    time.Time
		minor int64
	}{at, minor})
}

func (j *spendLogJournal) SumDebitsSince(_ context.Context, _ uuid.UUID, since time.Time) (int64, error) {
	var total int64
	for _, s := range j.spends {
		if !s.at.Before(since) {
			total += s.minor
		}
	}
	return total, nil
}

func TestAuthorizer_WindowRollsForward(t *testing.T) {
	clock := newFakeClock()
	journal := &spendLogJournal{}
	authorizer := NewAuthorizer(journal, clock)

	key := limitedKey(t, uuid.New(), entities.SpendLimits{
		WindowCeiling: minorPtr(1000),
		Window:        24 * time.Hour,
	})
	accountID := uuid.New()
	amount := valueobjects.MustNewMoney(600, valueobjects.USD)

	require.NoError(t, authorizer.CheckSpend(context.Background(), key, accountID, amount))
	journal.record(clock.Now(), 600)

	// another 6.00 inside the same day breaches the ceiling
	err := authorizer.CheckSpend(context.Background(), key, accountID, amount)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))

	// once the window has rolled past the first spend, it frees up again
	clock.Advance(25 * time.Hour)
	require.NoError(t, authorizer.CheckSpend(context.Background(), key, accountID, amount))
}
