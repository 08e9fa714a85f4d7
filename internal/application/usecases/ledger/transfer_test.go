package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, outcome *Outcome) dtos.EntryDTO {
	t.Helper()
	var dto dtos.EntryDTO
	require.NoError(t, json.Unmarshal(outcome.Body, &dto))
	return dto
}

func TestTransfer_Success(t *testing.T) {
	env := newTestEnv(t)
	_, aliceAcc, aliceKey := env.newWallet(t, "alice")
	_, bobAcc, _ := env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 10000)

	outcome, err := env.transfer.Execute(context.Background(), aliceKey, dtos.TransferCommand{
		Recipient:      "@bob",
		Amount:         "25.50",
		CurrencyCode:   "USD",
		IdempotencyKey: "tr-1",
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, http.StatusCreated, outcome.Status)

	dto := decodeEntry(t, outcome)
	assert.Equal(t, "TRANSFER", dto.Kind)
	assert.Equal(t, "25.50", dto.Amount)

	aliceAvail, _ := env.balance(t, aliceAcc)
	bobAvail, _ := env.balance(t, bobAcc)
	assert.Equal(t, int64(7450), aliceAvail)
	assert.Equal(t, int64(2550), bobAvail)
	assert.Equal(t, 1, env.outbox.countType(events.EventTypeEntryPosted))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	_, aliceAcc, aliceKey := env.newWallet(t, "alice")
	_, bobAcc, _ := env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 100)

	outcome, err := env.transfer.Execute(context.Background(), aliceKey, dtos.TransferCommand{
		Recipient:      "@bob",
		Amount:         "5.00",
		CurrencyCode:   "USD",
		IdempotencyKey: "tr-1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientFunds, errors.CodeOf(err))
	// final failures still produce the snapshot outcome
	require.NotNil(t, outcome)
	assert.Equal(t, http.StatusUnprocessableEntity, outcome.Status)

	// nothing moved
	aliceAvail, _ := env.balance(t, aliceAcc)
	bobAvail, _ := env.balance(t, bobAcc)
	assert.Equal(t, int64(100), aliceAvail)
	assert.Equal(t, int64(0), bobAvail)
}

func TestTransfer_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceAcc, aliceKey := env.newWallet(t, "alice")
	bob, _, _ := env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 10000)

	cmd := func(to string) dtos.TransferCommand {
		return dtos.TransferCommand{
			Recipient:      to,
			Amount:         "1.00",
			CurrencyCode:   "USD",
			IdempotencyKey: uuid.NewString(),
		}
	}

	t.Run("self transfer by handle", func(t *testing.T) {
		_, err := env.transfer.Execute(context.Background(), aliceKey, cmd("@alice"))
		assert.Equal(t, errors.CodeSelfTransfer, errors.CodeOf(err))
	})

	t.Run("self transfer by id", func(t *testing.T) {
		_, err := env.transfer.Execute(context.Background(), aliceKey, cmd(alice.ID().String()))
		assert.Equal(t, errors.CodeSelfTransfer, errors.CodeOf(err))
	})

	t.Run("unknown recipient", func(t *testing.T) {
		_, err := env.transfer.Execute(context.Background(), aliceKey, cmd("@nobody"))
		assert.Equal(t, errors.CodeRecipientNotFound, errors.CodeOf(err))
	})

	t.Run("missing scope", func(t *testing.T) {
		readOnly, err := entities.NewAPIKey(alice.ID(), "hash", "ro", []entities.Scope{entities.ScopeRead}, entities.SpendLimits{})
		require.NoError(t, err)
		_, execErr := env.transfer.Execute(context.Background(), readOnly, cmd("@bob"))
		assert.Equal(t, errors.CodeForbiddenScope, errors.CodeOf(execErr))
	})

	t.Run("frozen sender", func(t *testing.T) {
		require.NoError(t, alice.Freeze())
		_, err := env.transfer.Execute(context.Background(), aliceKey, cmd("@bob"))
		assert.Equal(t, errors.CodeWalletNotActive, errors.CodeOf(err))
		require.NoError(t, alice.Unfreeze())
	})

	t.Run("frozen recipient", func(t *testing.T) {
		require.NoError(t, bob.Freeze())
		_, err := env.transfer.Execute(context.Background(), aliceKey, cmd("@bob"))
		assert.Equal(t, errors.CodeWalletNotActive, errors.CodeOf(err))
		require.NoError(t, bob.Unfreeze())
	})

	t.Run("zero amount", func(t *testing.T) {
		c := cmd("@bob")
		c.Amount = "0.00"
		_, err := env.transfer.Execute(context.Background(), aliceKey, c)
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})

	t.Run("unsupported currency", func(t *testing.T) {
		c := cmd("@bob")
		c.CurrencyCode = "DOGE"
		_, err := env.transfer.Execute(context.Background(), aliceKey, c)
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})
}

func TestTransfer_ConcurrentSpend_NeverOverdraws(t *testing.T) {
	env := newTestEnv(t)
	_, aliceAcc, aliceKey := env.newWallet(t, "alice")
	_, bobAcc, _ := env.newWallet(t, "bob")
	env.fund(t, aliceAcc, 1000)

	// 10 concurrent transfers of 3.00 against a 10.00 balance: at most 3 can
	// succeed, and available never goes negative.
	const workers = 10
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.transfer.Execute(context.Background(), aliceKey, dtos.TransferCommand{
				Recipient:      "@bob",
				Amount:         "3.00",
				CurrencyCode:   "USD",
				IdempotencyKey: uuid.NewString(),
			})
			if err == nil {
				successes <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	succeeded := len(successes)
	assert.Equal(t, 3, succeeded)

	aliceAvail, aliceHeld := env.balance(t, aliceAcc)
	bobAvail, _ := env.balance(t, bobAcc)
	assert.GreaterOrEqual(t, aliceAvail, int64(0))
	assert.Equal(t, int64(0), aliceHeld)
	assert.Equal(t, int64(1000), aliceAvail+bobAvail, "money is conserved")
	assert.Equal(t, int64(300)*int64(succeeded), bobAvail)
}

func TestDeposit_SystemFunding(t *testing.T) {
	env := newTestEnv(t)
	_, aliceAcc, _ := env.newWallet(t, "alice")
	adminWallet, _, _ := env.newWallet(t, "ops")
	adminKey, err := entities.NewAPIKey(adminWallet.ID(), "hash", "admin", []entities.Scope{entities.ScopeAdmin}, entities.SpendLimits{})
	require.NoError(t, err)

	outcome, err := env.deposit.Execute(context.Background(), adminKey, dtos.DepositCommand{
		Recipient:      "@alice",
		Amount:         "100.00",
		CurrencyCode:   "USD",
		IdempotencyKey: "dep-1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, outcome.Status)

	aliceAvail, _ := env.balance(t, aliceAcc)
	assert.Equal(t, int64(10000), aliceAvail)

	t.Run("requires admin scope", func(t *testing.T) {
		plainKey, err := entities.NewAPIKey(adminWallet.ID(), "hash", "", []entities.Scope{entities.ScopeTransfer}, entities.SpendLimits{})
		require.NoError(t, err)
		_, execErr := env.deposit.Execute(context.Background(), plainKey, dtos.DepositCommand{
			Recipient:      "@alice",
			Amount:         "1.00",
			CurrencyCode:   "USD",
			IdempotencyKey: "dep-2",
		})
		assert.Equal(t, errors.CodeForbiddenScope, errors.CodeOf(execErr))
	})
}
