package entities

import (
	"testing"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBalance_Rendering(t *testing.T) {
	b := Balance{Currency: valueobjects.USD, AvailableMinor: -250075, HeldMinor: 100}
	assert.Equal(t, "-2500.75", b.Available())
	assert.Equal(t, "1.00", b.Held())
}

func TestBalance_CheckAvailable(t *testing.T) {
	b := Balance{
		AccountID:      uuid.New(),
		Currency:       valueobjects.USD,
		AvailableMinor: 1000,
	}

	t.Run("sufficient", func(t *testing.T) {
		assert.NoError(t, b.CheckAvailable(usd(1000), false))
	})

	t.Run("insufficient", func(t *testing.T) {
		err := b.CheckAvailable(usd(1001), false)
		assert.Equal(t, errors.CodeInsufficientFunds, errors.CodeOf(err))
	})

	t.Run("negative balance fails any user debit", func(t *testing.T) {
		overdrawn := Balance{Currency: valueobjects.USD, AvailableMinor: -500}
		err := overdrawn.CheckAvailable(usd(1), false)
		assert.Equal(t, errors.CodeInsufficientFunds, errors.CodeOf(err))
	})

	t.Run("system account debits past zero", func(t *testing.T) {
		// The funding source runs negative by construction.
		overdrawn := Balance{Currency: valueobjects.USD, AvailableMinor: -1_000_000}
		assert.NoError(t, overdrawn.CheckAvailable(usd(50000), true))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		err := b.CheckAvailable(valueobjects.MustNewMoney(100, valueobjects.EUR), false)
		assert.Equal(t, errors.CodeCurrencyMismatch, errors.CodeOf(err))
	})
}

func TestBalance_CheckHeld(t *testing.T) {
	b := Balance{Currency: valueobjects.USD, HeldMinor: 500}

	assert.NoError(t, b.CheckHeld(usd(500)))

	err := b.CheckHeld(usd(501))
	assert.Equal(t, errors.CodeInsufficientFunds, errors.CodeOf(err))

	err = b.CheckHeld(valueobjects.MustNewMoney(1, valueobjects.EUR))
	assert.Equal(t, errors.CodeCurrencyMismatch, errors.CodeOf(err))
}
