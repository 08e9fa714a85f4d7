package ledger

import (
	"context"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// Authorizer enforces scopes and spend limits for API keys.
//
// Scope checks are cheap and happen before any transaction. Spend-limit
// checks run inside the posting transaction while the payer's account is
// locked: the window sum and the new debit commit atomically, so two racing
// requests cannot both squeeze under the ceiling.
type Authorizer struct {
	journalRepo ports.JournalRepository
	clock       ports.Clock
}

func NewAuthorizer(journalRepo ports.JournalRepository, clock ports.Clock) *Authorizer {
	return &Authorizer{journalRepo: journalRepo, clock: clock}
}

// CheckSpend verifies the per-transaction cap and the rolling-window ceiling
// for a debit of amount from the payer's account. Must be called with the
// payer's account locked in txCtx.
func (a *Authorizer) CheckSpend(txCtx context.Context, key *entities.APIKey, payerAccountID uuid.UUID, amount valueobjects.Money) error {
	limits := key.Limits()

	if limits.PerTxMaxMinor != nil && amount.MinorUnits() > *limits.PerTxMaxMinor {
		max := valueobjects.MustNewMoney(*limits.PerTxMaxMinor, amount.Currency())
		return errors.New(errors.CodeLimitExceeded, "amount exceeds per-transaction limit").
			WithDetails(map[string]interface{}{
				"per_tx_max": max.String(),
				"requested":  amount.String(),
			})
	}

	if limits.WindowCeiling == nil {
		return nil
	}

	since := a.clock.Now().Add(-limits.Window)
	spentMinor, err := a.journalRepo.SumDebitsSince(txCtx, payerAccountID, since)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "summing window spend", err)
	}
	if spentMinor+amount.MinorUnits() > *limits.WindowCeiling {
		ceiling := valueobjects.MustNewMoney(*limits.WindowCeiling, amount.Currency())
		spent := valueobjects.MustNewMoney(spentMinor, amount.Currency())
		return errors.New(errors.CodeLimitExceeded, "amount exceeds spend window ceiling").
			WithDetails(map[string]interface{}{
				"window_ceiling": ceiling.String(),
				"window_spent":   spent.String(),
				"requested":      amount.String(),
			})
	}
	return nil
}
