package ledger

import (
	"context"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
)

// GetBalanceUseCase derives the caller's balance from the journal.
type GetBalanceUseCase struct {
	accountRepo ports.AccountRepository
}

func NewGetBalanceUseCase(accountRepo ports.AccountRepository) *GetBalanceUseCase {
	return &GetBalanceUseCase{accountRepo: accountRepo}
}

func (uc *GetBalanceUseCase) Execute(ctx context.Context, key *entities.APIKey, currencyCode string) (dtos.BalanceDTO, error) {
	if err := key.RequireScope(entities.ScopeRead); err != nil {
		return dtos.BalanceDTO{}, err
	}
	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return dtos.BalanceDTO{}, errors.Newf(errors.CodeValidation, "unsupported currency %q", currencyCode)
	}

	account, err := uc.accountRepo.FindByWallet(ctx, key.WalletID(), currency)
	if err != nil {
		if errors.IsNotFound(err) {
			return dtos.BalanceDTO{}, errors.Newf(errors.CodeCurrencyMismatch,
				"wallet has no %s account", currency.Code())
		}
		return dtos.BalanceDTO{}, errors.Wrap(errors.CodeStore, "loading account", err)
	}
	balance, err := uc.accountRepo.GetBalance(ctx, account.ID())
	if err != nil {
		return dtos.BalanceDTO{}, errors.Wrap(errors.CodeStore, "deriving balance", err)
	}
	return dtos.ToBalanceDTO(key.WalletID().String(), balance), nil
}
