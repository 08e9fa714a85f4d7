package ledger

import (
	"context"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
)

const defaultPageSize = 20

// ListTransactionsUseCase pages the caller's journal entries, newest first,
// with opaque cursors.
type ListTransactionsUseCase struct {
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
}

func NewListTransactionsUseCase(accountRepo ports.AccountRepository, journalRepo ports.JournalRepository) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{accountRepo: accountRepo, journalRepo: journalRepo}
}

func (uc *ListTransactionsUseCase) Execute(ctx context.Context, key *entities.APIKey, currencyCode string, query dtos.ListTransactionsQuery) (dtos.TransactionListDTO, error) {
	if err := key.RequireScope(entities.ScopeRead); err != nil {
		return dtos.TransactionListDTO{}, err
	}
	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return dtos.TransactionListDTO{}, errors.Newf(errors.CodeValidation, "unsupported currency %q", currencyCode)
	}

	account, err := uc.accountRepo.FindByWallet(ctx, key.WalletID(), currency)
	if err != nil {
		if errors.IsNotFound(err) {
			return dtos.TransactionListDTO{}, errors.Newf(errors.CodeCurrencyMismatch,
				"wallet has no %s account", currency.Code())
		}
		return dtos.TransactionListDTO{}, errors.Wrap(errors.CodeStore, "loading account", err)
	}

	filter := ports.JournalFilter{}
	if query.Kind != "" {
		kind := entities.EntryKind(query.Kind)
		if !kind.IsValid() {
			return dtos.TransactionListDTO{}, errors.Newf(errors.CodeValidation, "unknown entry kind %q", query.Kind)
		}
		filter.Kind = &kind
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	page, err := uc.journalRepo.ListByAccount(ctx, account.ID(), filter, query.Cursor, limit)
	if err != nil {
		return dtos.TransactionListDTO{}, errors.Wrap(errors.CodeStore, "listing entries", err)
	}

	out := dtos.TransactionListDTO{
		Entries:    make([]dtos.EntryDTO, 0, len(page.Entries)),
		NextCursor: page.NextCursor,
	}
	for _, entry := range page.Entries {
		out.Entries = append(out.Entries, dtos.ToEntryDTO(entry))
	}
	return out, nil
}
