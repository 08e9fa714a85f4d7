package ledger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
)

// DepositUseCase credits a wallet from the system account. This is how money
// enters the ledger; the system account's available balance goes negative by
// exactly the total deposited, which keeps the accounting identity intact.
// Admin scope only.
type DepositUseCase struct {
	executor    *IdempotentExecutor
	resolver    *RecipientResolver
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	outbox      ports.OutboxRepository
	logger      *slog.Logger
}

func NewDepositUseCase(
	executor *IdempotentExecutor,
	resolver *RecipientResolver,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	outbox ports.OutboxRepository,
	logger *slog.Logger,
) *DepositUseCase {
	return &DepositUseCase{
		executor:    executor,
		resolver:    resolver,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		outbox:      outbox,
		logger:      logger,
	}
}

func (uc *DepositUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.DepositCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeAdmin); err != nil {
		return nil, err
	}
	amount, err := parseAmount(cmd.Amount, cmd.CurrencyCode)
	if err != nil {
		return nil, err
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			payeeWallet, payeeAcc, err := loadRecipientAccount(txCtx, uc.resolver, uc.accountRepo, cmd.Recipient, amount.Currency())
			if err != nil {
				return nil, 0, err
			}
			systemAcc, err := uc.accountRepo.FindSystemAccount(txCtx, amount.Currency())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading system account", err)
			}

			if _, err := lockAccounts(txCtx, uc.accountRepo, systemAcc.ID(), payeeAcc.ID()); err != nil {
				return nil, 0, err
			}

			entry, err := buildDepositEntry(systemAcc.ID(), payeeAcc.ID(), amount, cmd.Description)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "posting deposit", err)
			}
			if err := uc.outbox.Save(txCtx, events.NewDepositPosted(entry.ID(), payeeWallet.ID(), amount)); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "deposit posted",
				slog.String("entry_id", entry.ID().String()),
				slog.String("wallet_id", payeeWallet.ID().String()),
				slog.String("amount", amount.String()))

			return dtos.ToEntryDTO(entry), http.StatusCreated, nil
		})
}
