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

// TransferUseCase moves available funds from the caller's wallet to a
// recipient as one balanced TRANSFER entry.
type TransferUseCase struct {
	executor    *IdempotentExecutor
	resolver    *RecipientResolver
	authorizer  *Authorizer
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	outbox      ports.OutboxRepository
	logger      *slog.Logger
}

func NewTransferUseCase(
	executor *IdempotentExecutor,
	resolver *RecipientResolver,
	authorizer *Authorizer,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	outbox ports.OutboxRepository,
	logger *slog.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		executor:    executor,
		resolver:    resolver,
		authorizer:  authorizer,
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		outbox:      outbox,
		logger:      logger,
	}
}

// Execute runs the transfer for the authenticated API key.
//
// Order of checks (the cheap and non-snapshotted ones first):
// scope → structural validation → idempotency reserve → wallet states,
// recipient, locks, limits, balance → post.
func (uc *TransferUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.TransferCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeTransfer); err != nil {
		return nil, err
	}
	amount, err := parseAmount(cmd.Amount, cmd.CurrencyCode)
	if err != nil {
		return nil, err
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			payerWallet, payerAcc, err := loadSenderAccount(txCtx, uc.walletRepo, uc.accountRepo, key.WalletID(), amount.Currency())
			if err != nil {
				return nil, 0, err
			}
			payeeWallet, payeeAcc, err := loadRecipientAccount(txCtx, uc.resolver, uc.accountRepo, cmd.Recipient, amount.Currency())
			if err != nil {
				return nil, 0, err
			}
			if payeeWallet.ID() == payerWallet.ID() {
				return nil, 0, errors.New(errors.CodeSelfTransfer, "cannot transfer to your own wallet")
			}

			if _, err := lockAccounts(txCtx, uc.accountRepo, payerAcc.ID(), payeeAcc.ID()); err != nil {
				return nil, 0, err
			}
			if err := uc.authorizer.CheckSpend(txCtx, key, payerAcc.ID(), amount); err != nil {
				return nil, 0, err
			}
			if err := checkAvailable(txCtx, uc.accountRepo, payerAcc, amount); err != nil {
				return nil, 0, err
			}

			entry, err := buildTransferEntry(payerAcc.ID(), payeeAcc.ID(), amount, cmd.Description)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "posting transfer", err)
			}

			event := events.NewEntryPosted(entry.ID(), string(entry.Kind()), amount,
				payerAcc.ID(), payeeAcc.ID(), entry.CreatedAt())
			if err := uc.outbox.Save(txCtx, event); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "transfer posted",
				slog.String("entry_id", entry.ID().String()),
				slog.String("amount", amount.String()),
				slog.String("currency", amount.Currency().Code()))

			return dtos.ToEntryDTO(entry), http.StatusCreated, nil
		})
}
