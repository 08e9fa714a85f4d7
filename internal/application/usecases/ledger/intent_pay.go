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
	"github.com/google/uuid"
)

// PayIntentUseCase settles a pending intent from the caller's wallet. The
// intent fixes amount and payee; the caller only consents.
type PayIntentUseCase struct {
	executor    *IdempotentExecutor
	authorizer  *Authorizer
	uow         ports.UnitOfWork
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	intentRepo  ports.IntentRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewPayIntentUseCase(
	executor *IdempotentExecutor,
	authorizer *Authorizer,
	uow ports.UnitOfWork,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	intentRepo ports.IntentRepository,
	outbox ports.OutboxRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *PayIntentUseCase {
	return &PayIntentUseCase{
		executor:    executor,
		authorizer:  authorizer,
		uow:         uow,
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		intentRepo:  intentRepo,
		outbox:      outbox,
		clock:       clock,
		logger:      logger,
	}
}

func (uc *PayIntentUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.PayIntentCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeIntentPay); err != nil {
		return nil, err
	}
	intentID, err := uuid.Parse(cmd.IntentID)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "intent id must be a UUID")
	}

	if err := expireIntentIfDue(ctx, uc.uow, uc.intentRepo, uc.clock, intentID); err != nil {
		return nil, err
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			intent, err := uc.intentRepo.FindByID(txCtx, intentID)
			if err != nil {
				if errors.IsNotFound(err) {
					return nil, 0, errors.New(errors.CodeNotFound, "intent not found")
				}
				return nil, 0, errors.Wrap(errors.CodeStore, "loading intent", err)
			}
			amount := intent.Amount()

			_, payerAcc, err := loadSenderAccount(txCtx, uc.walletRepo, uc.accountRepo, key.WalletID(), amount.Currency())
			if err != nil {
				return nil, 0, err
			}
			payeeAcc, err := uc.accountRepo.FindByID(txCtx, intent.PayeeAccountID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading payee account", err)
			}
			payeeWallet, err := uc.walletRepo.FindByID(txCtx, payeeAcc.WalletID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading payee wallet", err)
			}
			if err := payeeWallet.CanReceive(); err != nil {
				return nil, 0, err
			}

			if _, err := lockAccounts(txCtx, uc.accountRepo, payerAcc.ID(), payeeAcc.ID()); err != nil {
				return nil, 0, err
			}
			// Reload under lock: only one payer wins a racing intent.
			intent, err = uc.intentRepo.FindByID(txCtx, intentID)
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "reloading intent", err)
			}

			if err := uc.authorizer.CheckSpend(txCtx, key, payerAcc.ID(), amount); err != nil {
				return nil, 0, err
			}
			if err := checkAvailable(txCtx, uc.accountRepo, payerAcc, amount); err != nil {
				return nil, 0, err
			}

			entry, err := buildIntentPayEntry(payerAcc.ID(), payeeAcc.ID(), amount, intent.Description())
			if err != nil {
				return nil, 0, err
			}
			if err := intent.Pay(payerAcc.ID(), entry.ID(), uc.clock.Now()); err != nil {
				return nil, 0, err
			}
			if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "posting intent payment", err)
			}
			if err := uc.intentRepo.Update(txCtx, intent); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "updating intent", err)
			}
			if err := uc.outbox.Save(txCtx, events.NewIntentPaid(intent.ID(), entry.ID(), payerAcc.ID(), amount)); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "intent paid",
				slog.String("intent_id", intent.ID().String()),
				slog.String("entry_id", entry.ID().String()),
				slog.String("amount", amount.String()))

			return dtos.ToIntentDTO(intent), http.StatusOK, nil
		})
}
