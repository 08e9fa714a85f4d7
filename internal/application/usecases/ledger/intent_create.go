package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/google/uuid"
)

// CreateIntentUseCase opens a payment intent payable to the caller's wallet.
// Nothing is reserved: an intent is a priced invitation, not a hold.
type CreateIntentUseCase struct {
	executor    *IdempotentExecutor
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	intentRepo  ports.IntentRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewCreateIntentUseCase(
	executor *IdempotentExecutor,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	intentRepo ports.IntentRepository,
	outbox ports.OutboxRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *CreateIntentUseCase {
	return &CreateIntentUseCase{
		executor:    executor,
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		intentRepo:  intentRepo,
		outbox:      outbox,
		clock:       clock,
		logger:      logger,
	}
}

func (uc *CreateIntentUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CreateIntentCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeIntentCreate); err != nil {
		return nil, err
	}
	amount, err := parseAmount(cmd.Amount, cmd.CurrencyCode)
	if err != nil {
		return nil, err
	}
	if cmd.TTLSeconds <= 0 {
		return nil, errors.New(errors.CodeValidation, "ttl must be positive")
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			wallet, err := uc.walletRepo.FindByID(txCtx, key.WalletID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading wallet", err)
			}
			// A frozen payee cannot mint new intents.
			if err := wallet.CanReceive(); err != nil {
				return nil, 0, err
			}
			account, err := uc.accountRepo.FindByWallet(txCtx, wallet.ID(), amount.Currency())
			if err != nil {
				if errors.IsNotFound(err) {
					return nil, 0, errors.Newf(errors.CodeCurrencyMismatch,
						"wallet has no %s account", amount.Currency().Code())
				}
				return nil, 0, errors.Wrap(errors.CodeStore, "loading account", err)
			}

			now := uc.clock.Now()
			expiresAt := now.Add(time.Duration(cmd.TTLSeconds) * time.Second)
			intent, err := entities.NewPaymentIntent(account.ID(), amount, cmd.Description, expiresAt, now)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.intentRepo.Save(txCtx, intent); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "saving intent", err)
			}
			if err := uc.outbox.Save(txCtx, events.NewIntentCreated(intent.ID(), account.ID(), amount, expiresAt)); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "intent created",
				slog.String("intent_id", intent.ID().String()),
				slog.String("amount", amount.String()))

			return dtos.ToIntentDTO(intent), http.StatusCreated, nil
		})
}

// expireIntentIfDue persists the lazy PENDING→EXPIRED transition in its own
// transaction. Intents reserve nothing, so there is no entry to post.
func expireIntentIfDue(ctx context.Context, uow ports.UnitOfWork, intentRepo ports.IntentRepository, clock ports.Clock, intentID uuid.UUID) error {
	return uow.Execute(ctx, func(txCtx context.Context) error {
		intent, err := intentRepo.FindByID(txCtx, intentID)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil
			}
			return errors.Wrap(errors.CodeStore, "loading intent", err)
		}
		if !intent.ExpireIfDue(clock.Now()) {
			return nil
		}
		return intentRepo.Update(txCtx, intent)
	})
}
