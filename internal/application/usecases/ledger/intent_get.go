package ledger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// GetIntentUseCase returns a payment intent. Intents are intentionally
// readable by any authenticated key: the payer needs to inspect one before
// paying it.
type GetIntentUseCase struct {
	uow        ports.UnitOfWork
	intentRepo ports.IntentRepository
	clock      ports.Clock
}

func NewGetIntentUseCase(uow ports.UnitOfWork, intentRepo ports.IntentRepository, clock ports.Clock) *GetIntentUseCase {
	return &GetIntentUseCase{uow: uow, intentRepo: intentRepo, clock: clock}
}

func (uc *GetIntentUseCase) Execute(ctx context.Context, key *entities.APIKey, intentIDStr string) (dtos.IntentDTO, error) {
	if err := key.RequireScope(entities.ScopeRead); err != nil {
		return dtos.IntentDTO{}, err
	}
	intentID, err := uuid.Parse(intentIDStr)
	if err != nil {
		return dtos.IntentDTO{}, errors.New(errors.CodeValidation, "intent id must be a UUID")
	}

	if err := expireIntentIfDue(ctx, uc.uow, uc.intentRepo, uc.clock, intentID); err != nil {
		return dtos.IntentDTO{}, err
	}

	intent, err := uc.intentRepo.FindByID(ctx, intentID)
	if err != nil {
		if errors.IsNotFound(err) {
			return dtos.IntentDTO{}, errors.New(errors.CodeNotFound, "intent not found")
		}
		return dtos.IntentDTO{}, errors.Wrap(errors.CodeStore, "loading intent", err)
	}
	return dtos.ToIntentDTO(intent), nil
}

// CancelIntentUseCase voids one of the caller's own pending intents.
type CancelIntentUseCase struct {
	executor    *IdempotentExecutor
	accountRepo ports.AccountRepository
	intentRepo  ports.IntentRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewCancelIntentUseCase(
	executor *IdempotentExecutor,
	accountRepo ports.AccountRepository,
	intentRepo ports.IntentRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *CancelIntentUseCase {
	return &CancelIntentUseCase{
		executor:    executor,
		accountRepo: accountRepo,
		intentRepo:  intentRepo,
		clock:       clock,
		logger:      logger,
	}
}

func (uc *CancelIntentUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.PayIntentCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeIntentCreate); err != nil {
		return nil, err
	}
	intentID, err := uuid.Parse(cmd.IntentID)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "intent id must be a UUID")
	}

	canonical := []byte("intent-cancel|intent=" + cmd.IntentID)
	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, canonical,
		func(txCtx context.Context) (interface{}, int, error) {
			intent, err := uc.intentRepo.FindByID(txCtx, intentID)
			if err != nil {
				if errors.IsNotFound(err) {
					return nil, 0, errors.New(errors.CodeNotFound, "intent not found")
				}
				return nil, 0, errors.Wrap(errors.CodeStore, "loading intent", err)
			}
			payeeAcc, err := uc.accountRepo.FindByID(txCtx, intent.PayeeAccountID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading payee account", err)
			}
			if payeeAcc.WalletID() != key.WalletID() {
				return nil, 0, errors.New(errors.CodeNotFound, "intent not found")
			}

			if err := intent.Cancel(uc.clock.Now()); err != nil {
				return nil, 0, err
			}
			if err := uc.intentRepo.Update(txCtx, intent); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "updating intent", err)
			}

			uc.logger.InfoContext(txCtx, "intent cancelled",
				slog.String("intent_id", intent.ID().String()))

			return dtos.ToIntentDTO(intent), http.StatusOK, nil
		})
}
