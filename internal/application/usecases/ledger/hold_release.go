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

// ReleaseHoldUseCase ends a hold early and returns the uncaptured remainder
// to the payer's available bucket.
type ReleaseHoldUseCase struct {
	executor    *IdempotentExecutor
	expirer     *HoldExpirer
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	holdRepo    ports.HoldRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewReleaseHoldUseCase(
	executor *IdempotentExecutor,
	expirer *HoldExpirer,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	holdRepo ports.HoldRepository,
	outbox ports.OutboxRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *ReleaseHoldUseCase {
	return &ReleaseHoldUseCase{
		executor:    executor,
		expirer:     expirer,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		holdRepo:    holdRepo,
		outbox:      outbox,
		clock:       clock,
		logger:      logger,
	}
}

func (uc *ReleaseHoldUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.ReleaseHoldCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeHold); err != nil {
		return nil, err
	}
	holdID, err := uuid.Parse(cmd.HoldID)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "hold id must be a UUID")
	}

	if err := uc.expirer.ExpireIfDue(ctx, holdID); err != nil {
		return nil, err
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			if _, err := uc.lockHoldPayer(txCtx, holdID, key.WalletID()); err != nil {
				return nil, 0, err
			}
			hold, _, err := loadOwnedHold(txCtx, uc.holdRepo, uc.accountRepo, holdID, key.WalletID())
			if err != nil {
				return nil, 0, err
			}

			returned, err := hold.Release(uc.clock.Now())
			if err != nil {
				return nil, 0, err
			}

			if returned.IsPositive() {
				entry, err := buildReleaseEntry(hold.PayerAccountID(), returned, hold.EntryID(), "hold released")
				if err != nil {
					return nil, 0, err
				}
				if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
					return nil, 0, errors.Wrap(errors.CodeStore, "posting release", err)
				}
			}
			if err := uc.holdRepo.Update(txCtx, hold); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "updating hold", err)
			}
			if err := uc.outbox.Save(txCtx, events.NewHoldReleased(hold.ID(), returned)); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "hold released",
				slog.String("hold_id", hold.ID().String()),
				slog.String("returned", returned.String()))

			return dtos.ToHoldDTO(hold), http.StatusOK, nil
		})
}

// lockHoldPayer locks the payer account of the hold before the state checks.
func (uc *ReleaseHoldUseCase) lockHoldPayer(txCtx context.Context, holdID, walletID uuid.UUID) (*entities.Hold, error) {
	hold, _, err := loadOwnedHold(txCtx, uc.holdRepo, uc.accountRepo, holdID, walletID)
	if err != nil {
		return nil, err
	}
	if _, err := lockAccounts(txCtx, uc.accountRepo, hold.PayerAccountID()); err != nil {
		return nil, err
	}
	return hold, nil
}
