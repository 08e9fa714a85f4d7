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
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// CaptureHoldUseCase settles part or all of a hold into the payee's
// available balance. Partial captures leave the hold PARTIALLY_CAPTURED and
// capturable for the rest.
type CaptureHoldUseCase struct {
	executor    *IdempotentExecutor
	expirer     *HoldExpirer
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	holdRepo    ports.HoldRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewCaptureHoldUseCase(
	executor *IdempotentExecutor,
	expirer *HoldExpirer,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	holdRepo ports.HoldRepository,
	outbox ports.OutboxRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *CaptureHoldUseCase {
	return &CaptureHoldUseCase{
		executor:    executor,
		expirer:     expirer,
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		holdRepo:    holdRepo,
		outbox:      outbox,
		clock:       clock,
		logger:      logger,
	}
}

func (uc *CaptureHoldUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CaptureHoldCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeCapture); err != nil {
		return nil, err
	}
	holdID, err := uuid.Parse(cmd.HoldID)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "hold id must be a UUID")
	}

	// Lazy expiry runs in its own committed transaction so the EXPIRED
	// transition and its release entry survive even though the capture
	// below fails with HOLD_EXPIRED.
	if err := uc.expirer.ExpireIfDue(ctx, holdID); err != nil {
		return nil, err
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			hold, payerAcc, err := loadOwnedHold(txCtx, uc.holdRepo, uc.accountRepo, holdID, key.WalletID())
			if err != nil {
				return nil, 0, err
			}

			if _, err := lockAccounts(txCtx, uc.accountRepo, hold.PayerAccountID(), hold.PayeeAccountID()); err != nil {
				return nil, 0, err
			}
			// Reload under lock: a racing capture may have consumed the rest.
			hold, _, err = loadOwnedHold(txCtx, uc.holdRepo, uc.accountRepo, holdID, key.WalletID())
			if err != nil {
				return nil, 0, err
			}

			amount, err := uc.captureAmount(cmd.Amount, hold)
			if err != nil {
				return nil, 0, err
			}
			if err := hold.Capture(amount, uc.clock.Now()); err != nil {
				return nil, 0, err
			}

			entry, err := buildCaptureEntry(hold.PayerAccountID(), hold.PayeeAccountID(), amount, hold.EntryID(), "capture")
			if err != nil {
				return nil, 0, err
			}
			if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "posting capture", err)
			}
			if err := uc.holdRepo.Update(txCtx, hold); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "updating hold", err)
			}

			event := events.NewHoldCaptured(hold.ID(), entry.ID(), amount, hold.Remaining())
			if err := uc.outbox.Save(txCtx, event); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "hold captured",
				slog.String("hold_id", hold.ID().String()),
				slog.String("entry_id", entry.ID().String()),
				slog.String("amount", amount.String()),
				slog.String("payer_account", payerAcc.ID().String()))

			return dtos.CaptureResultDTO{
				Hold:  dtos.ToHoldDTO(hold),
				Entry: dtos.ToEntryDTO(entry),
			}, http.StatusCreated, nil
		})
}

// captureAmount resolves the requested amount; empty means "whatever is
// still held".
func (uc *CaptureHoldUseCase) captureAmount(amountStr string, hold *entities.Hold) (valueobjects.Money, error) {
	if amountStr == "" {
		return hold.Remaining(), nil
	}
	return parseAmount(amountStr, hold.Amount().Currency().Code())
}
