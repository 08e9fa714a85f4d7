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

// RefundUseCase reverses part or all of a capture: money flows back from the
// capture's payee to its payer in the available bucket. The sum of refunds
// against one capture never exceeds the captured amount, checked under the
// payee's lock.
type RefundUseCase struct {
	executor    *IdempotentExecutor
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	refundRepo  ports.RefundRepository
	outbox      ports.OutboxRepository
	logger      *slog.Logger
}

func NewRefundUseCase(
	executor *IdempotentExecutor,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	refundRepo ports.RefundRepository,
	outbox ports.OutboxRepository,
	logger *slog.Logger,
) *RefundUseCase {
	return &RefundUseCase{
		executor:    executor,
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		refundRepo:  refundRepo,
		outbox:      outbox,
		logger:      logger,
	}
}

func (uc *RefundUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.RefundCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeRefund); err != nil {
		return nil, err
	}
	captureEntryID, err := uuid.Parse(cmd.CaptureEntryID)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "capture entry id must be a UUID")
	}

	return uc.executor.Execute(ctx, key.ID(), cmd.IdempotencyKey, cmd.Canonical(),
		func(txCtx context.Context) (interface{}, int, error) {
			capture, err := uc.journalRepo.FindEntryByID(txCtx, captureEntryID)
			if err != nil {
				if errors.IsNotFound(err) {
					return nil, 0, errors.New(errors.CodeNotFound, "capture entry not found")
				}
				return nil, 0, errors.Wrap(errors.CodeStore, "loading capture entry", err)
			}
			if capture.Kind() != entities.EntryKindCapture {
				return nil, 0, errors.New(errors.CodeValidation, "entry is not a capture")
			}

			// The capture credited the payee's available bucket and debited
			// the payer's held bucket; those two lines name the parties.
			creditLine, ok := capture.CreditLine(entities.BucketAvailable)
			if !ok {
				return nil, 0, errors.New(errors.CodeStore, "capture entry has no credit line")
			}
			debitLine, ok := capture.DebitLine(entities.BucketHeld)
			if !ok {
				return nil, 0, errors.New(errors.CodeStore, "capture entry has no debit line")
			}

			payeeAcc, err := uc.accountRepo.FindByID(txCtx, creditLine.AccountID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading payee account", err)
			}
			if payeeAcc.WalletID() != key.WalletID() {
				// Only the wallet that received the capture may refund it.
				return nil, 0, errors.New(errors.CodeNotFound, "capture entry not found")
			}
			payeeWallet, err := uc.walletRepo.FindByID(txCtx, payeeAcc.WalletID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading payee wallet", err)
			}
			if err := payeeWallet.CanSend(); err != nil {
				return nil, 0, err
			}
			payerAcc, err := uc.accountRepo.FindByID(txCtx, debitLine.AccountID())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "loading payer account", err)
			}

			if _, err := lockAccounts(txCtx, uc.accountRepo, payeeAcc.ID(), payerAcc.ID()); err != nil {
				return nil, 0, err
			}

			captured := creditLine.Amount()
			refundedMinor, err := uc.journalRepo.SumRefundsForCapture(txCtx, captureEntryID)
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "summing prior refunds", err)
			}
			alreadyRefunded, err := valueobjects.NewMoney(refundedMinor, captured.Currency())
			if err != nil {
				return nil, 0, errors.Wrap(errors.CodeArithmetic, "prior refund total", err)
			}

			amount, err := uc.refundAmount(cmd.Amount, captured, alreadyRefunded)
			if err != nil {
				return nil, 0, err
			}
			if err := entities.CheckRefundable(captured, alreadyRefunded, amount); err != nil {
				return nil, 0, err
			}
			if err := checkAvailable(txCtx, uc.accountRepo, payeeAcc, amount); err != nil {
				return nil, 0, err
			}

			entry, err := buildRefundEntry(payeeAcc.ID(), payerAcc.ID(), amount, captureEntryID, cmd.Reason)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "posting refund", err)
			}
			refund, err := entities.NewRefund(captureEntryID, entry.ID(), amount, cmd.Reason)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.refundRepo.Save(txCtx, refund); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "saving refund", err)
			}
			if err := uc.outbox.Save(txCtx, events.NewRefundPosted(refund.ID(), entry.ID(), captureEntryID, amount)); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "refund posted",
				slog.String("refund_id", refund.ID().String()),
				slog.String("capture_entry_id", captureEntryID.String()),
				slog.String("amount", amount.String()))

			return dtos.ToRefundDTO(refund), http.StatusCreated, nil
		})
}

// refundAmount resolves the requested amount; empty means "everything still
// refundable".
func (uc *RefundUseCase) refundAmount(amountStr string, captured, alreadyRefunded valueobjects.Money) (valueobjects.Money, error) {
	if amountStr == "" {
		remaining, err := captured.Subtract(alreadyRefunded)
		if err != nil {
			return valueobjects.Money{}, errors.Wrap(errors.CodeArithmetic, "refundable remainder", err)
		}
		if !remaining.IsPositive() {
			return valueobjects.Money{}, errors.New(errors.CodeRefundExceedsCapture, "capture is fully refunded")
		}
		return remaining, nil
	}
	return parseAmount(amountStr, captured.Currency().Code())
}
