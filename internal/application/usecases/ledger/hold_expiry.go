package ledger

import (
	"context"
	"log/slog"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/google/uuid"
)

// HoldExpirer performs the lazy-expiry transition. Every operation that
// touches a hold runs ExpireIfDue first, in its own committed transaction,
// so a hold past its deadline is observed as EXPIRED no matter whether a
// sweeper ever ran. The expiry posts the RELEASE entry that returns the
// remainder to the payer's available bucket.
type HoldExpirer struct {
	uow         ports.UnitOfWork
	holdRepo    ports.HoldRepository
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewHoldExpirer(
	uow ports.UnitOfWork,
	holdRepo ports.HoldRepository,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	outbox ports.OutboxRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *HoldExpirer {
	return &HoldExpirer{
		uow:         uow,
		holdRepo:    holdRepo,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		outbox:      outbox,
		clock:       clock,
		logger:      logger,
	}
}

// ExpireIfDue transitions the hold when its deadline has passed. A hold that
// is not due, already terminal, or missing is left untouched; the caller
// re-reads it afterwards and reacts to whatever state it finds.
func (e *HoldExpirer) ExpireIfDue(ctx context.Context, holdID uuid.UUID) error {
	return e.uow.ExecuteWithRetry(ctx, func(txCtx context.Context) error {
		hold, err := e.holdRepo.FindByID(txCtx, holdID)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil
			}
			return errors.Wrap(errors.CodeStore, "loading hold", err)
		}
		now := e.clock.Now()
		if !hold.IsCapturable() || now.Before(hold.ExpiresAt()) {
			return nil
		}

		// Re-read under the payer's lock: a racing capture may have finished
		// the hold between the unlocked read and here.
		if _, err := lockAccounts(txCtx, e.accountRepo, hold.PayerAccountID()); err != nil {
			return err
		}
		hold, err = e.holdRepo.FindByID(txCtx, holdID)
		if err != nil {
			return errors.Wrap(errors.CodeStore, "reloading hold", err)
		}

		returned, expired := hold.ExpireIfDue(now)
		if !expired {
			return nil
		}

		entry, err := buildReleaseEntry(hold.PayerAccountID(), returned, hold.EntryID(), "hold expired")
		if err != nil {
			return err
		}
		if err := e.journalRepo.SaveEntry(txCtx, entry); err != nil {
			return errors.Wrap(errors.CodeStore, "posting expiry release", err)
		}
		if err := e.holdRepo.Update(txCtx, hold); err != nil {
			return errors.Wrap(errors.CodeStore, "updating hold", err)
		}
		if err := e.outbox.Save(txCtx, events.NewHoldExpired(hold.ID(), returned)); err != nil {
			return errors.Wrap(errors.CodeStore, "queueing event", err)
		}

		e.logger.InfoContext(txCtx, "hold expired",
			slog.String("hold_id", hold.ID().String()),
			slog.String("returned", returned.String()))
		return nil
	})
}
