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
)

// CreateHoldUseCase reserves the caller's funds for a recipient: one HOLD
// entry moving the amount from AVAILABLE to HELD on the payer's account.
type CreateHoldUseCase struct {
	executor    *IdempotentExecutor
	resolver    *RecipientResolver
	authorizer  *Authorizer
	walletRepo  ports.WalletRepository
	accountRepo ports.AccountRepository
	journalRepo ports.JournalRepository
	holdRepo    ports.HoldRepository
	outbox      ports.OutboxRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewCreateHoldUseCase(
	executor *IdempotentExecutor,
	resolver *RecipientResolver,
	authorizer *Authorizer,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	journalRepo ports.JournalRepository,
	holdRepo ports.HoldRepository,
	outbox ports.OutboxRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *CreateHoldUseCase {
	return &CreateHoldUseCase{
		executor:    executor,
		resolver:    resolver,
		authorizer:  authorizer,
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		holdRepo:    holdRepo,
		outbox:      outbox,
		clock:       clock,
		logger:      logger,
	}
}

func (uc *CreateHoldUseCase) Execute(ctx context.Context, key *entities.APIKey, cmd dtos.CreateHoldCommand) (*Outcome, error) {
	if err := key.RequireScope(entities.ScopeHold); err != nil {
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
			payerWallet, payerAcc, err := loadSenderAccount(txCtx, uc.walletRepo, uc.accountRepo, key.WalletID(), amount.Currency())
			if err != nil {
				return nil, 0, err
			}
			payeeWallet, payeeAcc, err := loadRecipientAccount(txCtx, uc.resolver, uc.accountRepo, cmd.Recipient, amount.Currency())
			if err != nil {
				return nil, 0, err
			}
			if payeeWallet.ID() == payerWallet.ID() {
				return nil, 0, errors.New(errors.CodeSelfTransfer, "cannot hold funds for your own wallet")
			}

			// A hold only moves money between the payer's own buckets; the
			// payee is recorded on the hold for the later capture.
			if _, err := lockAccounts(txCtx, uc.accountRepo, payerAcc.ID()); err != nil {
				return nil, 0, err
			}
			if err := uc.authorizer.CheckSpend(txCtx, key, payerAcc.ID(), amount); err != nil {
				return nil, 0, err
			}
			if err := checkAvailable(txCtx, uc.accountRepo, payerAcc, amount); err != nil {
				return nil, 0, err
			}

			entry, err := buildHoldEntry(payerAcc.ID(), amount, cmd.Description)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.journalRepo.SaveEntry(txCtx, entry); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "posting hold", err)
			}

			now := uc.clock.Now()
			expiresAt := now.Add(time.Duration(cmd.TTLSeconds) * time.Second)
			hold, err := entities.NewHold(payerAcc.ID(), payeeAcc.ID(), amount, entry.ID(), expiresAt, now)
			if err != nil {
				return nil, 0, err
			}
			if err := uc.holdRepo.Save(txCtx, hold); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "saving hold", err)
			}

			event := events.NewHoldCreated(hold.ID(), payerAcc.ID(), payeeAcc.ID(), amount, expiresAt)
			if err := uc.outbox.Save(txCtx, event); err != nil {
				return nil, 0, errors.Wrap(errors.CodeStore, "queueing event", err)
			}

			uc.logger.InfoContext(txCtx, "hold created",
				slog.String("hold_id", hold.ID().String()),
				slog.String("amount", amount.String()),
				slog.Time("expires_at", expiresAt))

			return dtos.ToHoldDTO(hold), http.StatusCreated, nil
		})
}
