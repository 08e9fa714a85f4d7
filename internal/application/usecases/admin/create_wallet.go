// Package admin contains the operator-facing use cases: provisioning
// wallets, issuing and revoking API keys and freezing wallets. These run
// behind the admin JWT surface, not behind API keys.
package admin

import (
	"context"
	"log/slog"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
)

// CreateWalletUseCase provisions a wallet with one ledger account and,
// optionally, an external identity binding for ext:provider:id resolution.
type CreateWalletUseCase struct {
	uow          ports.UnitOfWork
	walletRepo   ports.WalletRepository
	accountRepo  ports.AccountRepository
	identityRepo ports.ExternalIdentityRepository
	outbox       ports.OutboxRepository
	logger       *slog.Logger
}

func NewCreateWalletUseCase(
	uow ports.UnitOfWork,
	walletRepo ports.WalletRepository,
	accountRepo ports.AccountRepository,
	identityRepo ports.ExternalIdentityRepository,
	outbox ports.OutboxRepository,
	logger *slog.Logger,
) *CreateWalletUseCase {
	return &CreateWalletUseCase{
		uow:          uow,
		walletRepo:   walletRepo,
		accountRepo:  accountRepo,
		identityRepo: identityRepo,
		outbox:       outbox,
		logger:       logger,
	}
}

func (uc *CreateWalletUseCase) Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (dtos.WalletDTO, error) {
	currency, err := valueobjects.NewCurrency(cmd.CurrencyCode)
	if err != nil {
		return dtos.WalletDTO{}, errors.Newf(errors.CodeValidation, "unsupported currency %q", cmd.CurrencyCode)
	}
	if (cmd.Provider == nil) != (cmd.ExternalID == nil) {
		return dtos.WalletDTO{}, errors.New(errors.CodeValidation, "provider and external_id go together")
	}

	var result dtos.WalletDTO
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		wallet, err := entities.NewWallet(cmd.DisplayName, cmd.Handle)
		if err != nil {
			return err
		}
		if err := uc.walletRepo.Save(txCtx, wallet); err != nil {
			if errors.Is(err, errors.ErrEntityAlreadyExists) {
				return errors.Newf(errors.CodeValidation, "handle %q is already taken", cmd.Handle)
			}
			return errors.Wrap(errors.CodeStore, "saving wallet", err)
		}

		account, err := entities.NewLedgerAccount(wallet.ID(), currency, entities.AccountTypeUser)
		if err != nil {
			return err
		}
		if err := uc.accountRepo.Save(txCtx, account); err != nil {
			return errors.Wrap(errors.CodeStore, "saving account", err)
		}

		if cmd.Provider != nil {
			identity, err := entities.NewExternalIdentity(wallet.ID(), *cmd.Provider, *cmd.ExternalID)
			if err != nil {
				return err
			}
			if err := uc.identityRepo.Save(txCtx, identity); err != nil {
				if errors.Is(err, errors.ErrEntityAlreadyExists) {
					return errors.New(errors.CodeValidation, "external identity is already bound to a wallet")
				}
				return errors.Wrap(errors.CodeStore, "saving external identity", err)
			}
		}

		if err := uc.outbox.Save(txCtx, events.NewWalletCreated(wallet.ID(), wallet.Handle(), currency)); err != nil {
			return errors.Wrap(errors.CodeStore, "queueing event", err)
		}

		uc.logger.InfoContext(txCtx, "wallet created",
			slog.String("wallet_id", wallet.ID().String()),
			slog.String("currency", currency.Code()))

		result = dtos.ToWalletDTO(wallet, account)
		return nil
	})
	if err != nil {
		return dtos.WalletDTO{}, err
	}
	return result, nil
}
