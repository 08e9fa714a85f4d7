package admin

import (
	"context"
	"log/slog"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// SetWalletStatusUseCase freezes or unfreezes a wallet. Frozen wallets keep
// their balance and history but cannot send or receive.
type SetWalletStatusUseCase struct {
	uow        ports.UnitOfWork
	walletRepo ports.WalletRepository
	logger     *slog.Logger
}

func NewSetWalletStatusUseCase(uow ports.UnitOfWork, walletRepo ports.WalletRepository, logger *slog.Logger) *SetWalletStatusUseCase {
	return &SetWalletStatusUseCase{uow: uow, walletRepo: walletRepo, logger: logger}
}

func (uc *SetWalletStatusUseCase) Execute(ctx context.Context, cmd dtos.SetWalletStatusCommand) error {
	walletID, err := uuid.Parse(cmd.WalletID)
	if err != nil {
		return errors.New(errors.CodeValidation, "wallet id must be a UUID")
	}

	var status entities.WalletStatus
	switch cmd.Status {
	case string(entities.WalletStatusActive):
		status = entities.WalletStatusActive
	case string(entities.WalletStatusFrozen):
		status = entities.WalletStatusFrozen
	default:
		return errors.Newf(errors.CodeValidation, "status must be %s or %s",
			entities.WalletStatusActive, entities.WalletStatusFrozen)
	}

	return uc.uow.Execute(ctx, func(txCtx context.Context) error {
		if _, err := uc.walletRepo.FindByID(txCtx, walletID); err != nil {
			if errors.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "wallet not found")
			}
			return errors.Wrap(errors.CodeStore, "loading wallet", err)
		}
		if err := uc.walletRepo.UpdateStatus(txCtx, walletID, status); err != nil {
			return err
		}

		uc.logger.InfoContext(txCtx, "wallet status changed",
			slog.String("wallet_id", walletID.String()),
			slog.String("status", string(status)))
		return nil
	})
}
