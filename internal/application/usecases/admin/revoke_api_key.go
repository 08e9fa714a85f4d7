package admin

import (
	"context"
	"log/slog"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// RevokeAPIKeyUseCase permanently deactivates a key. Requests already in
// flight finish; the next authentication attempt fails.
type RevokeAPIKeyUseCase struct {
	uow     ports.UnitOfWork
	keyRepo ports.APIKeyRepository
	clock   ports.Clock
	logger  *slog.Logger
}

func NewRevokeAPIKeyUseCase(uow ports.UnitOfWork, keyRepo ports.APIKeyRepository, clock ports.Clock, logger *slog.Logger) *RevokeAPIKeyUseCase {
	return &RevokeAPIKeyUseCase{uow: uow, keyRepo: keyRepo, clock: clock, logger: logger}
}

func (uc *RevokeAPIKeyUseCase) Execute(ctx context.Context, cmd dtos.RevokeAPIKeyCommand) error {
	keyID, err := uuid.Parse(cmd.APIKeyID)
	if err != nil {
		return errors.New(errors.CodeValidation, "api key id must be a UUID")
	}

	return uc.uow.Execute(ctx, func(txCtx context.Context) error {
		key, err := uc.keyRepo.FindByID(txCtx, keyID)
		if err != nil {
			if errors.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "api key not found")
			}
			return errors.Wrap(errors.CodeStore, "loading api key", err)
		}

		key.Revoke(uc.clock.Now())
		if err := uc.keyRepo.Update(txCtx, key); err != nil {
			return errors.Wrap(errors.CodeStore, "revoking api key", err)
		}

		uc.logger.InfoContext(txCtx, "api key revoked", slog.String("api_key_id", keyID.String()))
		return nil
	})
}
