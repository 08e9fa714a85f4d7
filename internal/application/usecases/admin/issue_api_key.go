package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/Haleralex/walletledger/internal/pkg/secrets"
	"github.com/google/uuid"
)

// IssueAPIKeyUseCase mints an API key for a wallet. The plaintext secret is
// returned exactly once and only its argon2id hash is persisted.
type IssueAPIKeyUseCase struct {
	uow        ports.UnitOfWork
	walletRepo ports.WalletRepository
	keyRepo    ports.APIKeyRepository
	logger     *slog.Logger
}

func NewIssueAPIKeyUseCase(
	uow ports.UnitOfWork,
	walletRepo ports.WalletRepository,
	keyRepo ports.APIKeyRepository,
	logger *slog.Logger,
) *IssueAPIKeyUseCase {
	return &IssueAPIKeyUseCase{uow: uow, walletRepo: walletRepo, keyRepo: keyRepo, logger: logger}
}

func (uc *IssueAPIKeyUseCase) Execute(ctx context.Context, cmd dtos.IssueAPIKeyCommand) (dtos.IssuedAPIKeyDTO, error) {
	walletID, err := uuid.Parse(cmd.WalletID)
	if err != nil {
		return dtos.IssuedAPIKeyDTO{}, errors.New(errors.CodeValidation, "wallet id must be a UUID")
	}

	scopes := make([]entities.Scope, 0, len(cmd.Scopes))
	for _, s := range cmd.Scopes {
		scopes = append(scopes, entities.Scope(s))
	}

	limits, err := parseLimits(cmd)
	if err != nil {
		return dtos.IssuedAPIKeyDTO{}, err
	}

	secret, err := secrets.GenerateSecret()
	if err != nil {
		return dtos.IssuedAPIKeyDTO{}, errors.Wrap(errors.CodeStore, "generating key secret", err)
	}
	keyHash, err := secrets.HashSecret(secret)
	if err != nil {
		return dtos.IssuedAPIKeyDTO{}, errors.Wrap(errors.CodeStore, "hashing key secret", err)
	}

	var result dtos.IssuedAPIKeyDTO
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		if _, err := uc.walletRepo.FindByID(txCtx, walletID); err != nil {
			if errors.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "wallet not found")
			}
			return errors.Wrap(errors.CodeStore, "loading wallet", err)
		}

		key, err := entities.NewAPIKey(walletID, keyHash, cmd.Label, scopes, limits)
		if err != nil {
			return err
		}
		if err := uc.keyRepo.Save(txCtx, key); err != nil {
			return errors.Wrap(errors.CodeStore, "saving api key", err)
		}

		uc.logger.InfoContext(txCtx, "api key issued",
			slog.String("api_key_id", key.ID().String()),
			slog.String("wallet_id", walletID.String()))

		result = dtos.IssuedAPIKeyDTO{
			ID:        key.ID().String(),
			WalletID:  walletID.String(),
			Label:     key.Label(),
			Scopes:    cmd.Scopes,
			PlainKey:  secrets.FormatAPIKey(key.ID(), secret),
			CreatedAt: key.CreatedAt(),
		}
		return nil
	})
	if err != nil {
		return dtos.IssuedAPIKeyDTO{}, err
	}
	return result, nil
}

// parseLimits converts the command's money strings into minor-unit caps.
// Limit amounts need a currency to fix the scale.
func parseLimits(cmd dtos.IssueAPIKeyCommand) (entities.SpendLimits, error) {
	var limits entities.SpendLimits
	if cmd.PerTxMax == nil && cmd.WindowCeiling == nil {
		return limits, nil
	}

	currency, err := valueobjects.NewCurrency(cmd.CurrencyCode)
	if err != nil {
		return limits, errors.New(errors.CodeValidation, "spend limits require a currency")
	}

	if cmd.PerTxMax != nil {
		m, err := valueobjects.ParseMoney(*cmd.PerTxMax, currency)
		if err != nil {
			return limits, errors.Newf(errors.CodeValidation, "invalid per_tx_max: %v", err)
		}
		minor := m.MinorUnits()
		limits.PerTxMaxMinor = &minor
	}
	if cmd.WindowCeiling != nil {
		m, err := valueobjects.ParseMoney(*cmd.WindowCeiling, currency)
		if err != nil {
			return limits, errors.Newf(errors.CodeValidation, "invalid window_ceiling: %v", err)
		}
		minor := m.MinorUnits()
		limits.WindowCeiling = &minor
		if cmd.WindowSeconds == nil {
			return limits, errors.New(errors.CodeValidation, "window_ceiling requires window_seconds")
		}
		limits.Window = time.Duration(*cmd.WindowSeconds) * time.Second
	}
	return limits, nil
}
