package ledger

import (
	"context"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// GetHoldUseCase returns one of the caller's holds, applying lazy expiry
// first so a stale ACTIVE state is never observed.
type GetHoldUseCase struct {
	expirer     *HoldExpirer
	holdRepo    ports.HoldRepository
	accountRepo ports.AccountRepository
}

func NewGetHoldUseCase(expirer *HoldExpirer, holdRepo ports.HoldRepository, accountRepo ports.AccountRepository) *GetHoldUseCase {
	return &GetHoldUseCase{expirer: expirer, holdRepo: holdRepo, accountRepo: accountRepo}
}

func (uc *GetHoldUseCase) Execute(ctx context.Context, key *entities.APIKey, holdIDStr string) (dtos.HoldDTO, error) {
	if err := key.RequireScope(entities.ScopeRead); err != nil {
		return dtos.HoldDTO{}, err
	}
	holdID, err := uuid.Parse(holdIDStr)
	if err != nil {
		return dtos.HoldDTO{}, errors.New(errors.CodeValidation, "hold id must be a UUID")
	}

	if err := uc.expirer.ExpireIfDue(ctx, holdID); err != nil {
		return dtos.HoldDTO{}, err
	}

	hold, _, err := loadOwnedHold(ctx, uc.holdRepo, uc.accountRepo, holdID, key.WalletID())
	if err != nil {
		return dtos.HoldDTO{}, err
	}
	return dtos.ToHoldDTO(hold), nil
}
