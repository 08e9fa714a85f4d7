package ledger

import (
	"context"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/domain/entities"
)

// ResolveRecipientUseCase resolves a recipient reference without moving
// money, so clients can confirm "who am I about to pay" before posting.
type ResolveRecipientUseCase struct {
	resolver *RecipientResolver
}

func NewResolveRecipientUseCase(resolver *RecipientResolver) *ResolveRecipientUseCase {
	return &ResolveRecipientUseCase{resolver: resolver}
}

func (uc *ResolveRecipientUseCase) Execute(ctx context.Context, key *entities.APIKey, ref string) (dtos.ResolvedRecipientDTO, error) {
	if err := key.RequireScope(entities.ScopeRead); err != nil {
		return dtos.ResolvedRecipientDTO{}, err
	}
	wallet, err := uc.resolver.Resolve(ctx, ref)
	if err != nil {
		return dtos.ResolvedRecipientDTO{}, err
	}
	// Frozen and closed wallets resolve but cannot receive; posting paths
	// reject them separately. The resolve endpoint mirrors that by refusing
	// them outright.
	if err := wallet.CanReceive(); err != nil {
		return dtos.ResolvedRecipientDTO{}, err
	}
	return dtos.ToResolvedRecipientDTO(wallet), nil
}
