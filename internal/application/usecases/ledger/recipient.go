package ledger

import (
	"context"
	"strings"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// RecipientResolver turns a recipient reference into a wallet. Three forms
// are accepted:
//
//	8400a183-…           wallet id (UUID)
//	@alice               handle
//	ext:github:12345     external identity (provider, external id)
//
// Resolution never reveals whether an id exists with different casing or a
// different provider: every miss is the same RECIPIENT_NOT_FOUND.
type RecipientResolver struct {
	walletRepo   ports.WalletRepository
	identityRepo ports.ExternalIdentityRepository
}

func NewRecipientResolver(walletRepo ports.WalletRepository, identityRepo ports.ExternalIdentityRepository) *RecipientResolver {
	return &RecipientResolver{walletRepo: walletRepo, identityRepo: identityRepo}
}

// Resolve returns the wallet the reference points at.
func (r *RecipientResolver) Resolve(ctx context.Context, ref string) (*entities.Wallet, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New(errors.CodeValidation, "recipient is required")
	}

	switch {
	case strings.HasPrefix(ref, "@"):
		return r.byHandle(ctx, ref)
	case strings.HasPrefix(ref, "ext:"):
		return r.byExternalIdentity(ctx, ref)
	default:
		return r.byID(ctx, ref)
	}
}

func (r *RecipientResolver) byID(ctx context.Context, ref string) (*entities.Wallet, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, errors.New(errors.CodeValidation,
			"recipient must be a wallet id, an @handle or ext:provider:id")
	}
	wallet, err := r.walletRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrStore(err)
	}
	return wallet, nil
}

func (r *RecipientResolver) byHandle(ctx context.Context, ref string) (*entities.Wallet, error) {
	handle := entities.NormalizeHandle(ref)
	if len(handle) < 2 {
		return nil, errors.New(errors.CodeValidation, "handle must not be empty")
	}
	wallet, err := r.walletRepo.FindByHandle(ctx, handle)
	if err != nil {
		return nil, notFoundOrStore(err)
	}
	return wallet, nil
}

func (r *RecipientResolver) byExternalIdentity(ctx context.Context, ref string) (*entities.Wallet, error) {
	// ext:<provider>:<external-id>; the external id may itself contain ':'.
	parts := strings.SplitN(ref, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, errors.New(errors.CodeValidation, "external reference must be ext:provider:id")
	}
	provider := strings.ToLower(parts[1])

	identity, err := r.identityRepo.FindByProviderID(ctx, provider, parts[2])
	if err != nil {
		return nil, notFoundOrStore(err)
	}
	wallet, err := r.walletRepo.FindByID(ctx, identity.WalletID())
	if err != nil {
		return nil, notFoundOrStore(err)
	}
	return wallet, nil
}

func notFoundOrStore(err error) error {
	if errors.IsNotFound(err) {
		return errors.New(errors.CodeRecipientNotFound, "recipient not found")
	}
	return errors.Wrap(errors.CodeStore, "resolving recipient", err)
}
