package entities

import (
	"strings"
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// ExternalIdentity maps a third-party identity ("ext:<provider>:<user-id>")
// to a wallet, so callers can address recipients by, say, an OAuth subject
// instead of a wallet id or handle. (provider, externalID) is unique.
type ExternalIdentity struct {
	id         uuid.UUID
	walletID   uuid.UUID
	provider   string
	externalID string
	createdAt  time.Time
}

// NewExternalIdentity links a provider identity to a wallet.
func NewExternalIdentity(walletID uuid.UUID, provider, externalID string) (*ExternalIdentity, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	externalID = strings.TrimSpace(externalID)
	if walletID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "wallet id is required")
	}
	if provider == "" || externalID == "" {
		return nil, errors.New(errors.CodeValidation, "provider and external id are required")
	}
	if strings.ContainsAny(provider, ": ") {
		return nil, errors.New(errors.CodeValidation, "provider must not contain ':' or spaces")
	}
	return &ExternalIdentity{
		id:         uuid.New(),
		walletID:   walletID,
		provider:   provider,
		externalID: externalID,
		createdAt:  time.Now().UTC(),
	}, nil
}

// ReconstructExternalIdentity reconstructs an identity from stored data.
func ReconstructExternalIdentity(id, walletID uuid.UUID, provider, externalID string, createdAt time.Time) *ExternalIdentity {
	return &ExternalIdentity{
		id:         id,
		walletID:   walletID,
		provider:   provider,
		externalID: externalID,
		createdAt:  createdAt,
	}
}

func (e *ExternalIdentity) ID() uuid.UUID        { return e.id }
func (e *ExternalIdentity) WalletID() uuid.UUID  { return e.walletID }
func (e *ExternalIdentity) Provider() string     { return e.provider }
func (e *ExternalIdentity) ExternalID() string   { return e.externalID }
func (e *ExternalIdentity) CreatedAt() time.Time { return e.createdAt }
