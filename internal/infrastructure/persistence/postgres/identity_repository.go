package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
)

var _ ports.ExternalIdentityRepository = (*ExternalIdentityRepository)(nil)

// ExternalIdentityRepository maps (provider, external id) pairs to wallets.
// One identity binds to exactly one wallet; the unique index enforces it.
type ExternalIdentityRepository struct {
	pool *pgxpool.Pool
}

func NewExternalIdentityRepository(pool *pgxpool.Pool) *ExternalIdentityRepository {
	return &ExternalIdentityRepository{pool: pool}
}

func (r *ExternalIdentityRepository) Save(ctx context.Context, identity *entities.ExternalIdentity) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO external_identities (id, wallet_id, provider, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		identity.ID(), identity.WalletID(), identity.Provider(), identity.ExternalID(), identity.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting external identity", err)
	}
	return nil
}

func (r *ExternalIdentityRepository) FindByProviderID(ctx context.Context, provider, externalID string) (*entities.ExternalIdentity, error) {
	q := queryEngine(ctx, r.pool)

	var (
		id, walletID uuid.UUID
		createdAt    time.Time
	)
	err := q.QueryRow(ctx, `
		SELECT id, wallet_id, created_at
		FROM external_identities
		WHERE provider = $1 AND external_id = $2`,
		provider, externalID,
	).Scan(&id, &walletID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning external identity", err)
	}
	return entities.ReconstructExternalIdentity(id, walletID, provider, externalID, createdAt), nil
}
