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

var _ ports.APIKeyRepository = (*APIKeyRepository)(nil)

const apiKeyColumns = `id, wallet_id, key_hash, label, scopes, per_tx_max_minor, window_ceiling_minor, window_seconds, revoked_at, created_at`

// APIKeyRepository stores API keys. Scopes live in a text[] column; spend
// limits are three nullable columns.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Save(ctx context.Context, key *entities.APIKey) error {
	q := queryEngine(ctx, r.pool)

	scopes := make([]string, 0, len(key.Scopes()))
	for _, s := range key.Scopes() {
		scopes = append(scopes, string(s))
	}

	limits := key.Limits()
	var windowSeconds *int64
	if limits.Window > 0 {
		secs := int64(limits.Window / time.Second)
		windowSeconds = &secs
	}

	_, err := q.Exec(ctx, `
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		key.ID(), key.WalletID(), key.KeyHash(), key.Label(), scopes,
		limits.PerTxMaxMinor, limits.WindowCeiling, windowSeconds,
		key.RevokedAt(), key.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting api key", err)
	}
	return nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.APIKey, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	return scanAPIKey(row)
}

func (r *APIKeyRepository) Update(ctx context.Context, key *entities.APIKey) error {
	q := queryEngine(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE api_keys SET revoked_at = $2 WHERE id = $1`,
		key.ID(), key.RevokedAt(),
	)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "updating api key", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrEntityNotFound
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*entities.APIKey, error) {
	var (
		id, walletID                    uuid.UUID
		keyHash, label                  string
		scopeStrings                    []string
		perTxMaxMinor, ceiling, windowS *int64
		revokedAt                       *time.Time
		createdAt                       time.Time
	)
	err := row.Scan(&id, &walletID, &keyHash, &label, &scopeStrings,
		&perTxMaxMinor, &ceiling, &windowS, &revokedAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning api key", err)
	}

	scopes := make([]entities.Scope, 0, len(scopeStrings))
	for _, s := range scopeStrings {
		scopes = append(scopes, entities.Scope(s))
	}

	limits := entities.SpendLimits{PerTxMaxMinor: perTxMaxMinor, WindowCeiling: ceiling}
	if windowS != nil {
		limits.Window = time.Duration(*windowS) * time.Second
	}

	return entities.ReconstructAPIKey(id, walletID, keyHash, label, scopes, limits, revokedAt, createdAt), nil
}
