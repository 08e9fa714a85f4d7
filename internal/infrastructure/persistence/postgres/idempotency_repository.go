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

var _ ports.IdempotencyRepository = (*IdempotencyRepository)(nil)

const idemColumns = `id, api_key_id, idem_key, fingerprint, status, response_status, response_body, created_at, completed_at`

// IdempotencyRepository stores idempotency records. The unique index on
// (api_key_id, idem_key) is the arbiter of the reservation race: exactly one
// concurrent insert wins.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) Reserve(ctx context.Context, record *entities.IdempotencyRecord) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO idempotency_records (`+idemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID(), record.APIKeyID(), record.Key(), record.RequestFingerprint(),
		string(record.Status()), record.ResponseStatus(), record.ResponseBody(),
		record.CreatedAt(), record.CompletedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "reserving idempotency record", err)
	}
	return nil
}

func (r *IdempotencyRepository) Find(ctx context.Context, apiKeyID uuid.UUID, key string) (*entities.IdempotencyRecord, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT `+idemColumns+`
		FROM idempotency_records
		WHERE api_key_id = $1 AND idem_key = $2`, apiKeyID, key)

	var (
		id, keyID        uuid.UUID
		idemKey, fingerprint string
		status           string
		responseStatus   int
		responseBody     []byte
		createdAt        time.Time
		completedAt      *time.Time
	)
	err := row.Scan(&id, &keyID, &idemKey, &fingerprint, &status, &responseStatus, &responseBody, &createdAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning idempotency record", err)
	}

	return entities.ReconstructIdempotencyRecord(
		id, keyID, idemKey, fingerprint,
		entities.IdempotencyStatus(status), responseStatus, responseBody, createdAt, completedAt,
	), nil
}

func (r *IdempotencyRepository) Update(ctx context.Context, record *entities.IdempotencyRecord) error {
	q := queryEngine(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE idempotency_records
		SET status = $2, response_status = $3, response_body = $4, completed_at = $5
		WHERE id = $1`,
		record.ID(), string(record.Status()), record.ResponseStatus(), record.ResponseBody(), record.CompletedAt(),
	)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "updating idempotency record", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrEntityNotFound
	}
	return nil
}
