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

var _ ports.HoldRepository = (*HoldRepository)(nil)

const holdColumns = `id, payer_account_id, payee_account_id, amount_minor, captured_minor, currency, status, entry_id, expires_at, created_at, updated_at`

// HoldRepository stores holds.
type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) Save(ctx context.Context, hold *entities.Hold) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO holds (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		hold.ID(), hold.PayerAccountID(), hold.PayeeAccountID(),
		hold.Amount().MinorUnits(), hold.Captured().MinorUnits(), hold.Amount().Currency().Code(),
		string(hold.Status()), hold.EntryID(), hold.ExpiresAt(), hold.CreatedAt(), hold.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting hold", err)
	}
	return nil
}

func (r *HoldRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Hold, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id)
	return scanHold(row)
}

func (r *HoldRepository) Update(ctx context.Context, hold *entities.Hold) error {
	q := queryEngine(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE holds
		SET captured_minor = $2, status = $3, updated_at = $4
		WHERE id = $1`,
		hold.ID(), hold.Captured().MinorUnits(), string(hold.Status()), hold.UpdatedAt(),
	)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "updating hold", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrEntityNotFound
	}
	return nil
}

// FindExpiredCapturable feeds the sweeper: holds past their deadline still
// carrying reserved funds.
func (r *HoldRepository) FindExpiredCapturable(ctx context.Context, asOf time.Time, limit int) ([]*entities.Hold, error) {
	q := queryEngine(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE expires_at <= $1 AND status IN ('ACTIVE', 'PARTIALLY_CAPTURED')
		ORDER BY expires_at
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying expired holds", err)
	}
	defer rows.Close()

	var holds []*entities.Hold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying expired holds", err)
	}
	return holds, nil
}

func scanHold(row pgx.Row) (*entities.Hold, error) {
	var (
		id, payerAccountID, payeeAccountID, entryID uuid.UUID
		amountMinor, capturedMinor                  int64
		currencyCode, status                        string
		expiresAt, createdAt, updatedAt             time.Time
	)
	err := row.Scan(&id, &payerAccountID, &payeeAccountID, &amountMinor, &capturedMinor,
		&currencyCode, &status, &entryID, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning hold", err)
	}

	amount, err := moneyFrom(amountMinor, currencyCode)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "rebuilding hold amount", err)
	}
	captured, err := moneyFrom(capturedMinor, currencyCode)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "rebuilding hold captured", err)
	}

	return entities.ReconstructHold(
		id, payerAccountID, payeeAccountID, amount, captured,
		entities.HoldStatus(status), entryID, expiresAt, createdAt, updatedAt,
	), nil
}
