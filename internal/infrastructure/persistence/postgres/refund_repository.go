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

var _ ports.RefundRepository = (*RefundRepository)(nil)

const refundColumns = `id, capture_entry_id, entry_id, amount_minor, currency, reason, created_at`

// RefundRepository stores refunds.
type RefundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{pool: pool}
}

func (r *RefundRepository) Save(ctx context.Context, refund *entities.Refund) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO refunds (`+refundColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		refund.ID(), refund.CaptureEntryID(), refund.EntryID(),
		refund.Amount().MinorUnits(), refund.Amount().Currency().Code(),
		refund.Reason(), refund.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting refund", err)
	}
	return nil
}

func (r *RefundRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Refund, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id)
	return scanRefund(row)
}

func (r *RefundRepository) FindByCaptureEntry(ctx context.Context, captureEntryID uuid.UUID) ([]*entities.Refund, error) {
	q := queryEngine(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT `+refundColumns+` FROM refunds
		WHERE capture_entry_id = $1
		ORDER BY created_at`, captureEntryID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying refunds", err)
	}
	defer rows.Close()

	var refunds []*entities.Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying refunds", err)
	}
	return refunds, nil
}

func scanRefund(row pgx.Row) (*entities.Refund, error) {
	var (
		id, captureEntryID, entryID uuid.UUID
		amountMinor                 int64
		currencyCode, reason        string
		createdAt                   time.Time
	)
	err := row.Scan(&id, &captureEntryID, &entryID, &amountMinor, &currencyCode, &reason, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning refund", err)
	}

	amount, err := moneyFrom(amountMinor, currencyCode)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "rebuilding refund amount", err)
	}
	return entities.ReconstructRefund(id, captureEntryID, entryID, amount, reason, createdAt), nil
}
