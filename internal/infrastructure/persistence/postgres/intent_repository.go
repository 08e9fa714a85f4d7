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

var _ ports.IntentRepository = (*IntentRepository)(nil)

const intentColumns = `id, payee_account_id, amount_minor, currency, status, description, payer_account_id, entry_id, expires_at, created_at, updated_at`

// IntentRepository stores payment intents.
type IntentRepository struct {
	pool *pgxpool.Pool
}

func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

func (r *IntentRepository) Save(ctx context.Context, intent *entities.PaymentIntent) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO payment_intents (`+intentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		intent.ID(), intent.PayeeAccountID(), intent.Amount().MinorUnits(), intent.Amount().Currency().Code(),
		string(intent.Status()), intent.Description(), intent.PayerAccountID(), intent.EntryID(),
		intent.ExpiresAt(), intent.CreatedAt(), intent.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting intent", err)
	}
	return nil
}

func (r *IntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id)
	return scanIntent(row)
}

func (r *IntentRepository) Update(ctx context.Context, intent *entities.PaymentIntent) error {
	q := queryEngine(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE payment_intents
		SET status = $2, payer_account_id = $3, entry_id = $4, updated_at = $5
		WHERE id = $1`,
		intent.ID(), string(intent.Status()), intent.PayerAccountID(), intent.EntryID(), intent.UpdatedAt(),
	)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "updating intent", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrEntityNotFound
	}
	return nil
}

func scanIntent(row pgx.Row) (*entities.PaymentIntent, error) {
	var (
		id, payeeAccountID              uuid.UUID
		amountMinor                     int64
		currencyCode, status            string
		description                     string
		payerAccountID, entryID         *uuid.UUID
		expiresAt, createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &payeeAccountID, &amountMinor, &currencyCode, &status, &description,
		&payerAccountID, &entryID, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning intent", err)
	}

	amount, err := moneyFrom(amountMinor, currencyCode)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "rebuilding intent amount", err)
	}

	return entities.ReconstructPaymentIntent(
		id, payeeAccountID, amount, entities.IntentStatus(status), description,
		payerAccountID, entryID, expiresAt, createdAt, updatedAt,
	), nil
}
