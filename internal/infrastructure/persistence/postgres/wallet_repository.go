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

var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository stores wallets. Handle uniqueness is enforced by a
// partial unique index over non-null handles.
type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) Save(ctx context.Context, wallet *entities.Wallet) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO wallets (id, handle, display_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		wallet.ID(), wallet.Handle(), wallet.DisplayName(), string(wallet.Status()), wallet.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting wallet", err)
	}
	return nil
}

func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, handle, display_name, status, created_at
		FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (r *WalletRepository) FindByHandle(ctx context.Context, handle string) (*entities.Wallet, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, handle, display_name, status, created_at
		FROM wallets WHERE handle = $1`, handle)
	return scanWallet(row)
}

func (r *WalletRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.WalletStatus) error {
	q := queryEngine(ctx, r.pool)

	tag, err := q.Exec(ctx, `UPDATE wallets SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return errors.Wrap(errors.CodeStore, "updating wallet status", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrEntityNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var (
		id          uuid.UUID
		handle      *string
		displayName string
		status      string
		createdAt   time.Time
	)
	if err := row.Scan(&id, &handle, &displayName, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning wallet", err)
	}
	return entities.ReconstructWallet(id, handle, displayName, entities.WalletStatus(status), createdAt), nil
}
