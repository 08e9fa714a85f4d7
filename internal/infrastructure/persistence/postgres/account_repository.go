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
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
)

var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository stores ledger accounts and serves the two primitives the
// posting path is built on: ordered row locks and derived balances.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Save(ctx context.Context, account *entities.LedgerAccount) error {
	q := queryEngine(ctx, r.pool)

	// System accounts carry no wallet; the column is NULL for them.
	var walletID *uuid.UUID
	if !account.IsSystem() {
		id := account.WalletID()
		walletID = &id
	}

	_, err := q.Exec(ctx, `
		INSERT INTO ledger_accounts (id, wallet_id, currency, account_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		account.ID(), walletID, account.Currency().Code(), string(account.Type()), account.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting account", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.LedgerAccount, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, wallet_id, currency, account_type, created_at
		FROM ledger_accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) FindByWallet(ctx context.Context, walletID uuid.UUID, currency valueobjects.Currency) (*entities.LedgerAccount, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, wallet_id, currency, account_type, created_at
		FROM ledger_accounts WHERE wallet_id = $1 AND currency = $2`,
		walletID, currency.Code())
	return scanAccount(row)
}

func (r *AccountRepository) FindSystemAccount(ctx context.Context, currency valueobjects.Currency) (*entities.LedgerAccount, error) {
	q := queryEngine(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT id, wallet_id, currency, account_type, created_at
		FROM ledger_accounts WHERE account_type = 'SYSTEM' AND currency = $1`,
		currency.Code())
	return scanAccount(row)
}

// LockByIDs takes FOR UPDATE locks in ascending id order regardless of the
// caller's order, so two postings touching the same accounts always lock in
// the same sequence and cannot deadlock each other.
func (r *AccountRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.LedgerAccount, error) {
	q := queryEngine(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT id, wallet_id, currency, account_type, created_at
		FROM ledger_accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "locking accounts", err)
	}
	defer rows.Close()

	accounts := make([]*entities.LedgerAccount, 0, len(ids))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStore, "locking accounts", err)
	}
	if len(accounts) != len(ids) {
		return nil, errors.ErrEntityNotFound
	}
	return accounts, nil
}

// GetBalance derives the two-bucket balance from the journal. Balances are
// never stored: the journal is the single source of truth and the sum under
// the account's lock is stable until commit.
func (r *AccountRepository) GetBalance(ctx context.Context, accountID uuid.UUID) (entities.Balance, error) {
	q := queryEngine(ctx, r.pool)

	var currencyCode string
	if err := q.QueryRow(ctx,
		`SELECT currency FROM ledger_accounts WHERE id = $1`, accountID,
	).Scan(&currencyCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.Balance{}, errors.ErrEntityNotFound
		}
		return entities.Balance{}, errors.Wrap(errors.CodeStore, "loading account currency", err)
	}

	row := q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN bucket = 'AVAILABLE' AND side = 'CREDIT' THEN amount_minor
			                  WHEN bucket = 'AVAILABLE' AND side = 'DEBIT'  THEN -amount_minor
			                  ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN bucket = 'HELD' AND side = 'CREDIT' THEN amount_minor
			                  WHEN bucket = 'HELD' AND side = 'DEBIT'  THEN -amount_minor
			                  ELSE 0 END), 0)
		FROM journal_lines
		WHERE account_id = $1`, accountID)

	var availableMinor, heldMinor int64
	if err := row.Scan(&availableMinor, &heldMinor); err != nil {
		return entities.Balance{}, errors.Wrap(errors.CodeStore, "summing balance", err)
	}

	// The sums stay signed: the system funding account runs negative.
	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return entities.Balance{}, errors.Wrap(errors.CodeStore, "rebuilding balance currency", err)
	}

	return entities.Balance{
		AccountID:      accountID,
		Currency:       currency,
		AvailableMinor: availableMinor,
		HeldMinor:      heldMinor,
	}, nil
}

func scanAccount(row pgx.Row) (*entities.LedgerAccount, error) {
	var (
		id           uuid.UUID
		walletID     *uuid.UUID
		currencyCode string
		accType      string
		createdAt    time.Time
	)
	if err := row.Scan(&id, &walletID, &currencyCode, &accType, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrEntityNotFound
		}
		return nil, errors.Wrap(errors.CodeStore, "scanning account", err)
	}

	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "rebuilding account currency", err)
	}
	ownerID := uuid.Nil
	if walletID != nil {
		ownerID = *walletID
	}
	return entities.ReconstructLedgerAccount(id, ownerID, currency, entities.AccountType(accType), createdAt), nil
}
