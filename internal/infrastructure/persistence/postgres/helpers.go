package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
)

// txKey carries the active transaction through the context.
type txKey struct{}

func injectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func extractTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

func hasTx(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx, so every
// repository method runs transparently inside or outside a unit of work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queryEngine returns the context's transaction when present, the pool
// otherwise.
func queryEngine(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return pool
}

// PostgreSQL error codes.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgErrorOf(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pgErr := pgErrorOf(err)
	return pgErr != nil && pgErr.Code == pgUniqueViolation
}

// isRetryableError reports conflicts worth a fresh attempt: deadlocks,
// serialization failures and connection-class errors.
func isRetryableError(err error) bool {
	pgErr := pgErrorOf(err)
	if pgErr == nil {
		return false
	}
	if pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected {
		return true
	}
	return strings.HasPrefix(pgErr.Code, "08")
}

// moneyFrom rebuilds a Money from stored minor units and currency code.
// Stored rows passed currency validation on the way in.
func moneyFrom(minor int64, currencyCode string) (valueobjects.Money, error) {
	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return valueobjects.Money{}, err
	}
	return valueobjects.NewMoney(minor, currency)
}
