package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/errors"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// maxTxAttempts bounds the retry loop of ExecuteWithRetry.
const maxTxAttempts = 3

// retryBaseDelay is the backoff unit between conflicting attempts.
const retryBaseDelay = 25 * time.Millisecond

// retryDelay returns the pause before re-running attempt (1-based retry
// count): 25ms, 50ms, 100ms... Deadlock victims that retry immediately tend
// to collide with the same contenders again.
func retryDelay(attempt int) time.Duration {
	return retryBaseDelay << (attempt - 1)
}

// UnitOfWork implements ports.UnitOfWork on pgx transactions. The posting
// path runs READ COMMITTED and relies on explicit row locks
// (AccountRepository.LockByIDs) for serialization, so retries are rare and
// only triggered by deadlocks.
type UnitOfWork struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// Execute runs fn inside one transaction: commit on nil, rollback on error
// or panic. Nested calls join the enclosing transaction.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "beginning transaction", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(injectTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isRetryableError(err) {
			return errors.Wrap(errors.CodeTransientConflict, "commit conflicted", err)
		}
		return errors.Wrap(errors.CodeStore, "committing transaction", err)
	}
	return nil
}

// ExecuteWithRetry re-runs fn in a fresh transaction after a deadlock or
// serialization failure. Business errors are never retried; an exhausted
// conflict surfaces as TRANSIENT_CONFLICT so the idempotency layer leaves no
// record behind.
func (u *UnitOfWork) ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt)):
			case <-ctx.Done():
				return errors.Wrap(errors.CodeTimeout, "waiting to retry transaction", ctx.Err())
			}
		}
		err := u.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableError(err) && errors.CodeOf(err) != errors.CodeTransientConflict {
			return err
		}
		lastErr = err
	}
	return errors.Wrap(errors.CodeTransientConflict, "transaction conflicts exhausted retries", lastErr)
}
