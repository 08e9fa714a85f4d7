// Package ports - UnitOfWork pattern for transaction boundaries.
//
// Pattern: Unit of Work
// - One UnitOfWork execution = one database transaction
// - Automatic rollback on error, commit on nil
// - The transaction travels in the context: repositories read it from there
package ports

import "context"

// UnitOfWork runs functions inside a database transaction.
//
// The context passed to fn carries the transaction. Every repository call
// inside fn must use that context, not the outer one:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    accounts, err := accountRepo.LockByIDs(txCtx, ids)
//	    if err != nil {
//	        return err // automatic rollback
//	    }
//	    return journalRepo.SaveEntry(txCtx, entry)
//	})
type UnitOfWork interface {
	// Execute begins a transaction, runs fn, commits on nil and rolls back
	// on error.
	Execute(ctx context.Context, fn func(context.Context) error) error

	// ExecuteWithRetry is Execute plus bounded retry on serialization
	// conflicts (deadlock or serialization failure). Each attempt is a fresh
	// transaction; fn must be safe to re-run. After the attempts are
	// exhausted the conflict surfaces as a TRANSIENT_CONFLICT error.
	//
	// Business errors returned by fn are never retried.
	ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error
}
