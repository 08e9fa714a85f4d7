package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// Operation produces a success DTO and its HTTP status inside the executor's
// transaction. It must be safe to re-run: the executor retries the whole
// transaction on serialization conflicts.
type Operation func(txCtx context.Context) (interface{}, int, error)

// IdempotentExecutor runs write operations under the idempotency protocol:
//
//  1. Reserve the (api key, key) pair with the request fingerprint INSIDE the
//     posting transaction. A taken pair either replays the stored snapshot
//     (same fingerprint), rejects with IDEMPOTENCY_CONFLICT (different
//     fingerprint) or IDEMPOTENCY_IN_PROGRESS (first attempt still holding
//     its uncommitted row).
//  2. On success the COMPLETED snapshot is written in that same transaction,
//     so there is no window where money moved but the snapshot is missing —
//     and a crash rolls the reservation back along with the posting, leaving
//     no IN_FLIGHT straggler.
//  3. Final business failures roll the posting back, then insert a FAILED
//     snapshot so retries replay the error. Transient failures insert
//     nothing: a client retry starts fresh.
type IdempotentExecutor struct {
	uow      ports.UnitOfWork
	idemRepo ports.IdempotencyRepository
	logger   *slog.Logger
}

func NewIdempotentExecutor(uow ports.UnitOfWork, idemRepo ports.IdempotencyRepository, logger *slog.Logger) *IdempotentExecutor {
	return &IdempotentExecutor{uow: uow, idemRepo: idemRepo, logger: logger}
}

// Execute runs op under the key for the API key. canonical is the
// deterministic request form used for fingerprinting.
func (e *IdempotentExecutor) Execute(
	ctx context.Context,
	apiKeyID uuid.UUID,
	key string,
	canonical []byte,
	op Operation,
) (*Outcome, error) {
	fingerprint := entities.Fingerprint(canonical)

	record, err := entities.NewIdempotencyRecord(apiKeyID, key, fingerprint)
	if err != nil {
		return nil, err
	}

	outcome, opErr := e.run(ctx, record, op)
	switch {
	case opErr == nil:
		return outcome, nil
	case errors.Is(opErr, errors.ErrEntityAlreadyExists):
		return e.resolveExisting(ctx, apiKeyID, key, fingerprint)
	case errors.IsFinal(opErr):
		return e.snapshotFailure(ctx, record, opErr)
	default:
		// Transient or internal: the rollback removed the reservation too.
		return nil, opErr
	}
}

// run executes op with the reservation and, on success, the COMPLETED
// snapshot all in the same transaction as the posting.
func (e *IdempotentExecutor) run(ctx context.Context, record *entities.IdempotencyRecord, op Operation) (*Outcome, error) {
	var outcome *Outcome

	err := e.uow.ExecuteWithRetry(ctx, func(txCtx context.Context) error {
		// Fresh record value per attempt: Complete rejects double completion.
		attempt := entities.ReconstructIdempotencyRecord(
			record.ID(), record.APIKeyID(), record.Key(), record.RequestFingerprint(),
			entities.IdempotencyStatusInFlight, 0, nil, record.CreatedAt(), nil,
		)
		// The unique index serializes duplicates: a concurrent insert blocks
		// on the winner's uncommitted row and surfaces
		// ErrEntityAlreadyExists once it commits.
		if reserveErr := e.idemRepo.Reserve(txCtx, attempt); reserveErr != nil {
			return reserveErr
		}
		result, status, opErr := op(txCtx)
		if opErr != nil {
			return opErr
		}
		body, encErr := EncodeSuccess(result)
		if encErr != nil {
			return encErr
		}
		if completeErr := attempt.Complete(status, body, time.Now().UTC()); completeErr != nil {
			return completeErr
		}
		if updErr := e.idemRepo.Update(txCtx, attempt); updErr != nil {
			return errors.Wrap(errors.CodeStore, "completing idempotency record", updErr)
		}
		outcome = &Outcome{Status: status, Body: body}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// resolveExisting handles a reservation race or a retry: someone already owns
// the key.
func (e *IdempotentExecutor) resolveExisting(ctx context.Context, apiKeyID uuid.UUID, key, fingerprint string) (*Outcome, error) {
	existing, err := e.idemRepo.Find(ctx, apiKeyID, key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "loading idempotency record", err)
	}

	if !existing.MatchesFingerprint(fingerprint) {
		return nil, errors.New(errors.CodeIdempotencyConflict,
			"idempotency key was already used with a different request")
	}
	if !existing.IsFinished() {
		return nil, errors.New(errors.CodeIdempotencyInProgress,
			"a request with this idempotency key is still in progress")
	}

	return &Outcome{
		Status:   existing.ResponseStatus(),
		Body:     existing.ResponseBody(),
		Replayed: true,
	}, nil
}

// snapshotFailure records a final business error so retries replay it. The
// posting transaction already rolled back, taking the reservation with it, so
// the FAILED record is inserted whole — never left IN_FLIGHT.
func (e *IdempotentExecutor) snapshotFailure(ctx context.Context, record *entities.IdempotencyRecord, opErr error) (*Outcome, error) {
	status := StatusForError(opErr)
	body := EncodeError(opErr)

	if failErr := record.Fail(status, body, time.Now().UTC()); failErr != nil {
		return nil, failErr
	}
	err := e.uow.Execute(ctx, func(txCtx context.Context) error {
		return e.idemRepo.Reserve(txCtx, record)
	})
	if err != nil {
		// The business outcome is decided; a snapshot miss only costs a
		// re-execution on retry, which will fail the same way. A lost race
		// here means another attempt already owns the key.
		e.logger.WarnContext(ctx, "failed to snapshot idempotent failure",
			slog.String("idempotency_key", record.Key()),
			slog.String("error", err.Error()))
	}

	return &Outcome{Status: status, Body: body}, opErr
}
