package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// IdempotencyStatus is the lifecycle of an idempotency record.
//
//	IN_FLIGHT ──success──► COMPLETED   (same store tx as the posting)
//	IN_FLIGHT ──final business error──► FAILED
//
// Transient failures delete or abandon the record instead of finishing it, so
// a retry starts fresh.
type IdempotencyStatus string

const (
	IdempotencyStatusInFlight  IdempotencyStatus = "IN_FLIGHT"
	IdempotencyStatusCompleted IdempotencyStatus = "COMPLETED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// Fingerprint canonicalizes a request body for idempotency comparison.
// Two requests with the same key but different fingerprints are a conflict.
// The input must already be in canonical form (sorted keys, normalized
// amounts) — the DTO layer produces it.
func Fingerprint(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// IdempotencyRecord stores the outcome of one logical request, scoped to
// (api key, idempotency key). Completed and failed records carry a snapshot
// of the response that is replayed byte-equal on retries.
type IdempotencyRecord struct {
	id             uuid.UUID
	apiKeyID       uuid.UUID
	key            string
	fingerprint    string
	status         IdempotencyStatus
	responseStatus int
	responseBody   []byte
	createdAt      time.Time
	completedAt    *time.Time
}

// NewIdempotencyRecord reserves a key for an in-flight request.
func NewIdempotencyRecord(apiKeyID uuid.UUID, key, fingerprint string) (*IdempotencyRecord, error) {
	if apiKeyID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "api key id is required")
	}
	if key == "" {
		return nil, errors.New(errors.CodeValidation, "idempotency key is required")
	}
	if len(key) > 255 {
		return nil, errors.New(errors.CodeValidation, "idempotency key too long")
	}
	if fingerprint == "" {
		return nil, errors.New(errors.CodeValidation, "request fingerprint is required")
	}
	return &IdempotencyRecord{
		id:          uuid.New(),
		apiKeyID:    apiKeyID,
		key:         key,
		fingerprint: fingerprint,
		status:      IdempotencyStatusInFlight,
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructIdempotencyRecord reconstructs a record from stored data.
func ReconstructIdempotencyRecord(
	id, apiKeyID uuid.UUID,
	key, fingerprint string,
	status IdempotencyStatus,
	responseStatus int,
	responseBody []byte,
	createdAt time.Time,
	completedAt *time.Time,
) *IdempotencyRecord {
	return &IdempotencyRecord{
		id:             id,
		apiKeyID:       apiKeyID,
		key:            key,
		fingerprint:    fingerprint,
		status:         status,
		responseStatus: responseStatus,
		responseBody:   responseBody,
		createdAt:      createdAt,
		completedAt:    completedAt,
	}
}

func (r *IdempotencyRecord) ID() uuid.UUID             { return r.id }
func (r *IdempotencyRecord) APIKeyID() uuid.UUID       { return r.apiKeyID }
func (r *IdempotencyRecord) Key() string               { return r.key }
func (r *IdempotencyRecord) RequestFingerprint() string { return r.fingerprint }
func (r *IdempotencyRecord) Status() IdempotencyStatus { return r.status }
func (r *IdempotencyRecord) ResponseStatus() int       { return r.responseStatus }
func (r *IdempotencyRecord) ResponseBody() []byte      { return r.responseBody }
func (r *IdempotencyRecord) CreatedAt() time.Time      { return r.createdAt }
func (r *IdempotencyRecord) CompletedAt() *time.Time   { return r.completedAt }

// MatchesFingerprint reports whether a retry carries the same request body.
func (r *IdempotencyRecord) MatchesFingerprint(fingerprint string) bool {
	return r.fingerprint == fingerprint
}

// IsFinished reports whether a snapshot exists to replay.
func (r *IdempotencyRecord) IsFinished() bool {
	return r.status == IdempotencyStatusCompleted || r.status == IdempotencyStatusFailed
}

// Complete records the successful response snapshot.
func (r *IdempotencyRecord) Complete(status int, body []byte, now time.Time) error {
	if r.status != IdempotencyStatusInFlight {
		return errors.Newf(errors.CodeStore, "idempotency record already %s", r.status)
	}
	r.status = IdempotencyStatusCompleted
	r.responseStatus = status
	r.responseBody = body
	r.completedAt = &now
	return nil
}

// Fail records a final business error snapshot. Transient errors must never
// reach here.
func (r *IdempotencyRecord) Fail(status int, body []byte, now time.Time) error {
	if r.status != IdempotencyStatusInFlight {
		return errors.Newf(errors.CodeStore, "idempotency record already %s", r.status)
	}
	r.status = IdempotencyStatusFailed
	r.responseStatus = status
	r.responseBody = body
	r.completedAt = &now
	return nil
}
