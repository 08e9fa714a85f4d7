package entities

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// HoldStatus is the lifecycle state of a hold.
//
// State machine:
//
//	ACTIVE ──capture(partial)──► PARTIALLY_CAPTURED ──capture(rest)──► CAPTURED
//	ACTIVE ──capture(full)─────────────────────────────────────────► CAPTURED
//	ACTIVE / PARTIALLY_CAPTURED ──release──► RELEASED
//	ACTIVE / PARTIALLY_CAPTURED ──deadline passes──► EXPIRED
//
// CAPTURED, RELEASED and EXPIRED are terminal.
type HoldStatus string

const (
	HoldStatusActive            HoldStatus = "ACTIVE"
	HoldStatusPartiallyCaptured HoldStatus = "PARTIALLY_CAPTURED"
	HoldStatusCaptured          HoldStatus = "CAPTURED"
	HoldStatusReleased          HoldStatus = "RELEASED"
	HoldStatusExpired           HoldStatus = "EXPIRED"
)

// IsTerminal reports whether no further transitions are possible.
func (s HoldStatus) IsTerminal() bool {
	switch s {
	case HoldStatusCaptured, HoldStatusReleased, HoldStatusExpired:
		return true
	default:
		return false
	}
}

// Hold reserves payer funds for a payee. Creating a hold moves the amount
// from the payer's AVAILABLE bucket to its HELD bucket; captures move held
// funds to the payee; release and expiry return the remainder to available.
//
// Expiry is lazy: any operation that loads a hold first calls ExpireIfDue
// under the payer's lock, so a hold past its deadline behaves as EXPIRED even
// if no sweeper has touched it yet.
type Hold struct {
	id             uuid.UUID
	payerAccountID uuid.UUID
	payeeAccountID uuid.UUID
	amount         valueobjects.Money
	captured       valueobjects.Money
	status         HoldStatus
	entryID        uuid.UUID // journal entry that moved the funds to HELD
	expiresAt      time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewHold creates an active hold. The journal entry id binds the hold to the
// AVAILABLE→HELD movement posted in the same transaction. now is the
// caller's clock — the deadline is validated against it, not the wall clock.
func NewHold(
	payerAccountID, payeeAccountID uuid.UUID,
	amount valueobjects.Money,
	entryID uuid.UUID,
	expiresAt time.Time,
	now time.Time,
) (*Hold, error) {
	if payerAccountID == uuid.Nil || payeeAccountID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payer and payee accounts are required")
	}
	if payerAccountID == payeeAccountID {
		return nil, errors.New(errors.CodeSelfTransfer, "cannot hold funds for yourself")
	}
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "hold amount must be positive")
	}
	if entryID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "journal entry id is required")
	}
	if !expiresAt.After(now) {
		return nil, errors.New(errors.CodeValidation, "hold expiry must be in the future")
	}
	return &Hold{
		id:             uuid.New(),
		payerAccountID: payerAccountID,
		payeeAccountID: payeeAccountID,
		amount:         amount,
		captured:       valueobjects.Zero(amount.Currency()),
		status:         HoldStatusActive,
		entryID:        entryID,
		expiresAt:      expiresAt,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructHold reconstructs a Hold from stored data.
func ReconstructHold(
	id uuid.UUID,
	payerAccountID, payeeAccountID uuid.UUID,
	amount, captured valueobjects.Money,
	status HoldStatus,
	entryID uuid.UUID,
	expiresAt, createdAt, updatedAt time.Time,
) *Hold {
	return &Hold{
		id:             id,
		payerAccountID: payerAccountID,
		payeeAccountID: payeeAccountID,
		amount:         amount,
		captured:       captured,
		status:         status,
		entryID:        entryID,
		expiresAt:      expiresAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (h *Hold) ID() uuid.UUID                 { return h.id }
func (h *Hold) PayerAccountID() uuid.UUID     { return h.payerAccountID }
func (h *Hold) PayeeAccountID() uuid.UUID     { return h.payeeAccountID }
func (h *Hold) Amount() valueobjects.Money    { return h.amount }
func (h *Hold) Captured() valueobjects.Money  { return h.captured }
func (h *Hold) Status() HoldStatus            { return h.status }
func (h *Hold) EntryID() uuid.UUID            { return h.entryID }
func (h *Hold) ExpiresAt() time.Time          { return h.expiresAt }
func (h *Hold) CreatedAt() time.Time          { return h.createdAt }
func (h *Hold) UpdatedAt() time.Time          { return h.updatedAt }

// Remaining returns the uncaptured portion of the hold.
func (h *Hold) Remaining() valueobjects.Money {
	remaining, err := h.amount.Subtract(h.captured)
	if err != nil {
		// captured never exceeds amount; Capture enforces it
		return valueobjects.Zero(h.amount.Currency())
	}
	return remaining
}

// IsCapturable reports whether the hold can still accept captures.
func (h *Hold) IsCapturable() bool {
	return h.status == HoldStatusActive || h.status == HoldStatusPartiallyCaptured
}

// ExpireIfDue transitions the hold to EXPIRED when its deadline has passed
// and it is still capturable. Returns the amount that moves back to the
// payer's available bucket, and true if a transition happened. Callers must
// hold the payer's account lock and post the matching RELEASE entry.
func (h *Hold) ExpireIfDue(now time.Time) (valueobjects.Money, bool) {
	if !h.IsCapturable() || now.Before(h.expiresAt) {
		return valueobjects.Zero(h.amount.Currency()), false
	}
	returned := h.Remaining()
	h.status = HoldStatusExpired
	h.updatedAt = now
	return returned, true
}

// Capture records a capture of the given amount against the hold.
// Partial captures are allowed; the cumulative captured amount can never
// exceed the hold amount.
func (h *Hold) Capture(amount valueobjects.Money, now time.Time) error {
	if !h.IsCapturable() {
		if h.status == HoldStatusExpired {
			return errors.New(errors.CodeHoldExpired, "hold has expired")
		}
		return errors.Newf(errors.CodeHoldNotActive, "hold is %s", h.status)
	}
	// The deadline is re-checked here, under the payer's lock: time spent
	// waiting on the lock must not let a capture land past expires-at.
	if !now.Before(h.expiresAt) {
		return errors.New(errors.CodeHoldExpired, "hold has expired")
	}
	if !amount.IsPositive() {
		return errors.New(errors.CodeValidation, "capture amount must be positive")
	}
	ok, err := h.Remaining().GreaterThanOrEqual(amount)
	if err != nil {
		return errors.Wrap(errors.CodeCurrencyMismatch, "capture amount", err)
	}
	if !ok {
		return errors.New(errors.CodeInsufficientFunds, "capture exceeds remaining held amount").
			WithDetails(map[string]interface{}{
				"remaining": h.Remaining().String(),
				"requested": amount.String(),
			})
	}

	captured, err := h.captured.Add(amount)
	if err != nil {
		return errors.Wrap(errors.CodeArithmetic, "accumulating captures", err)
	}
	h.captured = captured
	if h.captured.Equals(h.amount) {
		h.status = HoldStatusCaptured
	} else {
		h.status = HoldStatusPartiallyCaptured
	}
	h.updatedAt = now
	return nil
}

// Release ends the hold and returns the remaining funds to the payer.
// Returns the released amount for the matching RELEASE journal entry.
func (h *Hold) Release(now time.Time) (valueobjects.Money, error) {
	if !h.IsCapturable() {
		if h.status == HoldStatusExpired {
			return valueobjects.Money{}, errors.New(errors.CodeHoldExpired, "hold has expired")
		}
		return valueobjects.Money{}, errors.Newf(errors.CodeHoldNotActive, "hold is %s", h.status)
	}
	returned := h.Remaining()
	h.status = HoldStatusReleased
	h.updatedAt = now
	return returned, nil
}
