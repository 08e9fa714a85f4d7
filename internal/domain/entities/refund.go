package entities

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// Refund reverses part or all of a CAPTURE journal entry. The money flows
// payee → payer in the AVAILABLE bucket; the sum of all refunds against one
// capture can never exceed the captured amount.
//
// Refunds reference entries, not holds: a hold captured twice yields two
// capture entries, each refundable independently up to its own amount.
type Refund struct {
	id             uuid.UUID
	captureEntryID uuid.UUID
	entryID        uuid.UUID // REFUND journal entry
	amount         valueobjects.Money
	reason         string
	createdAt      time.Time
}

// NewRefund records a refund of the given amount against a capture entry.
// Over-refund checks happen in the use case, which sums prior refunds under
// the payee's lock before constructing this.
func NewRefund(captureEntryID, entryID uuid.UUID, amount valueobjects.Money, reason string) (*Refund, error) {
	if captureEntryID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "capture entry id is required")
	}
	if entryID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "journal entry id is required")
	}
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "refund amount must be positive")
	}
	return &Refund{
		id:             uuid.New(),
		captureEntryID: captureEntryID,
		entryID:        entryID,
		amount:         amount,
		reason:         reason,
		createdAt:      time.Now().UTC(),
	}, nil
}

// ReconstructRefund reconstructs a Refund from stored data.
func ReconstructRefund(
	id, captureEntryID, entryID uuid.UUID,
	amount valueobjects.Money,
	reason string,
	createdAt time.Time,
) *Refund {
	return &Refund{
		id:             id,
		captureEntryID: captureEntryID,
		entryID:        entryID,
		amount:         amount,
		reason:         reason,
		createdAt:      createdAt,
	}
}

func (r *Refund) ID() uuid.UUID              { return r.id }
func (r *Refund) CaptureEntryID() uuid.UUID  { return r.captureEntryID }
func (r *Refund) EntryID() uuid.UUID         { return r.entryID }
func (r *Refund) Amount() valueobjects.Money { return r.amount }
func (r *Refund) Reason() string             { return r.reason }
func (r *Refund) CreatedAt() time.Time       { return r.createdAt }

// CheckRefundable verifies that refunding `amount` against a capture of
// `captured` with `alreadyRefunded` prior refunds stays within the captured
// total.
func CheckRefundable(captured, alreadyRefunded, amount valueobjects.Money) error {
	total, err := alreadyRefunded.Add(amount)
	if err != nil {
		return errors.Wrap(errors.CodeArithmetic, "summing refunds", err)
	}
	ok, err := captured.GreaterThanOrEqual(total)
	if err != nil {
		return errors.Wrap(errors.CodeCurrencyMismatch, "refund amount", err)
	}
	if !ok {
		return errors.New(errors.CodeRefundExceedsCapture, "refund exceeds captured amount").
			WithDetails(map[string]interface{}{
				"captured":         captured.String(),
				"already_refunded": alreadyRefunded.String(),
				"requested":        amount.String(),
			})
	}
	return nil
}
