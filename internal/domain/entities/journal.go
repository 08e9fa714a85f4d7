package entities

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// EntryKind classifies why an entry was posted. The kind never changes the
// accounting rules — every entry balances — it only records intent and lets
// refunds find captures.
type EntryKind string

const (
	EntryKindTransfer  EntryKind = "TRANSFER"
	EntryKindDeposit   EntryKind = "DEPOSIT"
	EntryKindHold      EntryKind = "HOLD"
	EntryKindCapture   EntryKind = "CAPTURE"
	EntryKindRelease   EntryKind = "RELEASE"
	EntryKindIntentPay EntryKind = "INTENT_PAY"
	EntryKindRefund    EntryKind = "REFUND"
)

// IsValid checks if the entry kind is one of the known kinds.
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryKindTransfer, EntryKindDeposit, EntryKindHold, EntryKindCapture,
		EntryKindRelease, EntryKindIntentPay, EntryKindRefund:
		return true
	default:
		return false
	}
}

// Side is the debit/credit direction of a journal line.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Bucket is the balance bucket a line affects. Holds move money between the
// AVAILABLE and HELD buckets of the same account; transfers stay in AVAILABLE.
type Bucket string

const (
	BucketAvailable Bucket = "AVAILABLE"
	BucketHeld      Bucket = "HELD"
)

// JournalLine is one leg of a balanced entry. Amount is always positive; the
// direction is carried by Side.
type JournalLine struct {
	id        uuid.UUID
	entryID   uuid.UUID
	accountID uuid.UUID
	side      Side
	bucket    Bucket
	amount    valueobjects.Money
}

// NewJournalLine creates a line. Lines are only ever created as part of an
// entry, never appended to a committed one.
func NewJournalLine(accountID uuid.UUID, side Side, bucket Bucket, amount valueobjects.Money) (JournalLine, error) {
	if accountID == uuid.Nil {
		return JournalLine{}, errors.New(errors.CodeValidation, "line account id is required")
	}
	if side != SideDebit && side != SideCredit {
		return JournalLine{}, errors.Newf(errors.CodeValidation, "unknown side %q", side)
	}
	if bucket != BucketAvailable && bucket != BucketHeld {
		return JournalLine{}, errors.Newf(errors.CodeValidation, "unknown bucket %q", bucket)
	}
	if !amount.IsPositive() {
		return JournalLine{}, errors.New(errors.CodeValidation, "line amount must be positive")
	}
	return JournalLine{
		id:        uuid.New(),
		accountID: accountID,
		side:      side,
		bucket:    bucket,
		amount:    amount,
	}, nil
}

// ReconstructJournalLine reconstructs a line from stored data.
func ReconstructJournalLine(id, entryID, accountID uuid.UUID, side Side, bucket Bucket, amount valueobjects.Money) JournalLine {
	return JournalLine{
		id:        id,
		entryID:   entryID,
		accountID: accountID,
		side:      side,
		bucket:    bucket,
		amount:    amount,
	}
}

func (l JournalLine) ID() uuid.UUID              { return l.id }
func (l JournalLine) EntryID() uuid.UUID         { return l.entryID }
func (l JournalLine) AccountID() uuid.UUID       { return l.accountID }
func (l JournalLine) Side() Side                 { return l.side }
func (l JournalLine) Bucket() Bucket             { return l.bucket }
func (l JournalLine) Amount() valueobjects.Money { return l.amount }

// IsDebit returns true for debit lines.
func (l JournalLine) IsDebit() bool { return l.side == SideDebit }

// JournalEntry is an immutable, balanced, append-only record of a money
// movement. Once committed an entry is never updated or deleted; corrections
// are new entries (refunds, releases).
//
// Invariant enforced at construction: the sum of debit amounts equals the sum
// of credit amounts, all lines share one currency, and there are at least two
// lines.
type JournalEntry struct {
	id            uuid.UUID
	kind          EntryKind
	lines         []JournalLine
	linkedEntryID *uuid.UUID // CAPTURE → hold's entry, REFUND → capture's entry
	description   string
	metadata      map[string]string
	createdAt     time.Time
}

// NewJournalEntry builds and validates a balanced entry. The entry id is
// stamped onto each line so the persistence layer can insert lines directly.
func NewJournalEntry(kind EntryKind, lines []JournalLine, linkedEntryID *uuid.UUID, description string) (*JournalEntry, error) {
	if !kind.IsValid() {
		return nil, errors.Newf(errors.CodeValidation, "unknown entry kind %q", kind)
	}
	if len(lines) < 2 {
		return nil, errors.New(errors.CodeValidation, "entry needs at least two lines")
	}

	currency := lines[0].amount.Currency()
	debits := valueobjects.Zero(currency)
	credits := valueobjects.Zero(currency)
	var err error
	for _, line := range lines {
		if !line.amount.Currency().Equals(currency) {
			return nil, errors.New(errors.CodeCurrencyMismatch, "entry lines must share one currency")
		}
		if line.IsDebit() {
			debits, err = debits.Add(line.amount)
		} else {
			credits, err = credits.Add(line.amount)
		}
		if err != nil {
			return nil, errors.Wrap(errors.CodeArithmetic, "summing entry lines", err)
		}
	}
	if !debits.Equals(credits) {
		return nil, errors.New(errors.CodeArithmetic, "entry does not balance").
			WithDetails(map[string]interface{}{
				"debits":  debits.String(),
				"credits": credits.String(),
			})
	}

	id := uuid.New()
	stamped := make([]JournalLine, len(lines))
	for i, line := range lines {
		line.entryID = id
		stamped[i] = line
	}

	return &JournalEntry{
		id:            id,
		kind:          kind,
		lines:         stamped,
		linkedEntryID: linkedEntryID,
		description:   description,
		createdAt:     time.Now().UTC(),
	}, nil
}

// ReconstructJournalEntry reconstructs an entry from stored data.
// No balance re-validation: the journal is trusted once committed.
func ReconstructJournalEntry(
	id uuid.UUID,
	kind EntryKind,
	lines []JournalLine,
	linkedEntryID *uuid.UUID,
	description string,
	metadata map[string]string,
	createdAt time.Time,
) *JournalEntry {
	return &JournalEntry{
		id:            id,
		kind:          kind,
		lines:         lines,
		linkedEntryID: linkedEntryID,
		description:   description,
		metadata:      metadata,
		createdAt:     createdAt,
	}
}

func (e *JournalEntry) ID() uuid.UUID            { return e.id }
func (e *JournalEntry) Kind() EntryKind          { return e.kind }
func (e *JournalEntry) LinkedEntryID() *uuid.UUID { return e.linkedEntryID }
func (e *JournalEntry) Description() string      { return e.description }
func (e *JournalEntry) Metadata() map[string]string { return e.metadata }
func (e *JournalEntry) CreatedAt() time.Time     { return e.createdAt }

// Lines returns a copy of the entry's lines to preserve immutability.
func (e *JournalEntry) Lines() []JournalLine {
	out := make([]JournalLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// SetMetadata attaches free-form metadata before the entry is persisted.
func (e *JournalEntry) SetMetadata(metadata map[string]string) {
	e.metadata = metadata
}

// Amount returns the total debit side of the entry, which for the two-line
// entries this ledger posts is the operation amount.
func (e *JournalEntry) Amount() valueobjects.Money {
	currency := e.lines[0].amount.Currency()
	total := valueobjects.Zero(currency)
	for _, line := range e.lines {
		if line.IsDebit() {
			sum, err := total.Add(line.amount)
			if err != nil {
				return total
			}
			total = sum
		}
	}
	return total
}

// DebitLine returns the first line matching side DEBIT and the given bucket,
// or false when absent. Used by refunds to find the payer of a capture.
func (e *JournalEntry) DebitLine(bucket Bucket) (JournalLine, bool) {
	return e.findLine(SideDebit, bucket)
}

// CreditLine returns the first line matching side CREDIT and the given bucket.
func (e *JournalEntry) CreditLine(bucket Bucket) (JournalLine, bool) {
	return e.findLine(SideCredit, bucket)
}

func (e *JournalEntry) findLine(side Side, bucket Bucket) (JournalLine, bool) {
	for _, line := range e.lines {
		if line.side == side && line.bucket == bucket {
			return line, true
		}
	}
	return JournalLine{}, false
}
