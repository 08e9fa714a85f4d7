package entities

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// IntentStatus is the lifecycle state of a payment intent.
//
//	PENDING ──pay──► PAID
//	PENDING ──deadline passes──► EXPIRED
//	PENDING ──cancel──► CANCELLED
//
// PAID, EXPIRED and CANCELLED are terminal. An intent is paid at most once.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "PENDING"
	IntentStatusPaid      IntentStatus = "PAID"
	IntentStatusExpired   IntentStatus = "EXPIRED"
	IntentStatusCancelled IntentStatus = "CANCELLED"
)

// PaymentIntent is a payee-created request for a fixed amount. Any wallet
// except the payee's own may settle it while it is PENDING. Unlike a hold it
// reserves nothing — funds move only at pay time.
type PaymentIntent struct {
	id             uuid.UUID
	payeeAccountID uuid.UUID
	amount         valueobjects.Money
	status         IntentStatus
	description    string
	payerAccountID *uuid.UUID // set when paid
	entryID        *uuid.UUID // INTENT_PAY journal entry, set when paid
	expiresAt      time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewPaymentIntent creates a pending intent for the payee account. now is
// the caller's clock — the deadline is validated against it, not the wall
// clock.
func NewPaymentIntent(
	payeeAccountID uuid.UUID,
	amount valueobjects.Money,
	description string,
	expiresAt time.Time,
	now time.Time,
) (*PaymentIntent, error) {
	if payeeAccountID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payee account is required")
	}
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "intent amount must be positive")
	}
	if !expiresAt.After(now) {
		return nil, errors.New(errors.CodeValidation, "intent expiry must be in the future")
	}
	return &PaymentIntent{
		id:             uuid.New(),
		payeeAccountID: payeeAccountID,
		amount:         amount,
		status:         IntentStatusPending,
		description:    description,
		expiresAt:      expiresAt,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructPaymentIntent reconstructs an intent from stored data.
func ReconstructPaymentIntent(
	id uuid.UUID,
	payeeAccountID uuid.UUID,
	amount valueobjects.Money,
	status IntentStatus,
	description string,
	payerAccountID *uuid.UUID,
	entryID *uuid.UUID,
	expiresAt, createdAt, updatedAt time.Time,
) *PaymentIntent {
	return &PaymentIntent{
		id:             id,
		payeeAccountID: payeeAccountID,
		amount:         amount,
		status:         status,
		description:    description,
		payerAccountID: payerAccountID,
		entryID:        entryID,
		expiresAt:      expiresAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (p *PaymentIntent) ID() uuid.UUID              { return p.id }
func (p *PaymentIntent) PayeeAccountID() uuid.UUID  { return p.payeeAccountID }
func (p *PaymentIntent) Amount() valueobjects.Money { return p.amount }
func (p *PaymentIntent) Status() IntentStatus       { return p.status }
func (p *PaymentIntent) Description() string        { return p.description }
func (p *PaymentIntent) PayerAccountID() *uuid.UUID { return p.payerAccountID }
func (p *PaymentIntent) EntryID() *uuid.UUID        { return p.entryID }
func (p *PaymentIntent) ExpiresAt() time.Time       { return p.expiresAt }
func (p *PaymentIntent) CreatedAt() time.Time       { return p.createdAt }
func (p *PaymentIntent) UpdatedAt() time.Time       { return p.updatedAt }

// ExpireIfDue transitions a pending intent past its deadline to EXPIRED.
// Returns true if a transition happened. Nothing is returned to anyone —
// intents reserve no funds.
func (p *PaymentIntent) ExpireIfDue(now time.Time) bool {
	if p.status != IntentStatusPending || now.Before(p.expiresAt) {
		return false
	}
	p.status = IntentStatusExpired
	p.updatedAt = now
	return true
}

// Pay settles the intent: records the payer and the INTENT_PAY entry.
// The payee cannot pay its own intent.
func (p *PaymentIntent) Pay(payerAccountID, entryID uuid.UUID, now time.Time) error {
	switch p.status {
	case IntentStatusPending:
	case IntentStatusPaid:
		return errors.New(errors.CodeIntentAlreadyPaid, "intent has already been paid")
	case IntentStatusExpired:
		return errors.New(errors.CodeIntentExpired, "intent has expired")
	default:
		return errors.Newf(errors.CodeIntentExpired, "intent is %s", p.status)
	}
	// Re-checked under lock: waiting on the payer's row lock must not let a
	// payment land past expires-at.
	if !now.Before(p.expiresAt) {
		return errors.New(errors.CodeIntentExpired, "intent has expired")
	}
	if payerAccountID == p.payeeAccountID {
		return errors.New(errors.CodeSelfTransfer, "cannot pay your own intent")
	}
	if payerAccountID == uuid.Nil || entryID == uuid.Nil {
		return errors.New(errors.CodeValidation, "payer account and entry id are required")
	}
	p.status = IntentStatusPaid
	p.payerAccountID = &payerAccountID
	p.entryID = &entryID
	p.updatedAt = now
	return nil
}

// Cancel voids a pending intent. Only the payee may cancel; the use case
// enforces ownership.
func (p *PaymentIntent) Cancel(now time.Time) error {
	switch p.status {
	case IntentStatusPending:
		p.status = IntentStatusCancelled
		p.updatedAt = now
		return nil
	case IntentStatusPaid:
		return errors.New(errors.CodeIntentAlreadyPaid, "intent has already been paid")
	default:
		return errors.Newf(errors.CodeIntentExpired, "intent is %s", p.status)
	}
}
