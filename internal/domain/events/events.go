// Package events defines domain events that represent significant business occurrences.
// Events are immutable facts about what happened in the past.
//
// Pattern: Domain Events (Observer Pattern foundation)
// - Events are raised by use cases after the journal commit succeeds
// - Publishers forward them to messaging (NATS) for downstream consumers
// - Enables loose coupling between the ledger core and notification/analytics
package events

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// DomainEvent is the base interface for all domain events.
// All events have an ID, timestamp, type, and the aggregate that raised them.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
}

// BaseEvent provides common fields for all events.
// Embedded in specific event types to avoid duplication.
type BaseEvent struct {
	eventID     uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID uuid.UUID
}

func newBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		eventType:   eventType,
		occurredAt:  time.Now().UTC(),
		aggregateID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID {
	return e.eventID
}

func (e BaseEvent) EventType() string {
	return e.eventType
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

func (e BaseEvent) AggregateID() uuid.UUID {
	return e.aggregateID
}

// Event Types. These double as NATS subjects in the messaging adapter.
const (
	EventTypeWalletCreated  = "wallet.created"
	EventTypeEntryPosted    = "ledger.entry.posted"
	EventTypeDepositPosted  = "ledger.deposit.posted"
	EventTypeHoldCreated    = "hold.created"
	EventTypeHoldCaptured   = "hold.captured"
	EventTypeHoldReleased   = "hold.released"
	EventTypeHoldExpired    = "hold.expired"
	EventTypeIntentCreated  = "intent.created"
	EventTypeIntentPaid     = "intent.paid"
	EventTypeRefundPosted   = "refund.posted"
)

// ===== Wallet Events =====

// WalletCreated is raised when a new wallet is created.
type WalletCreated struct {
	BaseEvent
	Handle   *string
	Currency valueobjects.Currency
}

func NewWalletCreated(walletID uuid.UUID, handle *string, currency valueobjects.Currency) *WalletCreated {
	return &WalletCreated{
		BaseEvent: newBaseEvent(EventTypeWalletCreated, walletID),
		Handle:    handle,
		Currency:  currency,
	}
}

// ===== Journal Events =====

// EntryPosted is raised for every committed journal entry regardless of kind.
// Consumers that only care about specific kinds filter on Kind.
type EntryPosted struct {
	BaseEvent
	EntryID  uuid.UUID
	Kind     string
	Amount   valueobjects.Money
	PayerID  uuid.UUID // ledger account debited, uuid.Nil for deposits
	PayeeID  uuid.UUID // ledger account credited
	PostedAt time.Time
}

func NewEntryPosted(entryID uuid.UUID, kind string, amount valueobjects.Money, payerID, payeeID uuid.UUID, postedAt time.Time) *EntryPosted {
	return &EntryPosted{
		BaseEvent: newBaseEvent(EventTypeEntryPosted, entryID),
		EntryID:   entryID,
		Kind:      kind,
		Amount:    amount,
		PayerID:   payerID,
		PayeeID:   payeeID,
		PostedAt:  postedAt,
	}
}

// DepositPosted is raised when system funding credits a wallet.
type DepositPosted struct {
	BaseEvent
	EntryID  uuid.UUID
	WalletID uuid.UUID
	Amount   valueobjects.Money
}

func NewDepositPosted(entryID, walletID uuid.UUID, amount valueobjects.Money) *DepositPosted {
	return &DepositPosted{
		BaseEvent: newBaseEvent(EventTypeDepositPosted, entryID),
		EntryID:   entryID,
		WalletID:  walletID,
		Amount:    amount,
	}
}

// ===== Hold Events =====

// HoldCreated is raised when funds move from available to held.
type HoldCreated struct {
	BaseEvent
	HoldID    uuid.UUID
	PayerID   uuid.UUID
	PayeeID   uuid.UUID
	Amount    valueobjects.Money
	ExpiresAt time.Time
}

func NewHoldCreated(holdID, payerID, payeeID uuid.UUID, amount valueobjects.Money, expiresAt time.Time) *HoldCreated {
	return &HoldCreated{
		BaseEvent: newBaseEvent(EventTypeHoldCreated, holdID),
		HoldID:    holdID,
		PayerID:   payerID,
		PayeeID:   payeeID,
		Amount:    amount,
		ExpiresAt: expiresAt,
	}
}

// HoldCaptured is raised for each capture against a hold, full or partial.
type HoldCaptured struct {
	BaseEvent
	HoldID    uuid.UUID
	EntryID   uuid.UUID
	Amount    valueobjects.Money
	Remaining valueobjects.Money
}

func NewHoldCaptured(holdID, entryID uuid.UUID, amount, remaining valueobjects.Money) *HoldCaptured {
	return &HoldCaptured{
		BaseEvent: newBaseEvent(EventTypeHoldCaptured, holdID),
		HoldID:    holdID,
		EntryID:   entryID,
		Amount:    amount,
		Remaining: remaining,
	}
}

// HoldReleased is raised when the remaining held funds return to available.
type HoldReleased struct {
	BaseEvent
	HoldID   uuid.UUID
	Returned valueobjects.Money
}

func NewHoldReleased(holdID uuid.UUID, returned valueobjects.Money) *HoldReleased {
	return &HoldReleased{
		BaseEvent: newBaseEvent(EventTypeHoldReleased, holdID),
		HoldID:    holdID,
		Returned:  returned,
	}
}

// HoldExpired is raised when lazy expiry (or the sweeper) transitions a hold
// past its deadline and returns the remainder to available.
type HoldExpired struct {
	BaseEvent
	HoldID   uuid.UUID
	Returned valueobjects.Money
}

func NewHoldExpired(holdID uuid.UUID, returned valueobjects.Money) *HoldExpired {
	return &HoldExpired{
		BaseEvent: newBaseEvent(EventTypeHoldExpired, holdID),
		HoldID:    holdID,
		Returned:  returned,
	}
}

// ===== Payment Intent Events =====

// IntentCreated is raised when a payment intent is opened.
type IntentCreated struct {
	BaseEvent
	IntentID  uuid.UUID
	PayeeID   uuid.UUID
	Amount    valueobjects.Money
	ExpiresAt time.Time
}

func NewIntentCreated(intentID, payeeID uuid.UUID, amount valueobjects.Money, expiresAt time.Time) *IntentCreated {
	return &IntentCreated{
		BaseEvent: newBaseEvent(EventTypeIntentCreated, intentID),
		IntentID:  intentID,
		PayeeID:   payeeID,
		Amount:    amount,
		ExpiresAt: expiresAt,
	}
}

// IntentPaid is raised when a payer settles an intent.
type IntentPaid struct {
	BaseEvent
	IntentID uuid.UUID
	EntryID  uuid.UUID
	PayerID  uuid.UUID
	Amount   valueobjects.Money
}

func NewIntentPaid(intentID, entryID, payerID uuid.UUID, amount valueobjects.Money) *IntentPaid {
	return &IntentPaid{
		BaseEvent: newBaseEvent(EventTypeIntentPaid, intentID),
		IntentID:  intentID,
		EntryID:   entryID,
		PayerID:   payerID,
		Amount:    amount,
	}
}

// ===== Refund Events =====

// RefundPosted is raised when a refund entry reverses (part of) a capture.
type RefundPosted struct {
	BaseEvent
	RefundID       uuid.UUID
	EntryID        uuid.UUID
	CaptureEntryID uuid.UUID
	Amount         valueobjects.Money
}

func NewRefundPosted(refundID, entryID, captureEntryID uuid.UUID, amount valueobjects.Money) *RefundPosted {
	return &RefundPosted{
		BaseEvent:      newBaseEvent(EventTypeRefundPosted, refundID),
		RefundID:       refundID,
		EntryID:        entryID,
		CaptureEntryID: captureEntryID,
		Amount:         amount,
	}
}

// EventStore collects events raised during a single transaction so they can be
// published together after commit.
type EventStore struct {
	events []DomainEvent
}

// NewEventStore creates a new event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make([]DomainEvent, 0),
	}
}

// Add appends an event to the store.
func (s *EventStore) Add(event DomainEvent) {
	s.events = append(s.events, event)
}

// GetAll returns all collected events.
func (s *EventStore) GetAll() []DomainEvent {
	return s.events
}

// Clear removes all events from the store.
func (s *EventStore) Clear() {
	s.events = make([]DomainEvent, 0)
}
