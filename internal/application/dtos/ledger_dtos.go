// Package dtos - commands and response DTOs crossing the application boundary.
//
// Amounts travel as canonical decimal strings ("100.50"); the application
// layer parses them into Money and never trusts floats.
package dtos

import (
	"fmt"
	"time"
)

// ============================================
// Commands (write operations)
// ============================================

// Write commands carry an idempotency key and produce a deterministic
// canonical form via Canonical(). The idempotency manager fingerprints that
// form: same key + same canonical form replays, same key + different form
// conflicts. The key itself is excluded from the form.

// TransferCommand moves available funds from the caller's wallet to a
// recipient.
type TransferCommand struct {
	Recipient      string `json:"to" binding:"required,recipient"`
	Amount         string `json:"amount" binding:"required,money_amount"`
	CurrencyCode   string `json:"currency" binding:"required,currency_code"`
	Description    string `json:"description,omitempty" binding:"max=500"`
	IdempotencyKey string `json:"-"`
}

func (c TransferCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("transfer|to=%s|amount=%s|currency=%s|desc=%s",
		c.Recipient, c.Amount, c.CurrencyCode, c.Description))
}

// CreateHoldCommand reserves the caller's funds for a recipient.
type CreateHoldCommand struct {
	Recipient      string `json:"to" binding:"required,recipient"`
	Amount         string `json:"amount" binding:"required,money_amount"`
	CurrencyCode   string `json:"currency" binding:"required,currency_code"`
	TTLSeconds     int64  `json:"ttl_seconds" binding:"required,min=1,max=86400"`
	Description    string `json:"description,omitempty" binding:"max=500"`
	IdempotencyKey string `json:"-"`
}

func (c CreateHoldCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("hold|to=%s|amount=%s|currency=%s|ttl=%d|desc=%s",
		c.Recipient, c.Amount, c.CurrencyCode, c.TTLSeconds, c.Description))
}

// CaptureHoldCommand captures part or all of a hold. Empty Amount means
// "capture the full remaining amount".
type CaptureHoldCommand struct {
	HoldID         string `json:"-"`
	Amount         string `json:"amount,omitempty" binding:"omitempty,money_amount"`
	IdempotencyKey string `json:"-"`
}

func (c CaptureHoldCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("capture|hold=%s|amount=%s", c.HoldID, c.Amount))
}

// ReleaseHoldCommand returns the remaining held funds to the payer.
type ReleaseHoldCommand struct {
	HoldID         string `json:"-"`
	IdempotencyKey string `json:"-"`
}

func (c ReleaseHoldCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("release|hold=%s", c.HoldID))
}

// CreateIntentCommand opens a payment intent payable to the caller.
type CreateIntentCommand struct {
	Amount         string `json:"amount" binding:"required,money_amount"`
	CurrencyCode   string `json:"currency" binding:"required,currency_code"`
	TTLSeconds     int64  `json:"ttl_seconds" binding:"required,min=1,max=86400"`
	Description    string `json:"description,omitempty" binding:"max=500"`
	IdempotencyKey string `json:"-"`
}

func (c CreateIntentCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("intent-create|amount=%s|currency=%s|ttl=%d|desc=%s",
		c.Amount, c.CurrencyCode, c.TTLSeconds, c.Description))
}

// PayIntentCommand settles a pending intent from the caller's wallet.
type PayIntentCommand struct {
	IntentID       string `json:"-"`
	IdempotencyKey string `json:"-"`
}

func (c PayIntentCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("intent-pay|intent=%s", c.IntentID))
}

// RefundCommand reverses part or all of a capture entry. Empty Amount means
// "refund everything still refundable".
type RefundCommand struct {
	CaptureEntryID string `json:"capture_entry_id" binding:"required,uuid"`
	Amount         string `json:"amount,omitempty" binding:"omitempty,money_amount"`
	Reason         string `json:"reason,omitempty" binding:"max=500"`
	IdempotencyKey string `json:"-"`
}

func (c RefundCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("refund|capture=%s|amount=%s|reason=%s",
		c.CaptureEntryID, c.Amount, c.Reason))
}

// DepositCommand credits a wallet from the system account. Admin only.
type DepositCommand struct {
	Recipient      string `json:"to" binding:"required,recipient"`
	Amount         string `json:"amount" binding:"required,money_amount"`
	CurrencyCode   string `json:"currency" binding:"required,currency_code"`
	Description    string `json:"description,omitempty" binding:"max=500"`
	IdempotencyKey string `json:"-"`
}

func (c DepositCommand) Canonical() []byte {
	return []byte(fmt.Sprintf("deposit|to=%s|amount=%s|currency=%s|desc=%s",
		c.Recipient, c.Amount, c.CurrencyCode, c.Description))
}

// ============================================
// Queries (read operations)
// ============================================

// ListTransactionsQuery pages the caller's journal entries, newest first.
type ListTransactionsQuery struct {
	Kind   string `form:"kind" binding:"omitempty,oneof=TRANSFER DEPOSIT HOLD CAPTURE RELEASE INTENT_PAY REFUND"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
}

// ResolveRecipientQuery resolves a recipient reference without moving money.
type ResolveRecipientQuery struct {
	Recipient string `form:"to" binding:"required,recipient"`
}

// ============================================
// Response DTOs
// ============================================

// BalanceDTO is the derived balance of the caller's account.
type BalanceDTO struct {
	WalletID  string `json:"wallet_id"`
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Held      string `json:"held"`
}

// LineDTO is one leg of an entry as seen by the caller.
type LineDTO struct {
	AccountID string `json:"account_id"`
	Side      string `json:"side"`
	Bucket    string `json:"bucket"`
	Amount    string `json:"amount"`
}

// EntryDTO is a journal entry in API form.
type EntryDTO struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Lines         []LineDTO `json:"lines"`
	LinkedEntryID *string   `json:"linked_entry_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionListDTO is one cursor page of entries.
type TransactionListDTO struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// HoldDTO is a hold in API form.
type HoldDTO struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	Captured  string    `json:"captured"`
	Remaining string    `json:"remaining"`
	Currency  string    `json:"currency"`
	EntryID   string    `json:"entry_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CaptureResultDTO is the outcome of a capture.
type CaptureResultDTO struct {
	Hold  HoldDTO  `json:"hold"`
	Entry EntryDTO `json:"entry"`
}

// IntentDTO is a payment intent in API form.
type IntentDTO struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	EntryID     *string   `json:"entry_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// RefundDTO is a refund in API form.
type RefundDTO struct {
	ID             string    `json:"id"`
	CaptureEntryID string    `json:"capture_entry_id"`
	EntryID        string    `json:"entry_id"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResolvedRecipientDTO is the outcome of recipient resolution.
type ResolvedRecipientDTO struct {
	WalletID    string  `json:"wallet_id"`
	Handle      *string `json:"handle,omitempty"`
	DisplayName string  `json:"display_name"`
}
