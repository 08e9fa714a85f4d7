// Package dtos - admin surface commands and DTOs.
package dtos

import "time"

// CreateWalletCommand creates a wallet, optionally with a handle and an
// external identity binding.
type CreateWalletCommand struct {
	DisplayName  string  `json:"display_name" binding:"required,max=200"`
	Handle       string  `json:"handle,omitempty" binding:"omitempty,max=64"`
	CurrencyCode string  `json:"currency" binding:"required,currency_code"`
	Provider     *string `json:"provider,omitempty" binding:"omitempty,max=64"`
	ExternalID   *string `json:"external_id,omitempty" binding:"omitempty,max=255"`
}

// IssueAPIKeyCommand issues an API key bound to a wallet. The plaintext
// secret appears exactly once, in the response. Limit amounts are parsed in
// the currency of the wallet's account.
type IssueAPIKeyCommand struct {
	WalletID      string   `json:"wallet_id" binding:"required,uuid"`
	Label         string   `json:"label,omitempty" binding:"max=200"`
	Scopes        []string `json:"scopes" binding:"required,min=1"`
	CurrencyCode  string   `json:"currency,omitempty" binding:"omitempty,currency_code"`
	PerTxMax      *string  `json:"per_tx_max,omitempty" binding:"omitempty,money_amount"`
	WindowCeiling *string  `json:"window_ceiling,omitempty" binding:"omitempty,money_amount"`
	WindowSeconds *int64   `json:"window_seconds,omitempty" binding:"omitempty,min=1"`
}

// RevokeAPIKeyCommand revokes a key permanently.
type RevokeAPIKeyCommand struct {
	APIKeyID string `json:"-"`
}

// SetWalletStatusCommand freezes or unfreezes a wallet.
type SetWalletStatusCommand struct {
	WalletID string `json:"-"`
	Status   string `json:"status" binding:"required,oneof=ACTIVE FROZEN"`
}

// WalletDTO is a wallet in API form.
type WalletDTO struct {
	ID          string    `json:"id"`
	Handle      *string   `json:"handle,omitempty"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	Currency    string    `json:"currency"`
	AccountID   string    `json:"account_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// IssuedAPIKeyDTO carries the one-time plaintext key.
type IssuedAPIKeyDTO struct {
	ID        string   `json:"id"`
	WalletID  string   `json:"wallet_id"`
	Label     string   `json:"label,omitempty"`
	Scopes    []string `json:"scopes"`
	PlainKey  string   `json:"key"` // shown once, never stored
	CreatedAt time.Time `json:"created_at"`
}
