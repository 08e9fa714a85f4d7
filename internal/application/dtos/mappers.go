// Package dtos - mappers from domain entities to response DTOs.
// Mapping lives here so handlers and use cases never duplicate it, and the
// idempotency snapshot serializes exactly what the API returns.
package dtos

import (
	"github.com/Haleralex/walletledger/internal/domain/entities"
)

// ToEntryDTO maps a journal entry.
func ToEntryDTO(entry *entities.JournalEntry) EntryDTO {
	lines := make([]LineDTO, 0, len(entry.Lines()))
	for _, line := range entry.Lines() {
		lines = append(lines, LineDTO{
			AccountID: line.AccountID().String(),
			Side:      string(line.Side()),
			Bucket:    string(line.Bucket()),
			Amount:    line.Amount().String(),
		})
	}

	var linked *string
	if entry.LinkedEntryID() != nil {
		s := entry.LinkedEntryID().String()
		linked = &s
	}

	amount := entry.Amount()
	return EntryDTO{
		ID:            entry.ID().String(),
		Kind:          string(entry.Kind()),
		Amount:        amount.String(),
		Currency:      amount.Currency().Code(),
		Lines:         lines,
		LinkedEntryID: linked,
		Description:   entry.Description(),
		CreatedAt:     entry.CreatedAt(),
	}
}

// ToHoldDTO maps a hold.
func ToHoldDTO(hold *entities.Hold) HoldDTO {
	return HoldDTO{
		ID:        hold.ID().String(),
		Status:    string(hold.Status()),
		Amount:    hold.Amount().String(),
		Captured:  hold.Captured().String(),
		Remaining: hold.Remaining().String(),
		Currency:  hold.Amount().Currency().Code(),
		EntryID:   hold.EntryID().String(),
		ExpiresAt: hold.ExpiresAt(),
		CreatedAt: hold.CreatedAt(),
	}
}

// ToIntentDTO maps a payment intent.
func ToIntentDTO(intent *entities.PaymentIntent) IntentDTO {
	var entryID *string
	if intent.EntryID() != nil {
		s := intent.EntryID().String()
		entryID = &s
	}
	return IntentDTO{
		ID:          intent.ID().String(),
		Status:      string(intent.Status()),
		Amount:      intent.Amount().String(),
		Currency:    intent.Amount().Currency().Code(),
		Description: intent.Description(),
		EntryID:     entryID,
		ExpiresAt:   intent.ExpiresAt(),
		CreatedAt:   intent.CreatedAt(),
	}
}

// ToRefundDTO maps a refund.
func ToRefundDTO(refund *entities.Refund) RefundDTO {
	return RefundDTO{
		ID:             refund.ID().String(),
		CaptureEntryID: refund.CaptureEntryID().String(),
		EntryID:        refund.EntryID().String(),
		Amount:         refund.Amount().String(),
		Currency:       refund.Amount().Currency().Code(),
		Reason:         refund.Reason(),
		CreatedAt:      refund.CreatedAt(),
	}
}

// ToBalanceDTO maps a derived balance.
func ToBalanceDTO(walletID string, balance entities.Balance) BalanceDTO {
	return BalanceDTO{
		WalletID:  walletID,
		Currency:  balance.Currency.Code(),
		Available: balance.Available(),
		Held:      balance.Held(),
	}
}

// ToWalletDTO maps a wallet with its account.
func ToWalletDTO(wallet *entities.Wallet, account *entities.LedgerAccount) WalletDTO {
	return WalletDTO{
		ID:          wallet.ID().String(),
		Handle:      wallet.Handle(),
		DisplayName: wallet.DisplayName(),
		Status:      string(wallet.Status()),
		Currency:    account.Currency().Code(),
		AccountID:   account.ID().String(),
		CreatedAt:   wallet.CreatedAt(),
	}
}

// ToResolvedRecipientDTO maps a resolved wallet.
func ToResolvedRecipientDTO(wallet *entities.Wallet) ResolvedRecipientDTO {
	return ResolvedRecipientDTO{
		WalletID:    wallet.ID().String(),
		Handle:      wallet.Handle(),
		DisplayName: wallet.DisplayName(),
	}
}
