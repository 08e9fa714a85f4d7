// Package entities - Wallet is the owner-level record of the ledger.
// A wallet owns one ledger account per currency (one, in this deployment)
// and is the identity money moves between.
package entities

import (
	"strings"
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// WalletStatus represents the operational status of a wallet.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "ACTIVE" // Normal operations allowed
	WalletStatusFrozen WalletStatus = "FROZEN" // May not send or receive
	WalletStatusClosed WalletStatus = "CLOSED" // Permanently closed
)

// IsValid checks if the wallet status is valid.
func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusFrozen, WalletStatusClosed:
		return true
	default:
		return false
	}
}

// Wallet represents an owner of ledger accounts.
//
// Entity Pattern:
// - Has identity (ID)
// - Handle is globally unique among non-nil handles ("@alice")
// - Balances live on accounts and are always derived from journal lines,
//   never stored here
type Wallet struct {
	id          uuid.UUID
	handle      *string // nullable, "@"-prefixed, globally unique
	displayName string
	status      WalletStatus
	createdAt   time.Time
}

// NormalizeHandle canonicalizes a handle to its "@"-prefixed lowercase form.
func NormalizeHandle(handle string) string {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return ""
	}
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	return handle
}

// NewWallet creates a new active wallet.
// An empty handle means the wallet is addressable by ID only.
func NewWallet(displayName, handle string) (*Wallet, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, errors.New(errors.CodeValidation, "display name is required")
	}

	var handlePtr *string
	if normalized := NormalizeHandle(handle); normalized != "" {
		if len(normalized) < 2 {
			return nil, errors.New(errors.CodeValidation, "handle must not be empty")
		}
		handlePtr = &normalized
	}

	return &Wallet{
		id:          uuid.New(),
		handle:      handlePtr,
		displayName: displayName,
		status:      WalletStatusActive,
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructWallet reconstructs a Wallet from stored data.
// Used by repositories to hydrate entities from the database.
func ReconstructWallet(
	id uuid.UUID,
	handle *string,
	displayName string,
	status WalletStatus,
	createdAt time.Time,
) *Wallet {
	return &Wallet{
		id:          id,
		handle:      handle,
		displayName: displayName,
		status:      status,
		createdAt:   createdAt,
	}
}

// Getters

func (w *Wallet) ID() uuid.UUID {
	return w.id
}

func (w *Wallet) Handle() *string {
	return w.handle
}

func (w *Wallet) DisplayName() string {
	return w.displayName
}

func (w *Wallet) Status() WalletStatus {
	return w.status
}

func (w *Wallet) CreatedAt() time.Time {
	return w.createdAt
}

// Business Methods

// IsActive returns true if the wallet may initiate operations.
func (w *Wallet) IsActive() bool {
	return w.status == WalletStatusActive
}

// CanSend checks if the wallet may be the paying side of an operation.
func (w *Wallet) CanSend() error {
	if w.status != WalletStatusActive {
		return errors.Newf(errors.CodeWalletNotActive, "wallet is %s", w.status)
	}
	return nil
}

// CanReceive checks if the wallet may be the receiving side of an operation.
// Frozen and closed wallets cannot receive funds.
func (w *Wallet) CanReceive() error {
	if w.status != WalletStatusActive {
		return errors.Newf(errors.CodeWalletNotActive, "recipient wallet is %s", w.status)
	}
	return nil
}

// Freeze blocks all operations on the wallet.
func (w *Wallet) Freeze() error {
	if w.status == WalletStatusClosed {
		return errors.New(errors.CodeWalletNotActive, "cannot freeze a closed wallet")
	}
	w.status = WalletStatusFrozen
	return nil
}

// Unfreeze re-activates a frozen wallet.
func (w *Wallet) Unfreeze() error {
	if w.status == WalletStatusClosed {
		return errors.New(errors.CodeWalletNotActive, "cannot activate a closed wallet")
	}
	w.status = WalletStatusActive
	return nil
}
