package entities

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// AccountType distinguishes user accounts from system accounts.
// System accounts (the funding source for deposits) may go negative in the
// available bucket; user accounts may not.
type AccountType string

const (
	AccountTypeUser   AccountType = "USER"
	AccountTypeSystem AccountType = "SYSTEM"
)

// LedgerAccount is the per-(wallet, currency) posting target. Every journal
// line references exactly one account. Accounts carry no stored balance:
// balances are always derived by summing journal lines per bucket.
//
// Accounts are the unit of locking — the executor takes row locks on them in
// ascending ID order before validating and posting.
type LedgerAccount struct {
	id        uuid.UUID
	walletID  uuid.UUID
	currency  valueobjects.Currency
	accType   AccountType
	createdAt time.Time
}

// NewLedgerAccount creates an account for a wallet in a currency.
func NewLedgerAccount(walletID uuid.UUID, currency valueobjects.Currency, accType AccountType) (*LedgerAccount, error) {
	if walletID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "wallet id is required")
	}
	if currency.IsZero() {
		return nil, errors.New(errors.CodeValidation, "currency is required")
	}
	if accType != AccountTypeUser && accType != AccountTypeSystem {
		return nil, errors.Newf(errors.CodeValidation, "unknown account type %q", accType)
	}
	return &LedgerAccount{
		id:        uuid.New(),
		walletID:  walletID,
		currency:  currency,
		accType:   accType,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructLedgerAccount reconstructs an account from stored data.
func ReconstructLedgerAccount(
	id uuid.UUID,
	walletID uuid.UUID,
	currency valueobjects.Currency,
	accType AccountType,
	createdAt time.Time,
) *LedgerAccount {
	return &LedgerAccount{
		id:        id,
		walletID:  walletID,
		currency:  currency,
		accType:   accType,
		createdAt: createdAt,
	}
}

func (a *LedgerAccount) ID() uuid.UUID {
	return a.id
}

func (a *LedgerAccount) WalletID() uuid.UUID {
	return a.walletID
}

func (a *LedgerAccount) Currency() valueobjects.Currency {
	return a.currency
}

func (a *LedgerAccount) Type() AccountType {
	return a.accType
}

func (a *LedgerAccount) CreatedAt() time.Time {
	return a.createdAt
}

// IsSystem reports whether this account may carry a negative available
// balance (the deposit funding source does).
func (a *LedgerAccount) IsSystem() bool {
	return a.accType == AccountTypeSystem
}

// Balance is the derived two-bucket balance of an account at a point in time.
// It is computed, never stored: available = Σ credits − Σ debits over
// AVAILABLE lines, held likewise over HELD lines. The sums are signed —
// system accounts run negative available balances by construction, which is
// why the buckets are plain minor units rather than Money.
type Balance struct {
	AccountID      uuid.UUID
	Currency       valueobjects.Currency
	AvailableMinor int64
	HeldMinor      int64
}

// Available renders the available bucket as a canonical decimal string.
func (b Balance) Available() string {
	return valueobjects.FormatMinor(b.AvailableMinor, b.Currency)
}

// Held renders the held bucket as a canonical decimal string.
func (b Balance) Held() string {
	return valueobjects.FormatMinor(b.HeldMinor, b.Currency)
}

// CheckAvailable verifies the account can fund a debit of the given amount
// from its available bucket. System accounts are exempt.
func (b Balance) CheckAvailable(amount valueobjects.Money, isSystem bool) error {
	if isSystem {
		return nil
	}
	if !amount.Currency().Equals(b.Currency) {
		return errors.New(errors.CodeCurrencyMismatch, "balance check across currencies")
	}
	if b.AvailableMinor < amount.MinorUnits() {
		return errors.New(errors.CodeInsufficientFunds, "insufficient available funds").
			WithDetails(map[string]interface{}{
				"available": b.Available(),
				"requested": amount.String(),
			})
	}
	return nil
}

// CheckHeld verifies the account holds at least the given amount.
func (b Balance) CheckHeld(amount valueobjects.Money) error {
	if !amount.Currency().Equals(b.Currency) {
		return errors.New(errors.CodeCurrencyMismatch, "balance check across currencies")
	}
	if b.HeldMinor < amount.MinorUnits() {
		return errors.New(errors.CodeInsufficientFunds, "insufficient held funds").
			WithDetails(map[string]interface{}{
				"held":      b.Held(),
				"requested": amount.String(),
			})
	}
	return nil
}
