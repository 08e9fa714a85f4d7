// Package ports defines the interfaces (ports) for external dependencies.
// The Infrastructure Layer provides the implementations.
//
// SOLID Principles:
// - DIP: Application depends on abstractions, not concrete implementations
// - ISP: Each interface focuses on one entity
//
// Pattern: Repository Pattern + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"
	"time"

	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// WalletRepository stores wallets. Handles are unique among non-nil handles;
// Save returns ErrEntityAlreadyExists on a duplicate.
type WalletRepository interface {
	Save(ctx context.Context, wallet *entities.Wallet) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)

	// FindByHandle looks a wallet up by its normalized "@handle".
	FindByHandle(ctx context.Context, handle string) (*entities.Wallet, error)

	// UpdateStatus persists a freeze/unfreeze transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.WalletStatus) error
}

// AccountRepository stores ledger accounts — the posting and locking targets.
type AccountRepository interface {
	Save(ctx context.Context, account *entities.LedgerAccount) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.LedgerAccount, error)

	// FindByWallet returns the wallet's account in the given currency.
	FindByWallet(ctx context.Context, walletID uuid.UUID, currency valueobjects.Currency) (*entities.LedgerAccount, error)

	// FindSystemAccount returns the funding source for deposits.
	FindSystemAccount(ctx context.Context, currency valueobjects.Currency) (*entities.LedgerAccount, error)

	// LockByIDs takes exclusive row locks (SELECT ... FOR UPDATE) on the
	// given accounts. Implementations MUST lock in ascending id order
	// regardless of input order, so concurrent executors never deadlock.
	// Must be called inside a unit of work.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.LedgerAccount, error)

	// GetBalance derives the two-bucket balance by summing journal lines.
	// Inside a unit of work with the account locked, the result is stable
	// until commit.
	GetBalance(ctx context.Context, accountID uuid.UUID) (entities.Balance, error)
}

// JournalFilter narrows ListByAccount.
type JournalFilter struct {
	Kind *entities.EntryKind
}

// JournalPage is one page of cursor-paginated entries. Cursor encodes
// (created_at, id) of the last entry; empty means no more pages.
type JournalPage struct {
	Entries    []*entities.JournalEntry
	NextCursor string
}

// JournalRepository is the append-only journal. Entries are never updated or
// deleted.
type JournalRepository interface {
	// SaveEntry inserts the entry and all its lines atomically.
	SaveEntry(ctx context.Context, entry *entities.JournalEntry) error

	FindEntryByID(ctx context.Context, id uuid.UUID) (*entities.JournalEntry, error)

	// ListByAccount returns entries touching the account, newest first,
	// cursor-paginated.
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter JournalFilter, cursor string, limit int) (JournalPage, error)

	// SumDebitsSince totals AVAILABLE-bucket debits of the account since the
	// given time. Drives the rolling spend-window limit; must run under the
	// account's lock so racing spends serialize.
	SumDebitsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)

	// SumRefundsForCapture totals prior REFUND entries linked to a capture.
	SumRefundsForCapture(ctx context.Context, captureEntryID uuid.UUID) (int64, error)
}

// HoldRepository stores holds.
type HoldRepository interface {
	Save(ctx context.Context, hold *entities.Hold) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.Hold, error)

	Update(ctx context.Context, hold *entities.Hold) error

	// FindExpiredCapturable returns holds past their deadline that are still
	// ACTIVE or PARTIALLY_CAPTURED. The sweeper drains these.
	FindExpiredCapturable(ctx context.Context, asOf time.Time, limit int) ([]*entities.Hold, error)
}

// IntentRepository stores payment intents.
type IntentRepository interface {
	Save(ctx context.Context, intent *entities.PaymentIntent) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)

	Update(ctx context.Context, intent *entities.PaymentIntent) error
}

// RefundRepository stores refunds.
type RefundRepository interface {
	Save(ctx context.Context, refund *entities.Refund) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.Refund, error)

	FindByCaptureEntry(ctx context.Context, captureEntryID uuid.UUID) ([]*entities.Refund, error)
}

// APIKeyRepository stores API keys.
type APIKeyRepository interface {
	Save(ctx context.Context, key *entities.APIKey) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.APIKey, error)

	Update(ctx context.Context, key *entities.APIKey) error
}

// ExternalIdentityRepository maps provider identities to wallets.
type ExternalIdentityRepository interface {
	Save(ctx context.Context, identity *entities.ExternalIdentity) error

	FindByProviderID(ctx context.Context, provider, externalID string) (*entities.ExternalIdentity, error)
}

// IdempotencyRepository stores idempotency records.
//
// Reserve must be race-safe: when two requests with the same (api key, key)
// arrive together, exactly one insert wins and the loser observes the
// winner's record.
type IdempotencyRepository interface {
	// Reserve inserts the record with its current status. Returns
	// ErrEntityAlreadyExists when the (api key, key) pair is taken; the
	// caller then calls Find. Reservations run inside the posting unit of
	// work, so a rolled-back operation leaves no record behind.
	Reserve(ctx context.Context, record *entities.IdempotencyRecord) error

	Find(ctx context.Context, apiKeyID uuid.UUID, key string) (*entities.IdempotencyRecord, error)

	// Update persists the COMPLETED snapshot in the same unit of work as the
	// journal write.
	Update(ctx context.Context, record *entities.IdempotencyRecord) error
}

// AuditRepository stores the request audit trail.
type AuditRepository interface {
	Save(ctx context.Context, record *entities.AuditRecord) error
}
