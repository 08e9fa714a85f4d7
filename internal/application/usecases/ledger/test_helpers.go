// Package ledger - helper fakes for testing
//go:build integration || !integration

package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// In-memory fakes for use case tests. One memStore backs every repository so
// balances derived from the journal and the entities stay consistent, the
// same way one database does in production.

type memStore struct {
	mu         sync.Mutex
	wallets    map[uuid.UUID]*entities.Wallet
	accounts   map[uuid.UUID]*entities.LedgerAccount
	entries    []*entities.JournalEntry
	holds      map[uuid.UUID]*entities.Hold
	intents    map[uuid.UUID]*entities.PaymentIntent
	refunds    map[uuid.UUID]*entities.Refund
	identities map[string]*entities.ExternalIdentity
	idem       map[string]*entities.IdempotencyRecord
	outbox     []events.DomainEvent
}

func newMemStore() *memStore {
	return &memStore{
		wallets:    make(map[uuid.UUID]*entities.Wallet),
		accounts:   make(map[uuid.UUID]*entities.LedgerAccount),
		holds:      make(map[uuid.UUID]*entities.Hold),
		intents:    make(map[uuid.UUID]*entities.PaymentIntent),
		refunds:    make(map[uuid.UUID]*entities.Refund),
		identities: make(map[string]*entities.ExternalIdentity),
		idem:       make(map[string]*entities.IdempotencyRecord),
	}
}

// memUnitOfWork serializes whole transactions behind one mutex, mimicking
// the serialization the row locks provide in Postgres, and restores the
// store's collections when fn fails or panics, mimicking rollback. Entities
// mutated in place are not copied back — the error paths these tests exercise
// fail before mutating any entity. Calls are never nested, so a plain mutex
// suffices.
type memUnitOfWork struct {
	mu *sync.Mutex
	s  *memStore
}

func newMemUnitOfWork(s *memStore) memUnitOfWork {
	return memUnitOfWork{mu: &sync.Mutex{}, s: s}
}

func (u memUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap := u.s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			u.s.restore(snap)
			panic(r)
		}
	}()
	if err := fn(ctx); err != nil {
		u.s.restore(snap)
		return err
	}
	return nil
}

func (u memUnitOfWork) ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error {
	return u.Execute(ctx, fn)
}

// snapshot shallow-copies every collection of the store.
func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := newMemStore()
	for k, v := range s.wallets {
		cp.wallets[k] = v
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	for k, v := range s.holds {
		cp.holds[k] = v
	}
	for k, v := range s.intents {
		cp.intents[k] = v
	}
	for k, v := range s.refunds {
		cp.refunds[k] = v
	}
	for k, v := range s.identities {
		cp.identities[k] = v
	}
	for k, v := range s.idem {
		cp.idem[k] = v
	}
	cp.entries = append([]*entities.JournalEntry(nil), s.entries...)
	cp.outbox = append([]events.DomainEvent(nil), s.outbox...)
	return cp
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = snap.wallets
	s.accounts = snap.accounts
	s.holds = snap.holds
	s.intents = snap.intents
	s.refunds = snap.refunds
	s.identities = snap.identities
	s.idem = snap.idem
	s.entries = snap.entries
	s.outbox = snap.outbox
}

// fakeClock steps time manually.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ===== wallet repository =====

type memWalletRepo struct{ s *memStore }

func (r memWalletRepo) Save(_ context.Context, w *entities.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w.Handle() != nil {
		for _, other := range r.s.wallets {
			if other.Handle() != nil && *other.Handle() == *w.Handle() && other.ID() != w.ID() {
				return errors.ErrEntityAlreadyExists
			}
		}
	}
	r.s.wallets[w.ID()] = w
	return nil
}

func (r memWalletRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return w, nil
}

func (r memWalletRepo) FindByHandle(_ context.Context, handle string) (*entities.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.Handle() != nil && *w.Handle() == handle {
			return w, nil
		}
	}
	return nil, errors.ErrEntityNotFound
}

func (r memWalletRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entities.WalletStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return errors.ErrEntityNotFound
	}
	switch status {
	case entities.WalletStatusFrozen:
		return w.Freeze()
	case entities.WalletStatusActive:
		return w.Unfreeze()
	}
	return nil
}

// ===== account repository =====

type memAccountRepo struct{ s *memStore }

func (r memAccountRepo) Save(_ context.Context, a *entities.LedgerAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[a.ID()] = a
	return nil
}

func (r memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return a, nil
}

func (r memAccountRepo) FindByWallet(_ context.Context, walletID uuid.UUID, currency valueobjects.Currency) (*entities.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.WalletID() == walletID && a.Currency().Equals(currency) {
			return a, nil
		}
	}
	return nil, errors.ErrEntityNotFound
}

func (r memAccountRepo) FindSystemAccount(_ context.Context, currency valueobjects.Currency) (*entities.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.IsSystem() && a.Currency().Equals(currency) {
			return a, nil
		}
	}
	return nil, errors.ErrEntityNotFound
}

func (r memAccountRepo) LockByIDs(_ context.Context, ids []uuid.UUID) ([]*entities.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	out := make([]*entities.LedgerAccount, 0, len(sorted))
	for _, id := range sorted {
		a, ok := r.s.accounts[id]
		if !ok {
			return nil, errors.ErrEntityNotFound
		}
		out = append(out, a)
	}
	return out, nil
}

func (r memAccountRepo) GetBalance(_ context.Context, accountID uuid.UUID) (entities.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[accountID]
	if !ok {
		return entities.Balance{}, errors.ErrEntityNotFound
	}
	return r.s.deriveBalance(a), nil
}

// deriveBalance sums journal lines per bucket. Caller holds s.mu.
func (s *memStore) deriveBalance(a *entities.LedgerAccount) entities.Balance {
	var available, held int64
	for _, entry := range s.entries {
		for _, line := range entry.Lines() {
			if line.AccountID() != a.ID() {
				continue
			}
			delta := line.Amount().MinorUnits()
			if line.IsDebit() {
				delta = -delta
			}
			if line.Bucket() == entities.BucketAvailable {
				available += delta
			} else {
				held += delta
			}
		}
	}
	return entities.Balance{
		AccountID:      a.ID(),
		Currency:       a.Currency(),
		AvailableMinor: available,
		HeldMinor:      held,
	}
}

// ===== journal repository =====

type memJournalRepo struct{ s *memStore }

func (r memJournalRepo) SaveEntry(_ context.Context, entry *entities.JournalEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries = append(r.s.entries, entry)
	return nil
}

func (r memJournalRepo) FindEntryByID(_ context.Context, id uuid.UUID) (*entities.JournalEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.entries {
		if entry.ID() == id {
			return entry, nil
		}
	}
	return nil, errors.ErrEntityNotFound
}

func (r memJournalRepo) ListByAccount(_ context.Context, accountID uuid.UUID, filter ports.JournalFilter, cursor string, limit int) (ports.JournalPage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matching := make([]*entities.JournalEntry, 0)
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		entry := r.s.entries[i]
		if filter.Kind != nil && entry.Kind() != *filter.Kind {
			continue
		}
		touches := false
		for _, line := range entry.Lines() {
			if line.AccountID() == accountID {
				touches = true
				break
			}
		}
		if touches {
			matching = append(matching, entry)
		}
	}

	start := 0
	if cursor != "" {
		for i, entry := range matching {
			if entry.ID().String() == cursor {
				start = i + 1
				break
			}
		}
	}
	page := ports.JournalPage{}
	for i := start; i < len(matching) && len(page.Entries) < limit; i++ {
		page.Entries = append(page.Entries, matching[i])
	}
	if start+len(page.Entries) < len(matching) && len(page.Entries) > 0 {
		page.NextCursor = page.Entries[len(page.Entries)-1].ID().String()
	}
	return page, nil
}

func (r memJournalRepo) SumDebitsSince(_ context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, entry := range r.s.entries {
		if entry.CreatedAt().Before(since) {
			continue
		}
		for _, line := range entry.Lines() {
			if line.AccountID() == accountID && line.IsDebit() && line.Bucket() == entities.BucketAvailable {
				// RELEASE debits the held bucket, so releases never count;
				// HOLD and TRANSFER debits of AVAILABLE do.
				total += line.Amount().MinorUnits()
			}
		}
	}
	return total, nil
}

func (r memJournalRepo) SumRefundsForCapture(_ context.Context, captureEntryID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, entry := range r.s.entries {
		if entry.Kind() == entities.EntryKindRefund &&
			entry.LinkedEntryID() != nil && *entry.LinkedEntryID() == captureEntryID {
			total += entry.Amount().MinorUnits()
		}
	}
	return total, nil
}

// ===== hold / intent / refund repositories =====

type memHoldRepo struct{ s *memStore }

func (r memHoldRepo) Save(_ context.Context, h *entities.Hold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.holds[h.ID()] = h
	return nil
}

func (r memHoldRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.holds[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return h, nil
}

func (r memHoldRepo) Update(_ context.Context, h *entities.Hold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.holds[h.ID()] = h
	return nil
}

func (r memHoldRepo) FindExpiredCapturable(_ context.Context, asOf time.Time, limit int) ([]*entities.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.Hold, 0)
	for _, h := range r.s.holds {
		if h.IsCapturable() && !asOf.Before(h.ExpiresAt()) {
			out = append(out, h)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memIntentRepo struct{ s *memStore }

func (r memIntentRepo) Save(_ context.Context, i *entities.PaymentIntent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.intents[i.ID()] = i
	return nil
}

func (r memIntentRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.intents[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return i, nil
}

func (r memIntentRepo) Update(_ context.Context, i *entities.PaymentIntent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.intents[i.ID()] = i
	return nil
}

type memRefundRepo struct{ s *memStore }

func (r memRefundRepo) Save(_ context.Context, ref *entities.Refund) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refunds[ref.ID()] = ref
	return nil
}

func (r memRefundRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Refund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref, ok := r.s.refunds[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return ref, nil
}

func (r memRefundRepo) FindByCaptureEntry(_ context.Context, captureEntryID uuid.UUID) ([]*entities.Refund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entities.Refund, 0)
	for _, ref := range r.s.refunds {
		if ref.CaptureEntryID() == captureEntryID {
			out = append(out, ref)
		}
	}
	return out, nil
}

// ===== external identity repository =====

type memIdentityRepo struct{ s *memStore }

func identityKey(provider, externalID string) string {
	return provider + "\x00" + externalID
}

func (r memIdentityRepo) Save(_ context.Context, id *entities.ExternalIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := identityKey(id.Provider(), id.ExternalID())
	if _, exists := r.s.identities[key]; exists {
		return errors.ErrEntityAlreadyExists
	}
	r.s.identities[key] = id
	return nil
}

func (r memIdentityRepo) FindByProviderID(_ context.Context, provider, externalID string) (*entities.ExternalIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.identities[identityKey(provider, externalID)]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return id, nil
}

// ===== idempotency repository =====

type memIdemRepo struct{ s *memStore }

func idemKey(apiKeyID uuid.UUID, key string) string {
	return apiKeyID.String() + "\x00" + key
}

func (r memIdemRepo) Reserve(_ context.Context, record *entities.IdempotencyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := idemKey(record.APIKeyID(), record.Key())
	if _, exists := r.s.idem[key]; exists {
		return errors.ErrEntityAlreadyExists
	}
	r.s.idem[key] = record
	return nil
}

func (r memIdemRepo) Find(_ context.Context, apiKeyID uuid.UUID, key string) (*entities.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record, ok := r.s.idem[idemKey(apiKeyID, key)]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return record, nil
}

func (r memIdemRepo) Update(_ context.Context, record *entities.IdempotencyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.idem[idemKey(record.APIKeyID(), record.Key())] = record
	return nil
}

// ===== outbox =====

type memOutbox struct{ s *memStore }

func (o memOutbox) Save(_ context.Context, event events.DomainEvent) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.outbox = append(o.s.outbox, event)
	return nil
}

func (o memOutbox) FindUnpublished(_ context.Context, _ int) ([]ports.OutboxMessage, error) {
	return nil, nil
}

func (o memOutbox) MarkPublished(_ context.Context, _ uuid.UUID) error { return nil }

func (o memOutbox) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (o memOutbox) eventTypes() []string {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	out := make([]string, 0, len(o.s.outbox))
	for _, e := range o.s.outbox {
		out = append(out, e.EventType())
	}
	return out
}

func (o memOutbox) countType(eventType string) int {
	n := 0
	for _, t := range o.eventTypes() {
		if strings.EqualFold(t, eventType) {
			n++
		}
	}
	return n
}
