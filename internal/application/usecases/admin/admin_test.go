package admin

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Haleralex/walletledger/internal/application/dtos"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/Haleralex/walletledger/internal/pkg/secrets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Local fakes, mirroring the single-store shape the ledger package tests use.

type adminStore struct {
	mu         sync.Mutex
	wallets    map[uuid.UUID]*entities.Wallet
	accounts   map[uuid.UUID]*entities.LedgerAccount
	identities map[string]*entities.ExternalIdentity
	keys       map[uuid.UUID]*entities.APIKey
	outbox     []events.DomainEvent
}

func newAdminStore() *adminStore {
	return &adminStore{
		wallets:    make(map[uuid.UUID]*entities.Wallet),
		accounts:   make(map[uuid.UUID]*entities.LedgerAccount),
		identities: make(map[string]*entities.ExternalIdentity),
		keys:       make(map[uuid.UUID]*entities.APIKey),
	}
}

type passUOW struct{}

func (passUOW) Execute(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
func (passUOW) ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type walletRepo struct{ s *adminStore }

func (r walletRepo) Save(_ context.Context, w *entities.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w.Handle() != nil {
		for _, other := range r.s.wallets {
			if other.Handle() != nil && *other.Handle() == *w.Handle() {
				return errors.ErrEntityAlreadyExists
			}
		}
	}
	r.s.wallets[w.ID()] = w
	return nil
}

func (r walletRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return w, nil
}

func (r walletRepo) FindByHandle(_ context.Context, handle string) (*entities.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.Handle() != nil && *w.Handle() == handle {
			return w, nil
		}
	}
	return nil, errors.ErrEntityNotFound
}

func (r walletRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entities.WalletStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return errors.ErrEntityNotFound
	}
	if status == entities.WalletStatusFrozen {
		return w.Freeze()
	}
	return w.Unfreeze()
}

type accountRepo struct{ s *adminStore }

func (r accountRepo) Save(_ context.Context, a *entities.LedgerAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[a.ID()] = a
	return nil
}

func (r accountRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return a, nil
}

func (r accountRepo) FindByWallet(_ context.Context, walletID uuid.UUID, currency valueobjects.Currency) (*entities.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.WalletID() == walletID && a.Currency().Equals(currency) {
			return a, nil
		}
	}
	return nil, errors.ErrEntityNotFound
}

func (r accountRepo) FindSystemAccount(_ context.Context, _ valueobjects.Currency) (*entities.LedgerAccount, error) {
	return nil, errors.ErrEntityNotFound
}

func (r accountRepo) LockByIDs(_ context.Context, _ []uuid.UUID) ([]*entities.LedgerAccount, error) {
	return nil, nil
}

func (r accountRepo) GetBalance(_ context.Context, _ uuid.UUID) (entities.Balance, error) {
	return entities.Balance{}, errors.ErrEntityNotFound
}

type identityRepo struct{ s *adminStore }

func (r identityRepo) Save(_ context.Context, id *entities.ExternalIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := id.Provider() + "\x00" + id.ExternalID()
	if _, exists := r.s.identities[key]; exists {
		return errors.ErrEntityAlreadyExists
	}
	r.s.identities[key] = id
	return nil
}

func (r identityRepo) FindByProviderID(_ context.Context, provider, externalID string) (*entities.ExternalIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.identities[provider+"\x00"+externalID]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return id, nil
}

type keyRepo struct{ s *adminStore }

func (r keyRepo) Save(_ context.Context, k *entities.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.keys[k.ID()] = k
	return nil
}

func (r keyRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[id]
	if !ok {
		return nil, errors.ErrEntityNotFound
	}
	return k, nil
}

func (r keyRepo) Update(_ context.Context, k *entities.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.keys[k.ID()] = k
	return nil
}

type outbox struct{ s *adminStore }

func (o outbox) Save(_ context.Context, e events.DomainEvent) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.outbox = append(o.s.outbox, e)
	return nil
}

func (o outbox) FindUnpublished(_ context.Context, _ int) ([]ports.OutboxMessage, error) {
	return nil, nil
}

func (o outbox) MarkPublished(_ context.Context, _ uuid.UUID) error { return nil }

func (o outbox) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }

type adminEnv struct {
	store     *adminStore
	create    *CreateWalletUseCase
	issue     *IssueAPIKeyUseCase
	revoke    *RevokeAPIKeyUseCase
	setStatus *SetWalletStatusUseCase
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	store := newAdminStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := passUOW{}
	clock := stubClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	return &adminEnv{
		store:     store,
		create:    NewCreateWalletUseCase(uow, walletRepo{store}, accountRepo{store}, identityRepo{store}, outbox{store}, logger),
		issue:     NewIssueAPIKeyUseCase(uow, walletRepo{store}, keyRepo{store}, logger),
		revoke:    NewRevokeAPIKeyUseCase(uow, keyRepo{store}, clock, logger),
		setStatus: NewSetWalletStatusUseCase(uow, walletRepo{store}, logger),
	}
}

func TestCreateWallet(t *testing.T) {
	env := newAdminEnv(t)

	provider, externalID := "github", "12345"
	dto, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
		DisplayName:  "Alice",
		Handle:       "Alice",
		CurrencyCode: "usd",
		Provider:     &provider,
		ExternalID:   &externalID,
	})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", dto.Status)
	assert.Equal(t, "USD", dto.Currency)
	require.NotNil(t, dto.Handle)
	assert.Equal(t, "@alice", *dto.Handle)
	assert.NotEmpty(t, dto.AccountID)

	identity, err := identityRepo{env.store}.FindByProviderID(context.Background(), "github", "12345")
	require.NoError(t, err)
	assert.Equal(t, dto.ID, identity.WalletID().String())

	require.Len(t, env.store.outbox, 1)
	assert.Equal(t, events.EventTypeWalletCreated, env.store.outbox[0].EventType())

	t.Run("duplicate handle", func(t *testing.T) {
		_, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
			DisplayName: "Imposter", Handle: "ALICE", CurrencyCode: "USD",
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})

	t.Run("provider without external id", func(t *testing.T) {
		p := "github"
		_, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
			DisplayName: "Bob", CurrencyCode: "USD", Provider: &p,
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})

	t.Run("unsupported currency", func(t *testing.T) {
		_, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
			DisplayName: "Bob", CurrencyCode: "DOGE",
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})
}

func TestIssueAPIKey(t *testing.T) {
	env := newAdminEnv(t)
	wallet, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
		DisplayName: "Alice", CurrencyCode: "USD",
	})
	require.NoError(t, err)

	perTx := "100.00"
	ceiling := "1000.00"
	windowSeconds := int64(86400)
	dto, err := env.issue.Execute(context.Background(), dtos.IssueAPIKeyCommand{
		WalletID:      wallet.ID,
		Label:         "checkout",
		Scopes:        []string{"transfer", "hold"},
		CurrencyCode:  "USD",
		PerTxMax:      &perTx,
		WindowCeiling: &ceiling,
		WindowSeconds: &windowSeconds,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dto.PlainKey, "wl_"))

	// the plaintext verifies against the stored hash, and the stored key
	// carries the parsed limits
	keyID, secret, err := secrets.ParseAPIKey(dto.PlainKey)
	require.NoError(t, err)
	stored, err := keyRepo{env.store}.FindByID(context.Background(), keyID)
	require.NoError(t, err)
	ok, err := secrets.VerifySecret(secret, stored.KeyHash())
	require.NoError(t, err)
	assert.True(t, ok)

	limits := stored.Limits()
	require.NotNil(t, limits.PerTxMaxMinor)
	assert.Equal(t, int64(10000), *limits.PerTxMaxMinor)
	require.NotNil(t, limits.WindowCeiling)
	assert.Equal(t, int64(100000), *limits.WindowCeiling)
	assert.Equal(t, 24*time.Hour, limits.Window)
	assert.True(t, stored.HasScope(entities.ScopeTransfer))
	assert.False(t, stored.HasScope(entities.ScopeRefund))

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := env.issue.Execute(context.Background(), dtos.IssueAPIKeyCommand{
			WalletID: uuid.NewString(), Scopes: []string{"read"},
		})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := env.issue.Execute(context.Background(), dtos.IssueAPIKeyCommand{
			WalletID: wallet.ID, Scopes: []string{"superuser"},
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})

	t.Run("limits without currency", func(t *testing.T) {
		_, err := env.issue.Execute(context.Background(), dtos.IssueAPIKeyCommand{
			WalletID: wallet.ID, Scopes: []string{"transfer"}, PerTxMax: &perTx,
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})

	t.Run("ceiling without window", func(t *testing.T) {
		_, err := env.issue.Execute(context.Background(), dtos.IssueAPIKeyCommand{
			WalletID: wallet.ID, Scopes: []string{"transfer"},
			CurrencyCode: "USD", WindowCeiling: &ceiling,
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})
}

func TestRevokeAPIKey(t *testing.T) {
	env := newAdminEnv(t)
	wallet, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
		DisplayName: "Alice", CurrencyCode: "USD",
	})
	require.NoError(t, err)
	issued, err := env.issue.Execute(context.Background(), dtos.IssueAPIKeyCommand{
		WalletID: wallet.ID, Scopes: []string{"read"},
	})
	require.NoError(t, err)

	require.NoError(t, env.revoke.Execute(context.Background(), dtos.RevokeAPIKeyCommand{APIKeyID: issued.ID}))

	stored, err := keyRepo{env.store}.FindByID(context.Background(), uuid.MustParse(issued.ID))
	require.NoError(t, err)
	assert.False(t, stored.IsActive())

	t.Run("unknown key", func(t *testing.T) {
		err := env.revoke.Execute(context.Background(), dtos.RevokeAPIKeyCommand{APIKeyID: uuid.NewString()})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})
}

func TestSetWalletStatus(t *testing.T) {
	env := newAdminEnv(t)
	wallet, err := env.create.Execute(context.Background(), dtos.CreateWalletCommand{
		DisplayName: "Alice", CurrencyCode: "USD",
	})
	require.NoError(t, err)

	require.NoError(t, env.setStatus.Execute(context.Background(), dtos.SetWalletStatusCommand{
		WalletID: wallet.ID, Status: "FROZEN",
	}))
	stored, err := walletRepo{env.store}.FindByID(context.Background(), uuid.MustParse(wallet.ID))
	require.NoError(t, err)
	assert.Equal(t, entities.WalletStatusFrozen, stored.Status())

	require.NoError(t, env.setStatus.Execute(context.Background(), dtos.SetWalletStatusCommand{
		WalletID: wallet.ID, Status: "ACTIVE",
	}))
	assert.Equal(t, entities.WalletStatusActive, stored.Status())

	t.Run("invalid status", func(t *testing.T) {
		err := env.setStatus.Execute(context.Background(), dtos.SetWalletStatusCommand{
			WalletID: wallet.ID, Status: "CLOSED",
		})
		assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	})

	t.Run("unknown wallet", func(t *testing.T) {
		err := env.setStatus.Execute(context.Background(), dtos.SetWalletStatusCommand{
			WalletID: uuid.NewString(), Status: "FROZEN",
		})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})
}
