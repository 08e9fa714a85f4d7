package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/valueobjects"
	"github.com/stretchr/testify/require"
)

// testEnv wires every use case against the shared in-memory store.
type testEnv struct {
	store    *memStore
	clock    *fakeClock
	outbox   memOutbox
	executor *IdempotentExecutor
	expirer  *HoldExpirer

	wallets  memWalletRepo
	accounts memAccountRepo
	journal  memJournalRepo
	holds    memHoldRepo
	intents  memIntentRepo
	refunds  memRefundRepo

	transfer     *TransferUseCase
	deposit      *DepositUseCase
	createHold   *CreateHoldUseCase
	captureHold  *CaptureHoldUseCase
	releaseHold  *ReleaseHoldUseCase
	getHold      *GetHoldUseCase
	createIntent *CreateIntentUseCase
	payIntent    *PayIntentUseCase
	getIntent    *GetIntentUseCase
	cancelIntent *CancelIntentUseCase
	refund       *RefundUseCase
	getBalance   *GetBalanceUseCase
	listTx       *ListTransactionsUseCase
	resolve     *ResolveRecipientUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := newMemUnitOfWork(store)

	env := &testEnv{
		store:    store,
		clock:    clock,
		outbox:   memOutbox{s: store},
		wallets:  memWalletRepo{s: store},
		accounts: memAccountRepo{s: store},
		journal:  memJournalRepo{s: store},
		holds:    memHoldRepo{s: store},
		intents:  memIntentRepo{s: store},
		refunds:  memRefundRepo{s: store},
	}

	idemRepo := memIdemRepo{s: store}
	identityRepo := memIdentityRepo{s: store}
	env.executor = NewIdempotentExecutor(uow, idemRepo, logger)
	resolver := NewRecipientResolver(env.wallets, identityRepo)
	authorizer := NewAuthorizer(env.journal, clock)
	env.expirer = NewHoldExpirer(uow, env.holds, env.accounts, env.journal, env.outbox, clock, logger)

	env.transfer = NewTransferUseCase(env.executor, resolver, authorizer, env.wallets, env.accounts, env.journal, env.outbox, logger)
	env.deposit = NewDepositUseCase(env.executor, resolver, env.accounts, env.journal, env.outbox, logger)
	env.createHold = NewCreateHoldUseCase(env.executor, resolver, authorizer, env.wallets, env.accounts, env.journal, env.holds, env.outbox, clock, logger)
	env.captureHold = NewCaptureHoldUseCase(env.executor, env.expirer, env.wallets, env.accounts, env.journal, env.holds, env.outbox, clock, logger)
	env.releaseHold = NewReleaseHoldUseCase(env.executor, env.expirer, env.accounts, env.journal, env.holds, env.outbox, clock, logger)
	env.getHold = NewGetHoldUseCase(env.expirer, env.holds, env.accounts)
	env.createIntent = NewCreateIntentUseCase(env.executor, env.wallets, env.accounts, env.intents, env.outbox, clock, logger)
	env.payIntent = NewPayIntentUseCase(env.executor, authorizer, uow, env.wallets, env.accounts, env.journal, env.intents, env.outbox, clock, logger)
	env.getIntent = NewGetIntentUseCase(uow, env.intents, clock)
	env.cancelIntent = NewCancelIntentUseCase(env.executor, env.accounts, env.intents, clock, logger)
	env.refund = NewRefundUseCase(env.executor, env.wallets, env.accounts, env.journal, env.refunds, env.outbox, logger)
	env.getBalance = NewGetBalanceUseCase(env.accounts)
	env.listTx = NewListTransactionsUseCase(env.accounts, env.journal)
	env.resolve = NewResolveRecipientUseCase(resolver)

	// System account funds deposits.
	systemWallet, err := entities.NewWallet("System", "system")
	require.NoError(t, err)
	require.NoError(t, env.wallets.Save(context.Background(), systemWallet))
	systemAcc, err := entities.NewLedgerAccount(systemWallet.ID(), valueobjects.USD, entities.AccountTypeSystem)
	require.NoError(t, err)
	require.NoError(t, env.accounts.Save(context.Background(), systemAcc))

	return env
}

// newWallet creates an active wallet with a USD account and an API key
// carrying the given scopes.
func (e *testEnv) newWallet(t *testing.T, handle string, scopes ...entities.Scope) (*entities.Wallet, *entities.LedgerAccount, *entities.APIKey) {
	t.Helper()
	wallet, err := entities.NewWallet("Wallet "+handle, handle)
	require.NoError(t, err)
	require.NoError(t, e.wallets.Save(context.Background(), wallet))

	account, err := entities.NewLedgerAccount(wallet.ID(), valueobjects.USD, entities.AccountTypeUser)
	require.NoError(t, err)
	require.NoError(t, e.accounts.Save(context.Background(), account))

	if len(scopes) == 0 {
		scopes = []entities.Scope{entities.ScopeWildcard}
	}
	key, err := entities.NewAPIKey(wallet.ID(), "test-hash", "test", scopes, entities.SpendLimits{})
	require.NoError(t, err)

	return wallet, account, key
}

// fund credits the account from the system account, bypassing use cases.
func (e *testEnv) fund(t *testing.T, account *entities.LedgerAccount, minor int64) {
	t.Helper()
	systemAcc, err := e.accounts.FindSystemAccount(context.Background(), account.Currency())
	require.NoError(t, err)
	entry, err := buildDepositEntry(systemAcc.ID(), account.ID(),
		valueobjects.MustNewMoney(minor, account.Currency()), "test funding")
	require.NoError(t, err)
	require.NoError(t, e.journal.SaveEntry(context.Background(), entry))
}

// balance returns the derived (available, held) minor units of an account.
func (e *testEnv) balance(t *testing.T, account *entities.LedgerAccount) (int64, int64) {
	t.Helper()
	b, err := e.accounts.GetBalance(context.Background(), account.ID())
	require.NoError(t, err)
	return b.AvailableMinor, b.HeldMinor
}

// ttl is a convenient hold/intent lifetime for tests.
const ttl = int64(3600)

// hour advances the fake clock past a 3600s ttl.
const hour = time.Hour + time.Second
