package ledger

import (
	"context"
	"testing"

	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRecipient_Forms(t *testing.T) {
	env := newTestEnv(t)
	alice, _, aliceKey := env.newWallet(t, "alice")

	identity, err := entities.NewExternalIdentity(alice.ID(), "github", "12345")
	require.NoError(t, err)
	require.NoError(t, memIdentityRepo{s: env.store}.Save(context.Background(), identity))

	tests := []struct {
		name string
		ref  string
	}{
		{"wallet id", alice.ID().String()},
		{"handle", "@alice"},
		{"handle is case-insensitive", "@ALICE"},
		{"external identity", "ext:github:12345"},
		{"provider is case-insensitive", "ext:GitHub:12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto, err := env.resolve.Execute(context.Background(), aliceKey, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, alice.ID().String(), dto.WalletID)
		})
	}
}

func TestResolveRecipient_Misses(t *testing.T) {
	env := newTestEnv(t)
	_, _, aliceKey := env.newWallet(t, "alice")

	notFound := []struct {
		name string
		ref  string
	}{
		{"unknown handle", "@nobody"},
		{"unknown id", "11111111-2222-3333-4444-555555555555"},
		{"unknown external identity", "ext:github:999"},
		{"unknown provider", "ext:gitlab:12345"},
	}
	for _, tt := range notFound {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.resolve.Execute(context.Background(), aliceKey, tt.ref)
			assert.Equal(t, errors.CodeRecipientNotFound, errors.CodeOf(err))
		})
	}

	malformed := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"bare handle sigil", "@"},
		{"not a uuid", "alice"},
		{"ext missing id", "ext:github:"},
		{"ext missing provider", "ext::12345"},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.resolve.Execute(context.Background(), aliceKey, tt.ref)
			assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}
}

func TestResolveRecipient_FrozenWalletRefused(t *testing.T) {
	env := newTestEnv(t)
	bob, _, _ := env.newWallet(t, "bob")
	_, _, aliceKey := env.newWallet(t, "alice")
	require.NoError(t, bob.Freeze())

	_, err := env.resolve.Execute(context.Background(), aliceKey, "@bob")
	assert.Equal(t, errors.CodeWalletNotActive, errors.CodeOf(err))
}

func TestResolveRecipient_ExternalIDMayContainColons(t *testing.T) {
	env := newTestEnv(t)
	alice, _, aliceKey := env.newWallet(t, "alice")

	identity, err := entities.NewExternalIdentity(alice.ID(), "oidc", "tenant:user:42")
	require.NoError(t, err)
	require.NoError(t, memIdentityRepo{s: env.store}.Save(context.Background(), identity))

	dto, err := env.resolve.Execute(context.Background(), aliceKey, "ext:oidc:tenant:user:42")
	require.NoError(t, err)
	assert.Equal(t, alice.ID().String(), dto.WalletID)
}
