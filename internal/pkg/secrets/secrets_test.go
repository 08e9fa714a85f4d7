package secrets

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	encoded, err := HashSecret("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := VerifySecret("s3cret", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecret("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSecret_UniqueSalts(t *testing.T) {
	first, err := HashSecret("same")
	require.NoError(t, err)
	second, err := HashSecret("same")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifySecret_Malformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$AAAA",
	} {
		_, err := VerifySecret("s", encoded)
		assert.Error(t, err, encoded)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	keyID := uuid.New()
	secret, err := GenerateSecret()
	require.NoError(t, err)

	plain := FormatAPIKey(keyID, secret)
	assert.True(t, strings.HasPrefix(plain, "wl_"))

	gotID, gotSecret, err := ParseAPIKey(plain)
	require.NoError(t, err)
	assert.Equal(t, keyID, gotID)
	assert.Equal(t, secret, gotSecret)
}

func TestParseAPIKey_Malformed(t *testing.T) {
	for _, plain := range []string{
		"",
		"wl_",
		"wl_not-a-uuid.secret",
		"wl_" + uuid.NewString(),       // missing secret
		"wl_" + uuid.NewString() + ".", // empty secret
		"sk_" + uuid.NewString() + ".secret",
	} {
		_, _, err := ParseAPIKey(plain)
		assert.Error(t, err, plain)
	}
}
