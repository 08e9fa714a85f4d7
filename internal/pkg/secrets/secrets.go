// Package secrets hashes and verifies API key secrets.
//
// Secrets are hashed with argon2id in the standard PHC string format, so the
// parameters travel with the hash and can be raised later without breaking
// existing keys. Plaintext keys use the form "wl_<key-id>.<secret>": the key
// id prefix lets authentication look up one row instead of scanning hashes.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
	secretLen    = 32

	keyPrefix = "wl_"
)

// HashSecret derives an argon2id hash of the secret, encoded in PHC format.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifySecret reports whether the secret matches the encoded hash. The
// comparison is constant-time.
func VerifySecret(secret, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("malformed argon2id version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("malformed argon2id parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed hash: %w", err)
	}

	got := argon2.IDKey([]byte(secret), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// GenerateSecret returns a random URL-safe secret.
func GenerateSecret() (string, error) {
	raw := make([]byte, secretLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// FormatAPIKey renders the presentation form "wl_<key-id>.<secret>".
func FormatAPIKey(keyID uuid.UUID, secret string) string {
	return keyPrefix + keyID.String() + "." + secret
}

// ParseAPIKey splits a presented key into its id and secret.
func ParseAPIKey(plain string) (uuid.UUID, string, error) {
	if !strings.HasPrefix(plain, keyPrefix) {
		return uuid.Nil, "", fmt.Errorf("malformed api key")
	}
	rest := strings.TrimPrefix(plain, keyPrefix)
	idPart, secret, found := strings.Cut(rest, ".")
	if !found || secret == "" {
		return uuid.Nil, "", fmt.Errorf("malformed api key")
	}
	keyID, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("malformed api key id")
	}
	return keyID, secret, nil
}
