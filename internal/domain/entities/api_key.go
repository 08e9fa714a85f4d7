package entities

import (
	"time"

	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/google/uuid"
)

// Scope is a capability granted to an API key. Scopes gate operations, not
// data: every key can read its own wallet.
type Scope string

const (
	ScopeRead         Scope = "read"
	ScopeTransfer     Scope = "transfer"
	ScopeHold         Scope = "hold"
	ScopeCapture      Scope = "capture"
	ScopeRefund       Scope = "refund"
	ScopeIntentCreate Scope = "intent:create"
	ScopeIntentPay    Scope = "intent:pay"
	ScopeAdmin        Scope = "admin"

	// ScopeWildcard grants every scope. Issued to trusted internal services.
	ScopeWildcard Scope = "*"
)

// knownScopes is the whitelist checked at key issuance.
var knownScopes = map[Scope]bool{
	ScopeRead:         true,
	ScopeTransfer:     true,
	ScopeHold:         true,
	ScopeCapture:      true,
	ScopeRefund:       true,
	ScopeIntentCreate: true,
	ScopeIntentPay:    true,
	ScopeAdmin:        true,
	ScopeWildcard:     true,
}

// SpendLimits caps what a key may move. Amounts are minor units in the
// wallet's currency; nil means unlimited. The window ceiling is enforced over
// a rolling window computed from journal debits under the payer's lock, so
// two racing requests cannot both squeeze under the cap.
type SpendLimits struct {
	PerTxMaxMinor *int64
	WindowCeiling *int64
	Window        time.Duration
}

// APIKey authenticates a caller and binds it to one wallet. The secret is
// never stored — only its argon2id hash. Presentation format is
// "wl_<key-id>.<secret>" so lookup does not require scanning hashes.
type APIKey struct {
	id        uuid.UUID
	walletID  uuid.UUID
	keyHash   string // argon2id encoded hash of the secret
	label     string
	scopes    []Scope
	limits    SpendLimits
	revokedAt *time.Time
	createdAt time.Time
}

// NewAPIKey creates an active key for a wallet. keyHash must be the encoded
// argon2id hash produced by the auth layer.
func NewAPIKey(walletID uuid.UUID, keyHash, label string, scopes []Scope, limits SpendLimits) (*APIKey, error) {
	if walletID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "wallet id is required")
	}
	if keyHash == "" {
		return nil, errors.New(errors.CodeValidation, "key hash is required")
	}
	if len(scopes) == 0 {
		return nil, errors.New(errors.CodeValidation, "at least one scope is required")
	}
	for _, s := range scopes {
		if !knownScopes[s] {
			return nil, errors.Newf(errors.CodeValidation, "unknown scope %q", s)
		}
	}
	if limits.WindowCeiling != nil && limits.Window <= 0 {
		return nil, errors.New(errors.CodeValidation, "window ceiling requires a positive window")
	}
	return &APIKey{
		id:        uuid.New(),
		walletID:  walletID,
		keyHash:   keyHash,
		label:     label,
		scopes:    scopes,
		limits:    limits,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructAPIKey reconstructs an APIKey from stored data.
func ReconstructAPIKey(
	id, walletID uuid.UUID,
	keyHash, label string,
	scopes []Scope,
	limits SpendLimits,
	revokedAt *time.Time,
	createdAt time.Time,
) *APIKey {
	return &APIKey{
		id:        id,
		walletID:  walletID,
		keyHash:   keyHash,
		label:     label,
		scopes:    scopes,
		limits:    limits,
		revokedAt: revokedAt,
		createdAt: createdAt,
	}
}

func (k *APIKey) ID() uuid.UUID        { return k.id }
func (k *APIKey) WalletID() uuid.UUID  { return k.walletID }
func (k *APIKey) KeyHash() string      { return k.keyHash }
func (k *APIKey) Label() string        { return k.label }
func (k *APIKey) Limits() SpendLimits  { return k.limits }
func (k *APIKey) RevokedAt() *time.Time { return k.revokedAt }
func (k *APIKey) CreatedAt() time.Time { return k.createdAt }

// Scopes returns a copy of the key's scopes.
func (k *APIKey) Scopes() []Scope {
	out := make([]Scope, len(k.scopes))
	copy(out, k.scopes)
	return out
}

// IsActive reports whether the key may authenticate requests.
func (k *APIKey) IsActive() bool {
	return k.revokedAt == nil
}

// HasScope reports whether the key grants the scope, either directly or via
// the wildcard.
func (k *APIKey) HasScope(scope Scope) bool {
	for _, s := range k.scopes {
		if s == scope || s == ScopeWildcard {
			return true
		}
	}
	return false
}

// RequireScope returns a FORBIDDEN_SCOPE error when the key lacks the scope.
func (k *APIKey) RequireScope(scope Scope) error {
	if !k.HasScope(scope) {
		return errors.Newf(errors.CodeForbiddenScope, "missing required scope %q", scope).
			WithDetails(map[string]interface{}{"required_scope": string(scope)})
	}
	return nil
}

// Revoke deactivates the key. Revocation is permanent.
func (k *APIKey) Revoke(now time.Time) {
	if k.revokedAt == nil {
		t := now
		k.revokedAt = &t
	}
}
