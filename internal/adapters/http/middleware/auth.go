package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/pkg/logger"
	"github.com/Haleralex/walletledger/internal/pkg/secrets"
)

const (
	apiKeyContextKey   = "api_key"
	adminSubContextKey = "admin_subject"
)

// APIKeyAuth authenticates requests with "Authorization: Bearer wl_<id>.<secret>".
//
// The key id is embedded in the presentation form, so authentication is one
// indexed lookup plus one argon2id verification — never a scan over hashes.
// Every failure mode returns the same 401 so callers cannot probe which key
// ids exist.
func APIKeyAuth(keyRepo ports.APIKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			common.Unauthorized(c, "missing or malformed Authorization header")
			return
		}

		keyID, secret, err := secrets.ParseAPIKey(token)
		if err != nil {
			common.Unauthorized(c, "invalid API key")
			return
		}

		key, err := keyRepo.FindByID(c.Request.Context(), keyID)
		if err != nil {
			common.Unauthorized(c, "invalid API key")
			return
		}

		match, err := secrets.VerifySecret(secret, key.KeyHash())
		if err != nil || !match {
			common.Unauthorized(c, "invalid API key")
			return
		}
		if !key.IsActive() {
			common.Unauthorized(c, "API key has been revoked")
			return
		}

		c.Set(apiKeyContextKey, key)

		ctx := logger.WithAPIKeyID(c.Request.Context(), key.ID().String())
		ctx = logger.WithWalletID(ctx, key.WalletID().String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// SetAuthenticatedKey injects the API key the way APIKeyAuth does. Handler
// tests use it to skip real authentication.
func SetAuthenticatedKey(c *gin.Context, key *entities.APIKey) {
	c.Set(apiKeyContextKey, key)
}

// AuthenticatedKey returns the API key set by APIKeyAuth.
func AuthenticatedKey(c *gin.Context) (*entities.APIKey, bool) {
	v, ok := c.Get(apiKeyContextKey)
	if !ok {
		return nil, false
	}
	key, ok := v.(*entities.APIKey)
	return key, ok
}

// MustAuthenticatedKey is AuthenticatedKey for handlers that only run behind
// APIKeyAuth. A missing key means a broken route table, not a client error.
func MustAuthenticatedKey(c *gin.Context) *entities.APIKey {
	key, ok := AuthenticatedKey(c)
	if !ok {
		panic("handler reached without APIKeyAuth middleware")
	}
	return key
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// adminClaims is the JWT payload of the operator surface.
type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminJWTAuth guards the operator endpoints. Tokens are HS256-signed by the
// deployment's control plane; only the "admin" role passes.
func AdminJWTAuth(signingSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			common.Unauthorized(c, "missing or malformed Authorization header")
			return
		}

		claims := &adminClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(signingSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))
		if err != nil || !parsed.Valid {
			common.Unauthorized(c, "invalid admin token")
			return
		}
		if claims.Role != "admin" {
			common.Unauthorized(c, "insufficient role")
			return
		}

		c.Set(adminSubContextKey, claims.Subject)
		c.Next()
	}
}

// AdminSubject returns the subject of the validated admin token.
func AdminSubject(c *gin.Context) string {
	return c.GetString(adminSubContextKey)
}
