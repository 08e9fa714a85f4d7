package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/application/ports"
)

// RateLimit throttles requests per API key (per client IP before
// authentication). The backend decides the window semantics; a backend error
// fails open — the ledger's own locking keeps correctness, the limiter only
// protects capacity.
func RateLimit(limiter ports.RateLimiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if apiKey, ok := AuthenticatedKey(c); ok {
			key = "key:" + apiKey.ID().String()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.WarnContext(c.Request.Context(), "rate limiter unavailable, failing open",
				slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !allowed {
			common.TooManyRequests(c, 1)
			return
		}

		c.Next()
	}
}
