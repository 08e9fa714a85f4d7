// Package middleware contains the gin middleware chain: correlation ids,
// authentication, logging, metrics, rate limiting, auditing and panic
// recovery.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/pkg/logger"
)

// RequestID assigns every request a correlation id. A client-supplied
// X-Request-ID is honoured so ids survive proxy hops; otherwise one is
// generated. The id is echoed in the response header and injected into the
// request context for structured logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeader)
		if id == "" {
			id = common.NewRequestID()
		}

		common.SetRequestID(c, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}
