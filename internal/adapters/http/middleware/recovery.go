package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
	"github.com/Haleralex/walletledger/internal/application/usecases/ledger"
)

// Recovery converts a handler panic into a 500 in the shared envelope. The
// stack goes to the log, never to the client.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", r),
					slog.String("request_id", common.GetRequestID(c)),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ledger.ErrorBody{
					Error: ledger.ErrorDetail{
						Code:    "STORE_ERROR",
						Message: "internal error",
					},
				})
			}
		}()

		c.Next()
	}
}
