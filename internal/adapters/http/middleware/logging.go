package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
)

// LoggingConfig controls request logging.
type LoggingConfig struct {
	Logger *slog.Logger
	// SkipPaths are noisy endpoints excluded from access logs.
	SkipPaths []string
}

// DefaultLoggingConfig skips the probe endpoints.
func DefaultLoggingConfig(log *slog.Logger) *LoggingConfig {
	return &LoggingConfig{
		Logger:    log,
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}
}

// Logging emits one structured access-log line per request. Bodies are never
// logged: requests carry amounts and recipients, responses can carry a
// one-time API key secret.
func Logging(config *LoggingConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultLoggingConfig(slog.Default())
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", duration),
			slog.String("request_id", common.GetRequestID(c)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("response_size", c.Writer.Size()),
		}
		if replayed := c.Writer.Header().Get(common.ReplayedHeader); replayed != "" {
			attrs = append(attrs, slog.Bool("idempotent_replay", true))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		} else if c.Writer.Status() >= 400 {
			level = slog.LevelWarn
		}

		config.Logger.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}
