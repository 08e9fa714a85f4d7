package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
)

// maxAuditBody caps how much of a request body is read for hashing.
const maxAuditBody = 1 << 20

// Audit writes one audit row per handled request: who called what, from
// where, with which outcome. The body itself is never stored, only its
// sha256, which is enough to tie a dispute to the exact request.
//
// Best-effort: an audit failure is logged and the response stands.
func Audit(auditRepo ports.AuditRepository, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestHash string
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(body))
				sum := sha256.Sum256(body)
				requestHash = hex.EncodeToString(sum[:])
			}
		}

		c.Next()

		var apiKeyID *uuid.UUID
		if key, ok := AuthenticatedKey(c); ok {
			id := key.ID()
			apiKeyID = &id
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		record := entities.NewAuditRecord(
			apiKeyID,
			c.Request.Method,
			route,
			c.ClientIP(),
			c.Writer.Status(),
			requestHash,
		)
		if err := auditRepo.Save(c.Request.Context(), record); err != nil {
			log.WarnContext(c.Request.Context(), "audit write failed",
				slog.String("route", route),
				slog.String("error", err.Error()))
		}
	}
}
