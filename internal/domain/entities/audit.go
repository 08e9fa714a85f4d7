package entities

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one row of the request audit trail written by the HTTP
// audit middleware. Best-effort: a failed audit insert never fails the
// request it describes.
type AuditRecord struct {
	ID          uuid.UUID
	APIKeyID    *uuid.UUID // nil for unauthenticated requests
	Method      string
	Route       string
	RemoteIP    string
	Status      int
	RequestHash string // sha256 of the request body, empty for GETs
	CreatedAt   time.Time
}

// NewAuditRecord captures the audit fields of one handled request.
func NewAuditRecord(apiKeyID *uuid.UUID, method, route, remoteIP string, status int, requestHash string) *AuditRecord {
	return &AuditRecord{
		ID:          uuid.New(),
		APIKeyID:    apiKeyID,
		Method:      method,
		Route:       route,
		RemoteIP:    remoteIP,
		Status:      status,
		RequestHash: requestHash,
		CreatedAt:   time.Now().UTC(),
	}
}
