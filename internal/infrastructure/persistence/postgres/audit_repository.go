package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
)

var _ ports.AuditRepository = (*AuditRepository)(nil)

// AuditRepository stores the request audit trail. Writes are best-effort at
// the call site; the repository itself just inserts.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Save(ctx context.Context, record *entities.AuditRecord) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO audit_log (id, api_key_id, method, route, remote_ip, status, request_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.APIKeyID, record.Method, record.Route, record.RemoteIP,
		record.Status, record.RequestHash, record.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "inserting audit record", err)
	}
	return nil
}
