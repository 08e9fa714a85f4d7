package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/entities"
	"github.com/Haleralex/walletledger/internal/domain/errors"
)

var _ ports.JournalRepository = (*JournalRepository)(nil)

// JournalRepository is the append-only journal. Entries and their lines are
// inserted together and never touched again; every balance and limit in the
// system is a sum over these rows.
type JournalRepository struct {
	pool *pgxpool.Pool
}

func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

func (r *JournalRepository) SaveEntry(ctx context.Context, entry *entities.JournalEntry) error {
	q := queryEngine(ctx, r.pool)

	metadata, err := json.Marshal(entry.Metadata())
	if err != nil {
		return errors.Wrap(errors.CodeStore, "encoding entry metadata", err)
	}

	amount := entry.Amount()
	_, err = q.Exec(ctx, `
		INSERT INTO journal_entries (id, kind, currency, amount_minor, linked_entry_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID(), string(entry.Kind()), amount.Currency().Code(), amount.MinorUnits(),
		entry.LinkedEntryID(), entry.Description(), metadata, entry.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrEntityAlreadyExists
		}
		return errors.Wrap(errors.CodeStore, "inserting journal entry", err)
	}

	for _, line := range entry.Lines() {
		_, err = q.Exec(ctx, `
			INSERT INTO journal_lines (id, entry_id, account_id, side, bucket, amount_minor, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			line.ID(), entry.ID(), line.AccountID(), string(line.Side()), string(line.Bucket()),
			line.Amount().MinorUnits(), line.Amount().Currency().Code(),
		)
		if err != nil {
			return errors.Wrap(errors.CodeStore, "inserting journal line", err)
		}
	}
	return nil
}

func (r *JournalRepository) FindEntryByID(ctx context.Context, id uuid.UUID) (*entities.JournalEntry, error) {
	q := queryEngine(ctx, r.pool)

	entries, err := r.loadEntries(ctx, q, `
		SELECT id, kind, linked_entry_id, description, metadata, created_at
		FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.ErrEntityNotFound
	}
	return entries[0], nil
}

// ListByAccount pages entries touching the account, newest first. The cursor
// encodes (created_at, id) of the last returned entry; ties on created_at
// break on id so the ordering is total.
func (r *JournalRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter ports.JournalFilter, cursor string, limit int) (ports.JournalPage, error) {
	q := queryEngine(ctx, r.pool)

	query := `
		SELECT DISTINCT e.id, e.kind, e.linked_entry_id, e.description, e.metadata, e.created_at
		FROM journal_entries e
		JOIN journal_lines l ON l.entry_id = e.id
		WHERE l.account_id = $1`
	args := []any{accountID}

	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		query += fmt.Sprintf(" AND e.kind = $%d", len(args))
	}
	if cursor != "" {
		at, id, err := decodeCursor(cursor)
		if err != nil {
			return ports.JournalPage{}, errors.New(errors.CodeValidation, "malformed cursor")
		}
		args = append(args, at, id)
		query += fmt.Sprintf(" AND (e.created_at, e.id) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY e.created_at DESC, e.id DESC LIMIT $%d", len(args))

	entries, err := r.loadEntries(ctx, q, query, args...)
	if err != nil {
		return ports.JournalPage{}, err
	}

	page := ports.JournalPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt(), last.ID())
	}
	return page, nil
}

// SumDebitsSince totals the account's AVAILABLE-bucket debits since the
// given time. This is the spend-window aggregate: transfers and holds count
// once when the money leaves AVAILABLE; captures and releases move HELD and
// count nothing.
func (r *JournalRepository) SumDebitsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	q := queryEngine(ctx, r.pool)

	var total int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.amount_minor), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = $1
		  AND l.side = 'DEBIT'
		  AND l.bucket = 'AVAILABLE'
		  AND e.created_at >= $2`, accountID, since).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(errors.CodeStore, "summing window debits", err)
	}
	return total, nil
}

func (r *JournalRepository) SumRefundsForCapture(ctx context.Context, captureEntryID uuid.UUID) (int64, error) {
	q := queryEngine(ctx, r.pool)

	var total int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_minor), 0)
		FROM journal_entries
		WHERE kind = 'REFUND' AND linked_entry_id = $1`, captureEntryID).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(errors.CodeStore, "summing refunds", err)
	}
	return total, nil
}

// loadEntries runs an entry query and attaches the lines of every returned
// entry.
func (r *JournalRepository) loadEntries(ctx context.Context, q querier, query string, args ...any) ([]*entities.JournalEntry, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying journal entries", err)
	}
	defer rows.Close()

	type entryRow struct {
		id            uuid.UUID
		kind          string
		linkedEntryID *uuid.UUID
		description   string
		metadata      []byte
		createdAt     time.Time
	}

	var heads []entryRow
	ids := make([]uuid.UUID, 0, 8)
	for rows.Next() {
		var h entryRow
		if err := rows.Scan(&h.id, &h.kind, &h.linkedEntryID, &h.description, &h.metadata, &h.createdAt); err != nil {
			return nil, errors.Wrap(errors.CodeStore, "scanning journal entry", err)
		}
		heads = append(heads, h)
		ids = append(ids, h.id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying journal entries", err)
	}
	if len(heads) == 0 {
		return nil, nil
	}

	lines, err := r.loadLines(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]*entities.JournalEntry, 0, len(heads))
	for _, h := range heads {
		var metadata map[string]string
		if len(h.metadata) > 0 {
			if err := json.Unmarshal(h.metadata, &metadata); err != nil {
				return nil, errors.Wrap(errors.CodeStore, "decoding entry metadata", err)
			}
		}
		entries = append(entries, entities.ReconstructJournalEntry(
			h.id, entities.EntryKind(h.kind), lines[h.id], h.linkedEntryID, h.description, metadata, h.createdAt,
		))
	}
	return entries, nil
}

func (r *JournalRepository) loadLines(ctx context.Context, q querier, entryIDs []uuid.UUID) (map[uuid.UUID][]entities.JournalLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, entry_id, account_id, side, bucket, amount_minor, currency
		FROM journal_lines
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, id`, entryIDs)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying journal lines", err)
	}
	defer rows.Close()

	lines := make(map[uuid.UUID][]entities.JournalLine, len(entryIDs))
	for rows.Next() {
		var (
			id           uuid.UUID
			entryID      uuid.UUID
			accountID    uuid.UUID
			side         string
			bucket       string
			amountMinor  int64
			currencyCode string
		)
		if err := rows.Scan(&id, &entryID, &accountID, &side, &bucket, &amountMinor, &currencyCode); err != nil {
			return nil, errors.Wrap(errors.CodeStore, "scanning journal line", err)
		}
		amount, err := moneyFrom(amountMinor, currencyCode)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStore, "rebuilding line amount", err)
		}
		lines[entryID] = append(lines[entryID], entities.ReconstructJournalLine(
			id, entryID, accountID, entities.Side(side), entities.Bucket(bucket), amount,
		))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying journal lines", err)
	}
	return lines, nil
}

func encodeCursor(at time.Time, id uuid.UUID) string {
	raw := fmt.Sprintf("%s|%s", at.UTC().Format(time.RFC3339Nano), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	return at, id, nil
}
