package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytevault/server/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// PostgresStores implements the engine's collaborator interfaces against
// the shared connection pool.
type PostgresStores struct {
	db *database.Database
}

// NewPostgresStores creates Postgres-backed billing stores
func NewPostgresStores(db *database.Database) Stores {
	ps := &PostgresStores{db: db}
	return Stores{
		Users:    ps,
		Files:    ps,
		Prices:   ps,
		Invoices: ps,
	}
}

// ListUserIDs returns every user id in the system.
func (s *PostgresStores) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return ids, nil
}

// ListFiles returns the file records that overlap [windowStart, windowEnd).
// The exclusion of files that lived entirely outside the window happens
// here, at the query stage, not in the accumulator.
func (s *PostgresStores) ListFiles(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]FileRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, owner_id, size_bytes, created_at, deleted_at
		FROM files
		WHERE owner_id = $1
		  AND created_at < $3
		  AND (deleted_at IS NULL OR deleted_at > $2)
	`, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.SizeBytes, &rec.CreatedAt, &rec.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file records: %w", err)
	}

	return records, nil
}

// LatestPrice returns the user's newest price entry at or before asOf.
func (s *PostgresStores) LatestPrice(ctx context.Context, userID uuid.UUID, asOf time.Time) (*PriceEntry, error) {
	var entry PriceEntry
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, price_per_byte_second, effective_from
		FROM user_plan_prices
		WHERE user_id = $1 AND effective_from <= $2
		ORDER BY effective_from DESC
		LIMIT 1
	`, userID, asOf).Scan(&entry.ID, &entry.UserID, &entry.PricePerByteSecond, &entry.EffectiveFrom)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query price entry: %w", err)
	}

	return &entry, nil
}

// CreateIfAbsent inserts the invoice unless one already exists for the
// same (user, year, month). The UNIQUE constraint makes the insert atomic
// under concurrent writers; ON CONFLICT DO NOTHING turns the duplicate
// into a detectable no-op instead of an error.
func (s *PostgresStores) CreateIfAbsent(ctx context.Context, inv Invoice) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO invoices (id, user_id, year, month, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, year, month) DO NOTHING
	`, inv.ID, inv.UserID, inv.Year, inv.Month, inv.Amount, inv.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert invoice: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByUser returns a user's invoices, newest period first.
func (s *PostgresStores) ListByUser(ctx context.Context, userID uuid.UUID) ([]Invoice, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, user_id, year, month, amount, created_at
		FROM invoices
		WHERE user_id = $1
		ORDER BY year DESC, month DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Year, &inv.Month, &inv.Amount, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}
