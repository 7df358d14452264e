package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FileSource supplies the file records relevant to a metering window.
// Implementations must already exclude records that could not have
// existed inside [windowStart, windowEnd): created at or after the window
// end, or deleted at or before the window start.
type FileSource interface {
	ListFiles(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]FileRecord, error)
}

// PriceSource supplies a user's price history. LatestPrice returns the
// entry with the newest effective_from at or before asOf, or nil when the
// user has no such entry.
type PriceSource interface {
	LatestPrice(ctx context.Context, userID uuid.UUID, asOf time.Time) (*PriceEntry, error)
}

// InvoiceStore persists invoices. CreateIfAbsent must be atomic on
// (user_id, year, month) under concurrent writers: it returns false with
// a nil error when an invoice for that key already exists, and must never
// produce a second row.
type InvoiceStore interface {
	CreateIfAbsent(ctx context.Context, inv Invoice) (created bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Invoice, error)
}

// UserSource lists the users a billing run iterates over.
type UserSource interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Stores bundles the collaborators a billing engine needs.
type Stores struct {
	Users    UserSource
	Files    FileSource
	Prices   PriceSource
	Invoices InvoiceStore
}

// Locker takes an advisory lock guarding against overlapping runs for the
// same period. Idempotent invoice writes remain the correctness backstop;
// the lock only avoids wasted duplicate work.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
