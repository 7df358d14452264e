package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FileRecord is the metering view of a stored file: who owns it, how big
// it is, and when it existed. Deletion is soft; DeletedAt is nil for live
// files and never cleared once set.
type FileRecord struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	SizeBytes int64
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the record has been soft-deleted.
func (f FileRecord) Deleted() bool {
	return f.DeletedAt != nil
}

// malformed reports whether the record violates its own invariants:
// deletedAt must be strictly after createdAt and size must be
// non-negative. Malformed records are excluded from metering with a
// warning rather than failing the user's bill.
func (f FileRecord) malformed() bool {
	if f.SizeBytes < 0 {
		return true
	}
	return f.DeletedAt != nil && !f.DeletedAt.After(f.CreatedAt)
}

// PriceEntry is one append-only entry in a user's price history.
type PriceEntry struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	PricePerByteSecond decimal.Decimal
	EffectiveFrom      time.Time
}

// Invoice is the bill for one user and one period. Amount is always
// positive: zero-usage invoices are suppressed, not stored.
type Invoice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Year      int
	Month     int
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// UserFailure records one user that could not be billed during a run.
type UserFailure struct {
	UserID uuid.UUID
	Reason string
}

// RunResult is the structured outcome of one billing run. The run itself
// never fails because of a single user; everything a caller needs for
// logging and alerting is here.
type RunResult struct {
	Period          Period
	UsersProcessed  int
	InvoicesCreated int
	AlreadyBilled   int
	SkippedZero     int
	// Invoices holds the invoices this run created, in no particular
	// order. Reruns that find existing invoices do not appear here.
	Invoices []Invoice
	Failures []UserFailure
	Started  time.Time
	Finished time.Time
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
