package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Accumulator computes storage usage in byte-seconds for one user over a
// closed time window.
type Accumulator struct {
	files  FileSource
	logger *zap.Logger
}

// NewAccumulator creates a new usage accumulator
func NewAccumulator(files FileSource, logger *zap.Logger) *Accumulator {
	return &Accumulator{files: files, logger: logger}
}

// ComputeUsage returns the total byte-seconds consumed by userID within
// [periodStart, periodEnd). The result is deterministic for a given file
// snapshot, never negative, and zero for users with no qualifying files.
func (a *Accumulator) ComputeUsage(ctx context.Context, userID uuid.UUID, periodStart, periodEnd time.Time) (float64, error) {
	if !periodStart.Before(periodEnd) {
		return 0, fmt.Errorf("invalid window: start %s is not before end %s", periodStart, periodEnd)
	}

	records, err := a.files.ListFiles(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to list files for user %s: %w", userID, err)
	}

	var total float64
	for _, rec := range records {
		if rec.malformed() {
			a.logger.Warn("excluding malformed file record from usage",
				zap.String("file_id", rec.ID.String()),
				zap.String("user_id", userID.String()),
				zap.Int64("size_bytes", rec.SizeBytes),
				zap.Time("created_at", rec.CreatedAt),
			)
			continue
		}
		total += Contribution(rec, periodStart, periodEnd)
	}

	return total, nil
}

// Contribution returns the byte-seconds a single file contributes to the
// half-open window [periodStart, periodEnd):
//
//	size × max(0, min(deletedAt or end, end) − max(createdAt, start))
//
// The clamp to zero covers files placed entirely outside the window. A
// file created exactly at the window end or deleted exactly at the window
// start contributes zero.
func Contribution(rec FileRecord, periodStart, periodEnd time.Time) float64 {
	effectiveStart := rec.CreatedAt
	if effectiveStart.Before(periodStart) {
		effectiveStart = periodStart
	}

	effectiveEnd := periodEnd
	if rec.DeletedAt != nil && rec.DeletedAt.Before(periodEnd) {
		effectiveEnd = *rec.DeletedAt
	}

	seconds := effectiveEnd.Sub(effectiveStart).Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(rec.SizeBytes) * seconds
}
