package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateResolver selects the price per byte-second to apply to a user's
// period. The most recent entry wins and is applied to the whole period,
// even when it took effect partway through the period being billed.
type RateResolver struct {
	prices PriceSource
	logger *zap.Logger
}

// NewRateResolver creates a new rate resolver
func NewRateResolver(prices PriceSource, logger *zap.Logger) *RateResolver {
	return &RateResolver{prices: prices, logger: logger}
}

// ResolveRate returns the price per byte-second for userID as of asOf.
// Returns ErrNoPlan when the user has no price entry at or before asOf.
func (r *RateResolver) ResolveRate(ctx context.Context, userID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	entry, err := r.prices.LatestPrice(ctx, userID, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to look up price for user %s: %w", userID, err)
	}
	if entry == nil {
		return decimal.Zero, ErrNoPlan
	}

	r.logger.Debug("resolved rate",
		zap.String("user_id", userID.String()),
		zap.String("price_per_byte_second", entry.PricePerByteSecond.String()),
		zap.Time("effective_from", entry.EffectiveFrom),
	)

	return entry.PricePerByteSecond, nil
}
