package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveRate(t *testing.T) {
	logger := zap.NewNop()
	prices := newMemPriceSource()
	resolver := NewRateResolver(prices, logger)
	userID := uuid.New()
	now := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no plan", func(t *testing.T) {
		_, err := resolver.ResolveRate(context.Background(), userID, now)
		assert.ErrorIs(t, err, ErrNoPlan)
	})

	prices.add(PriceEntry{
		ID:                 uuid.New(),
		UserID:             userID,
		PricePerByteSecond: decimal.RequireFromString("0.0000001"),
		EffectiveFrom:      time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})

	t.Run("single entry", func(t *testing.T) {
		rate, err := resolver.ResolveRate(context.Background(), userID, now)
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("0.0000001")))
	})

	prices.add(PriceEntry{
		ID:                 uuid.New(),
		UserID:             userID,
		PricePerByteSecond: decimal.RequireFromString("0.0000002"),
		EffectiveFrom:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
	})

	t.Run("latest entry wins", func(t *testing.T) {
		rate, err := resolver.ResolveRate(context.Background(), userID, now)
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("0.0000002")))
	})

	t.Run("entries after asOf are ignored", func(t *testing.T) {
		rate, err := resolver.ResolveRate(context.Background(), userID,
			time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("0.0000001")))
	})

	t.Run("other users are unaffected", func(t *testing.T) {
		_, err := resolver.ResolveRate(context.Background(), uuid.New(), now)
		assert.ErrorIs(t, err, ErrNoPlan)
	})
}
