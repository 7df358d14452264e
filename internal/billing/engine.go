package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/bytevault/server/pkg/events"
	"github.com/bytevault/server/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine is the schedulable entry point for storage billing. It wraps the
// run coordinator with the run lock, metrics and event publication.
type Engine struct {
	coordinator *Coordinator
	stores      Stores
	locker      Locker
	bus         *events.Bus
	logger      *zap.Logger
	lockTTL     time.Duration
}

// NewEngine creates a new billing engine
func NewEngine(stores Stores, locker Locker, bus *events.Bus, logger *zap.Logger, cfg RunConfig, lockTTL time.Duration) *Engine {
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	return &Engine{
		coordinator: NewCoordinator(stores, logger, cfg),
		stores:      stores,
		locker:      locker,
		bus:         bus,
		logger:      logger,
		lockTTL:     lockTTL,
	}
}

// RunForPeriod executes one billing run for an explicit period, used both
// by the monthly schedule and for backfills. Returns ErrRunInProgress when
// another run holds the lock for the same period.
func (e *Engine) RunForPeriod(ctx context.Context, period Period) (*RunResult, error) {
	lockKey := fmt.Sprintf("billing:run:%s", period)
	acquired, err := e.locker.AcquireLock(ctx, lockKey, e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := e.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			e.logger.Warn("failed to release run lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	result, err := e.coordinator.Run(ctx, period)
	if err != nil {
		return nil, err
	}

	metrics.ObserveBillingRun(result.Duration().Seconds(), result.InvoicesCreated, len(result.Failures))

	for _, inv := range result.Invoices {
		e.bus.Publish(ctx, events.NewEvent(events.EventInvoiceCreated, inv.UserID.String(), map[string]interface{}{
			"invoice_id": inv.ID.String(),
			"period":     period.String(),
			"amount":     inv.Amount.String(),
		}))
	}

	e.bus.Publish(ctx, events.NewEvent(events.EventBillingRunFinished, "", map[string]interface{}{
		"period":           period.String(),
		"invoices_created": result.InvoicesCreated,
		"already_billed":   result.AlreadyBilled,
		"skipped_zero":     result.SkippedZero,
		"failures":         len(result.Failures),
	}))

	return result, nil
}

// RunPrevious bills the month immediately preceding now. This is what the
// monthly schedule invokes.
func (e *Engine) RunPrevious(ctx context.Context, now time.Time) (*RunResult, error) {
	return e.RunForPeriod(ctx, PreviousPeriod(now))
}

// PreviewAmount computes the usage and amount one user would be billed for
// a period without persisting anything.
func (e *Engine) PreviewAmount(ctx context.Context, userID uuid.UUID, period Period) (usage float64, amount decimal.Decimal, err error) {
	usage, err = e.coordinator.usage.ComputeUsage(ctx, userID, period.Start(), period.End())
	if err != nil {
		return 0, decimal.Zero, err
	}

	rate, err := e.coordinator.rates.ResolveRate(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, decimal.Zero, err
	}

	return usage, decimal.NewFromFloat(usage).Mul(rate).Round(amountScale), nil
}

// ListInvoices returns all invoices emitted for one user.
func (e *Engine) ListInvoices(ctx context.Context, userID uuid.UUID) ([]Invoice, error) {
	return e.stores.Invoices.ListByUser(ctx, userID)
}
